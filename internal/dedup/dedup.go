// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package dedup merges per-batch publication lists into one list keyed on
// normalized title.
package dedup

import (
	"strings"
	"unicode"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// NormalizeTitle lowercases title, keeps only letters, digits and spaces,
// and collapses runs of whitespace.
func NormalizeTitle(title string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Deduplicate keeps the first record for each normalized title, in input
// order, and returns how many records were dropped. Matching is exact on the
// normalized form. Records whose normalized title is empty are dropped too.
func Deduplicate(records []types.PublicationRecord) ([]types.PublicationRecord, int) {
	seen := make(map[string]bool, len(records))
	deduped := make([]types.PublicationRecord, 0, len(records))
	removed := 0

	for _, r := range records {
		key := NormalizeTitle(r.Title)
		if key == "" || seen[key] {
			removed++
			continue
		}
		seen[key] = true
		deduped = append(deduped, r)
	}

	return deduped, removed
}
