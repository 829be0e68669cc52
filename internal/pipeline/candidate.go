// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"strings"
	"unicode"

	"github.com/pdiddy/cv-verify/internal/segment"
)

// candidateScanLines bounds how far into a CV the name is looked for.
const candidateScanLines = 8

var notNameWords = map[string]bool{
	"curriculum": true, "vitae": true, "vita": true, "resume": true, "cv": true,
	"page": true, "contact": true, "profile": true, "address": true,
	"university": true, "department": true, "institute": true,
}

// GuessCandidateName returns the first line near the top of text that looks
// like a personal name: two to four words, each starting with an upper-case
// letter and made of letters, hyphens, apostrophes or periods. It returns ""
// when nothing qualifies.
func GuessCandidateName(text string) string {
	lines := segment.Lines(text)
	if len(lines) > candidateScanLines {
		lines = lines[:candidateScanLines]
	}
	for _, l := range lines {
		if looksLikeName(l) {
			return strings.Join(strings.Fields(l), " ")
		}
	}
	return ""
}

func looksLikeName(line string) bool {
	words := strings.Fields(line)
	if len(words) < 2 || len(words) > 4 {
		return false
	}
	for _, w := range words {
		if notNameWords[strings.ToLower(strings.Trim(w, ".,"))] {
			return false
		}
		first := []rune(w)[0]
		if !unicode.IsUpper(first) {
			return false
		}
		for _, r := range w {
			if !unicode.IsLetter(r) && r != '-' && r != '\'' && r != '.' {
				return false
			}
		}
	}
	return true
}
