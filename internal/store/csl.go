// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// FormatCSL writes the verified publications of runs as a CSL-YAML
// bibliography that Pandoc and reference managers can read.
const FormatCSL = "csl"

// CSLItem is one bibliography entry in CSL-YAML form.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
	Note           string    `yaml:"note,omitempty"`
}

// CSLName is a person's name split into CSL parts.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a CSL date given as date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

var cslTypes = map[string]string{
	"journal":    "article-journal",
	"article":    "article-journal",
	"conference": "paper-conference",
	"proceeding": "paper-conference",
	"book":       "book",
	"chapter":    "chapter",
	"thesis":     "thesis",
	"patent":     "patent",
	"preprint":   "article",
	"report":     "report",
}

// cslItems converts the online-verified publications of each run. Records
// that could not be found online are left out.
func cslItems(runs []*types.VerificationResult) []CSLItem {
	items := []CSLItem{}
	for _, r := range runs {
		for i, p := range r.Publications {
			if p.Status() == types.StatusNotVerified {
				continue
			}
			items = append(items, toCSLItem(fmt.Sprintf("%s-%d", r.RunID, i+1), p))
		}
	}
	return items
}

func toCSLItem(id string, p types.PublicationRecord) CSLItem {
	item := CSLItem{
		ID:    id,
		Type:  "article",
		Title: p.Title,
		DOI:   p.DOI,
		URL:   p.Verification.Link,
	}
	if t, ok := cslTypes[strings.ToLower(strings.TrimSpace(p.Type))]; ok {
		item.Type = t
	}
	if p.Venue != types.UnknownValue {
		item.ContainerTitle = p.Venue
	}
	if y := cslYear(p.Year); y > 0 {
		item.Issued = &CSLDate{DateParts: [][]int{{y}}}
	}
	if p.Status() == types.StatusVerifiedOtherName {
		item.Note = "online record lists a different author name"
	}
	for _, a := range p.Authors {
		if n := parseAuthorName(a); n != (CSLName{}) {
			item.Author = append(item.Author, n)
		}
	}
	return item
}

func cslYear(s string) int {
	s = strings.TrimSpace(s)
	if len(s) < 4 {
		return 0
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return 0
	}
	return y
}

// parseAuthorName accepts "Family, Given" or "Given Family". A single token
// becomes a literal name.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	if family, given, ok := strings.Cut(name, ","); ok {
		return CSLName{Family: strings.TrimSpace(family), Given: strings.TrimSpace(given)}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{Given: strings.TrimSpace(name[:idx]), Family: name[idx+1:]}
}
