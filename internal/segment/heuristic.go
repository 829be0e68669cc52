// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package segment

import (
	"context"
	"strings"
	"unicode"
)

// sectionKeywords are headings commonly found in academic CVs, normalized
// to lowercase letters and single spaces.
var sectionKeywords = map[string]bool{
	"publications":                   true,
	"selected publications":          true,
	"recent publications":            true,
	"peer reviewed publications":     true,
	"refereed publications":          true,
	"journal articles":               true,
	"journal publications":           true,
	"refereed journal articles":      true,
	"conference papers":              true,
	"conference publications":        true,
	"conference proceedings":         true,
	"books":                          true,
	"book chapters":                  true,
	"books and book chapters":        true,
	"preprints":                      true,
	"working papers":                 true,
	"theses":                         true,
	"patents":                        true,
	"publications and patents":       true,
	"presentations":                  true,
	"talks":                          true,
	"invited talks":                  true,
	"education":                      true,
	"experience":                     true,
	"work experience":                true,
	"research experience":            true,
	"professional experience":        true,
	"employment":                     true,
	"academic appointments":          true,
	"skills":                         true,
	"technical skills":               true,
	"awards":                         true,
	"honors":                         true,
	"honors and awards":              true,
	"awards and honors":              true,
	"grants":                         true,
	"funding":                        true,
	"grants and funding":             true,
	"teaching":                       true,
	"teaching experience":            true,
	"supervision":                    true,
	"service":                        true,
	"professional service":           true,
	"professional activities":        true,
	"memberships":                    true,
	"professional memberships":       true,
	"research interests":             true,
	"summary":                        true,
	"profile":                        true,
	"contact":                        true,
	"contact information":            true,
	"languages":                      true,
	"certifications":                 true,
	"projects":                       true,
	"references":                     true,
	"editorial activities":           true,
	"reviewing":                      true,
	"other publications":             true,
	"publications in preparation":    true,
	"manuscripts under review":       true,
	"submitted manuscripts":          true,
	"international conferences":      true,
	"national conferences":           true,
	"scientific publications":        true,
	"list of publications":           true,
	"publications and presentations": true,
}

// maxHeaderWords bounds how long a header line may be.
const maxHeaderWords = 6

// HeuristicClassifier recognises section headers without an external model.
// A line is a header when it names a known CV section, is a Markdown heading,
// or is a short all-caps line outside the first two lines (which usually hold
// the candidate's name).
type HeuristicClassifier struct{}

// Predict implements Classifier. It never returns an error.
func (HeuristicClassifier) Predict(_ context.Context, line string, index, _ int) (bool, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return false, nil
	}
	if strings.HasPrefix(line, "#") {
		return true, nil
	}

	words := strings.Fields(line)
	if len(words) > maxHeaderWords {
		return false, nil
	}
	if strings.HasSuffix(line, ".") || strings.HasSuffix(line, ",") {
		return false, nil
	}

	if sectionKeywords[normalizeHeading(line)] {
		return true, nil
	}

	return index >= 2 && isShoutCase(line), nil
}

// normalizeHeading lowercases s, drops non-letters, and collapses spaces.
// "&" becomes "and" so "Honors & Awards" matches "honors and awards".
func normalizeHeading(s string) string {
	s = strings.ReplaceAll(strings.ToLower(s), "&", " and ")
	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsSpace(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// isShoutCase reports whether s has at least three letters, no lowercase
// letters, and no digits.
func isShoutCase(s string) bool {
	letters := 0
	for _, r := range s {
		switch {
		case unicode.IsDigit(r), unicode.IsLower(r):
			return false
		case unicode.IsLetter(r):
			letters++
		}
	}
	return letters >= 3
}
