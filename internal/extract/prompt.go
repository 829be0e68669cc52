package extract

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/pdiddy/cv-verify/pkg/types"
)

// extractionPromptTmpl instructs the model to list every publication in one
// batch of CV text, verified or not, as a single JSON object.
var extractionPromptTmpl = template.Must(template.New("extraction").Parse(`You are an academic publication verification system. The text below is part of the CV of {{.Candidate}}.

Find every publication listed in the text: journal articles, conference papers, books, book chapters, preprints, theses, and patents. Include every publication you find, whether or not you can confirm it exists online.

For each publication report:
- title: the exact title as written in the CV
- authors: the list of author names in CV order
- year: the publication year as a string, or "Unknown"
- venue: the journal, conference, or publisher, or "Unknown"
- type: one of "journal", "conference", "book", "chapter", "preprint", "thesis", "patent", "other"
- doi: the DOI if one is given, otherwise ""
- fullText: the full CV line or lines describing the publication

Then verify each publication:
- isOnline: true if the publication can be found in an online academic index
- hasAuthorMatch: true if the online record lists {{.Candidate}} as an author
- link: the URL of the online record, or ""
- citationCount: the citation count of the online record, or 0

Respond only with a JSON object of this exact shape and no other text:
{"allPublications": [{"publication": {"title": "", "authors": [], "year": "", "venue": "", "type": "", "doi": "", "fullText": ""}, "verification": {"isOnline": false, "hasAuthorMatch": false, "link": "", "citationCount": 0}}]}

If the text contains no publications respond with {"allPublications": []}.

CV text:
{{.Content}}
`))

// BuildPrompt renders the extraction prompt for one batch. An empty
// candidate name becomes "Unknown".
func BuildPrompt(candidate, content string) (string, error) {
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		candidate = types.UnknownValue
	}

	var buf bytes.Buffer
	data := struct{ Candidate, Content string }{Candidate: candidate, Content: content}
	if err := extractionPromptTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
