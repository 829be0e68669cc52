// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package sources implements clients for the academic identity sources a
// candidate's profile is built from: Google Scholar (through SerpAPI),
// Elsevier Scopus, and OpenAlex. Each client maps its source's response
// shapes into SourceProfile at the boundary, so the merge logic never sees
// source-specific field names.
package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/httputil"
	"github.com/pdiddy/cv-verify/internal/logging"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// Source is one academic source. SearchAuthor resolves a name to candidate
// identifiers; FetchProfile loads the author record and their works.
type Source interface {
	Name() types.SourceName
	SearchAuthor(ctx context.Context, name string) ([]Candidate, error)
	FetchProfile(ctx context.Context, authorID string) (*SourceProfile, error)
}

// Candidate is one author-search hit.
type Candidate struct {
	Source      types.SourceName `json:"source" yaml:"source"`
	ID          string           `json:"id" yaml:"id"`
	Name        string           `json:"name" yaml:"name"`
	Affiliation string           `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
	CitedBy     int              `json:"citedBy,omitempty" yaml:"cited_by,omitempty"`
	WorksCount  int              `json:"worksCount,omitempty" yaml:"works_count,omitempty"`
}

// SourceProfile is one source's view of an author, normalized to the shared
// data model. Nil metrics mean the source does not report them.
type SourceProfile struct {
	Source         types.SourceName
	AuthorID       string
	ORCID          string
	Author         types.AuthorInfo
	Articles       []types.ArticleRecord
	HIndex         *int
	I10Index       *int
	DocumentCount  *int
	TotalCitations *int
	MeanCitedness  *float64
	Graph          []types.YearCitations
}

// newJSONClient builds the rate-limited client shared by all sources.
func newJSONClient(cfg types.SourcesConfig) *httputil.JSONClient {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	c := httputil.NewJSONClient(httpClient, cfg.RequestsPerSecond, 0)
	if cfg.UserAgent != "" {
		c.Header.Set("User-Agent", cfg.UserAgent)
	}
	return c
}

func maxArticles(cfg types.SourcesConfig) int {
	if cfg.MaxArticles > 0 {
		return cfg.MaxArticles
	}
	return types.DefaultMaxArticles
}

func sourceLogger(l *zap.Logger, source types.SourceName) *zap.Logger {
	return logging.OrNop(l).With(zap.String("source", string(source)))
}

// NormalizeDOI lowercases a DOI and strips resolver prefixes such as
// "https://doi.org/" and "doi:".
func NormalizeDOI(doi string) string {
	d := strings.ToLower(strings.TrimSpace(doi))
	for _, prefix := range []string{"https://doi.org/", "http://doi.org/", "https://dx.doi.org/", "http://dx.doi.org/", "doi.org/", "doi:"} {
		d = strings.TrimPrefix(d, prefix)
	}
	return strings.TrimSpace(d)
}

// firstNonEmpty returns the first argument that is not blank.
func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func intPtr(n int) *int { return &n }

// flexInt decodes JSON numbers and numeric strings. Scopus reports most
// counts as strings.
type flexInt int

func (n *flexInt) UnmarshalJSON(data []byte) error {
	*n = 0
	s := strings.Trim(string(bytes.TrimSpace(data)), `"`)
	if s == "" || s == "null" {
		return nil
	}
	if v, err := strconv.Atoi(s); err == nil {
		*n = flexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		*n = flexInt(int(f))
	}
	return nil
}

// oneOrMany decodes either a single JSON object or an array of them.
type oneOrMany[T any] []T

func (o *oneOrMany[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*o = nil
		return nil
	}
	if data[0] == '[' {
		var many []T
		if err := json.Unmarshal(data, &many); err != nil {
			return err
		}
		*o = many
		return nil
	}
	var one T
	if err := json.Unmarshal(data, &one); err != nil {
		return err
	}
	*o = oneOrMany[T]{one}
	return nil
}

// parseYear returns the leading four-digit year in s, or 0.
func parseYear(s string) int {
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

// splitAuthors splits a comma-separated author string.
func splitAuthors(s string) []string {
	var out []string
	for _, a := range strings.Split(s, ",") {
		a = strings.TrimSpace(a)
		if a != "" && a != "..." {
			out = append(out, a)
		}
	}
	return out
}
