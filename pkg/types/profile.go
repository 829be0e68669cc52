// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
)

// SourceName identifies an external academic source.
type SourceName string

const (
	SourceGoogleScholar SourceName = "google_scholar"
	SourceScopus        SourceName = "scopus"
	SourceOpenAlex      SourceName = "openalex"
)

// AllSources lists the sources in their default merge order.
var AllSources = []SourceName{SourceGoogleScholar, SourceScopus, SourceOpenAlex}

// ParseSourceName accepts a source name or a common alias ("scholar", "gs").
// An empty string returns "" with no error.
func ParseSourceName(s string) (SourceName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "google_scholar", "googlescholar", "scholar", "gs":
		return SourceGoogleScholar, nil
	case "scopus":
		return SourceScopus, nil
	case "openalex", "oa":
		return SourceOpenAlex, nil
	default:
		return "", fmt.Errorf("unknown source %q (want google_scholar, scopus, or openalex)", s)
	}
}

// AuthorIDs holds the candidate's identifier in each source. Any subset may be empty.
type AuthorIDs struct {
	GoogleScholar string `json:"google_scholar,omitempty" yaml:"google_scholar,omitempty"`
	Scopus        string `json:"scopus,omitempty" yaml:"scopus,omitempty"`
	OpenAlex      string `json:"openalex,omitempty" yaml:"openalex,omitempty"`
}

// Get returns the identifier for source.
func (ids AuthorIDs) Get(source SourceName) string {
	switch source {
	case SourceGoogleScholar:
		return ids.GoogleScholar
	case SourceScopus:
		return ids.Scopus
	case SourceOpenAlex:
		return ids.OpenAlex
	}
	return ""
}

// Set stores id for source.
func (ids *AuthorIDs) Set(source SourceName, id string) {
	switch source {
	case SourceGoogleScholar:
		ids.GoogleScholar = id
	case SourceScopus:
		ids.Scopus = id
	case SourceOpenAlex:
		ids.OpenAlex = id
	}
}

// SourceMetrics stores one integer metric per source. A nil entry means the
// source did not contribute. Values from different sources are never combined.
type SourceMetrics struct {
	GoogleScholar *int `json:"google_scholar" yaml:"google_scholar"`
	Scopus        *int `json:"scopus" yaml:"scopus"`
	OpenAlex      *int `json:"openalex" yaml:"openalex"`
}

// Get returns the metric for source, or nil.
func (m SourceMetrics) Get(source SourceName) *int {
	switch source {
	case SourceGoogleScholar:
		return m.GoogleScholar
	case SourceScopus:
		return m.Scopus
	case SourceOpenAlex:
		return m.OpenAlex
	}
	return nil
}

// Set stores v for source. A nil v leaves the existing value in place.
func (m *SourceMetrics) Set(source SourceName, v *int) {
	if v == nil {
		return
	}
	n := *v
	switch source {
	case SourceGoogleScholar:
		m.GoogleScholar = &n
	case SourceScopus:
		m.Scopus = &n
	case SourceOpenAlex:
		m.OpenAlex = &n
	}
}

// SourceRates stores one fractional metric per source, such as the
// two-year mean citedness. A nil entry means the source did not contribute.
type SourceRates struct {
	GoogleScholar *float64 `json:"google_scholar" yaml:"google_scholar"`
	Scopus        *float64 `json:"scopus" yaml:"scopus"`
	OpenAlex      *float64 `json:"openalex" yaml:"openalex"`
}

// Set stores v for source. A nil v leaves the existing value in place.
func (m *SourceRates) Set(source SourceName, v *float64) {
	if v == nil {
		return
	}
	n := *v
	switch source {
	case SourceGoogleScholar:
		m.GoogleScholar = &n
	case SourceScopus:
		m.Scopus = &n
	case SourceOpenAlex:
		m.OpenAlex = &n
	}
}

// YearCitations is one point of a citations-by-year graph.
type YearCitations struct {
	Year      int `json:"year" yaml:"year"`
	Citations int `json:"citations" yaml:"citations"`
}

// CitationGraphs stores each source's citations-by-year graph separately.
// Sources overlap in coverage, so graphs are never summed.
type CitationGraphs struct {
	GoogleScholar []YearCitations `json:"google_scholar" yaml:"google_scholar"`
	Scopus        []YearCitations `json:"scopus" yaml:"scopus"`
	OpenAlex      []YearCitations `json:"openalex" yaml:"openalex"`
}

// Get returns the graph for source.
func (g CitationGraphs) Get(source SourceName) []YearCitations {
	switch source {
	case SourceGoogleScholar:
		return g.GoogleScholar
	case SourceScopus:
		return g.Scopus
	case SourceOpenAlex:
		return g.OpenAlex
	}
	return nil
}

// Set stores points as the graph for source.
func (g *CitationGraphs) Set(source SourceName, points []YearCitations) {
	switch source {
	case SourceGoogleScholar:
		g.GoogleScholar = points
	case SourceScopus:
		g.Scopus = points
	case SourceOpenAlex:
		g.OpenAlex = points
	}
}

// Affiliation is one entry of an author's affiliation history.
type Affiliation struct {
	Name    string `json:"name" yaml:"name"`
	Country string `json:"country,omitempty" yaml:"country,omitempty"`
	Years   []int  `json:"years,omitempty" yaml:"years,omitempty"`
}

// Topic is a research topic a source assigns to the author.
type Topic struct {
	Name  string `json:"name" yaml:"name"`
	Field string `json:"field,omitempty" yaml:"field,omitempty"`
	Works int    `json:"works,omitempty" yaml:"works,omitempty"`
}

// AuthorIdentifiers holds the author's id in each source that contributed,
// plus their ORCID when a source reports one.
type AuthorIdentifiers struct {
	AuthorIDs `yaml:",inline"`

	ORCID string `json:"orcid,omitempty" yaml:"orcid,omitempty"`
}

// AuthorInfo is the identity part of an aggregated profile.
type AuthorInfo struct {
	Name               string        `json:"name" yaml:"name"`
	Surname            string        `json:"surname,omitempty" yaml:"surname,omitempty"`
	GivenName          string        `json:"givenName,omitempty" yaml:"given_name,omitempty"`
	AffiliationHistory []Affiliation `json:"affiliationHistory" yaml:"affiliation_history"`
	Topics             []Topic       `json:"topics,omitempty" yaml:"topics,omitempty"`
	Thumbnail          string        `json:"thumbnail,omitempty" yaml:"thumbnail,omitempty"`
}

// ArticleRecord is one externally confirmed published work inside an
// aggregated profile. After creation it is only enriched; CitedBy holds the
// maximum value any source reported.
type ArticleRecord struct {
	Title           string                `json:"title" yaml:"title"`
	Link            map[SourceName]string `json:"link" yaml:"link"`
	Authors         []string              `json:"authors" yaml:"authors"`
	PublicationName string                `json:"publicationName,omitempty" yaml:"publication_name,omitempty"`
	CitedBy         int                   `json:"citedBy" yaml:"cited_by"`
	Year            int                   `json:"year,omitempty" yaml:"year,omitempty"`
	DOI             string                `json:"doi,omitempty" yaml:"doi,omitempty"`
	Sources         []SourceName          `json:"sources" yaml:"sources"`

	ScholarCitationID string `json:"scholarCitationId,omitempty" yaml:"scholar_citation_id,omitempty"`
	ScopusEID         string `json:"scopusEid,omitempty" yaml:"scopus_eid,omitempty"`
	OpenAlexID        string `json:"openalexId,omitempty" yaml:"openalex_id,omitempty"`
}

// SourceOutcome records whether one source contributed to a profile.
type SourceOutcome struct {
	Source   SourceName `json:"source" yaml:"source"`
	AuthorID string     `json:"authorId,omitempty" yaml:"author_id,omitempty"`
	OK       bool       `json:"ok" yaml:"ok"`
	Error    string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// AuthorProfile is the merged author record built from up to three sources.
type AuthorProfile struct {
	Author               AuthorInfo        `json:"author" yaml:"author"`
	Identifiers          AuthorIdentifiers `json:"identifiers" yaml:"identifiers"`
	Articles             []ArticleRecord   `json:"articles" yaml:"articles"`
	HIndex               SourceMetrics     `json:"h_index" yaml:"h_index"`
	I10Index             SourceMetrics     `json:"i10_index" yaml:"i10_index"`
	DocumentCounts       SourceMetrics     `json:"documentCounts" yaml:"document_counts"`
	TotalCitations       SourceMetrics     `json:"totalCitations" yaml:"total_citations"`
	TwoYearMeanCitedness SourceRates       `json:"twoYearMeanCitedness" yaml:"two_year_mean_citedness"`
	Graph                CitationGraphs    `json:"graph" yaml:"graph"`
	Sources              []SourceOutcome   `json:"sources,omitempty" yaml:"sources,omitempty"`

	// VerifiedPublications is the number of CV publications verified with an author match.
	VerifiedPublications int `json:"verifiedPublications" yaml:"verified_publications"`

	// Minimal is true when the profile was synthesized from the candidate name alone.
	Minimal bool `json:"minimal" yaml:"minimal"`
}
