// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cv-verify/internal/httputil"
	"github.com/pdiddy/cv-verify/pkg/types"
)

func init() {
	httputil.RetryBaseDelay = time.Millisecond
	httputil.RetryMaxDelay = 5 * time.Millisecond
}

func TestNormalizeDOI(t *testing.T) {
	tests := []struct{ in, want string }{
		{"10.1/ABC", "10.1/abc"},
		{"https://doi.org/10.1/abc", "10.1/abc"},
		{"http://dx.doi.org/10.1/abc", "10.1/abc"},
		{"doi:10.1/abc", "10.1/abc"},
		{"  ", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeDOI(tt.in), tt.in)
	}
}

func TestStripOpenAlexID(t *testing.T) {
	assert.Equal(t, "A5023888391", StripOpenAlexID("https://openalex.org/A5023888391"))
	assert.Equal(t, "A5023888391", StripOpenAlexID("https://openalex.org/authors/A5023888391/"))
	assert.Equal(t, "A1", StripOpenAlexID("A1"))
	assert.Equal(t, "", StripOpenAlexID(""))
}

func TestFlexInt(t *testing.T) {
	var v struct {
		A, B, C, D flexInt
	}
	require.NoError(t, json.Unmarshal([]byte(`{"A": 12, "B": "34", "C": null, "D": "n/a"}`), &v))
	assert.Equal(t, flexInt(12), v.A)
	assert.Equal(t, flexInt(34), v.B)
	assert.Equal(t, flexInt(0), v.C)
	assert.Equal(t, flexInt(0), v.D)
}

func TestOneOrMany(t *testing.T) {
	type item struct {
		N int `json:"n"`
	}
	var one, many, none oneOrMany[item]
	require.NoError(t, json.Unmarshal([]byte(`{"n": 1}`), &one))
	require.NoError(t, json.Unmarshal([]byte(`[{"n": 1}, {"n": 2}]`), &many))
	require.NoError(t, json.Unmarshal([]byte(`null`), &none))
	assert.Equal(t, oneOrMany[item]{{N: 1}}, one)
	assert.Equal(t, oneOrMany[item]{{N: 1}, {N: 2}}, many)
	assert.Empty(t, none)
}

func TestParseYearAndSplitAuthors(t *testing.T) {
	assert.Equal(t, 2015, parseYear("2015"))
	assert.Equal(t, 2020, parseYear("2020-01-01"))
	assert.Equal(t, 0, parseYear("n.d."))
	assert.Equal(t, []string{"J Doe", "A Smith"}, splitAuthors("J Doe, A Smith, ..."))
}

// --- Google Scholar ---

const scholarAuthorJSON = `{
  "author": {"name": "Jane Doe", "affiliations": "Stanford University", "thumbnail": "https://example.org/jd.png"},
  "articles": [
    {"title": "Deep Learning for CVs", "link": "https://scholar.example/1", "citation_id": "abc:1",
     "authors": "J Doe, A Smith", "publication": "JMLR 21, 2020", "year": "2020",
     "cited_by": {"value": 12, "link": "https://scholar.example/cites/1"}},
    {"title": "Graph Methods", "citation_id": "abc:2", "authors": "J Doe", "year": "", "cited_by": {"value": null}},
    {"title": "  "}
  ],
  "cited_by": {
    "table": [
      {"citations": {"all": 1000, "since_2019": 500}},
      {"h_index": {"all": 15, "since_2019": 10}},
      {"i10_index": {"all": 20, "since_2019": 12}}
    ],
    "graph": [{"year": 2019, "citations": 80}, {"year": 2020, "citations": 120}]
  }
}`

func newTestScholar(t *testing.T, handler http.HandlerFunc) *ScholarSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	orig := serpAPIBase
	serpAPIBase = srv.URL + "/search.json"
	t.Cleanup(func() { serpAPIBase = orig })
	return NewScholarSource(types.SourcesConfig{SerpAPIKey: "k"}, nil)
}

func TestScholarFetchProfile(t *testing.T) {
	s := newTestScholar(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "google_scholar_author", q.Get("engine"))
		assert.Equal(t, "AUTH1", q.Get("author_id"))
		assert.Equal(t, "k", q.Get("api_key"))
		assert.Equal(t, "0", q.Get("start"))
		fmt.Fprint(w, scholarAuthorJSON)
	})

	p, err := s.FetchProfile(context.Background(), "AUTH1")
	require.NoError(t, err)

	assert.Equal(t, types.SourceGoogleScholar, p.Source)
	assert.Equal(t, "Jane Doe", p.Author.Name)
	assert.Equal(t, []types.Affiliation{{Name: "Stanford University"}}, p.Author.AffiliationHistory)
	require.NotNil(t, p.HIndex)
	require.NotNil(t, p.I10Index)
	assert.Equal(t, 15, *p.HIndex)
	assert.Equal(t, 20, *p.I10Index)
	assert.Nil(t, p.DocumentCount)
	require.NotNil(t, p.TotalCitations)
	assert.Equal(t, 1000, *p.TotalCitations)
	assert.Equal(t, []types.YearCitations{{Year: 2019, Citations: 80}, {Year: 2020, Citations: 120}}, p.Graph)

	require.Len(t, p.Articles, 2)
	a := p.Articles[0]
	assert.Equal(t, "Deep Learning for CVs", a.Title)
	assert.Equal(t, []string{"J Doe", "A Smith"}, a.Authors)
	assert.Equal(t, 12, a.CitedBy)
	assert.Equal(t, 2020, a.Year)
	assert.Equal(t, "https://scholar.example/1", a.Link[types.SourceGoogleScholar])
	assert.Equal(t, []types.SourceName{types.SourceGoogleScholar}, a.Sources)

	b := p.Articles[1]
	assert.Equal(t, 0, b.CitedBy)
	assert.Contains(t, b.Link[types.SourceGoogleScholar], "citation_for_view=abc%3A2")
}

func TestScholarFetchProfile_Pages(t *testing.T) {
	page := func(n, offset int) string {
		arts := make([]map[string]any, n)
		for i := range arts {
			arts[i] = map[string]any{"title": fmt.Sprintf("Paper %d", offset+i)}
		}
		b, _ := json.Marshal(map[string]any{"author": map[string]any{"name": "J"}, "articles": arts})
		return string(b)
	}

	var starts []string
	s := newTestScholar(t, func(w http.ResponseWriter, r *http.Request) {
		start := r.URL.Query().Get("start")
		starts = append(starts, start)
		if start == "0" {
			fmt.Fprint(w, page(scholarPageSize, 0))
			return
		}
		fmt.Fprint(w, page(3, scholarPageSize))
	})

	p, err := s.FetchProfile(context.Background(), "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "100"}, starts)
	assert.Len(t, p.Articles, scholarPageSize+3)
	assert.Equal(t, "Paper 102", p.Articles[102].Title)

	s.MaxArticles = 50
	starts = nil
	p, err = s.FetchProfile(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, p.Articles, 50)
	assert.Equal(t, []string{"0"}, starts)
}

func TestScholarFetchProfile_Errors(t *testing.T) {
	s := newTestScholar(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error": "Google hasn't returned any results for this query."}`)
	})
	_, err := s.FetchProfile(context.Background(), "A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned any results")

	s.APIKey = ""
	_, err = s.FetchProfile(context.Background(), "A")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no SerpAPI key")
}

func TestScholarSearchAuthor(t *testing.T) {
	s := newTestScholar(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "google_scholar_profiles", r.URL.Query().Get("engine"))
		assert.Equal(t, "Jane Doe", r.URL.Query().Get("mauthors"))
		fmt.Fprint(w, `{"profiles": [
		  {"name": "Jane Doe", "author_id": "JD1", "affiliations": "Stanford", "cited_by": 1000},
		  {"name": "No ID"}
		]}`)
	})
	got, err := s.SearchAuthor(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{
		Source: types.SourceGoogleScholar, ID: "JD1", Name: "Jane Doe", Affiliation: "Stanford", CitedBy: 1000,
	}}, got)
}

// --- Scopus ---

const scopusAuthorJSON = `{"author-retrieval-response": [{
  "coredata": {"dc:identifier": "AUTHOR_ID:5555", "document-count": "45", "cited-by-count": "900"},
  "h-index": "14",
  "author-profile": {
    "preferred-name": {"surname": "Doe", "given-name": "Jane", "indexed-name": "Doe J."},
    "affiliation-current": {"affiliation": {"ip-doc": {"afdispname": "Stanford Univ", "preferred-name": {"$": "Stanford University"}, "address": {"country": "United States"}}}},
    "affiliation-history": {"affiliation": [
      {"ip-doc": {"preferred-name": {"$": "Stanford University"}}},
      {"ip-doc": {"afdispname": "MIT", "address": {"country": "United States"}}}
    ]}
  }
}]}`

const scopusSearchJSON = `{"search-results": {
  "opensearch:totalResults": "2",
  "entry": [
    {"eid": "2-s2.0-1", "dc:title": "Deep Learning for CVs", "prism:doi": "10.1/ABC", "citedby-count": "5",
     "prism:publicationName": "JMLR", "prism:coverDate": "2020-03-01", "dc:creator": "Doe J.",
     "link": [{"@ref": "self", "@href": "https://api.example/self"}, {"@ref": "scopus", "@href": "https://scopus.example/1"}]},
    {"eid": "2-s2.0-2", "dc:title": "Graph Methods", "citedby-count": "0", "prism:coverDate": "2021-01-01",
     "author": [{"authname": "Doe J."}, {"authname": "Roe R."}]}
  ]
}}`

func newTestScopus(t *testing.T, handler http.HandlerFunc) *ScopusSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	orig := scopusAPIBase
	scopusAPIBase = srv.URL
	t.Cleanup(func() { scopusAPIBase = orig })
	return NewScopusSource(types.SourcesConfig{ScopusAPIKey: "key"}, nil)
}

func TestScopusFetchProfile(t *testing.T) {
	s := newTestScopus(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "key", r.Header.Get("X-ELS-APIKey"))
		switch r.URL.Path {
		case "/author/author_id/5555":
			assert.Equal(t, "ENHANCED", r.URL.Query().Get("view"))
			fmt.Fprint(w, scopusAuthorJSON)
		case "/search/scopus":
			assert.Equal(t, "AU-ID(5555)", r.URL.Query().Get("query"))
			fmt.Fprint(w, scopusSearchJSON)
		default:
			http.NotFound(w, r)
		}
	})

	p, err := s.FetchProfile(context.Background(), "AUTHOR_ID:5555")
	require.NoError(t, err)

	assert.Equal(t, "5555", p.AuthorID)
	assert.Equal(t, "Jane Doe", p.Author.Name)
	assert.Equal(t, "Doe", p.Author.Surname)
	assert.Equal(t, "Jane", p.Author.GivenName)
	assert.Equal(t, []types.Affiliation{
		{Name: "Stanford University", Country: "United States"},
		{Name: "MIT", Country: "United States"},
	}, p.Author.AffiliationHistory)
	require.NotNil(t, p.HIndex)
	assert.Equal(t, 14, *p.HIndex)
	assert.Nil(t, p.I10Index)
	require.NotNil(t, p.DocumentCount)
	assert.Equal(t, 45, *p.DocumentCount)
	require.NotNil(t, p.TotalCitations)
	assert.Equal(t, 900, *p.TotalCitations)
	assert.Empty(t, p.Graph)

	require.Len(t, p.Articles, 2)
	a := p.Articles[0]
	assert.Equal(t, "10.1/abc", a.DOI)
	assert.Equal(t, 5, a.CitedBy)
	assert.Equal(t, 2020, a.Year)
	assert.Equal(t, "JMLR", a.PublicationName)
	assert.Equal(t, []string{"Doe J."}, a.Authors)
	assert.Equal(t, "https://scopus.example/1", a.Link[types.SourceScopus])
	assert.Equal(t, "2-s2.0-1", a.ScopusEID)

	b := p.Articles[1]
	assert.Equal(t, []string{"Doe J.", "Roe R."}, b.Authors)
	assert.Empty(t, b.Link)
}

func TestScopusFetchProfile_SingleObjectShapes(t *testing.T) {
	s := newTestScopus(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/author/author_id/7":
			fmt.Fprint(w, `{"author-retrieval-response": {"coredata": {"document-count": 3},
			  "author-profile": {"preferred-name": {"indexed-name": "Roe R."}}}}`)
		case "/search/scopus":
			fmt.Fprint(w, `{"search-results": {"opensearch:totalResults": "0", "entry": [{"error": "Result set was empty"}]}}`)
		}
	})

	p, err := s.FetchProfile(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Roe R.", p.Author.Name)
	assert.Nil(t, p.HIndex)
	assert.Equal(t, 3, *p.DocumentCount)
	assert.Empty(t, p.Articles)
}

func TestScopusFetchProfile_NotFound(t *testing.T) {
	s := newTestScopus(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"service-error": {"status": {"statusCode": "RESOURCE_NOT_FOUND"}}}`, http.StatusNotFound)
	})
	_, err := s.FetchProfile(context.Background(), "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, httputil.ErrNotFound)
}

func TestScopusRequiresKey(t *testing.T) {
	s := NewScopusSource(types.SourcesConfig{}, nil)
	_, err := s.FetchProfile(context.Background(), "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestScopusSearchAuthor(t *testing.T) {
	s := newTestScopus(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/author", r.URL.Path)
		assert.Equal(t, "AUTHLASTNAME(Doe) AND AUTHFIRST(Jane)", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"search-results": {"entry": [
		  {"dc:identifier": "AUTHOR_ID:5555", "preferred-name": {"surname": "Doe", "given-name": "Jane"},
		   "document-count": "45", "affiliation-current": {"affiliation-name": "Stanford University"}}
		]}}`)
	})
	got, err := s.SearchAuthor(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{
		Source: types.SourceScopus, ID: "5555", Name: "Jane Doe", Affiliation: "Stanford University", WorksCount: 45,
	}}, got)
}

func TestScopusAuthorQuery(t *testing.T) {
	assert.Equal(t, "", scopusAuthorQuery(""))
	assert.Equal(t, "AUTHLASTNAME(Doe)", scopusAuthorQuery("Doe"))
	assert.Equal(t, "AUTHLASTNAME(Doe) AND AUTHFIRST(Mary Jane)", scopusAuthorQuery("Mary Jane Doe"))
}

// --- OpenAlex ---

const openAlexAuthorJSON = `{
  "id": "https://openalex.org/A123",
  "display_name": "Jane Doe",
  "orcid": "https://orcid.org/0000-0001",
  "works_count": 50,
  "cited_by_count": 1100,
  "summary_stats": {"h_index": 16, "i10_index": 22, "2yr_mean_citedness": 1.5},
  "last_known_institutions": [{"display_name": "Stanford University", "country_code": "us"}],
  "affiliations": [
    {"institution": {"display_name": "Stanford University", "country_code": "US"}, "years": [2021, 2022]},
    {"institution": {"display_name": "University of Oxford", "country_code": "GB"}, "years": [2018]}
  ],
  "topics": [
    {"display_name": "Graph Neural Networks", "count": 12, "field": {"display_name": "Computer Science"}},
    {"display_name": "", "count": 1},
    {"display_name": "Molecular Property Prediction", "count": 4}
  ],
  "counts_by_year": [
    {"year": 2022, "works_count": 5, "cited_by_count": 200},
    {"year": 2021, "works_count": 4, "cited_by_count": 150}
  ]
}`

func newTestOpenAlex(t *testing.T, handler http.HandlerFunc) *OpenAlexSource {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	orig := openAlexAPIBase
	openAlexAPIBase = srv.URL
	t.Cleanup(func() { openAlexAPIBase = orig })
	return NewOpenAlexSource(types.SourcesConfig{OpenAlexEmail: "me@example.org", HTTPConfig: types.HTTPConfig{UserAgent: "cv-verify-test"}}, nil)
}

func TestOpenAlexFetchProfile(t *testing.T) {
	var cursors []string
	s := newTestOpenAlex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "me@example.org", r.URL.Query().Get("mailto"))
		assert.Equal(t, "cv-verify-test", r.Header.Get("User-Agent"))
		switch r.URL.Path {
		case "/authors/A123":
			fmt.Fprint(w, openAlexAuthorJSON)
		case "/works":
			assert.Equal(t, "author.id:A123", r.URL.Query().Get("filter"))
			cursor := r.URL.Query().Get("cursor")
			cursors = append(cursors, cursor)
			if cursor == "*" {
				fmt.Fprint(w, `{"meta": {"next_cursor": "page2"}, "results": [
				  {"id": "https://openalex.org/W1", "doi": "https://doi.org/10.1/ABC", "title": "Deep Learning for CVs",
				   "publication_year": 2020, "cited_by_count": 9,
				   "primary_location": {"landing_page_url": "https://jmlr.example/1", "source": {"display_name": "JMLR"}},
				   "authorships": [{"author": {"display_name": "Jane Doe"}}, {"author": {"display_name": "Al Smith"}}]}
				]}`)
				return
			}
			fmt.Fprint(w, `{"meta": {"next_cursor": null}, "results": [
			  {"id": "https://openalex.org/W2", "display_name": "Graph Methods", "publication_year": 2021,
			   "primary_location": {"landing_page_url": "https://neurips.example/2", "source": null}}
			]}`)
		default:
			http.NotFound(w, r)
		}
	})

	p, err := s.FetchProfile(context.Background(), "https://openalex.org/A123")
	require.NoError(t, err)
	assert.Equal(t, []string{"*", "page2"}, cursors)

	assert.Equal(t, "A123", p.AuthorID)
	assert.Equal(t, "0000-0001", p.ORCID)
	assert.Equal(t, "Jane Doe", p.Author.Name)
	assert.Equal(t, []types.Affiliation{
		{Name: "Stanford University", Country: "US", Years: []int{2021, 2022}},
		{Name: "University of Oxford", Country: "GB", Years: []int{2018}},
	}, p.Author.AffiliationHistory)
	assert.Equal(t, []types.Topic{
		{Name: "Graph Neural Networks", Field: "Computer Science", Works: 12},
		{Name: "Molecular Property Prediction", Works: 4},
	}, p.Author.Topics)
	assert.Equal(t, 16, *p.HIndex)
	assert.Equal(t, 22, *p.I10Index)
	assert.Equal(t, 50, *p.DocumentCount)
	assert.Equal(t, 1100, *p.TotalCitations)
	require.NotNil(t, p.MeanCitedness)
	assert.InDelta(t, 1.5, *p.MeanCitedness, 1e-9)
	assert.Equal(t, []types.YearCitations{{Year: 2021, Citations: 150}, {Year: 2022, Citations: 200}}, p.Graph)

	require.Len(t, p.Articles, 2)
	a := p.Articles[0]
	assert.Equal(t, "10.1/abc", a.DOI)
	assert.Equal(t, "https://doi.org/10.1/abc", a.Link[types.SourceOpenAlex])
	assert.Equal(t, "JMLR", a.PublicationName)
	assert.Equal(t, []string{"Jane Doe", "Al Smith"}, a.Authors)
	assert.Equal(t, "W1", a.OpenAlexID)

	b := p.Articles[1]
	assert.Equal(t, "Graph Methods", b.Title)
	assert.Equal(t, "https://neurips.example/2", b.Link[types.SourceOpenAlex])
	assert.Equal(t, "", b.PublicationName)
}

func TestOpenAlexFetchProfile_MaxArticles(t *testing.T) {
	s := newTestOpenAlex(t, func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/authors/") {
			fmt.Fprint(w, `{"id": "A1", "display_name": "X"}`)
			return
		}
		assert.Equal(t, "1", r.URL.Query().Get("per-page"))
		fmt.Fprint(w, `{"meta": {"next_cursor": "more"}, "results": [{"id": "W", "title": "T"}]}`)
	})
	s.MaxArticles = 1

	p, err := s.FetchProfile(context.Background(), "A1")
	require.NoError(t, err)
	assert.Len(t, p.Articles, 1)
}

func TestOpenAlexSearchAuthor(t *testing.T) {
	s := newTestOpenAlex(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/authors", r.URL.Path)
		assert.Equal(t, "Jane Doe", r.URL.Query().Get("search"))
		fmt.Fprint(w, `{"results": [`+openAlexAuthorJSON+`]}`)
	})
	got, err := s.SearchAuthor(context.Background(), "Jane Doe")
	require.NoError(t, err)
	assert.Equal(t, []Candidate{{
		Source: types.SourceOpenAlex, ID: "A123", Name: "Jane Doe", Affiliation: "Stanford University",
		CitedBy: 1100, WorksCount: 50,
	}}, got)
}

func TestOpenAlexFetchProfile_ServerError(t *testing.T) {
	s := newTestOpenAlex(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	_, err := s.FetchProfile(context.Background(), "A1")
	require.Error(t, err)
	var se *httputil.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
}

func TestStripORCID(t *testing.T) {
	assert.Equal(t, "0000-0002-1825-0097", StripORCID("https://orcid.org/0000-0002-1825-0097"))
	assert.Equal(t, "0000-0002-1825-0097", StripORCID(" HTTP://ORCID.ORG/0000-0002-1825-0097"))
	assert.Equal(t, "0000-0002-1825-0097", StripORCID("0000-0002-1825-0097"))
	assert.Equal(t, "", StripORCID(""))
}
