// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/httputil"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// openAlexAPIBase is the OpenAlex API root. Declared as a variable so tests
// can point it at a local server.
var openAlexAPIBase = "https://api.openalex.org"

// openAlexPageSize is the largest per-page value OpenAlex allows.
const openAlexPageSize = 200

// OpenAlexSource reads author records and works from OpenAlex. No key is
// needed; Email is sent as the mailto parameter for polite pool access.
type OpenAlexSource struct {
	Email       string
	MaxArticles int
	Client      *httputil.JSONClient
	Logger      *zap.Logger
}

// NewOpenAlexSource builds an OpenAlexSource from cfg.
func NewOpenAlexSource(cfg types.SourcesConfig, logger *zap.Logger) *OpenAlexSource {
	return &OpenAlexSource{
		Email:       cfg.OpenAlexEmail,
		MaxArticles: maxArticles(cfg),
		Client:      newJSONClient(cfg),
		Logger:      sourceLogger(logger, types.SourceOpenAlex),
	}
}

func (s *OpenAlexSource) Name() types.SourceName { return types.SourceOpenAlex }

type openAlexInstitution struct {
	DisplayName string `json:"display_name"`
	CountryCode string `json:"country_code"`
}

type openAlexAuthor struct {
	ID           string  `json:"id"`
	DisplayName  string  `json:"display_name"`
	ORCID        string  `json:"orcid"`
	WorksCount   flexInt `json:"works_count"`
	CitedByCount flexInt `json:"cited_by_count"`
	SummaryStats struct {
		HIndex        *flexInt `json:"h_index"`
		I10Index      *flexInt `json:"i10_index"`
		MeanCitedness *float64 `json:"2yr_mean_citedness"`
	} `json:"summary_stats"`
	Affiliations []struct {
		Institution openAlexInstitution `json:"institution"`
		Years       []int               `json:"years"`
	} `json:"affiliations"`
	LastKnownInstitutions []openAlexInstitution `json:"last_known_institutions"`
	Topics                []struct {
		DisplayName string  `json:"display_name"`
		Count       flexInt `json:"count"`
		Field       *struct {
			DisplayName string `json:"display_name"`
		} `json:"field"`
	} `json:"topics"`
	CountsByYear []struct {
		Year         int     `json:"year"`
		CitedByCount flexInt `json:"cited_by_count"`
	} `json:"counts_by_year"`
}

type openAlexWork struct {
	ID              string  `json:"id"`
	DOI             string  `json:"doi"`
	Title           string  `json:"title"`
	DisplayName     string  `json:"display_name"`
	PublicationYear int     `json:"publication_year"`
	CitedByCount    flexInt `json:"cited_by_count"`
	PrimaryLocation *struct {
		LandingPageURL string `json:"landing_page_url"`
		Source         *struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
	Authorships []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
}

type openAlexList[T any] struct {
	Meta struct {
		NextCursor string `json:"next_cursor"`
	} `json:"meta"`
	Results []T `json:"results"`
}

func (s *OpenAlexSource) params() url.Values {
	params := url.Values{}
	if s.Email != "" {
		params.Set("mailto", s.Email)
	}
	return params
}

// SearchAuthor runs an OpenAlex author search on name.
func (s *OpenAlexSource) SearchAuthor(ctx context.Context, name string) ([]Candidate, error) {
	params := s.params()
	params.Set("search", name)
	params.Set("per-page", "10")

	var resp openAlexList[openAlexAuthor]
	if err := s.Client.GetJSON(ctx, openAlexAPIBase+"/authors?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("openalex author search: %w", err)
	}

	var out []Candidate
	for _, a := range resp.Results {
		id := StripOpenAlexID(a.ID)
		if id == "" {
			continue
		}
		c := Candidate{
			Source:     types.SourceOpenAlex,
			ID:         id,
			Name:       a.DisplayName,
			CitedBy:    int(a.CitedByCount),
			WorksCount: int(a.WorksCount),
		}
		if len(a.LastKnownInstitutions) > 0 {
			c.Affiliation = a.LastKnownInstitutions[0].DisplayName
		}
		out = append(out, c)
	}
	return out, nil
}

// FetchProfile loads the author record and pages through their works with
// cursor pagination.
func (s *OpenAlexSource) FetchProfile(ctx context.Context, authorID string) (*SourceProfile, error) {
	authorID = StripOpenAlexID(authorID)
	if authorID == "" {
		return nil, fmt.Errorf("openalex: empty author id")
	}

	var author openAlexAuthor
	u := openAlexAPIBase + "/authors/" + url.PathEscape(authorID) + "?" + s.params().Encode()
	if err := s.Client.GetJSON(ctx, u, &author); err != nil {
		return nil, fmt.Errorf("openalex author %s: %w", authorID, err)
	}

	profile := &SourceProfile{Source: types.SourceOpenAlex, AuthorID: authorID}
	mapOpenAlexAuthor(profile, author)

	works, err := s.fetchWorks(ctx, authorID)
	if err != nil {
		return nil, err
	}
	profile.Articles = works

	s.Logger.Debug("fetched profile",
		zap.String("author_id", authorID),
		zap.Int("articles", len(profile.Articles)))
	return profile, nil
}

func (s *OpenAlexSource) fetchWorks(ctx context.Context, authorID string) ([]types.ArticleRecord, error) {
	limit := s.MaxArticles
	if limit <= 0 {
		limit = types.DefaultMaxArticles
	}
	perPage := openAlexPageSize
	if limit < perPage {
		perPage = limit
	}

	var out []types.ArticleRecord
	cursor := "*"
	for cursor != "" && len(out) < limit {
		params := s.params()
		params.Set("filter", "author.id:"+authorID)
		params.Set("per-page", strconv.Itoa(perPage))
		params.Set("cursor", cursor)

		var resp openAlexList[openAlexWork]
		if err := s.Client.GetJSON(ctx, openAlexAPIBase+"/works?"+params.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("openalex works for %s: %w", authorID, err)
		}
		for _, w := range resp.Results {
			if len(out) >= limit {
				break
			}
			if rec, ok := mapOpenAlexWork(w); ok {
				out = append(out, rec)
			}
		}
		if len(resp.Results) == 0 {
			break
		}
		cursor = resp.Meta.NextCursor
	}
	return out, nil
}

func mapOpenAlexAuthor(p *SourceProfile, a openAlexAuthor) {
	p.Author.Name = strings.TrimSpace(a.DisplayName)
	p.ORCID = StripORCID(a.ORCID)

	index := map[string]int{}
	add := func(inst openAlexInstitution, years []int) {
		name := strings.TrimSpace(inst.DisplayName)
		if name == "" {
			return
		}
		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			p.Author.AffiliationHistory[i].Years = mergeYears(p.Author.AffiliationHistory[i].Years, years)
			return
		}
		index[key] = len(p.Author.AffiliationHistory)
		p.Author.AffiliationHistory = append(p.Author.AffiliationHistory, types.Affiliation{
			Name:    name,
			Country: strings.ToUpper(inst.CountryCode),
			Years:   mergeYears(nil, years),
		})
	}
	for _, inst := range a.LastKnownInstitutions {
		add(inst, nil)
	}
	for _, aff := range a.Affiliations {
		add(aff.Institution, aff.Years)
	}

	for _, t := range a.Topics {
		name := strings.TrimSpace(t.DisplayName)
		if name == "" {
			continue
		}
		topic := types.Topic{Name: name, Works: int(t.Count)}
		if t.Field != nil {
			topic.Field = strings.TrimSpace(t.Field.DisplayName)
		}
		p.Author.Topics = append(p.Author.Topics, topic)
	}

	if a.SummaryStats.HIndex != nil {
		p.HIndex = intPtr(int(*a.SummaryStats.HIndex))
	}
	if a.SummaryStats.I10Index != nil {
		p.I10Index = intPtr(int(*a.SummaryStats.I10Index))
	}
	p.DocumentCount = intPtr(int(a.WorksCount))
	p.TotalCitations = intPtr(int(a.CitedByCount))
	if a.SummaryStats.MeanCitedness != nil {
		v := *a.SummaryStats.MeanCitedness
		p.MeanCitedness = &v
	}

	for _, c := range a.CountsByYear {
		p.Graph = append(p.Graph, types.YearCitations{Year: c.Year, Citations: int(c.CitedByCount)})
	}
	sort.Slice(p.Graph, func(i, j int) bool { return p.Graph[i].Year < p.Graph[j].Year })
}

func mapOpenAlexWork(w openAlexWork) (types.ArticleRecord, bool) {
	title := firstNonEmpty(w.Title, w.DisplayName)
	if title == "" {
		return types.ArticleRecord{}, false
	}

	var authors []string
	for _, a := range w.Authorships {
		if n := strings.TrimSpace(a.Author.DisplayName); n != "" {
			authors = append(authors, n)
		}
	}

	var landing, venue string
	if w.PrimaryLocation != nil {
		landing = w.PrimaryLocation.LandingPageURL
		if w.PrimaryLocation.Source != nil {
			venue = w.PrimaryLocation.Source.DisplayName
		}
	}
	doi := NormalizeDOI(w.DOI)
	link := firstNonEmpty(doiURL(doi), landing, w.ID)

	rec := types.ArticleRecord{
		Title:           title,
		Link:            map[types.SourceName]string{},
		Authors:         authors,
		PublicationName: strings.TrimSpace(venue),
		CitedBy:         int(w.CitedByCount),
		Year:            w.PublicationYear,
		DOI:             doi,
		Sources:         []types.SourceName{types.SourceOpenAlex},
		OpenAlexID:      StripOpenAlexID(w.ID),
	}
	if link != "" {
		rec.Link[types.SourceOpenAlex] = link
	}
	return rec, true
}

// StripOpenAlexID reduces an OpenAlex URL such as
// "https://openalex.org/A5023888391" to its final path segment.
func StripOpenAlexID(id string) string {
	id = strings.TrimRight(strings.TrimSpace(id), "/")
	if i := strings.LastIndex(id, "/"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

// StripORCID reduces an ORCID URL such as
// "https://orcid.org/0000-0002-1825-0097" to the bare identifier.
func StripORCID(id string) string {
	id = strings.TrimSpace(id)
	for _, prefix := range []string{"https://orcid.org/", "http://orcid.org/"} {
		if len(id) >= len(prefix) && strings.EqualFold(id[:len(prefix)], prefix) {
			return id[len(prefix):]
		}
	}
	return id
}

// mergeYears returns the sorted union of a and b without duplicates.
func mergeYears(a, b []int) []int {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	seen := make(map[int]bool, len(a)+len(b))
	var out []int
	for _, y := range append(append([]int(nil), a...), b...) {
		if !seen[y] {
			seen[y] = true
			out = append(out, y)
		}
	}
	sort.Ints(out)
	return out
}
