// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/httputil"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// serpAPIBase is a variable so tests can point it at a local server.
var serpAPIBase = "https://serpapi.com/search.json"

// scholarPageSize is the largest page the google_scholar_author engine returns.
const scholarPageSize = 100

// ScholarSource reads Google Scholar author profiles through SerpAPI.
type ScholarSource struct {
	APIKey      string
	MaxArticles int
	Client      *httputil.JSONClient
	Logger      *zap.Logger
}

// NewScholarSource builds a ScholarSource from cfg.
func NewScholarSource(cfg types.SourcesConfig, logger *zap.Logger) *ScholarSource {
	return &ScholarSource{
		APIKey:      cfg.SerpAPIKey,
		MaxArticles: maxArticles(cfg),
		Client:      newJSONClient(cfg),
		Logger:      sourceLogger(logger, types.SourceGoogleScholar),
	}
}

func (s *ScholarSource) Name() types.SourceName { return types.SourceGoogleScholar }

type scholarAuthorResponse struct {
	Error  string `json:"error"`
	Author struct {
		Name         string `json:"name"`
		Affiliations string `json:"affiliations"`
		Thumbnail    string `json:"thumbnail"`
	} `json:"author"`
	Articles []scholarArticle `json:"articles"`
	CitedBy  struct {
		Table []map[string]struct {
			All flexInt `json:"all"`
		} `json:"table"`
		Graph []struct {
			Year      int     `json:"year"`
			Citations flexInt `json:"citations"`
		} `json:"graph"`
	} `json:"cited_by"`
}

type scholarArticle struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	CitationID  string `json:"citation_id"`
	Authors     string `json:"authors"`
	Publication string `json:"publication"`
	Year        string `json:"year"`
	CitedBy     struct {
		Value flexInt `json:"value"`
		Link  string  `json:"link"`
	} `json:"cited_by"`
}

type scholarProfilesResponse struct {
	Error    string `json:"error"`
	Profiles []struct {
		Name         string  `json:"name"`
		AuthorID     string  `json:"author_id"`
		Affiliations string  `json:"affiliations"`
		CitedBy      flexInt `json:"cited_by"`
	} `json:"profiles"`
}

func (s *ScholarSource) query(engine string) url.Values {
	params := url.Values{}
	params.Set("engine", engine)
	params.Set("api_key", s.APIKey)
	return params
}

// SearchAuthor looks up Scholar profiles whose name matches name.
func (s *ScholarSource) SearchAuthor(ctx context.Context, name string) ([]Candidate, error) {
	if s.APIKey == "" {
		return nil, errors.New("google scholar: no SerpAPI key configured")
	}
	params := s.query("google_scholar_profiles")
	params.Set("mauthors", name)

	var resp scholarProfilesResponse
	if err := s.Client.GetJSON(ctx, serpAPIBase+"?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("google scholar profile search: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("google scholar profile search: %s", resp.Error)
	}

	var out []Candidate
	for _, p := range resp.Profiles {
		if p.AuthorID == "" {
			continue
		}
		out = append(out, Candidate{
			Source:      types.SourceGoogleScholar,
			ID:          p.AuthorID,
			Name:        p.Name,
			Affiliation: p.Affiliations,
			CitedBy:     int(p.CitedBy),
		})
	}
	return out, nil
}

// FetchProfile loads the author page for authorID, paging through articles
// until the list ends or MaxArticles is reached.
func (s *ScholarSource) FetchProfile(ctx context.Context, authorID string) (*SourceProfile, error) {
	if s.APIKey == "" {
		return nil, errors.New("google scholar: no SerpAPI key configured")
	}
	limit := s.MaxArticles
	if limit <= 0 {
		limit = types.DefaultMaxArticles
	}

	profile := &SourceProfile{Source: types.SourceGoogleScholar, AuthorID: authorID}
	for start := 0; len(profile.Articles) < limit; start += scholarPageSize {
		params := s.query("google_scholar_author")
		params.Set("author_id", authorID)
		params.Set("start", strconv.Itoa(start))
		params.Set("num", strconv.Itoa(scholarPageSize))

		var resp scholarAuthorResponse
		if err := s.Client.GetJSON(ctx, serpAPIBase+"?"+params.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("google scholar author %s: %w", authorID, err)
		}
		if resp.Error != "" {
			if start > 0 {
				break
			}
			return nil, fmt.Errorf("google scholar author %s: %s", authorID, resp.Error)
		}

		if start == 0 {
			s.mapAuthor(profile, &resp)
		}
		for _, a := range resp.Articles {
			if len(profile.Articles) >= limit {
				break
			}
			if rec, ok := mapScholarArticle(a); ok {
				profile.Articles = append(profile.Articles, rec)
			}
		}
		if len(resp.Articles) < scholarPageSize {
			break
		}
	}

	s.Logger.Debug("fetched profile",
		zap.String("author_id", authorID),
		zap.Int("articles", len(profile.Articles)))
	return profile, nil
}

func (s *ScholarSource) mapAuthor(p *SourceProfile, resp *scholarAuthorResponse) {
	p.Author.Name = strings.TrimSpace(resp.Author.Name)
	p.Author.Thumbnail = resp.Author.Thumbnail
	if aff := strings.TrimSpace(resp.Author.Affiliations); aff != "" {
		p.Author.AffiliationHistory = []types.Affiliation{{Name: aff}}
	}

	for _, row := range resp.CitedBy.Table {
		if v, ok := row["h_index"]; ok {
			p.HIndex = intPtr(int(v.All))
		}
		if v, ok := row["i10_index"]; ok {
			p.I10Index = intPtr(int(v.All))
		}
		if v, ok := row["citations"]; ok {
			p.TotalCitations = intPtr(int(v.All))
		}
	}
	for _, g := range resp.CitedBy.Graph {
		p.Graph = append(p.Graph, types.YearCitations{Year: g.Year, Citations: int(g.Citations)})
	}
}

func mapScholarArticle(a scholarArticle) (types.ArticleRecord, bool) {
	title := strings.TrimSpace(a.Title)
	if title == "" {
		return types.ArticleRecord{}, false
	}
	link := firstNonEmpty(a.Link, scholarCitationURL(a.CitationID), a.CitedBy.Link)
	rec := types.ArticleRecord{
		Title:             title,
		Link:              map[types.SourceName]string{},
		Authors:           splitAuthors(a.Authors),
		PublicationName:   strings.TrimSpace(a.Publication),
		CitedBy:           int(a.CitedBy.Value),
		Year:              parseYear(a.Year),
		Sources:           []types.SourceName{types.SourceGoogleScholar},
		ScholarCitationID: a.CitationID,
	}
	if link != "" {
		rec.Link[types.SourceGoogleScholar] = link
	}
	return rec, true
}

func scholarCitationURL(citationID string) string {
	if citationID == "" {
		return ""
	}
	return "https://scholar.google.com/citations?view_op=view_citation&citation_for_view=" + url.QueryEscape(citationID)
}
