// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/httputil"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// scopusAPIBase is a variable so tests can point it at a local server.
var scopusAPIBase = "https://api.elsevier.com/content"

// scopusPageSize is the Scopus Search API page limit for the standard view.
const scopusPageSize = 25

// ScopusSource reads author records and documents from the Elsevier Scopus APIs.
type ScopusSource struct {
	MaxArticles int
	Client      *httputil.JSONClient
	Logger      *zap.Logger
}

// NewScopusSource builds a ScopusSource from cfg. The API key is sent as the
// X-ELS-APIKey header on every request.
func NewScopusSource(cfg types.SourcesConfig, logger *zap.Logger) *ScopusSource {
	c := newJSONClient(cfg)
	if cfg.ScopusAPIKey != "" {
		c.Header.Set("X-ELS-APIKey", cfg.ScopusAPIKey)
	}
	return &ScopusSource{
		MaxArticles: maxArticles(cfg),
		Client:      c,
		Logger:      sourceLogger(logger, types.SourceScopus),
	}
}

func (s *ScopusSource) Name() types.SourceName { return types.SourceScopus }

func (s *ScopusSource) checkKey() error {
	if s.Client.Header.Get("X-ELS-APIKey") == "" {
		return errors.New("scopus: no API key configured")
	}
	return nil
}

// Scopus wraps text values as {"$": "..."} in some views and as plain
// strings in others.
type scopusText string

func (t *scopusText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = scopusText(s)
		return nil
	}
	var obj struct {
		Value string `json:"$"`
	}
	if err := json.Unmarshal(data, &obj); err == nil {
		*t = scopusText(obj.Value)
		return nil
	}
	*t = ""
	return nil
}

type scopusName struct {
	Surname     scopusText `json:"surname"`
	GivenName   scopusText `json:"given-name"`
	IndexedName scopusText `json:"indexed-name"`
}

func (n scopusName) display() string {
	full := strings.TrimSpace(string(n.GivenName) + " " + string(n.Surname))
	return firstNonEmpty(full, string(n.IndexedName))
}

type scopusAffiliation struct {
	IPDoc struct {
		DisplayName   scopusText `json:"afdispname"`
		PreferredName scopusText `json:"preferred-name"`
		Address       struct {
			Country scopusText `json:"country"`
		} `json:"address"`
	} `json:"ip-doc"`
}

func (a scopusAffiliation) toAffiliation() types.Affiliation {
	return types.Affiliation{
		Name:    firstNonEmpty(string(a.IPDoc.PreferredName), string(a.IPDoc.DisplayName)),
		Country: strings.TrimSpace(string(a.IPDoc.Address.Country)),
	}
}

type scopusAuthorRecord struct {
	Coredata struct {
		Identifier    scopusText `json:"dc:identifier"`
		DocumentCount flexInt    `json:"document-count"`
		CitedByCount  flexInt    `json:"cited-by-count"`
	} `json:"coredata"`
	HIndex        *flexInt `json:"h-index"`
	AuthorProfile struct {
		PreferredName      scopusName `json:"preferred-name"`
		AffiliationCurrent struct {
			Affiliation oneOrMany[scopusAffiliation] `json:"affiliation"`
		} `json:"affiliation-current"`
		AffiliationHistory struct {
			Affiliation oneOrMany[scopusAffiliation] `json:"affiliation"`
		} `json:"affiliation-history"`
	} `json:"author-profile"`
}

type scopusAuthorResponse struct {
	AuthorRetrievalResponse oneOrMany[scopusAuthorRecord] `json:"author-retrieval-response"`
}

type scopusEntry struct {
	Error        string     `json:"error"`
	EID          string     `json:"eid"`
	Title        scopusText `json:"dc:title"`
	DOI          string     `json:"prism:doi"`
	CitedByCount flexInt    `json:"citedby-count"`
	Publication  scopusText `json:"prism:publicationName"`
	CoverDate    string     `json:"prism:coverDate"`
	Creator      scopusText `json:"dc:creator"`
	Authors      oneOrMany[struct {
		AuthName scopusText `json:"authname"`
	}] `json:"author"`
	Links oneOrMany[struct {
		Ref  string `json:"@ref"`
		Href string `json:"@href"`
	}] `json:"link"`
}

type scopusSearchResponse struct {
	SearchResults struct {
		TotalResults flexInt                `json:"opensearch:totalResults"`
		Entry        oneOrMany[scopusEntry] `json:"entry"`
	} `json:"search-results"`
}

type scopusAuthorSearchResponse struct {
	SearchResults struct {
		Entry oneOrMany[struct {
			Error              string     `json:"error"`
			Identifier         scopusText `json:"dc:identifier"`
			PreferredName      scopusName `json:"preferred-name"`
			DocumentCount      flexInt    `json:"document-count"`
			AffiliationCurrent oneOrMany[struct {
				Name scopusText `json:"affiliation-name"`
			}] `json:"affiliation-current"`
		}] `json:"entry"`
	} `json:"search-results"`
}

// SearchAuthor runs an Author Search on the candidate's surname and given name.
func (s *ScopusSource) SearchAuthor(ctx context.Context, name string) ([]Candidate, error) {
	if err := s.checkKey(); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("query", scopusAuthorQuery(name))
	params.Set("count", strconv.Itoa(scopusPageSize))

	var resp scopusAuthorSearchResponse
	if err := s.Client.GetJSON(ctx, scopusAPIBase+"/search/author?"+params.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("scopus author search: %w", err)
	}

	var out []Candidate
	for _, e := range resp.SearchResults.Entry {
		id := stripScopusID(string(e.Identifier))
		if e.Error != "" || id == "" {
			continue
		}
		c := Candidate{
			Source:     types.SourceScopus,
			ID:         id,
			Name:       e.PreferredName.display(),
			WorksCount: int(e.DocumentCount),
		}
		if len(e.AffiliationCurrent) > 0 {
			c.Affiliation = string(e.AffiliationCurrent[0].Name)
		}
		out = append(out, c)
	}
	return out, nil
}

// FetchProfile retrieves the ENHANCED author record and the author's documents.
func (s *ScopusSource) FetchProfile(ctx context.Context, authorID string) (*SourceProfile, error) {
	if err := s.checkKey(); err != nil {
		return nil, err
	}
	authorID = stripScopusID(authorID)

	var resp scopusAuthorResponse
	u := scopusAPIBase + "/author/author_id/" + url.PathEscape(authorID) + "?view=ENHANCED"
	if err := s.Client.GetJSON(ctx, u, &resp); err != nil {
		return nil, fmt.Errorf("scopus author %s: %w", authorID, err)
	}
	if len(resp.AuthorRetrievalResponse) == 0 {
		return nil, fmt.Errorf("scopus author %s: empty author-retrieval-response", authorID)
	}

	profile := &SourceProfile{Source: types.SourceScopus, AuthorID: authorID}
	mapScopusAuthor(profile, resp.AuthorRetrievalResponse[0])

	articles, err := s.fetchDocuments(ctx, authorID)
	if err != nil {
		return nil, err
	}
	profile.Articles = articles

	s.Logger.Debug("fetched profile",
		zap.String("author_id", authorID),
		zap.Int("articles", len(profile.Articles)))
	return profile, nil
}

func (s *ScopusSource) fetchDocuments(ctx context.Context, authorID string) ([]types.ArticleRecord, error) {
	limit := s.MaxArticles
	if limit <= 0 {
		limit = types.DefaultMaxArticles
	}

	var out []types.ArticleRecord
	for start := 0; len(out) < limit; start += scopusPageSize {
		params := url.Values{}
		params.Set("query", "AU-ID("+authorID+")")
		params.Set("start", strconv.Itoa(start))
		params.Set("count", strconv.Itoa(scopusPageSize))

		var resp scopusSearchResponse
		if err := s.Client.GetJSON(ctx, scopusAPIBase+"/search/scopus?"+params.Encode(), &resp); err != nil {
			return nil, fmt.Errorf("scopus documents for %s: %w", authorID, err)
		}

		got := 0
		for _, e := range resp.SearchResults.Entry {
			if e.Error != "" {
				continue
			}
			got++
			if len(out) >= limit {
				break
			}
			if rec, ok := mapScopusEntry(e); ok {
				out = append(out, rec)
			}
		}
		if got < scopusPageSize || start+scopusPageSize >= int(resp.SearchResults.TotalResults) {
			break
		}
	}
	return out, nil
}

func mapScopusAuthor(p *SourceProfile, rec scopusAuthorRecord) {
	name := rec.AuthorProfile.PreferredName
	p.Author.Name = name.display()
	p.Author.Surname = strings.TrimSpace(string(name.Surname))
	p.Author.GivenName = strings.TrimSpace(string(name.GivenName))

	seen := map[string]bool{}
	add := func(affs oneOrMany[scopusAffiliation]) {
		for _, a := range affs {
			aff := a.toAffiliation()
			if aff.Name == "" || seen[strings.ToLower(aff.Name)] {
				continue
			}
			seen[strings.ToLower(aff.Name)] = true
			p.Author.AffiliationHistory = append(p.Author.AffiliationHistory, aff)
		}
	}
	add(rec.AuthorProfile.AffiliationCurrent.Affiliation)
	add(rec.AuthorProfile.AffiliationHistory.Affiliation)

	if rec.HIndex != nil {
		p.HIndex = intPtr(int(*rec.HIndex))
	}
	p.DocumentCount = intPtr(int(rec.Coredata.DocumentCount))
	p.TotalCitations = intPtr(int(rec.Coredata.CitedByCount))
}

func mapScopusEntry(e scopusEntry) (types.ArticleRecord, bool) {
	title := strings.TrimSpace(string(e.Title))
	if title == "" {
		return types.ArticleRecord{}, false
	}

	var authors []string
	for _, a := range e.Authors {
		if n := strings.TrimSpace(string(a.AuthName)); n != "" {
			authors = append(authors, n)
		}
	}
	if len(authors) == 0 && strings.TrimSpace(string(e.Creator)) != "" {
		authors = []string{strings.TrimSpace(string(e.Creator))}
	}

	var scopusLink, selfLink string
	for _, l := range e.Links {
		switch l.Ref {
		case "scopus":
			scopusLink = l.Href
		case "self":
			selfLink = l.Href
		}
	}
	doi := NormalizeDOI(e.DOI)
	link := firstNonEmpty(scopusLink, doiURL(doi), selfLink)

	rec := types.ArticleRecord{
		Title:           title,
		Link:            map[types.SourceName]string{},
		Authors:         authors,
		PublicationName: strings.TrimSpace(string(e.Publication)),
		CitedBy:         int(e.CitedByCount),
		Year:            parseYear(e.CoverDate),
		DOI:             doi,
		Sources:         []types.SourceName{types.SourceScopus},
		ScopusEID:       e.EID,
	}
	if link != "" {
		rec.Link[types.SourceScopus] = link
	}
	return rec, true
}

// scopusAuthorQuery builds an Author Search query. The last word of name is
// taken as the surname.
func scopusAuthorQuery(name string) string {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		return "AUTHLASTNAME(" + parts[0] + ")"
	}
	last := parts[len(parts)-1]
	first := strings.Join(parts[:len(parts)-1], " ")
	return "AUTHLASTNAME(" + last + ") AND AUTHFIRST(" + first + ")"
}

// stripScopusID removes the "AUTHOR_ID:" prefix Scopus puts on identifiers.
func stripScopusID(id string) string {
	id = strings.TrimSpace(id)
	if i := strings.LastIndex(id, ":"); i >= 0 {
		id = id[i+1:]
	}
	return id
}

func doiURL(doi string) string {
	if doi == "" {
		return ""
	}
	return "https://doi.org/" + doi
}
