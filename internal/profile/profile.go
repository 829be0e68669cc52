// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package profile merges per-source author profiles into one AuthorProfile.
// Sources are fetched concurrently and merged in a single pass once every
// fetch has settled.
package profile

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/pdiddy/cv-verify/internal/logging"
	"github.com/pdiddy/cv-verify/internal/sources"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// Aggregator builds author profiles from the configured sources.
type Aggregator struct {
	Sources   map[types.SourceName]sources.Source
	Threshold float64
	Logger    *zap.Logger
}

// New returns an Aggregator over srcs, keyed by each source's Name.
func New(threshold float64, logger *zap.Logger, srcs ...sources.Source) *Aggregator {
	a := &Aggregator{
		Sources:   make(map[types.SourceName]sources.Source, len(srcs)),
		Threshold: threshold,
		Logger:    logging.OrNop(logger),
	}
	for _, s := range srcs {
		if s != nil {
			a.Sources[s.Name()] = s
		}
	}
	return a
}

// fetchResult is one source's settled outcome.
type fetchResult struct {
	source  types.SourceName
	id      string
	profile *sources.SourceProfile
	err     error
}

// MergeOrder returns the order source results are merged in: priority
// first when set, then the remaining sources in their default order.
func MergeOrder(priority types.SourceName) []types.SourceName {
	order := make([]types.SourceName, 0, len(types.AllSources))
	if hasSource(types.AllSources, priority) {
		order = append(order, priority)
	}
	for _, s := range types.AllSources {
		if s != priority {
			order = append(order, s)
		}
	}
	return order
}

// Aggregate builds the profile for candidate. When no publication is
// verified with an author match, or every source fails, the result is a
// minimal profile carrying only the name and verified count. It never
// returns nil.
func (a *Aggregator) Aggregate(ctx context.Context, ids types.AuthorIDs, candidate string, publications []types.PublicationRecord, priority types.SourceName) *types.AuthorProfile {
	log := logging.OrNop(a.Logger)
	verified := types.CountPublications(publications).VerifiedWithAuthorMatch
	if verified == 0 {
		log.Info("no verified publications, skipping aggregation")
		return Minimal(candidate, 0)
	}

	order := MergeOrder(priority)
	results := make([]fetchResult, len(order))
	var wg sync.WaitGroup
	for i, name := range order {
		src, ok := a.Sources[name]
		if !ok {
			results[i] = fetchResult{source: name, err: errNotConfigured}
			continue
		}
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			results[i] = a.fetch(ctx, src, ids.Get(src.Name()), candidate)
		}(i, src)
	}
	wg.Wait()

	p := &types.AuthorProfile{
		Author:               types.AuthorInfo{AffiliationHistory: []types.Affiliation{}},
		Articles:             []types.ArticleRecord{},
		VerifiedPublications: verified,
	}
	contributed := 0
	for _, r := range results {
		outcome := types.SourceOutcome{Source: r.source, AuthorID: r.id, OK: r.err == nil}
		if r.err != nil {
			outcome.Error = r.err.Error()
			if !errors.Is(r.err, errNotConfigured) {
				log.Warn("source failed",
					zap.String("source", string(r.source)),
					zap.String("author_id", r.id),
					zap.Error(r.err))
			}
		} else {
			a.merge(p, r.profile)
			contributed++
		}
		p.Sources = append(p.Sources, outcome)
	}

	if contributed == 0 {
		log.Warn("all sources failed, using minimal profile", zap.String("candidate", candidate))
		m := Minimal(candidate, verified)
		m.Sources = p.Sources
		return m
	}
	if p.Author.Name == "" {
		p.Author.Name = candidate
	}

	log.Info("aggregated profile",
		zap.Int("sources", contributed),
		zap.Int("articles", len(p.Articles)))
	return p
}

var errNotConfigured = errors.New("source not configured")

// fetch resolves the author id when missing and loads the source profile.
// A panic inside a source is reported as that source's error.
func (a *Aggregator) fetch(ctx context.Context, src sources.Source, id, candidate string) (res fetchResult) {
	res = fetchResult{source: src.Name(), id: id}
	defer func() {
		if r := recover(); r != nil {
			res.profile, res.err = nil, fmt.Errorf("source panicked: %v", r)
		}
	}()

	if res.id == "" {
		if strings.TrimSpace(candidate) == "" || candidate == types.UnknownValue {
			res.err = errors.New("no author id and no candidate name to search")
			return res
		}
		found, err := src.SearchAuthor(ctx, candidate)
		if err != nil {
			res.err = fmt.Errorf("resolving author id: %w", err)
			return res
		}
		if len(found) == 0 {
			res.err = fmt.Errorf("no author found for %q", candidate)
			return res
		}
		res.id = found[0].ID
	}

	profile, err := src.FetchProfile(ctx, res.id)
	if err != nil {
		res.err = err
		return res
	}
	if profile == nil {
		res.err = errors.New("empty profile")
		return res
	}
	if profile.Source == "" {
		profile.Source = src.Name()
	}
	res.profile = profile
	return res
}

// merge folds one source profile into p.
func (a *Aggregator) merge(p *types.AuthorProfile, sp *sources.SourceProfile) {
	threshold := a.Threshold
	if threshold <= 0 {
		threshold = types.DefaultTitleThreshold
	}

	if p.Author.Name == "" {
		p.Author.Name = sp.Author.Name
	}
	if p.Author.Surname == "" {
		p.Author.Surname = sp.Author.Surname
	}
	if p.Author.GivenName == "" {
		p.Author.GivenName = sp.Author.GivenName
	}
	if p.Author.Thumbnail == "" {
		p.Author.Thumbnail = sp.Author.Thumbnail
	}
	p.Identifiers.Set(sp.Source, sp.AuthorID)
	if p.Identifiers.ORCID == "" {
		p.Identifiers.ORCID = sp.ORCID
	}
	for _, aff := range sp.Author.AffiliationHistory {
		if aff.Name == "" {
			continue
		}
		if i := affiliationIndex(p.Author.AffiliationHistory, aff.Name); i >= 0 {
			p.Author.AffiliationHistory[i].Years = unionYears(p.Author.AffiliationHistory[i].Years, aff.Years)
			continue
		}
		aff.Years = append([]int(nil), aff.Years...)
		p.Author.AffiliationHistory = append(p.Author.AffiliationHistory, aff)
	}
	for _, t := range sp.Author.Topics {
		if !hasTopic(p.Author.Topics, t.Name) {
			p.Author.Topics = append(p.Author.Topics, t)
		}
	}

	for _, rec := range sp.Articles {
		if i := findMatch(p.Articles, rec, sp.Source, threshold); i >= 0 {
			enrich(&p.Articles[i], rec)
			continue
		}
		p.Articles = append(p.Articles, cloneArticle(rec))
	}

	p.HIndex.Set(sp.Source, sp.HIndex)
	p.I10Index.Set(sp.Source, sp.I10Index)
	p.DocumentCounts.Set(sp.Source, sp.DocumentCount)
	p.TotalCitations.Set(sp.Source, sp.TotalCitations)
	p.TwoYearMeanCitedness.Set(sp.Source, sp.MeanCitedness)
	if sp.Graph != nil {
		p.Graph.Set(sp.Source, append([]types.YearCitations(nil), sp.Graph...))
	}
}

func affiliationIndex(list []types.Affiliation, name string) int {
	for i, a := range list {
		if strings.EqualFold(a.Name, name) {
			return i
		}
	}
	return -1
}

func hasTopic(list []types.Topic, name string) bool {
	for _, t := range list {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}

// unionYears returns the sorted union of a and b.
func unionYears(a, b []int) []int {
	out := append([]int(nil), a...)
	for _, y := range b {
		if !slices.Contains(out, y) {
			out = append(out, y)
		}
	}
	slices.Sort(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Minimal returns the name-only profile used when aggregation is skipped or
// no source contributes.
func Minimal(candidate string, verified int) *types.AuthorProfile {
	if strings.TrimSpace(candidate) == "" {
		candidate = types.UnknownValue
	}
	return &types.AuthorProfile{
		Author:               types.AuthorInfo{Name: candidate, AffiliationHistory: []types.Affiliation{}},
		Articles:             []types.ArticleRecord{},
		VerifiedPublications: verified,
		Minimal:              true,
	}
}
