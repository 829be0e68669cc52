// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pdiddy/cv-verify/internal/dedup"
	"github.com/pdiddy/cv-verify/internal/sources"
	"github.com/pdiddy/cv-verify/pkg/types"
)

// foldTitle strips accents and normalizes title the same way the
// deduplicator does, so "Über" and "Uber" compare equal.
func foldTitle(title string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, title)
	if err != nil {
		folded = title
	}
	return dedup.NormalizeTitle(folded)
}

// TitleSimilarity returns the Levenshtein ratio of two folded titles, from 0
// (nothing in common, or either title empty) to 1 (identical).
func TitleSimilarity(a, b string) float64 {
	fa, fb := foldTitle(a), foldTitle(b)
	if fa == "" || fb == "" {
		return 0
	}
	if fa == fb {
		return 1
	}
	longest := utf8.RuneCountInString(fa)
	if n := utf8.RuneCountInString(fb); n > longest {
		longest = n
	}
	d := levenshtein.ComputeDistance(fa, fb)
	return 1 - float64(d)/float64(longest)
}

// findMatch returns the index of the article in existing that rec, coming
// from source, refers to, or -1. An exact DOI match wins; otherwise the most
// similar title at or above threshold is taken. The title pass never pairs
// records whose DOIs are both set and differ, nor a record with one that
// source already contributed.
func findMatch(existing []types.ArticleRecord, rec types.ArticleRecord, source types.SourceName, threshold float64) int {
	doi := sources.NormalizeDOI(rec.DOI)
	if doi != "" {
		for i := range existing {
			if sources.NormalizeDOI(existing[i].DOI) == doi {
				return i
			}
		}
	}

	best, bestScore := -1, threshold
	for i := range existing {
		if other := sources.NormalizeDOI(existing[i].DOI); doi != "" && other != "" && other != doi {
			continue
		}
		if fromSource(existing[i], source) {
			continue
		}
		if score := TitleSimilarity(existing[i].Title, rec.Title); score >= bestScore {
			if score > bestScore || best < 0 {
				best, bestScore = i, score
			}
		}
	}
	return best
}

// fromSource reports whether source already contributed rec.
func fromSource(rec types.ArticleRecord, source types.SourceName) bool {
	if source == "" {
		return false
	}
	if _, ok := rec.Link[source]; ok {
		return true
	}
	return hasSource(rec.Sources, source)
}

// enrich fills blank fields of dst from src, keeps the higher citation count,
// and adds src's links and source tags.
func enrich(dst *types.ArticleRecord, src types.ArticleRecord) {
	if len(dst.Authors) == 0 && len(src.Authors) > 0 {
		dst.Authors = src.Authors
	}
	if dst.PublicationName == "" {
		dst.PublicationName = src.PublicationName
	}
	if dst.Year == 0 {
		dst.Year = src.Year
	}
	if dst.DOI == "" {
		dst.DOI = src.DOI
	}
	if src.CitedBy > dst.CitedBy {
		dst.CitedBy = src.CitedBy
	}
	if dst.ScholarCitationID == "" {
		dst.ScholarCitationID = src.ScholarCitationID
	}
	if dst.ScopusEID == "" {
		dst.ScopusEID = src.ScopusEID
	}
	if dst.OpenAlexID == "" {
		dst.OpenAlexID = src.OpenAlexID
	}

	if dst.Link == nil {
		dst.Link = map[types.SourceName]string{}
	}
	for source, link := range src.Link {
		if _, ok := dst.Link[source]; !ok && link != "" {
			dst.Link[source] = link
		}
	}
	for _, s := range src.Sources {
		if !hasSource(dst.Sources, s) {
			dst.Sources = append(dst.Sources, s)
		}
	}
}

func hasSource(list []types.SourceName, s types.SourceName) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// cloneArticle copies rec so later enrichment never writes through to a
// source profile's map or slices.
func cloneArticle(rec types.ArticleRecord) types.ArticleRecord {
	out := rec
	out.Link = make(map[types.SourceName]string, len(rec.Link))
	for k, v := range rec.Link {
		out.Link[k] = v
	}
	out.Authors = append([]string(nil), rec.Authors...)
	out.Sources = append([]types.SourceName(nil), rec.Sources...)
	return out
}
