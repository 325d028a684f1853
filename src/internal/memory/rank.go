package memory

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

// Fixed weights of the composite score. Salience dominates, but a record with
// no textual or branch match is never returned.
const (
	KeywordWeight  = 0.35
	SalienceWeight = 0.65
)

// normalizeQuery lowercases and trims a query or task description.
func normalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func tokenSet(normalized string) map[string]struct{} {
	fields := strings.Fields(normalized)
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// KeywordScore returns the bounded match fraction min(1, hits/2) of a record
// against a query and optional branch hint.
func KeywordScore(query, branch string, r Record) float64 {
	q := normalizeQuery(query)
	return keywordScore(q, tokenSet(q), branch, r)
}

func keywordScore(q string, tokens map[string]struct{}, branch string, r Record) float64 {
	if q == "" && branch == "" {
		return 0
	}

	hits := 0
	if q != "" && (strings.Contains(strings.ToLower(r.Title), q) || strings.Contains(strings.ToLower(r.Content), q)) {
		hits++
	}
	for _, kw := range r.Keywords {
		if _, ok := tokens[kw]; ok {
			hits++
		}
	}
	if branch != "" && strings.Contains(strings.ToLower(r.Branch), strings.ToLower(branch)) {
		hits++
	}

	return math.Min(1, float64(hits)/2)
}

// compositeScore combines keyword relevance with salience and rounds to four decimals.
func compositeScore(keyword, salience float64) float64 {
	return round4(KeywordWeight*keyword + SalienceWeight*salience)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// Score returns the composite score of a record and whether it matched at all.
// Unmatched records report (0, false) regardless of salience.
func Score(query, branch string, r Record) (float64, bool) {
	kw := KeywordScore(query, branch, r)
	if kw <= 0 {
		return 0, false
	}
	return compositeScore(kw, r.Salience), true
}

// Rank scores candidates against query and branch, drops non-matches, sorts
// by score descending (ties keep candidate order) and keeps at most limit
// results.
func Rank(candidates []Record, query, branch string, limit int) []ScoredRecord {
	if limit <= 0 {
		return []ScoredRecord{}
	}

	q := normalizeQuery(query)
	tokens := tokenSet(q)

	ranked := make([]ScoredRecord, 0, len(candidates))
	for _, r := range candidates {
		kw := keywordScore(q, tokens, branch, r)
		if kw <= 0 {
			continue
		}
		ranked = append(ranked, ScoredRecord{Record: r.clone(), Score: compositeScore(kw, r.Salience)})
	}

	slices.SortStableFunc(ranked, func(a, b ScoredRecord) int {
		return cmp.Compare(b.Score, a.Score)
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}
