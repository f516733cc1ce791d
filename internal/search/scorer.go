// Package search implements the query side of the engine: TF-IDF scoring
// over the active dictionary variant, the query session lifecycle, and
// the optional Redis result cache.
package search

import (
	"math"
	"sort"

	"github.com/newswirelabs/retrieval-engine/internal/index"
)

// ScoredDoc is one ranked result.
type ScoredDoc struct {
	DocNo string  `json:"docno"`
	Score float64 `json:"score"`
}

// Result carries the ranked (and possibly truncated) results along with
// the total match count before truncation.
type Result struct {
	Results      []ScoredDoc `json:"results"`
	TotalMatches int         `json:"total_matches"`
}

// score accumulates TF-IDF contributions per document across the query
// terms. Zero and negative scores are legitimate: a term present in every
// document of a tiny corpus has idf <= 0 and its documents still rank.
func score(termPostings map[string]index.PostingList, totalDocs int) map[string]float64 {
	scores := make(map[string]float64)
	for _, postings := range termPostings {
		idf := computeIDF(totalDocs, len(postings))
		for _, p := range postings {
			scores[p.DocNo] += tfWeight(p.Frequency) * idf
		}
	}
	return scores
}

// computeIDF is log10(N/df), short-circuited to 0 when df is 0 so an
// empty postings list never divides by zero.
func computeIDF(totalDocs, docFreq int) float64 {
	if docFreq == 0 {
		return 0
	}
	return math.Log10(float64(totalDocs) / float64(docFreq))
}

// tfWeight is the log-normalised term frequency 1 + log10(tf).
func tfWeight(tf uint32) float64 {
	if tf == 0 {
		return 0
	}
	return 1 + math.Log10(float64(tf))
}

// rank orders the score map by score descending with document id as the
// deterministic tiebreak, then truncates to maxResults when positive.
func rank(scores map[string]float64, maxResults int) *Result {
	ranked := make([]ScoredDoc, 0, len(scores))
	for docNo, s := range scores {
		ranked = append(ranked, ScoredDoc{DocNo: docNo, Score: s})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].DocNo < ranked[j].DocNo
	})
	total := len(ranked)
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	return &Result{Results: ranked, TotalMatches: total}
}
