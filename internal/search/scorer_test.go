package search

import (
	"math"
	"testing"

	"github.com/newswirelabs/retrieval-engine/internal/index"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

// TestComputeIDF pins the inverse document frequency formula, including
// the zero guard and the negative value for df > N (possible only with
// inconsistent inputs, still defined).
func TestComputeIDF(t *testing.T) {
	if got := computeIDF(10, 0); got != 0 {
		t.Errorf("idf with df=0: got %v, want 0", got)
	}
	if got := computeIDF(1000, 10); !almostEqual(got, 2) {
		t.Errorf("idf(1000, 10) = %v, want 2", got)
	}
	if got := computeIDF(10, 10); !almostEqual(got, 0) {
		t.Errorf("idf(10, 10) = %v, want 0", got)
	}
}

// TestTFWeight pins the log-normalised term frequency.
func TestTFWeight(t *testing.T) {
	if got := tfWeight(0); got != 0 {
		t.Errorf("tfWeight(0) = %v, want 0", got)
	}
	if got := tfWeight(1); !almostEqual(got, 1) {
		t.Errorf("tfWeight(1) = %v, want 1", got)
	}
	if got := tfWeight(100); !almostEqual(got, 3) {
		t.Errorf("tfWeight(100) = %v, want 3", got)
	}
}

// TestScoreAccumulates verifies that a document matching several query
// terms accumulates one TF-IDF contribution per term.
func TestScoreAccumulates(t *testing.T) {
	termPostings := map[string]index.PostingList{
		"market": {
			{DocNo: "WSJ870108-0001", Frequency: 2},
			{DocNo: "WSJ870108-0002", Frequency: 1},
		},
		"fell": {
			{DocNo: "WSJ870108-0001", Frequency: 1},
		},
	}
	scores := score(termPostings, 4)

	wantDoc1 := tfWeight(2)*computeIDF(4, 2) + tfWeight(1)*computeIDF(4, 1)
	wantDoc2 := tfWeight(1) * computeIDF(4, 2)
	if !almostEqual(scores["WSJ870108-0001"], wantDoc1) {
		t.Errorf("doc1 score = %v, want %v", scores["WSJ870108-0001"], wantDoc1)
	}
	if !almostEqual(scores["WSJ870108-0002"], wantDoc2) {
		t.Errorf("doc2 score = %v, want %v", scores["WSJ870108-0002"], wantDoc2)
	}
	if len(scores) != 2 {
		t.Errorf("scored %d documents, want 2", len(scores))
	}
}

// TestScoreZeroIDFStillMatches guards the single-document corpus case:
// every term has idf 0, the score is 0, and the document must still be
// a match rather than being filtered out.
func TestScoreZeroIDFStillMatches(t *testing.T) {
	termPostings := map[string]index.PostingList{
		"market": {{DocNo: "WSJ870108-0001", Frequency: 3}},
	}
	scores := score(termPostings, 1)
	s, ok := scores["WSJ870108-0001"]
	if !ok {
		t.Fatal("zero-score document dropped from results")
	}
	if s != 0 {
		t.Errorf("score = %v, want 0", s)
	}
}

// TestRankOrdering verifies descending score order with the document id
// as the deterministic tiebreak, and truncation bookkeeping.
func TestRankOrdering(t *testing.T) {
	scores := map[string]float64{
		"WSJ870108-0003": 0.5,
		"WSJ870108-0001": 2.0,
		"WSJ870108-0004": 0.5,
		"WSJ870108-0002": 1.0,
	}

	result := rank(scores, 0)
	wantOrder := []string{"WSJ870108-0001", "WSJ870108-0002", "WSJ870108-0003", "WSJ870108-0004"}
	if len(result.Results) != 4 || result.TotalMatches != 4 {
		t.Fatalf("got %d results, total %d", len(result.Results), result.TotalMatches)
	}
	for i, want := range wantOrder {
		if result.Results[i].DocNo != want {
			t.Errorf("position %d: got %s, want %s", i, result.Results[i].DocNo, want)
		}
	}

	truncated := rank(scores, 2)
	if len(truncated.Results) != 2 {
		t.Errorf("truncated to %d results, want 2", len(truncated.Results))
	}
	if truncated.TotalMatches != 4 {
		t.Errorf("TotalMatches = %d, want 4 before truncation", truncated.TotalMatches)
	}
	if truncated.Results[0].DocNo != "WSJ870108-0001" {
		t.Errorf("top result = %s", truncated.Results[0].DocNo)
	}
}

// TestRankEmpty verifies an empty score map ranks to an empty result.
func TestRankEmpty(t *testing.T) {
	result := rank(map[string]float64{}, 10)
	if len(result.Results) != 0 || result.TotalMatches != 0 {
		t.Errorf("got %+v, want empty result", result)
	}
}
