package search

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/newswirelabs/retrieval-engine/internal/corpus"
	"github.com/newswirelabs/retrieval-engine/internal/dict"
	"github.com/newswirelabs/retrieval-engine/internal/index"
	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
	"github.com/newswirelabs/retrieval-engine/pkg/metrics"
)

// Session is one read-only query session over a built index. It owns the
// dictionary's file handles; Close releases them. Sessions are not safe
// for concurrent use; concurrent readers each open their own session
// over the same immutable files.
type Session struct {
	dictionary dict.Dictionary
	stats      index.Stats
	cfg        config.SearchConfig
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// Open reads the index stats to select the dictionary variant and opens
// its files. The metrics collector may be nil.
func Open(dir string, cfg config.SearchConfig, m *metrics.Metrics) (*Session, error) {
	stats, err := index.ReadStats(dir)
	if err != nil {
		return nil, err
	}
	dictionary, err := dict.Open(dir, stats.IndexType)
	if err != nil {
		return nil, fmt.Errorf("opening %s dictionary: %w", stats.IndexType, err)
	}
	log := logger.WithComponent("query-session")
	log.Info("query session opened",
		"index_type", stats.IndexType,
		"documents", stats.DocumentCount,
		"terms", stats.TermCount,
	)
	return &Session{
		dictionary: dictionary,
		stats:      stats,
		cfg:        cfg,
		metrics:    m,
		logger:     log,
	}, nil
}

// Stats returns the build statistics of the open index.
func (s *Session) Stats() index.Stats {
	return s.stats
}

// Search normalises and tokenises the query, looks up postings per term,
// scores matches with TF-IDF, and returns them ranked. maxResults <= 0
// returns all matches. An empty query or a query of unknown terms is an
// empty Result, not an error.
func (s *Session) Search(query string, maxResults int) (*Result, error) {
	start := time.Now()
	terms := s.queryTerms(query)
	if len(terms) == 0 {
		s.logger.Warn("empty query after normalization", "query", query)
		s.countQuery("empty_query")
		return &Result{}, nil
	}

	termPostings := make(map[string]index.PostingList, len(terms))
	for _, term := range terms {
		postings, err := s.dictionary.Lookup(term)
		if err != nil {
			// One bad term must not blank the whole result set.
			s.logger.Error("term lookup failed, skipping term", "term", term, "error", err)
			s.countQuery("error")
			continue
		}
		if len(postings) == 0 {
			s.logger.Debug("term not in dictionary", "term", term)
			continue
		}
		termPostings[term] = postings
	}

	result := rank(score(termPostings, s.stats.DocumentCount), maxResults)

	elapsed := time.Since(start)
	s.observe(result, elapsed)
	if elapsed >= s.cfg.LatencyBudget {
		s.logger.Warn("search exceeded latency budget",
			"elapsed", elapsed,
			"budget", s.cfg.LatencyBudget,
			"query", query,
		)
	}
	s.logger.Info("search completed",
		"query", query,
		"terms", len(terms),
		"matches", result.TotalMatches,
		"returned", len(result.Results),
		"elapsed", elapsed,
	)
	return result, nil
}

// queryTerms applies the shared corpus normalisation, caps the term
// count, and drops duplicate terms keeping first occurrence.
func (s *Session) queryTerms(query string) []string {
	tokens := corpus.Tokenize(corpus.Normalize(query))
	max := s.cfg.MaxQueryTerms
	if max <= 0 {
		max = 5
	}
	if len(tokens) > max {
		tokens = tokens[:max]
	}
	seen := make(map[string]struct{}, len(tokens))
	terms := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		terms = append(terms, tok)
	}
	return terms
}

func (s *Session) observe(result *Result, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.SearchLatency.Observe(elapsed.Seconds())
	s.metrics.SearchResultsCount.Observe(float64(result.TotalMatches))
	if result.TotalMatches > 0 {
		s.countQuery("hit")
	} else {
		s.countQuery("zero_result")
	}
}

func (s *Session) countQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.SearchQueriesTotal.WithLabelValues(outcome).Inc()
	}
}

// Close releases the dictionary's file handles.
func (s *Session) Close() error {
	return s.dictionary.Close()
}
