package dict

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/newswirelabs/retrieval-engine/internal/codec"
	"github.com/newswirelabs/retrieval-engine/internal/corpus"
	"github.com/newswirelabs/retrieval-engine/internal/index"
	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
)

// Build runs one complete index build: tokenise the documents, invert
// them into per-term postings lists, write the compressed postings file,
// persist the requested dictionary variant, and write the stats file.
// Any failure aborts the whole build.
func Build(dir string, docs []corpus.Document, cfg config.IndexConfig) (index.Stats, error) {
	log := logger.WithComponent("index-builder")
	start := time.Now()

	if err := os.MkdirAll(dir, 0755); err != nil {
		return index.Stats{}, fmt.Errorf("creating index directory %s: %w", dir, err)
	}

	termPostings, pairCount := invert(docs)
	terms := sortedTerms(termPostings)
	log.Info("documents inverted",
		"documents", len(docs),
		"terms", len(terms),
		"term_doc_pairs", pairCount,
	)

	entries, err := writePostings(dir, terms, termPostings)
	if err != nil {
		return index.Stats{}, err
	}

	switch cfg.Type {
	case config.IndexTypeHash:
		if err := buildHashTable(dir, entries); err != nil {
			return index.Stats{}, err
		}
	case config.IndexTypeISAM:
		if err := buildISAM(dir, entries, cfg.ISAMBlockSize); err != nil {
			return index.Stats{}, err
		}
	default:
		return index.Stats{}, fmt.Errorf("unknown index type %q", cfg.Type)
	}

	stats := index.Stats{
		DocumentCount:      len(docs),
		TermCount:          len(terms),
		TermDocPairCount:   pairCount,
		IndexType:          cfg.Type,
		IndexBuildDuration: time.Since(start),
	}
	if err := index.WriteStats(dir, stats); err != nil {
		return index.Stats{}, err
	}
	log.Info("index built",
		"type", cfg.Type,
		"duration", stats.IndexBuildDuration,
	)
	return stats, nil
}

// invert produces one postings list per term. Postings keep the document
// iteration order, which fixes the delta-encoding order for the blob.
func invert(docs []corpus.Document) (map[string]index.PostingList, int) {
	termPostings := make(map[string]index.PostingList)
	pairCount := 0
	for _, doc := range docs {
		tokens := corpus.Tokenize(corpus.Normalize(doc.SearchableText()))
		if len(tokens) == 0 {
			continue
		}
		counts := make(map[string]uint32, len(tokens))
		order := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if _, seen := counts[tok]; !seen {
				order = append(order, tok)
			}
			counts[tok]++
		}
		for _, term := range order {
			termPostings[term] = append(termPostings[term], index.Posting{
				DocNo:     doc.DocNo,
				Frequency: counts[term],
			})
		}
		pairCount += len(order)
	}
	return termPostings, pairCount
}

func sortedTerms(termPostings map[string]index.PostingList) []string {
	terms := make([]string, 0, len(termPostings))
	for term := range termPostings {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// writePostings appends each term's compressed blob to the postings file
// in sorted term order and returns the dictionary entries, sorted the
// same way. The file is write-once: offsets recorded here are only valid
// for this build's postings file.
func writePostings(dir string, terms []string, termPostings map[string]index.PostingList) ([]index.DictEntry, error) {
	path := filepath.Join(dir, PostingsFileName)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating postings file %s: %w", path, err)
	}
	defer f.Close()

	entries := make([]index.DictEntry, 0, len(terms))
	var offset uint64
	for _, term := range terms {
		postings := termPostings[term]
		blob, err := codec.CompressPostings(postings)
		if err != nil {
			return nil, fmt.Errorf("compressing postings for term %q: %w", term, err)
		}
		if _, err := f.Write(blob); err != nil {
			return nil, fmt.Errorf("writing postings for term %q: %w", term, err)
		}
		entries = append(entries, index.DictEntry{
			Term:     term,
			Offset:   offset,
			Length:   uint32(len(blob)),
			DocCount: uint32(len(postings)),
		})
		offset += uint64(len(blob))
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("syncing postings file: %w", err)
	}
	return entries, nil
}
