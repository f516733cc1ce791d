package dict

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/newswirelabs/retrieval-engine/internal/codec"
	"github.com/newswirelabs/retrieval-engine/internal/index"
	"github.com/newswirelabs/retrieval-engine/pkg/errors"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
)

// buildHashTable persists the dictionary entries as a whole-file JSON map
// keyed by term. The serialisation is opaque to other implementations;
// the only contract is that loading it reproduces the same mapping.
func buildHashTable(dir string, entries []index.DictEntry) error {
	table := make(map[string]index.DictEntry, len(entries))
	for _, e := range entries {
		table[e.Term] = e
	}
	data, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshaling hash table: %w", err)
	}
	path := filepath.Join(dir, HashTableFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hash table %s: %w", path, err)
	}
	return nil
}

// HashDictionary answers lookups from the in-memory table with one seek
// into the postings file per hit.
type HashDictionary struct {
	table    map[string]index.DictEntry
	postings *os.File
	logger   *slog.Logger
}

// OpenHash loads the hash table and opens the postings file for the
// lifetime of the query session.
func OpenHash(dir string) (*HashDictionary, error) {
	tablePath := filepath.Join(dir, HashTableFileName)
	data, err := os.ReadFile(tablePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "hash table %s", tablePath)
		}
		return nil, fmt.Errorf("reading hash table %s: %w", tablePath, err)
	}
	var table map[string]index.DictEntry
	if err := json.Unmarshal(data, &table); err != nil {
		return nil, errors.Newf(errors.ErrCorruptData, "parsing hash table %s: %v", tablePath, err)
	}

	postingsPath := filepath.Join(dir, PostingsFileName)
	postings, err := os.Open(postingsPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "postings file %s", postingsPath)
		}
		return nil, fmt.Errorf("opening postings file %s: %w", postingsPath, err)
	}
	return &HashDictionary{
		table:    table,
		postings: postings,
		logger:   logger.WithComponent("hash-dictionary"),
	}, nil
}

// Lookup returns the postings for term, empty when the term is unknown.
func (h *HashDictionary) Lookup(term string) (index.PostingList, error) {
	entry, ok := h.table[term]
	if !ok {
		return nil, nil
	}
	blob := make([]byte, entry.Length)
	if _, err := h.postings.ReadAt(blob, int64(entry.Offset)); err != nil {
		return nil, errors.Newf(errors.ErrCorruptData,
			"reading postings for term %q at %d+%d: %v", term, entry.Offset, entry.Length, err)
	}
	postings, err := codec.DecompressPostings(blob)
	if err != nil {
		return nil, fmt.Errorf("decompressing postings for term %q: %w", term, err)
	}
	return postings, nil
}

// DocumentFrequency returns the cached posting count for term, zero when
// the term is unknown.
func (h *HashDictionary) DocumentFrequency(term string) (int, error) {
	return int(h.table[term].DocCount), nil
}

// Terms returns up to limit dictionary terms in sorted order, filtered by
// prefix when non-empty. A limit of zero or below means no limit.
func (h *HashDictionary) Terms(prefix string, limit int) []string {
	terms := make([]string, 0, len(h.table))
	for term := range h.table {
		if prefix == "" || strings.HasPrefix(term, prefix) {
			terms = append(terms, term)
		}
	}
	sort.Strings(terms)
	if limit > 0 && len(terms) > limit {
		terms = terms[:limit]
	}
	return terms
}

// Close releases the postings file handle.
func (h *HashDictionary) Close() error {
	return h.postings.Close()
}
