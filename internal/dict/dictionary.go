// Package dict implements the two term-dictionary variants over a shared
// postings file: a hash table persisted as a whole-file map, and a
// two-level ISAM structure located by binary search. A build produces one
// variant; the query session picks it from the persisted index stats.
package dict

import (
	"github.com/newswirelabs/retrieval-engine/internal/index"
	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

// Index file names inside the index directory.
const (
	PostingsFileName  = "postings.bin"
	HashTableFileName = "hash_table.json"
	ISAMRootFileName  = "isam_root.bin"
	ISAMLeavesFile    = "isam_leaves.bin"
)

// Dictionary is the read side shared by both variants. Lookup and
// DocumentFrequency treat unknown terms as empty results, not errors.
type Dictionary interface {
	// Lookup returns the postings list for term, empty when absent.
	Lookup(term string) (index.PostingList, error)
	// DocumentFrequency returns the number of documents containing term.
	DocumentFrequency(term string) (int, error)
	// Close releases the dictionary's file handles.
	Close() error
}

// Open loads the dictionary variant named by indexType from dir.
func Open(dir string, indexType string) (Dictionary, error) {
	switch indexType {
	case config.IndexTypeHash:
		return OpenHash(dir)
	case config.IndexTypeISAM:
		return OpenISAM(dir)
	default:
		return nil, errors.Newf(errors.ErrCorruptData, "unknown index type %q", indexType)
	}
}
