// Package index defines the data model shared by the postings codec, the
// dictionary variants, and the query scorer.
package index

// Posting records one term's occurrence count in one document.
type Posting struct {
	DocNo     string `json:"docno"`
	Frequency uint32 `json:"frequency"`
}

// PostingList holds all postings for a single term, in the stable order
// fixed at build time. Delta encoding is computed over this order, so
// decoding replays it exactly.
type PostingList []Posting

// DictEntry locates a term's compressed postings blob inside the postings
// file and caches its document frequency so IDF never needs a
// decompression. The short JSON tags keep the persisted hash table small.
type DictEntry struct {
	Term     string `json:"t"`
	Offset   uint64 `json:"o"`
	Length   uint32 `json:"l"`
	DocCount uint32 `json:"d"`
}

// RootEntry is one ISAM root index record: the first term of a leaf block
// and the block's byte offset in the leaves file.
type RootEntry struct {
	Term   string
	Offset uint64
}
