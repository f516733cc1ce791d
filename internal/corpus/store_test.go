package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/newswirelabs/retrieval-engine/pkg/errors"
)

func sampleDocs() []Document {
	return []Document{
		{DocNo: "WSJ870108-0001", Headline: "Stock Market Fell", Content: "The market fell."},
		{DocNo: "WSJ870108-0002", Headline: "Bond Rally", Content: "Bonds rallied."},
	}
}

// TestStoreRoundTrip writes documents to the jsonl store and reads them
// back unchanged.
func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.jsonl")
	docs := sampleDocs()

	written, err := WriteStore(path, docs)
	if err != nil {
		t.Fatalf("WriteStore: %v", err)
	}
	if written != len(docs) {
		t.Fatalf("wrote %d records, want %d", written, len(docs))
	}

	got, err := ReadStore(path)
	if err != nil {
		t.Fatalf("ReadStore: %v", err)
	}
	if len(got) != len(docs) {
		t.Fatalf("read %d documents, want %d", len(got), len(docs))
	}
	for i := range docs {
		if got[i] != docs[i] {
			t.Errorf("document %d:\n got %+v\nwant %+v", i, got[i], docs[i])
		}
	}
}

// TestWriteStoreSkipsInvalidDocs verifies that records without an id
// are dropped at write time.
func TestWriteStoreSkipsInvalidDocs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.jsonl")
	docs := append(sampleDocs(), Document{Headline: "no id"})

	written, err := WriteStore(path, docs)
	if err != nil {
		t.Fatalf("WriteStore: %v", err)
	}
	if written != 2 {
		t.Errorf("wrote %d records, want 2", written)
	}
}

// TestReadStoreMissingFile verifies the not-found sentinel for a store
// that was never written.
func TestReadStoreMissingFile(t *testing.T) {
	_, err := ReadStore(filepath.Join(t.TempDir(), "absent.jsonl"))
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("got %v, want not-found error", err)
	}
}

// TestReadStoreSkipsBadLines verifies that an undecodable line degrades
// to a warning instead of failing the whole load.
func TestReadStoreSkipsBadLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.jsonl")
	content := `{"id":"WSJ870108-0001","headline":"ok"}
not json at all
{"id":"WSJ870108-0002","headline":"also ok"}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	docs, err := ReadStore(path)
	if err != nil {
		t.Fatalf("ReadStore: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("read %d documents, want 2", len(docs))
	}
}

// TestStoreRetrieverGet verifies retrieval by id, a miss for an unknown
// id, and that a second Get for the same id is served from the cache
// even after the backing file disappears.
func TestStoreRetrieverGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.jsonl")
	if _, err := WriteStore(path, sampleDocs()); err != nil {
		t.Fatalf("WriteStore: %v", err)
	}
	r := NewStoreRetriever(path)
	defer r.Close()

	doc, ok, err := r.Get("WSJ870108-0002")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if doc.Headline != "Bond Rally" {
		t.Errorf("Headline = %q", doc.Headline)
	}

	if _, ok, err := r.Get("WSJ999999-9999"); err != nil || ok {
		t.Errorf("unknown id: ok=%v err=%v, want miss without error", ok, err)
	}

	// Cached hit must not touch the file again.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, ok, err := r.Get("WSJ870108-0002"); err != nil || !ok {
		t.Errorf("cached Get after file removal: ok=%v err=%v", ok, err)
	}
}

// TestStoreRetrieverMissingFile verifies that a retriever over an absent
// store misses on every Get instead of erroring.
func TestStoreRetrieverMissingFile(t *testing.T) {
	r := NewStoreRetriever(filepath.Join(t.TempDir(), "absent.jsonl"))
	defer r.Close()
	if _, ok, err := r.Get("WSJ870108-0001"); err != nil || ok {
		t.Errorf("ok=%v err=%v, want miss without error", ok, err)
	}
}
