package corpus

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/newswirelabs/retrieval-engine/pkg/errors"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
)

// Retriever fetches full documents by id for result presentation. Both
// store backends implement it; a miss is (zero Document, false, nil).
type Retriever interface {
	Get(docNo string) (Document, bool, error)
	Close() error
}

// WriteStore writes one JSON record per line to path, skipping documents
// with an empty id. It returns the number of records written.
func WriteStore(path string, docs []Document) (int, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("creating store directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("creating document store %s: %w", path, err)
	}
	defer f.Close()

	log := logger.WithComponent("document-store")
	w := bufio.NewWriter(f)
	written := 0
	for _, doc := range docs {
		if err := doc.Validate(); err != nil {
			log.Warn("skipping document without id", "headline", doc.Headline)
			continue
		}
		line, err := json.Marshal(doc)
		if err != nil {
			return written, fmt.Errorf("marshaling document %s: %w", doc.DocNo, err)
		}
		w.Write(line)
		w.WriteByte('\n')
		written++
	}
	if err := w.Flush(); err != nil {
		return written, fmt.Errorf("flushing document store %s: %w", path, err)
	}
	return written, nil
}

// ReadStore loads every document in the store file, skipping undecodable
// lines with a warning.
func ReadStore(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Newf(errors.ErrNotFound, "document store %s", path)
		}
		return nil, fmt.Errorf("opening document store %s: %w", path, err)
	}
	defer f.Close()

	log := logger.WithComponent("document-store")
	var docs []Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		var doc Document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			log.Warn("skipping undecodable store line", "line", line, "error", err)
			continue
		}
		if doc.DocNo == "" {
			log.Warn("skipping store record without id", "line", line)
			continue
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading document store %s: %w", path, err)
	}
	return docs, nil
}

// StoreRetriever retrieves documents from the jsonl store by linear scan,
// caching each document it finds. The cache is unbounded; for very large
// corpora this trades memory for repeat-lookup speed.
type StoreRetriever struct {
	path   string
	cache  map[string]Document
	logger *slog.Logger
}

// NewStoreRetriever creates a retriever over the store file at path. A
// missing file is only a warning; every Get will then miss.
func NewStoreRetriever(path string) *StoreRetriever {
	r := &StoreRetriever{
		path:   path,
		cache:  make(map[string]Document),
		logger: logger.WithComponent("document-retriever"),
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		r.logger.Warn("document store not found", "path", path)
	}
	return r
}

// Get scans the store for the document with the given id.
func (r *StoreRetriever) Get(docNo string) (Document, bool, error) {
	if doc, ok := r.cache[docNo]; ok {
		return doc, true, nil
	}
	f, err := os.Open(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Document{}, false, nil
		}
		return Document{}, false, fmt.Errorf("opening document store %s: %w", r.path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var doc Document
		if err := json.Unmarshal(scanner.Bytes(), &doc); err != nil {
			continue
		}
		if doc.DocNo == docNo {
			r.cache[docNo] = doc
			return doc, true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return Document{}, false, fmt.Errorf("scanning document store %s: %w", r.path, err)
	}
	return Document{}, false, nil
}

// Close releases nothing for the jsonl backend; it exists to satisfy
// Retriever.
func (r *StoreRetriever) Close() error {
	return nil
}
