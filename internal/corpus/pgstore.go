package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
	"github.com/newswirelabs/retrieval-engine/pkg/postgres"
)

// ArchiveRetriever serves documents from the PostgreSQL document archive.
// It satisfies the same Retriever contract as the jsonl store, with the
// same in-memory cache of previously retrieved documents.
type ArchiveRetriever struct {
	client *postgres.Client
	cache  map[string]Document
	logger *slog.Logger
}

const archiveSchema = `
CREATE TABLE IF NOT EXISTS documents (
	docno    TEXT PRIMARY KEY,
	docid    TEXT NOT NULL DEFAULT '',
	headline TEXT NOT NULL DEFAULT '',
	date     TEXT NOT NULL DEFAULT '',
	source   TEXT NOT NULL DEFAULT '',
	content  TEXT NOT NULL DEFAULT ''
)`

// NewArchiveRetriever connects to the archive and ensures its schema.
func NewArchiveRetriever(ctx context.Context, cfg config.PostgresConfig) (*ArchiveRetriever, error) {
	client, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to document archive: %w", err)
	}
	if _, err := client.DB.ExecContext(ctx, archiveSchema); err != nil {
		client.Close()
		return nil, fmt.Errorf("ensuring archive schema: %w", err)
	}
	return &ArchiveRetriever{
		client: client,
		cache:  make(map[string]Document),
		logger: logger.WithComponent("document-archive"),
	}, nil
}

// Get fetches one document by id.
func (a *ArchiveRetriever) Get(docNo string) (Document, bool, error) {
	if doc, ok := a.cache[docNo]; ok {
		return doc, true, nil
	}
	var doc Document
	row := a.client.DB.QueryRow(
		`SELECT docno, docid, headline, date, source, content FROM documents WHERE docno = $1`,
		docNo,
	)
	err := row.Scan(&doc.DocNo, &doc.DocID, &doc.Headline, &doc.Date, &doc.Source, &doc.Content)
	if err == sql.ErrNoRows {
		return Document{}, false, nil
	}
	if err != nil {
		return Document{}, false, fmt.Errorf("querying document %s: %w", docNo, err)
	}
	a.cache[docNo] = doc
	return doc, true, nil
}

// LoadAll returns every archived document, for feeding an index build
// from the archive backend.
func (a *ArchiveRetriever) LoadAll(ctx context.Context) ([]Document, error) {
	rows, err := a.client.DB.QueryContext(ctx,
		`SELECT docno, docid, headline, date, source, content FROM documents ORDER BY docno`)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.DocNo, &doc.DocID, &doc.Headline, &doc.Date, &doc.Source, &doc.Content); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// Archive upserts the given documents in one transaction.
func (a *ArchiveRetriever) Archive(ctx context.Context, docs []Document) error {
	return a.client.InTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO documents (docno, docid, headline, date, source, content)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (docno) DO UPDATE SET
				docid = EXCLUDED.docid,
				headline = EXCLUDED.headline,
				date = EXCLUDED.date,
				source = EXCLUDED.source,
				content = EXCLUDED.content`)
		if err != nil {
			return fmt.Errorf("preparing archive insert: %w", err)
		}
		defer stmt.Close()
		for _, doc := range docs {
			if doc.DocNo == "" {
				a.logger.Warn("skipping document without id", "headline", doc.Headline)
				continue
			}
			if _, err := stmt.ExecContext(ctx, doc.DocNo, doc.DocID, doc.Headline,
				doc.Date, doc.Source, doc.Content); err != nil {
				return fmt.Errorf("archiving document %s: %w", doc.DocNo, err)
			}
		}
		return nil
	})
}

// Close closes the archive connection pool.
func (a *ArchiveRetriever) Close() error {
	return a.client.Close()
}
