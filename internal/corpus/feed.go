package corpus

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/kafka"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
)

// feedIdleTimeout bounds a drain: a build treats the feed topic as a
// finite corpus source and stops once it goes quiet.
const feedIdleTimeout = 5 * time.Second

// Feed publishes parsed documents to, and drains them from, the Kafka
// document topic. It is a corpus transport for fresh builds, not an
// incremental index update path.
type Feed struct {
	cfg    config.KafkaConfig
	logger *slog.Logger
}

// NewFeed creates a Feed for the configured brokers and topic.
func NewFeed(cfg config.KafkaConfig) *Feed {
	return &Feed{cfg: cfg, logger: logger.WithComponent("document-feed")}
}

// Publish writes the documents to the feed topic, keyed by id.
func (f *Feed) Publish(ctx context.Context, docs []Document) error {
	producer := kafka.NewProducer(f.cfg, f.cfg.DocumentTopic)
	defer producer.Close()

	events := make([]kafka.Event, 0, len(docs))
	for _, doc := range docs {
		if doc.DocNo == "" {
			f.logger.Warn("skipping document without id", "headline", doc.Headline)
			continue
		}
		events = append(events, kafka.Event{Key: doc.DocNo, Value: doc})
	}
	if err := producer.PublishBatch(ctx, events); err != nil {
		return fmt.Errorf("publishing documents to feed: %w", err)
	}
	f.logger.Info("documents published", "topic", f.cfg.DocumentTopic, "count", len(events))
	return nil
}

// Drain consumes the feed topic until it goes idle and returns the
// collected documents. Undecodable messages are skipped with a warning.
func (f *Feed) Drain(ctx context.Context) ([]Document, error) {
	consumer := kafka.NewConsumer(f.cfg, f.cfg.DocumentTopic)
	defer consumer.Close()

	var docs []Document
	handler := func(ctx context.Context, key []byte, value []byte) error {
		doc, err := kafka.DecodeJSON[Document](value)
		if err != nil {
			f.logger.Warn("skipping undecodable feed message", "key", string(key), "error", err)
			return nil
		}
		if doc.DocNo == "" {
			f.logger.Warn("skipping feed document without id", "key", string(key))
			return nil
		}
		docs = append(docs, doc)
		return nil
	}
	if _, err := consumer.Drain(ctx, handler, feedIdleTimeout); err != nil {
		return nil, fmt.Errorf("draining document feed: %w", err)
	}
	f.logger.Info("feed drained", "topic", f.cfg.DocumentTopic, "documents", len(docs))
	return docs, nil
}
