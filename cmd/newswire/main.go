// Command newswire builds and queries TF-IDF retrieval indexes over
// tagged newswire corpora.
//
// Usage:
//
//	newswire parse  --input corpus.txt [--publish] [--archive]
//	newswire index  [--type hash|isam] [--from-kafka]
//	newswire search [--max-results N] [--headlines] < query.txt
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/newswirelabs/retrieval-engine/internal/corpus"
	"github.com/newswirelabs/retrieval-engine/internal/dict"
	"github.com/newswirelabs/retrieval-engine/internal/search"
	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/logger"
	"github.com/newswirelabs/retrieval-engine/pkg/metrics"
	"github.com/newswirelabs/retrieval-engine/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

	if cfg.Metrics.Enabled {
		shutdown := metrics.StartServer(cfg.Metrics.Port)
		defer shutdown(ctx)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "parse":
		cmdParse(ctx, cfg, args[1:])
	case "index":
		cmdIndex(ctx, cfg, args[1:])
	case "search":
		cmdSearch(ctx, cfg, args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: newswire [-config path] <parse|index|search> [flags]")
	fmt.Fprintln(os.Stderr, "  parse  --input <corpus file> [--publish] [--archive]")
	fmt.Fprintln(os.Stderr, "  index  [--type hash|isam] [--dir <index dir>] [--from-kafka]")
	fmt.Fprintln(os.Stderr, "  search [--max-results N] [--headlines]  (query read from stdin)")
}

// cmdParse reads a tagged corpus file and writes the document store.
// Optional flags feed the documents into Kafka or the Postgres archive.
func cmdParse(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	input := fs.String("input", "", "path to the tagged corpus file")
	publish := fs.Bool("publish", false, "publish parsed documents to the Kafka feed")
	archive := fs.Bool("archive", false, "upsert parsed documents into the Postgres archive")
	fs.Parse(args)

	if *input == "" {
		fmt.Fprintln(os.Stderr, "error: --input is required")
		os.Exit(1)
	}

	m := metricsIfEnabled(cfg)

	docs, err := corpus.NewParser().ParseFile(*input)
	if err != nil {
		slog.Error("parse failed", "input", *input, "error", err)
		os.Exit(1)
	}
	if m != nil {
		m.DocsParsedTotal.Add(float64(len(docs)))
	}

	written, err := corpus.WriteStore(cfg.Store.Path, docs)
	if err != nil {
		slog.Error("writing document store failed", "path", cfg.Store.Path, "error", err)
		os.Exit(1)
	}
	slog.Info("document store written", "path", cfg.Store.Path, "documents", written)

	if *publish {
		if len(cfg.Kafka.Brokers) == 0 {
			fmt.Fprintln(os.Stderr, "error: --publish requires kafka.brokers in config")
			os.Exit(1)
		}
		feed := corpus.NewFeed(cfg.Kafka)
		if err := feed.Publish(ctx, docs); err != nil {
			slog.Error("publishing to document feed failed", "error", err)
			os.Exit(1)
		}
		slog.Info("documents published", "topic", cfg.Kafka.DocumentTopic, "documents", len(docs))
	}

	if *archive {
		ar, err := corpus.NewArchiveRetriever(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("connecting to document archive failed", "error", err)
			os.Exit(1)
		}
		defer ar.Close()
		if err := ar.Archive(ctx, docs); err != nil {
			slog.Error("archiving documents failed", "error", err)
			os.Exit(1)
		}
		slog.Info("documents archived", "documents", len(docs))
	}
}

// cmdIndex builds the inverted index from the configured document
// source and writes the dictionary variant selected by --type.
func cmdIndex(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	indexType := fs.String("type", cfg.Index.Type, "dictionary variant: hash or isam")
	dir := fs.String("dir", cfg.Index.Dir, "index output directory")
	fromKafka := fs.Bool("from-kafka", false, "drain documents from the Kafka feed instead of the store")
	fs.Parse(args)

	cfg.Index.Type = *indexType
	cfg.Index.Dir = *dir

	m := metricsIfEnabled(cfg)

	docs, err := loadDocuments(ctx, cfg, *fromKafka)
	if err != nil {
		slog.Error("loading documents failed", "error", err)
		os.Exit(1)
	}
	if len(docs) == 0 {
		slog.Error("no documents to index")
		os.Exit(1)
	}

	stats, err := dict.Build(cfg.Index.Dir, docs, cfg.Index)
	if err != nil {
		slog.Error("index build failed", "error", err)
		os.Exit(1)
	}
	if m != nil {
		m.DocsIndexedTotal.Add(float64(stats.DocumentCount))
		m.TermsIndexed.Set(float64(stats.TermCount))
		m.TermDocPairs.Set(float64(stats.TermDocPairCount))
		m.IndexBuildDuration.Observe(stats.IndexBuildDuration.Seconds())
	}
	slog.Info("index built",
		"dir", cfg.Index.Dir,
		"type", stats.IndexType,
		"documents", stats.DocumentCount,
		"terms", stats.TermCount,
		"term_doc_pairs", stats.TermDocPairCount,
		"duration_seconds", stats.IndexBuildDuration.Seconds(),
	)

	// A rebuild makes cached results stale.
	if cfg.Redis.Addr != "" {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, skipping cache invalidation", "error", err)
			return
		}
		defer client.Close()
		cache := search.NewQueryCache(client, cfg.Redis, m)
		if err := cache.Invalidate(ctx); err != nil {
			slog.Warn("cache invalidation failed", "error", err)
		}
	}
}

// loadDocuments selects the document source for an index build: the
// Kafka feed, the Postgres archive, or the jsonl store.
func loadDocuments(ctx context.Context, cfg *config.Config, fromKafka bool) ([]corpus.Document, error) {
	if fromKafka {
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, fmt.Errorf("--from-kafka requires kafka.brokers in config")
		}
		return corpus.NewFeed(cfg.Kafka).Drain(ctx)
	}
	if cfg.Store.Backend == "postgres" {
		ar, err := corpus.NewArchiveRetriever(ctx, cfg.Postgres)
		if err != nil {
			return nil, err
		}
		defer ar.Close()
		return ar.LoadAll(ctx)
	}
	return corpus.ReadStore(cfg.Store.Path)
}

// cmdSearch reads one query from stdin, runs it against the index, and
// prints "docno score" per result line to stdout.
func cmdSearch(ctx context.Context, cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	maxResults := fs.Int("max-results", cfg.Search.DefaultLimit, "maximum results to print (0 = all)")
	headlines := fs.Bool("headlines", false, "append document headlines from the store")
	fs.Parse(args)

	m := metricsIfEnabled(cfg)

	session, err := search.Open(cfg.Index.Dir, cfg.Search, m)
	if err != nil {
		slog.Error("opening index failed", "dir", cfg.Index.Dir, "error", err)
		os.Exit(1)
	}
	defer session.Close()

	query, err := readQuery(os.Stdin)
	if err != nil {
		slog.Error("reading query failed", "error", err)
		os.Exit(1)
	}

	result, err := runQuery(ctx, cfg, session, m, query, *maxResults)
	if err != nil {
		slog.Error("search failed", "error", err)
		os.Exit(1)
	}

	var retriever corpus.Retriever
	if *headlines {
		retriever = openRetriever(ctx, cfg)
		if retriever != nil {
			defer retriever.Close()
		}
	}

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for _, scored := range result.Results {
		if scored.DocNo == "" {
			slog.Warn("skipping result without document id", "score", scored.Score)
			continue
		}
		if retriever != nil {
			if doc, ok, err := retriever.Get(scored.DocNo); err == nil && ok {
				fmt.Fprintf(out, "%s %.4f %s\n", scored.DocNo, scored.Score, doc.Headline)
				continue
			}
		}
		fmt.Fprintf(out, "%s %.4f\n", scored.DocNo, scored.Score)
	}
}

// runQuery goes through the Redis cache when one is configured and
// falls back to a direct session search when it is not.
func runQuery(
	ctx context.Context,
	cfg *config.Config,
	session *search.Session,
	m *metrics.Metrics,
	query string,
	maxResults int,
) (*search.Result, error) {
	if cfg.Redis.Addr == "" {
		return session.Search(query, maxResults)
	}
	client, err := redis.NewClient(ctx, cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, searching without cache", "error", err)
		return session.Search(query, maxResults)
	}
	defer client.Close()

	cache := search.NewQueryCache(client, cfg.Redis, m)
	result, cached, err := cache.GetOrCompute(ctx, query, maxResults, func() (*search.Result, error) {
		return session.Search(query, maxResults)
	})
	if err != nil {
		return nil, err
	}
	if cached {
		slog.Debug("served from cache", "query", query)
	}
	return result, nil
}

// readQuery returns the first non-empty line from r.
func readQuery(r *os.File) (string, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			return line, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", nil
}

// openRetriever picks the document retriever matching the store backend.
// Failures degrade to scores-only output.
func openRetriever(ctx context.Context, cfg *config.Config) corpus.Retriever {
	if cfg.Store.Backend == "postgres" {
		ar, err := corpus.NewArchiveRetriever(ctx, cfg.Postgres)
		if err != nil {
			slog.Warn("document archive unavailable", "error", err)
			return nil
		}
		return ar
	}
	return corpus.NewStoreRetriever(cfg.Store.Path)
}

func metricsIfEnabled(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New()
}
