// Package integration contains tests that need the external stores the
// engine can attach to: Redis for the query cache and PostgreSQL for the
// document archive. Each test skips when its store is unavailable.
//
// Run with:
//
//	go test -v ./test/integration/...
package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/newswirelabs/retrieval-engine/internal/corpus"
	"github.com/newswirelabs/retrieval-engine/internal/search"
	"github.com/newswirelabs/retrieval-engine/pkg/config"
	"github.com/newswirelabs/retrieval-engine/pkg/metrics"
	"github.com/newswirelabs/retrieval-engine/pkg/postgres"
	"github.com/newswirelabs/retrieval-engine/pkg/redis"
)

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func testRedisConfig() config.RedisConfig {
	return config.RedisConfig{
		Addr:     envOrDefault("TEST_REDIS_ADDR", "localhost:6379"),
		PoolSize: 5,
		CacheTTL: 30 * time.Second,
	}
}

// skipIfNoRedis skips the test when Redis is unavailable.
func skipIfNoRedis(t *testing.T) *redis.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := redis.NewClient(ctx, testRedisConfig())
	if err != nil {
		t.Skipf("skipping integration test: redis unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

// TestQueryCacheRoundTrip verifies that a computed result is served from
// the cache on the second request and that equivalent query spellings
// share one cache entry.
func TestQueryCacheRoundTrip(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()

	cfg := testRedisConfig()
	cache := search.NewQueryCache(client, cfg, nil)
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}

	computes := 0
	compute := func() (*search.Result, error) {
		computes++
		return &search.Result{
			Results:      []search.ScoredDoc{{DocNo: "WSJ870108-0001", Score: 0.42}},
			TotalMatches: 1,
		}, nil
	}

	first, cached, err := cache.GetOrCompute(ctx, "Market Fell!", 10, compute)
	if err != nil {
		t.Fatalf("first GetOrCompute: %v", err)
	}
	if cached {
		t.Error("first request reported a cache hit")
	}
	if first.TotalMatches != 1 {
		t.Fatalf("TotalMatches = %d", first.TotalMatches)
	}

	// Same query, different surface form: normalisation shares the key.
	second, cached, err := cache.GetOrCompute(ctx, "market fell", 10, compute)
	if err != nil {
		t.Fatalf("second GetOrCompute: %v", err)
	}
	if !cached {
		t.Error("second request missed the cache")
	}
	if computes != 1 {
		t.Errorf("computed %d times, want 1", computes)
	}
	if second.Results[0].DocNo != first.Results[0].DocNo {
		t.Errorf("cached result diverged: %v vs %v", second.Results, first.Results)
	}

	// A different limit is a different key.
	if _, cached, err := cache.GetOrCompute(ctx, "market fell", 5, compute); err != nil || cached {
		t.Errorf("different limit: cached=%v err=%v, want fresh compute", cached, err)
	}
	if computes != 2 {
		t.Errorf("computed %d times, want 2", computes)
	}
}

// TestQueryCacheInvalidate verifies a rebuild-style invalidation forces
// recomputation.
func TestQueryCacheInvalidate(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()

	cache := search.NewQueryCache(client, testRedisConfig(), nil)
	computes := 0
	compute := func() (*search.Result, error) {
		computes++
		return &search.Result{TotalMatches: computes}, nil
	}

	query := fmt.Sprintf("invalidation probe %d", time.Now().UnixNano())
	if _, _, err := cache.GetOrCompute(ctx, query, 0, compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if err := cache.Invalidate(ctx); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, cached, err := cache.GetOrCompute(ctx, query, 0, compute); err != nil || cached {
		t.Errorf("after invalidation: cached=%v err=%v, want fresh compute", cached, err)
	}
	if computes != 2 {
		t.Errorf("computed %d times, want 2", computes)
	}
}

// TestQueryCacheMetrics verifies the hit and miss counters move with
// the cache outcomes.
func TestQueryCacheMetrics(t *testing.T) {
	client := skipIfNoRedis(t)
	ctx := context.Background()

	m := metrics.New()
	cache := search.NewQueryCache(client, testRedisConfig(), m)
	query := fmt.Sprintf("metrics probe %d", time.Now().UnixNano())
	compute := func() (*search.Result, error) { return &search.Result{}, nil }

	if _, _, err := cache.GetOrCompute(ctx, query, 0, compute); err != nil {
		t.Fatalf("GetOrCompute: %v", err)
	}
	if got := testutil.ToFloat64(m.CacheMissesTotal); got != 1 {
		t.Errorf("misses = %v, want 1", got)
	}
	if _, cached, err := cache.GetOrCompute(ctx, query, 0, compute); err != nil || !cached {
		t.Fatalf("second request: cached=%v err=%v", cached, err)
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("hits = %v, want 1", got)
	}
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            5432,
		Database:        envOrDefault("TEST_POSTGRES_DB", "newswire_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "newswire"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

// TestArchiveRoundTrip verifies the Postgres document archive: upsert,
// retrieval by id, and the full load used by index builds.
func TestArchiveRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	probe, err := postgres.New(ctx, testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	probe.Close()

	archive, err := corpus.NewArchiveRetriever(ctx, testPostgresConfig())
	if err != nil {
		t.Fatalf("NewArchiveRetriever: %v", err)
	}
	defer archive.Close()

	docNo := fmt.Sprintf("WSJ%06d-%04d", time.Now().Unix()%1000000, time.Now().UnixNano()%10000)
	docs := []corpus.Document{{DocNo: docNo, Headline: "Archive Probe", Content: "archive round trip"}}
	if err := archive.Archive(ctx, docs); err != nil {
		t.Fatalf("Archive: %v", err)
	}

	got, ok, err := archive.Get(docNo)
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.Headline != "Archive Probe" {
		t.Errorf("Headline = %q", got.Headline)
	}

	all, err := archive.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	found := false
	for _, d := range all {
		if d.DocNo == docNo {
			found = true
			break
		}
	}
	if !found {
		t.Error("archived document missing from LoadAll")
	}
}
