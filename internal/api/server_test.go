package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
	"github.com/FelllGit/codehawks-scrapper/internal/publisher/memory"
)

type fakeSource struct {
	name     string
	contests []crawler.Contest
	err      error
}

func (s *fakeSource) Name() string { return s.name }

func (s *fakeSource) Crawl(context.Context) ([]crawler.Contest, error) {
	return s.contests, s.err
}

type fakeStore struct {
	mu      sync.Mutex
	batches [][]crawler.Contest
	err     error
}

func (s *fakeStore) UpsertContests(_ context.Context, contests []crawler.Contest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, contests)
	return s.err
}

type staticIDGen struct{ id string }

func (g staticIDGen) NewID() (string, error) { return g.id, nil }

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

func sampleContest(slug string) crawler.Contest {
	return crawler.Contest{
		Program:      "AcmeDAO / Vault Audit",
		Slug:         slug,
		Platform:     "CodeHawks",
		OriginalURL:  "https://codehawks.cyfrin.io/c/" + slug,
		Languages:    []string{"Solidity"},
		RewardsPool:  50000,
		MaxReward:    50000,
		RewardsToken: "USDC",
		Status:       crawler.StatusOngoing,
		Tags:         []string{"#contest"},
	}
}

func newTestServer(source crawler.Source, store crawler.ContestStore, pub crawler.Publisher) *Server {
	return NewServer(
		[]crawler.Source{source},
		store,
		pub,
		"crawl-summaries",
		staticIDGen{id: "run-test"},
		fixedClock{now: time.Date(2024, time.April, 30, 12, 0, 0, 0, time.UTC)},
		zap.NewNop(),
	)
}

func TestRunCrawlReturnsBatch(t *testing.T) {
	t.Parallel()

	source := &fakeSource{
		name:     "CodeHawks",
		contests: []crawler.Contest{sampleContest("alpha"), sampleContest("beta")},
	}
	store := &fakeStore{}
	pub := memory.New()
	srv := newTestServer(source, store, pub)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/CodeHawks", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var resp struct {
		RunID    string            `json:"run_id"`
		Platform string            `json:"platform"`
		Crawled  int               `json:"crawled"`
		Contests []crawler.Contest `json:"contests"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "run-test", resp.RunID)
	require.Equal(t, "CodeHawks", resp.Platform)
	require.Equal(t, 2, resp.Crawled)
	require.Len(t, resp.Contests, 2)
	require.Equal(t, "alpha", resp.Contests[0].Slug)

	require.Len(t, store.batches, 1)
	require.Len(t, store.batches[0], 2)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, "crawl-summaries", msgs[0].Topic)
}

func TestRunCrawlUnknownPlatform(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeSource{name: "CodeHawks"}, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/Nope", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRunCrawlSourceFailure(t *testing.T) {
	t.Parallel()

	source := &fakeSource{name: "CodeHawks", err: errors.New("browser unreachable")}
	store := &fakeStore{}
	srv := newTestServer(source, store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/CodeHawks", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Empty(t, store.batches)
}

func TestRunCrawlPersistFailureStillSucceeds(t *testing.T) {
	t.Parallel()

	source := &fakeSource{name: "CodeHawks", contests: []crawler.Contest{sampleContest("alpha")}}
	store := &fakeStore{err: errors.New("db down")}
	srv := newTestServer(source, store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/CodeHawks", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRunCrawlEmptyBatchSkipsPersist(t *testing.T) {
	t.Parallel()

	source := &fakeSource{name: "CodeHawks", contests: []crawler.Contest{}}
	store := &fakeStore{}
	srv := newTestServer(source, store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/crawl/CodeHawks", nil)
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Empty(t, store.batches)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeSource{name: "CodeHawks"}, nil, nil)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		srv.Handler().ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeSource{name: "CodeHawks"}, nil, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}
