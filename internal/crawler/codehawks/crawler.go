package codehawks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/FelllGit/codehawks-scrapper/internal/crawler"
	"github.com/FelllGit/codehawks-scrapper/internal/diagnostics"
	"github.com/FelllGit/codehawks-scrapper/internal/metrics"
)

// Config controls one CodeHawks crawler instance.
type Config struct {
	// ListingURL is the contests index page.
	ListingURL string
	// Origin prefixes relative contest hrefs.
	Origin string
	// Concurrency caps simultaneously in-flight detail pages.
	Concurrency int
	// TooltipTimeout bounds each wait for a hover-revealed tooltip.
	TooltipTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ListingURL == "" {
		c.ListingURL = ListingURL
	}
	if c.Origin == "" {
		c.Origin = Origin
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 10
	}
	if c.TooltipTimeout <= 0 {
		c.TooltipTimeout = 3 * time.Second
	}
	return c
}

// Crawler crawls the CodeHawks contest catalog. It implements crawler.Source.
type Crawler struct {
	renderer  crawler.Renderer
	languages crawler.LanguageResolver
	clock     crawler.Clock
	idGen     crawler.IDGenerator
	snapshots crawler.BlobStore
	diag      diagnostics.Recorder
	logger    *zap.Logger
	cfg       Config
}

// New constructs a Crawler. The snapshot store may be nil; failed pages are
// then not archived.
func New(
	renderer crawler.Renderer,
	languages crawler.LanguageResolver,
	clock crawler.Clock,
	idGen crawler.IDGenerator,
	snapshots crawler.BlobStore,
	diag diagnostics.Recorder,
	cfg Config,
	logger *zap.Logger,
) *Crawler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Crawler{
		renderer:  renderer,
		languages: languages,
		clock:     clock,
		idGen:     idGen,
		snapshots: snapshots,
		diag:      diag,
		logger:    logger,
		cfg:       cfg.withDefaults(),
	}
}

// Name returns the platform identifier.
func (c *Crawler) Name() string {
	return Platform
}

// Crawl renders the listing page, fans out over discovered contest pages
// under the configured concurrency cap, and returns the contests that
// extracted cleanly, in listing order. A failed contest is dropped and
// reported; it never aborts the batch. Only systemic failures (browser or
// listing page unreachable) propagate.
func (c *Crawler) Crawl(ctx context.Context) ([]crawler.Contest, error) {
	runID := c.newRunID()
	start := c.clock.Now()

	urls, err := c.collectContestURLs(ctx)
	if err != nil {
		return nil, err
	}
	c.logger.Info("listing extracted",
		zap.String("run_id", runID),
		zap.Int("contests", len(urls)),
	)
	if len(urls) == 0 {
		return []crawler.Contest{}, nil
	}

	// Slots are pre-indexed by listing position so the batch order stays
	// deterministic regardless of task completion order.
	results := make([]*crawler.Contest, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)
	for i, contestURL := range urls {
		g.Go(func() error {
			contest, err := c.parseContest(gctx, runID, contestURL)
			if err != nil {
				c.reportDrop(runID, contestURL, err)
				return nil
			}
			results[i] = contest
			metrics.ContestCrawled(Platform, string(contest.Status))
			return nil
		})
	}
	// Tasks swallow their own errors, so Wait always returns nil; it is the
	// join point for the batch.
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("crawl canceled: %w", err)
	}

	contests := make([]crawler.Contest, 0, len(urls))
	for _, r := range results {
		if r != nil {
			contests = append(contests, *r)
		}
	}
	metrics.ObserveCrawlDuration(Platform, c.clock.Now().Sub(start))
	c.logger.Info("crawl finished",
		zap.String("run_id", runID),
		zap.Int("crawled", len(contests)),
		zap.Int("dropped", len(urls)-len(contests)),
	)
	return contests, nil
}

func (c *Crawler) collectContestURLs(ctx context.Context) ([]string, error) {
	sess, err := c.renderer.Render(ctx, c.cfg.ListingURL, crawler.ReadinessContentLoaded)
	if err != nil {
		return nil, fmt.Errorf("render listing page: %w", err)
	}
	defer sess.Close()

	urls, err := ExtractListing(sess.HTML(), c.cfg.Origin)
	if err != nil {
		return nil, fmt.Errorf("extract listing: %w", err)
	}
	return urls, nil
}

// parseContest extracts one contest page into a record. The browsing context
// is scoped here and closed on every path.
func (c *Crawler) parseContest(ctx context.Context, runID, contestURL string) (*crawler.Contest, error) {
	sess, err := c.renderer.Render(ctx, contestURL, crawler.ReadinessNetworkIdle)
	if err != nil {
		return nil, fmt.Errorf("render contest page: %w", err)
	}
	defer sess.Close()

	detail, err := ExtractDetail(sess.HTML())
	if err != nil {
		return nil, fmt.Errorf("extract detail: %w", err)
	}
	for _, anomaly := range detail.Anomalies {
		c.diag.Emit(diagnostics.Event{
			RunID:    runID,
			Stage:    diagnostics.StageDetail,
			Platform: Platform,
			URL:      contestURL,
			Reason:   "markup_drift",
			Note:     anomaly,
		})
	}

	languages := c.resolveLanguages(ctx, runID, contestURL, detail.RepoLink)

	window, err := c.resolveWindow(ctx, sess)
	if err != nil {
		c.archiveSnapshot(ctx, runID, contestURL, sess.HTML())
		return nil, err
	}

	now := c.clock.Now()
	contest := &crawler.Contest{
		Program:           fmt.Sprintf("%s / %s", detail.Sponsor, detail.Title),
		Slug:              crawler.SlugFromURL(contestURL),
		Platform:          Platform,
		ImageURL:          detail.ImageURL,
		OriginalURL:       contestURL,
		Languages:         languages,
		MaxReward:         detail.RewardsPool,
		RewardsPool:       detail.RewardsPool,
		RewardsToken:      detail.RewardsToken,
		StartDate:         window.Start,
		EndDate:           window.End,
		EvaluationEndDate: window.End,
		Status:            crawler.ClassifyStatus(window.Start, window.End, now),
		Tags:              []string{"#contest"},
	}
	return contest, nil
}

// resolveLanguages wraps the enricher in the best-effort policy: any failure
// degrades to an empty slice and is reported, never escalated.
func (c *Crawler) resolveLanguages(ctx context.Context, runID, contestURL, repoLink string) []string {
	if repoLink == "" {
		return []string{}
	}
	languages, err := c.languages.ResolveLanguages(ctx, repoLink)
	if err != nil {
		metrics.RepoLookup("error")
		c.diag.Emit(diagnostics.Event{
			RunID:    runID,
			Stage:    diagnostics.StageEnrich,
			Platform: Platform,
			URL:      contestURL,
			Reason:   "language_lookup_failed",
			Note:     err.Error(),
		})
		return []string{}
	}
	metrics.RepoLookup("ok")
	if languages == nil {
		return []string{}
	}
	return languages
}

func (c *Crawler) reportDrop(runID, contestURL string, err error) {
	reason := "extraction_failed"
	raw := ""
	var parseErr *ParseError
	switch {
	case errors.As(err, &parseErr):
		reason = "date_parse_failed"
		raw = parseErr.Raw
	case errors.Is(err, ErrDatesNotFound):
		reason = "dates_not_found"
	}
	metrics.ContestDropped(Platform, reason)
	c.diag.Emit(diagnostics.Event{
		RunID:    runID,
		Stage:    diagnostics.StageDates,
		Platform: Platform,
		URL:      contestURL,
		Reason:   reason,
		Raw:      raw,
		Note:     err.Error(),
	})
	c.logger.Warn("contest dropped",
		zap.String("run_id", runID),
		zap.String("url", contestURL),
		zap.String("reason", reason),
		zap.Error(err),
	)
}

// archiveSnapshot stores the raw HTML of a page that failed extraction so a
// markup revision can be diagnosed after the fact. Best-effort.
func (c *Crawler) archiveSnapshot(ctx context.Context, runID, contestURL, html string) {
	if c.snapshots == nil {
		return
	}
	path := fmt.Sprintf("snapshots/%s/%s.html", runID, crawler.SlugFromURL(contestURL))
	uri, err := c.snapshots.PutObject(ctx, path, "text/html; charset=utf-8", strings.NewReader(html))
	if err != nil {
		c.logger.Warn("snapshot archive failed", zap.String("url", contestURL), zap.Error(err))
		return
	}
	c.logger.Debug("snapshot archived", zap.String("url", contestURL), zap.String("uri", uri))
}

func (c *Crawler) newRunID() string {
	if c.idGen == nil {
		return "unknown"
	}
	id, err := c.idGen.NewID()
	if err != nil {
		return "unknown"
	}
	return id
}
