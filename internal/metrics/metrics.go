// Package metrics exposes Prometheus collectors for the crawler service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	contestsCrawledTotal *prometheus.CounterVec
	contestsDroppedTotal *prometheus.CounterVec
	anomaliesTotal       *prometheus.CounterVec
	repoLookupsTotal     *prometheus.CounterVec
	crawlDurationSeconds *prometheus.HistogramVec
	rendersInFlight      prometheus.Gauge

	once sync.Once
)

// Init registers the Prometheus collectors. Safe to call multiple times.
func Init() {
	once.Do(func() {
		contestsCrawledTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_contests_crawled_total",
				Help: "Total contests successfully extracted, labeled by platform and status.",
			},
			[]string{"platform", "status"},
		)

		contestsDroppedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_contests_dropped_total",
				Help: "Total contests dropped from a batch, labeled by platform and reason.",
			},
			[]string{"platform", "reason"},
		)

		anomaliesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_anomalies_total",
				Help: "Total diagnostic anomaly events, labeled by stage and reason.",
			},
			[]string{"stage", "reason"},
		)

		repoLookupsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crawler_repo_language_lookups_total",
				Help: "Total repository language lookups, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		crawlDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crawler_crawl_duration_seconds",
				Help:    "Histogram of full crawl durations, labeled by platform.",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"platform"},
		)

		rendersInFlight = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "crawler_renders_in_flight",
				Help: "Number of browser sessions currently open.",
			},
		)
	})
}

// ContestCrawled increments the success counter.
func ContestCrawled(platform, status string) {
	if contestsCrawledTotal == nil {
		return
	}
	contestsCrawledTotal.WithLabelValues(platform, status).Inc()
}

// ContestDropped increments the drop counter.
func ContestDropped(platform, reason string) {
	if contestsDroppedTotal == nil {
		return
	}
	contestsDroppedTotal.WithLabelValues(platform, reason).Inc()
}

// Anomaly counts one diagnostic event.
func Anomaly(stage, reason string) {
	if anomaliesTotal == nil {
		return
	}
	anomaliesTotal.WithLabelValues(stage, reason).Inc()
}

// RepoLookup counts one repository language lookup by outcome.
func RepoLookup(outcome string) {
	if repoLookupsTotal == nil {
		return
	}
	repoLookupsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCrawlDuration records the wall time of one crawl.
func ObserveCrawlDuration(platform string, d time.Duration) {
	if crawlDurationSeconds == nil {
		return
	}
	crawlDurationSeconds.WithLabelValues(platform).Observe(d.Seconds())
}

// RenderStarted marks a browser session as open.
func RenderStarted() {
	if rendersInFlight == nil {
		return
	}
	rendersInFlight.Inc()
}

// RenderFinished marks a browser session as closed.
func RenderFinished() {
	if rendersInFlight == nil {
		return
	}
	rendersInFlight.Dec()
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
