// Package diagnostics defines the structured anomaly events emitted by the
// platform crawlers, replacing ad hoc console logging for dropped items.
package diagnostics

import (
	"errors"
	"time"
)

// Stage denotes which part of the pipeline produced an Event.
type Stage string

// Supported diagnostic stages.
const (
	StageListing Stage = "LISTING"
	StageDetail  Stage = "DETAIL"
	StageDates   Stage = "DATES"
	StageEnrich  Stage = "ENRICH"
	StageCrawl   Stage = "CRAWL"
)

// Event captures one anomaly: a dropped contest, a degraded enrichment, or a
// markup drift signal. Events are observability data only; they never appear
// in the crawl result payload.
type Event struct {
	// RunID ties the event to one crawl invocation.
	RunID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage is the pipeline step that noticed the problem.
	Stage Stage
	// Platform labels the source site.
	Platform string
	// URL is the page being processed, if any.
	URL string
	// Reason is a short machine-friendly cause ("dates_not_found",
	// "date_parse_failed", "reward_block_missing", ...).
	Reason string
	// Raw optionally carries the offending text for forensics.
	Raw string
	// Note carries free-form low-volume context (error text).
	Note string
}

// Validate rejects events that would be useless downstream.
func (e Event) Validate() error {
	if e.Stage == "" {
		return errors.New("diagnostics: event stage is required")
	}
	if e.Reason == "" {
		return errors.New("diagnostics: event reason is required")
	}
	return nil
}

// Recorder accepts events without blocking the emitter.
type Recorder interface {
	Emit(evt Event)
}
