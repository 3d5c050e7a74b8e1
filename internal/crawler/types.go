// Package crawler defines the core types and interfaces shared by all
// platform crawlers: the Contest record shape, the status lifecycle, and the
// collaborator interfaces the orchestrators depend on.
package crawler

import (
	"strings"
	"time"
)

// Status is the lifecycle state of a contest relative to its window.
type Status string

// Contest status values. EVALUATING and UNKNOWN are reachable on platforms
// with a separate judging phase; the CodeHawks classifier never produces
// them, but the enum is shared across platform crawlers.
const (
	StatusUnknown    Status = "UNKNOWN"
	StatusUpcoming   Status = "UPCOMING"
	StatusOngoing    Status = "ONGOING"
	StatusEvaluating Status = "EVALUATING"
	StatusFinished   Status = "FINISHED"
)

// Contest is the normalized record produced for one contest page. Field
// names form the wire/storage contract consumed by the catalog; do not
// rename without a migration.
type Contest struct {
	Program           string    `json:"program"`
	Slug              string    `json:"slug"`
	Platform          string    `json:"platform"`
	ImageURL          string    `json:"imageUrl"`
	OriginalURL       string    `json:"originalUrl"`
	Languages         []string  `json:"languages"`
	MaxReward         float64   `json:"maxReward"`
	RewardsPool       float64   `json:"rewardsPool"`
	RewardsToken      string    `json:"rewardsToken"`
	StartDate         time.Time `json:"startDate"`
	EndDate           time.Time `json:"endDate"`
	EvaluationEndDate time.Time `json:"evaluationEndDate"`
	Status            Status    `json:"status"`
	Tags              []string  `json:"tags"`
}

// SlugFromURL returns the last path segment of a contest URL, the natural
// key for a contest within one platform.
func SlugFromURL(url string) string {
	idx := strings.LastIndex(url, "/")
	if idx < 0 {
		return url
	}
	return url[idx+1:]
}

// Summary describes one finished crawl run for downstream consumers.
type Summary struct {
	RunID      string    `json:"run_id"`
	Platform   string    `json:"platform"`
	Crawled    int       `json:"crawled"`
	DurationMs int64     `json:"duration_ms"`
	FinishedAt time.Time `json:"finished_at"`
}
