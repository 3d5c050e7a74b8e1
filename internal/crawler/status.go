package crawler

import "time"

// ClassifyStatus derives the lifecycle state of a contest window at a given
// instant. The window is inclusive: a contest whose end equals now is still
// ONGOING.
func ClassifyStatus(start, end, now time.Time) Status {
	switch {
	case end.Before(now):
		return StatusFinished
	case start.After(now):
		return StatusUpcoming
	default:
		return StatusOngoing
	}
}
