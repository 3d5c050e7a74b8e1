// Package sinks contains diagnostic event consumers.
package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/FelllGit/codehawks-scrapper/internal/diagnostics"
)

// LogSink writes structured logs for each anomaly, the primary way operators
// see why a contest was dropped.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []diagnostics.Event) error {
	for _, evt := range batch {
		s.logger.Warn("crawl anomaly",
			zap.String("run_id", evt.RunID),
			zap.Time("ts", evt.TS),
			zap.String("stage", string(evt.Stage)),
			zap.String("platform", evt.Platform),
			zap.String("url", evt.URL),
			zap.String("reason", evt.Reason),
			zap.String("raw", evt.Raw),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
