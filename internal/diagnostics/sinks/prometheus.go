package sinks

import (
	"context"

	"github.com/FelllGit/codehawks-scrapper/internal/diagnostics"
	"github.com/FelllGit/codehawks-scrapper/internal/metrics"
)

// PrometheusSink counts anomalies by stage and reason so alerting can catch
// markup drift before the catalog goes stale.
type PrometheusSink struct{}

// NewPrometheusSink returns a sink feeding the shared metrics registry.
func NewPrometheusSink() *PrometheusSink {
	metrics.Init()
	return &PrometheusSink{}
}

// Consume increments one counter per event.
func (s *PrometheusSink) Consume(_ context.Context, batch []diagnostics.Event) error {
	for _, evt := range batch {
		metrics.Anomaly(string(evt.Stage), evt.Reason)
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
