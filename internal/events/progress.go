package events

import (
	"golang.org/x/time/rate"
)

// DefaultProgressRate is the default number of progress events per second.
const DefaultProgressRate = 10

// ProgressReporter publishes progress snapshots, throttled so a fast search
// cannot flood the bus.
type ProgressReporter struct {
	eventManager *Manager
	module       string
	limiter      *rate.Limiter
}

// NewProgressReporter creates a reporter allowing perSecond events per second.
func NewProgressReporter(em *Manager, module string, perSecond float64) *ProgressReporter {
	if perSecond <= 0 {
		perSecond = DefaultProgressRate
	}
	return &ProgressReporter{
		eventManager: em,
		module:       module,
		limiter:      rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

// Report emits a progress event if the throttle allows it.
func (pr *ProgressReporter) Report(data *ProgressData) bool {
	if pr.eventManager == nil || !pr.limiter.Allow() {
		return false
	}
	return pr.eventManager.EmitTyped(pr.module, data)
}

// ReportUnthrottled emits a progress event that always bypasses the throttle.
// Use this for the final snapshot of a job.
func (pr *ProgressReporter) ReportUnthrottled(data *ProgressData) bool {
	if pr.eventManager == nil {
		return false
	}
	return pr.eventManager.EmitTyped(pr.module, data)
}
