// Package control holds the cooperative stop and pause flags shared between
// the job owner and the worker.
package control

import (
	"context"
	"sync/atomic"
	"time"
)

// Flags is a pair of cooperative control flags. Stop is edge-triggered and
// sticky; pause is level-triggered. The zero value is ready to use.
type Flags struct {
	stop  atomic.Bool
	pause atomic.Bool
}

// New creates cleared flags.
func New() *Flags {
	return &Flags{}
}

// Stop requests a cooperative stop. Stop preempts pause.
func (f *Flags) Stop() {
	f.stop.Store(true)
}

// Pause requests the worker to suspend at its next observation point.
func (f *Flags) Pause() {
	f.pause.Store(true)
}

// Resume clears the pause flag.
func (f *Flags) Resume() {
	f.pause.Store(false)
}

// Stopped reports whether stop was requested. A nil receiver is never stopped.
func (f *Flags) Stopped() bool {
	return f != nil && f.stop.Load()
}

// Paused reports whether the pause flag is set.
func (f *Flags) Paused() bool {
	return f != nil && f.pause.Load()
}

// WaitWhilePaused blocks while the pause flag is set, polling every interval.
// onEnter runs once when a pause episode begins. Returns false if stop or
// context cancellation was observed, true when the worker may continue.
func (f *Flags) WaitWhilePaused(ctx context.Context, interval time.Duration, onEnter func()) bool {
	if f.Stopped() || ctx.Err() != nil {
		return false
	}
	if !f.Paused() {
		return true
	}
	if onEnter != nil {
		onEnter()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for f.Paused() {
		if f.Stopped() {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	return !f.Stopped()
}
