package control

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFlags_ZeroValue(t *testing.T) {
	var f Flags
	assert.False(t, f.Stopped())
	assert.False(t, f.Paused())

	var nilFlags *Flags
	assert.False(t, nilFlags.Stopped())
	assert.False(t, nilFlags.Paused())
}

func TestWaitWhilePaused_NotPaused(t *testing.T) {
	f := New()
	called := false
	ok := f.WaitWhilePaused(context.Background(), time.Millisecond, func() { called = true })
	assert.True(t, ok)
	assert.False(t, called)
}

func TestWaitWhilePaused_ResumeReleases(t *testing.T) {
	f := New()
	f.Pause()

	var entered atomic.Int32
	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Resume()
	}()

	ok := f.WaitWhilePaused(context.Background(), 2*time.Millisecond, func() { entered.Add(1) })
	assert.True(t, ok)
	assert.Equal(t, int32(1), entered.Load())
}

func TestWaitWhilePaused_StopPreemptsPause(t *testing.T) {
	f := New()
	f.Pause()

	go func() {
		time.Sleep(20 * time.Millisecond)
		f.Stop()
	}()

	ok := f.WaitWhilePaused(context.Background(), 2*time.Millisecond, nil)
	assert.False(t, ok)
	assert.True(t, f.Paused(), "pause flag is left as-is")
}

func TestWaitWhilePaused_ContextCancel(t *testing.T) {
	f := New()
	f.Pause()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, f.WaitWhilePaused(ctx, 2*time.Millisecond, nil))
}
