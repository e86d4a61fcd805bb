// Package reliability mirrors training state and success artifacts to an
// S3-compatible bucket.
package reliability

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// DefaultQueueSize bounds the number of pending uploads.
const DefaultQueueSize = 64

// ObjectStore is the upload side of S3Client.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

var _ ObjectStore = (*S3Client)(nil)

// Mirror uploads files below root, keyed by their path relative to root.
// Enqueue never blocks the caller; a full queue drops the path and the next
// full sync picks it up.
type Mirror struct {
	store  ObjectStore
	root   string
	prefix string
	queue  chan string
	log    zerolog.Logger

	uploaded atomic.Int64
	dropped  atomic.Int64
}

// NewMirror creates a mirror of root under prefix.
func NewMirror(store ObjectStore, root, prefix string, queueSize int, log zerolog.Logger) *Mirror {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Mirror{
		store:  store,
		root:   filepath.Clean(root),
		prefix: strings.Trim(prefix, "/"),
		queue:  make(chan string, queueSize),
		log:    log.With().Str("service", "mirror").Logger(),
	}
}

// Key maps a local path below root to its object key.
func (m *Mirror) Key(p string) (string, error) {
	rel, err := filepath.Rel(m.root, filepath.Clean(p))
	if err != nil {
		return "", fmt.Errorf("path %s: %w", p, err)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s is outside %s", p, m.root)
	}
	return path.Join(m.prefix, filepath.ToSlash(rel)), nil
}

// Enqueue schedules p for upload. It reports false when the queue is full.
func (m *Mirror) Enqueue(p string) bool {
	select {
	case m.queue <- p:
		return true
	default:
		m.dropped.Add(1)
		m.log.Warn().Str("path", p).Msg("Mirror queue full, dropping upload")
		return false
	}
}

// Run uploads queued paths until ctx is done.
func (m *Mirror) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-m.queue:
			if err := m.Sync(ctx, p); err != nil {
				m.log.Error().Err(err).Str("path", p).Msg("Mirror upload failed")
			}
		}
	}
}

// Sync uploads one file now.
func (m *Mirror) Sync(ctx context.Context, p string) error {
	key, err := m.Key(p)
	if err != nil {
		return err
	}
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open %s: %w", p, err)
	}
	defer f.Close()

	if err := m.store.Upload(ctx, key, f); err != nil {
		return err
	}
	m.uploaded.Add(1)
	m.log.Debug().Str("key", key).Msg("Mirrored file")
	return nil
}

// SyncAll uploads every regular file below root and returns how many were sent.
func (m *Mirror) SyncAll(ctx context.Context) (int, error) {
	sent := 0
	err := filepath.WalkDir(m.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == m.root {
				return filepath.SkipDir
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || !d.Type().IsRegular() || partial(d.Name()) {
			return nil
		}
		if err := m.Sync(ctx, p); err != nil {
			return err
		}
		sent++
		return nil
	})
	return sent, err
}

// partial matches hidden files and in-flight atomic-write temporaries.
func partial(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".tmp")
}

// Uploaded is the number of successful uploads.
func (m *Mirror) Uploaded() int64 {
	return m.uploaded.Load()
}

// Dropped is the number of enqueue attempts rejected by a full queue.
func (m *Mirror) Dropped() int64 {
	return m.dropped.Load()
}
