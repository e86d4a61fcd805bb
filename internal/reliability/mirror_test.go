package reliability

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	mu      sync.Mutex
	objects map[string]string
	err     error
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string]string)}
}

func (s *memStore) Upload(_ context.Context, key string, body io.Reader) error {
	if s.err != nil {
		return s.err
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.objects[key] = string(data)
	s.mu.Unlock()
	return nil
}

func (s *memStore) get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.objects[key]
	return v, ok
}

func writeFile(t *testing.T, p, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
}

func TestMirror_Key(t *testing.T) {
	root := t.TempDir()
	m := NewMirror(newMemStore(), root, "/training/", 0, zerolog.Nop())

	key, err := m.Key(filepath.Join(root, "hot", "training_state_hot.json"))
	require.NoError(t, err)
	assert.Equal(t, "training/hot/training_state_hot.json", key)

	_, err = m.Key(filepath.Join(filepath.Dir(root), "elsewhere.json"))
	assert.Error(t, err)
	_, err = m.Key(root)
	assert.Error(t, err)
}

func TestMirror_Sync(t *testing.T) {
	root := t.TempDir()
	store := newMemStore()
	m := NewMirror(store, root, "training", 0, zerolog.Nop())

	p := filepath.Join(root, "hot", "training_state_hot.json")
	writeFile(t, p, `{"best_streak":3}`)

	require.NoError(t, m.Sync(context.Background(), p))
	got, ok := store.get("training/hot/training_state_hot.json")
	require.True(t, ok)
	assert.Equal(t, `{"best_streak":3}`, got)
	assert.Equal(t, int64(1), m.Uploaded())
}

func TestMirror_SyncPropagatesStoreError(t *testing.T) {
	root := t.TempDir()
	store := newMemStore()
	store.err = errors.New("bucket unavailable")
	m := NewMirror(store, root, "", 0, zerolog.Nop())

	p := filepath.Join(root, "a.json")
	writeFile(t, p, "{}")

	assert.EqualError(t, m.Sync(context.Background(), p), "bucket unavailable")
	assert.Zero(t, m.Uploaded())
}

func TestMirror_EnqueueDropsWhenFull(t *testing.T) {
	m := NewMirror(newMemStore(), t.TempDir(), "", 1, zerolog.Nop())

	assert.True(t, m.Enqueue("a"))
	assert.False(t, m.Enqueue("b"))
	assert.Equal(t, int64(1), m.Dropped())
}

func TestMirror_RunDrainsQueue(t *testing.T) {
	root := t.TempDir()
	store := newMemStore()
	m := NewMirror(store, root, "training", 4, zerolog.Nop())

	p := filepath.Join(root, "hot", "success", "trained_hot_streak4_20240101_120000.yaml")
	writeFile(t, p, "kind: fixed\n")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	require.True(t, m.Enqueue(p))
	assert.Eventually(t, func() bool {
		_, ok := store.get("training/hot/success/trained_hot_streak4_20240101_120000.yaml")
		return ok
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestBackupJob_SyncsWholeTree(t *testing.T) {
	root := t.TempDir()
	store := newMemStore()
	writeFile(t, filepath.Join(root, "hot", "training_state_hot.json"), "{}")
	writeFile(t, filepath.Join(root, "cold", "training_state_cold.json"), "{}")
	writeFile(t, filepath.Join(root, "cold", ".tmp-state"), "partial")

	job := NewBackupJob(NewMirror(store, root, "t", 0, zerolog.Nop()), time.Second, zerolog.Nop())
	require.NoError(t, job.Run())

	_, ok := store.get("t/hot/training_state_hot.json")
	assert.True(t, ok)
	_, ok = store.get("t/cold/training_state_cold.json")
	assert.True(t, ok)
	_, ok = store.get("t/cold/.tmp-state")
	assert.False(t, ok)
}

func TestBackupJob_MissingRootIsEmpty(t *testing.T) {
	job := NewBackupJob(NewMirror(newMemStore(), filepath.Join(t.TempDir(), "absent"), "", 0, zerolog.Nop()), time.Second, zerolog.Nop())
	assert.NoError(t, job.Run())
}
