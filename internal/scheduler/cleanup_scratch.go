package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DefaultScratchMaxAge is how long an abandoned job scratch directory survives.
const DefaultScratchMaxAge = 24 * time.Hour

// CleanupScratchJob prunes per-job scratch directories left behind by jobs
// that died without cleaning up. The directory of the running job is never
// touched.
type CleanupScratchJob struct {
	root   string
	active func() string
	maxAge time.Duration
	now    func() time.Time
	log    zerolog.Logger
}

// NewCleanupScratchJob creates the job. active returns the running job id, or
// "" when the worker is idle; it may be nil.
func NewCleanupScratchJob(root string, active func() string, maxAge time.Duration, log zerolog.Logger) *CleanupScratchJob {
	if maxAge <= 0 {
		maxAge = DefaultScratchMaxAge
	}
	if active == nil {
		active = func() string { return "" }
	}
	return &CleanupScratchJob{
		root:   root,
		active: active,
		maxAge: maxAge,
		now:    time.Now,
		log:    log.With().Str("job", "cleanup_scratch").Logger(),
	}
}

// Name returns the job name
func (j *CleanupScratchJob) Name() string {
	return "cleanup_scratch"
}

// Run removes stale scratch subdirectories.
func (j *CleanupScratchJob) Run() error {
	entries, err := os.ReadDir(j.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read scratch root: %w", err)
	}

	cutoff := j.now().Add(-j.maxAge)
	active := j.active()
	removed := 0

	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == active {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.root, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			j.log.Warn().Err(err).Str("path", path).Msg("Failed to remove scratch directory")
			continue
		}
		removed++
	}

	if removed > 0 {
		j.log.Info().Int("removed", removed).Msg("Pruned stale scratch directories")
	}
	return nil
}
