package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// BackupJob performs a full mirror of the training root.
type BackupJob struct {
	mirror  *Mirror
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(mirror *Mirror, timeout time.Duration, log zerolog.Logger) *BackupJob {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &BackupJob{
		mirror:  mirror,
		timeout: timeout,
		log:     log.With().Str("job", "training_backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "training_backup"
}

// Run uploads every state file and artifact.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	sent, err := j.mirror.SyncAll(ctx)
	if err != nil {
		return fmt.Errorf("training backup: %w", err)
	}
	j.log.Info().
		Int("files", sent).
		Dur("duration", time.Since(start)).
		Msg("Training backup completed")
	return nil
}
