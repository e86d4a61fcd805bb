package scheduler

import (
	"fmt"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/database"
	"github.com/rs/zerolog"
)

// Checkpointer is satisfied by *database.DB.
type Checkpointer interface {
	WALCheckpoint(mode string) error
	Name() string
}

var _ Checkpointer = (*database.DB)(nil)

// CheckpointJob truncates the SQLite write-ahead log so the results and run
// history database does not grow without bound between restarts.
type CheckpointJob struct {
	db  Checkpointer
	log zerolog.Logger
}

// NewCheckpointJob creates a new CheckpointJob
func NewCheckpointJob(db Checkpointer, log zerolog.Logger) *CheckpointJob {
	return &CheckpointJob{
		db:  db,
		log: log.With().Str("job", "wal_checkpoint").Logger(),
	}
}

// Name returns the job name
func (j *CheckpointJob) Name() string {
	return "wal_checkpoint"
}

// Run executes the checkpoint
func (j *CheckpointJob) Run() error {
	if err := j.db.WALCheckpoint("TRUNCATE"); err != nil {
		return fmt.Errorf("checkpoint %s: %w", j.db.Name(), err)
	}
	j.log.Debug().Str("database", j.db.Name()).Msg("WAL checkpoint completed")
	return nil
}
