package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/config"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/reliability"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/scheduler"
)

// JobInstances holds the registered maintenance jobs for manual triggering.
type JobInstances struct {
	CleanupScratch *scheduler.CleanupScratchJob
	Checkpoint     *scheduler.CheckpointJob
	Backup         *reliability.BackupJob // nil when backups are disabled
}

// RegisterJobs creates the scheduler and registers maintenance jobs.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	sched := scheduler.New(log)
	jobs := &JobInstances{
		CleanupScratch: scheduler.NewCleanupScratchJob(cfg.CacheDir(), container.Runner.ActiveJobID, scheduler.DefaultScratchMaxAge, log),
		Checkpoint:     scheduler.NewCheckpointJob(container.DB, log),
	}

	if err := sched.AddJob(cfg.MaintenanceSchedule, jobs.CleanupScratch); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.CleanupScratch.Name(), err)
	}
	if err := sched.AddJob(cfg.MaintenanceSchedule, jobs.Checkpoint); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", jobs.Checkpoint.Name(), err)
	}

	if container.Mirror != nil {
		jobs.Backup = reliability.NewBackupJob(container.Mirror, 0, log)
		if err := sched.AddJob(cfg.BackupSchedule, jobs.Backup); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", jobs.Backup.Name(), err)
		}
	}

	container.Scheduler = sched
	return jobs, nil
}
