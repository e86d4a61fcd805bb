package di

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/config"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/metrics"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/algorithms"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/optimization"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/reliability"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/work"
)

// InitializeRepositories creates the SQLite-backed repositories.
func InitializeRepositories(container *Container, log zerolog.Logger) {
	container.ResultsRepo = results.NewRepository(container.DB.Conn(), log)
	container.RunRepo = training.NewRunRepository(container.DB.Conn(), log)
}

// ImportResults loads cfg.ResultsFile into the results table when set.
func ImportResults(container *Container, path string, log zerolog.Logger) (int, error) {
	if path == "" {
		return 0, nil
	}
	store, err := results.NewLoader(log).LoadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to load results file: %w", err)
	}
	if err := container.ResultsRepo.Upsert(store.Results()); err != nil {
		return 0, fmt.Errorf("failed to import results: %w", err)
	}
	log.Info().Str("file", path).Int("days", store.Len()).Msg("Imported lottery results")
	return store.Len(), nil
}

// InitializeServices builds algorithms, events, metrics, the backup mirror and
// the worker.
func InitializeServices(ctx context.Context, container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Metrics = metrics.New()
	container.EventBus = events.NewBus(cfg.EventBusCapacity)
	container.EventManager = events.NewManager(container.EventBus, log)
	container.Metrics.RegisterGaugeFunc("trainer_event_bus_dropped", "Droppable events discarded by a full bus",
		func() float64 { return float64(container.EventBus.Dropped()) })
	container.Metrics.RegisterGaugeFunc("trainer_db_wal_bytes", "Size of the SQLite write-ahead log",
		func() float64 {
			stats, err := container.DB.GetStats()
			if err != nil {
				return 0
			}
			return float64(stats.WALSizeBytes)
		})

	container.Registry = algorithms.NewRegistry(log)
	if _, err := os.Stat(cfg.AlgorithmsDir); err == nil {
		if _, err := container.Registry.Discover(cfg.AlgorithmsDir); err != nil {
			return err
		}
	} else {
		log.Warn().Str("dir", cfg.AlgorithmsDir).Msg("Algorithms directory not found; no algorithms registered")
	}
	container.Materializer = algorithms.NewMaterializer(container.Registry)
	container.Artifacts = algorithms.NewArtifactWriter(container.Registry, cfg.TrainingRoot(), log)
	container.States = training.NewStateStore(cfg.TrainingRoot(), log)

	if cfg.Backup.Enabled() {
		client, err := reliability.NewS3Client(ctx, cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup client: %w", err)
		}
		container.Mirror = reliability.NewMirror(client, cfg.TrainingRoot(), cfg.Backup.Prefix, reliability.DefaultQueueSize, log)
	}

	deps := work.Deps{
		Results:      container.ResultsRepo,
		Registry:     container.Registry,
		Materializer: container.Materializer,
		States:       container.States,
		Artifacts:    container.Artifacts,
		Runs:         container.RunRepo,
		Events:       container.EventManager,
		Metrics:      container.Metrics,
		Settings:     Settings(cfg),
		ScratchRoot:  cfg.CacheDir(),
	}
	if container.Mirror != nil {
		deps.Mirror = container.Mirror
	}
	runner, err := work.NewRunner(deps, log)
	if err != nil {
		return fmt.Errorf("failed to create runner: %w", err)
	}
	container.Runner = runner
	return nil
}

// Settings maps configuration tunables onto engine settings.
func Settings(cfg *config.Config) optimization.Settings {
	s := optimization.DefaultSettings()
	s.MaxStallCycles = cfg.MaxStallCycles
	s.MaxNeighborsPerCycle = cfg.MaxNeighborsPerCycle
	s.CombinationSizeLimit = cfg.CombinationSizeLimit
	s.PauseInterval = cfg.PausePollInterval
	s.ProgressPerSecond = cfg.ProgressEventsPerSec
	return s
}
