package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/config"
)

// Wire initializes all dependencies and returns a fully configured container.
// Order of operations:
//  1. Open and migrate the database
//  2. Create repositories and import the results file
//  3. Create services and the worker
//  4. Register maintenance jobs
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, *JobInstances, error) {
	container, err := InitializeDatabase(cfg, log)
	if err != nil {
		return nil, nil, err
	}

	InitializeRepositories(container, log)
	if _, err := ImportResults(container, cfg.ResultsFile, log); err != nil {
		container.Close()
		return nil, nil, err
	}

	if err := InitializeServices(ctx, container, cfg, log); err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	jobs, err := RegisterJobs(container, cfg, log)
	if err != nil {
		container.Close()
		return nil, nil, fmt.Errorf("failed to register jobs: %w", err)
	}

	log.Info().Msg("Dependency injection wiring completed successfully")
	return container, jobs, nil
}
