// Package di wires the trainer's long-lived components.
//
// The Container is the single source of truth for service instances; the HTTP
// server and the CLI both receive it instead of building their own copies.
package di

import (
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/database"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/events"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/metrics"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/algorithms"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/results"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/reliability"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/scheduler"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/work"
)

// Container holds all application dependencies.
type Container struct {
	DB *database.DB

	// Repositories
	ResultsRepo *results.Repository
	RunRepo     *training.RunRepository

	// Algorithms
	Registry     *algorithms.Registry
	Materializer *algorithms.Materializer
	Artifacts    *algorithms.ArtifactWriter

	// Training
	States *training.StateStore
	Runner *work.Runner

	// Infrastructure
	EventBus     *events.Bus
	EventManager *events.Manager
	Metrics      *metrics.Registry
	Scheduler    *scheduler.Scheduler
	Mirror       *reliability.Mirror // nil when backups are disabled
}

// Close releases the database.
func (c *Container) Close() error {
	if c.DB == nil {
		return nil
	}
	return c.DB.Close()
}
