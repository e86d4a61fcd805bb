package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/config"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/database"
)

// InitializeDatabase opens and migrates trainer.db.
func InitializeDatabase(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.New(database.Config{
		Path:    cfg.DatabasePath(),
		Profile: database.ProfileStandard,
		Name:    "trainer",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize trainer database: %w", err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate trainer database: %w", err)
	}

	log.Debug().Str("path", db.Path()).Msg("Trainer database ready")
	return &Container{DB: db}, nil
}
