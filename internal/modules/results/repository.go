package results

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/database"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// Repository persists daily results.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new results repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "results").Logger(),
	}
}

// Upsert stores results, replacing any existing rows for the same dates.
func (r *Repository) Upsert(results []domain.DailyResult) error {
	now := time.Now().Unix()
	err := database.WithTransaction(r.db, func(tx *sql.Tx) error {
		stmt, err := tx.Prepare(`INSERT OR REPLACE INTO daily_results (date, draws, imported_at) VALUES (?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, res := range results {
			draws, err := json.Marshal(res.Draws)
			if err != nil {
				return fmt.Errorf("failed to marshal draws for %s: %w", res.DateKey(), err)
			}
			if _, err := stmt.Exec(res.DateKey(), string(draws), now); err != nil {
				return fmt.Errorf("failed to store result %s: %w", res.DateKey(), err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().Int("count", len(results)).Msg("Stored daily results")
	return nil
}

// GetAll returns every stored result in date order.
func (r *Repository) GetAll() ([]domain.DailyResult, error) {
	rows, err := r.db.Query(`SELECT date, draws FROM daily_results ORDER BY date ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily results: %w", err)
	}
	defer rows.Close()

	var out []domain.DailyResult
	for rows.Next() {
		var dateStr, drawsJSON string
		if err := rows.Scan(&dateStr, &drawsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan daily result: %w", err)
		}
		date, err := domain.ParseDate(dateStr)
		if err != nil {
			return nil, err
		}
		var draws map[string]any
		if err := json.Unmarshal([]byte(drawsJSON), &draws); err != nil {
			return nil, fmt.Errorf("failed to unmarshal draws for %s: %w", dateStr, err)
		}
		out = append(out, domain.DailyResult{Date: date, Draws: normalizeDraws(draws)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily results: %w", err)
	}
	return out, nil
}

// Snapshot loads every stored result into a Store.
func (r *Repository) Snapshot() (*Store, error) {
	all, err := r.GetAll()
	if err != nil {
		return nil, err
	}
	return NewStore(all)
}

// Count returns the number of stored days.
func (r *Repository) Count() (int, error) {
	var n int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM daily_results`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count daily results: %w", err)
	}
	return n, nil
}
