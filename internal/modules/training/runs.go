package training

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// ErrRunNotFound is returned for an unknown run id.
var ErrRunNotFound = errors.New("training run not found")

// Run is one recorded optimization job.
type Run struct {
	ID         string                 `json:"id"`
	Algorithm  string                 `json:"algorithm"`
	Mode       domain.Mode            `json:"mode"`
	StartDate  time.Time              `json:"start_date"`
	Peers      []string               `json:"peers"`
	Reason     domain.TerminalReason  `json:"reason,omitempty"`
	Success    bool                   `json:"success"`
	BestStreak int                    `json:"best_streak"`
	BestParams domain.ParameterVector `json:"best_params"`
	Evaluated  int                    `json:"evaluated"`
	SetsTested *int                   `json:"sets_tested,omitempty"`
	Artifact   string                 `json:"artifact,omitempty"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt *time.Time             `json:"finished_at,omitempty"`
}

// RunOutcome is what a finished job reports back.
type RunOutcome struct {
	Reason     domain.TerminalReason
	Success    bool
	BestStreak int
	BestParams domain.ParameterVector
	Evaluated  int
	SetsTested *int
	Artifact   string
}

// RunRepository stores training run history in SQLite.
type RunRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db *sql.DB, log zerolog.Logger) *RunRepository {
	return &RunRepository{
		db:  db,
		log: log.With().Str("repo", "training_runs").Logger(),
	}
}

// Start records a new run and returns its id. An empty id gets a fresh UUID.
func (r *RunRepository) Start(id string, req domain.JobRequest) (string, error) {
	if id == "" {
		id = uuid.New().String()
	}
	peers, err := json.Marshal(nonNil(req.PeerAlgorithmIDs))
	if err != nil {
		return "", fmt.Errorf("failed to marshal peers: %w", err)
	}

	_, err = r.db.Exec(`
		INSERT INTO training_runs (id, algorithm, mode, start_date, peers, started_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, req.TargetAlgorithmID, string(req.Mode), req.StartDate.Format(domain.DateLayout), string(peers), time.Now().Unix())
	if err != nil {
		return "", fmt.Errorf("failed to insert training run: %w", err)
	}

	r.log.Debug().Str("run_id", id).Str("algorithm", req.TargetAlgorithmID).Msg("Recorded run start")
	return id, nil
}

// Finish stores the terminal outcome of a run.
func (r *RunRepository) Finish(id string, out RunOutcome) error {
	params, err := json.Marshal(out.BestParams)
	if err != nil {
		return fmt.Errorf("failed to marshal best params: %w", err)
	}
	if out.BestParams == nil {
		params = []byte("{}")
	}

	var setsTested sql.NullInt64
	if out.SetsTested != nil {
		setsTested = sql.NullInt64{Int64: int64(*out.SetsTested), Valid: true}
	}

	res, err := r.db.Exec(`
		UPDATE training_runs
		SET reason = ?, success = ?, best_streak = ?, best_params = ?, evaluated = ?,
		    sets_tested = ?, artifact = ?, finished_at = ?
		WHERE id = ?
	`, string(out.Reason), boolToInt(out.Success), out.BestStreak, string(params), out.Evaluated,
		setsTested, out.Artifact, time.Now().Unix(), id)
	if err != nil {
		return fmt.Errorf("failed to update training run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

const runColumns = `id, algorithm, mode, start_date, peers, reason, success, best_streak, best_params,
	evaluated, sets_tested, artifact, started_at, finished_at`

// Get returns a run by id.
func (r *RunRepository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(`SELECT `+runColumns+` FROM training_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

// List returns the newest runs first, optionally for one algorithm.
func (r *RunRepository) List(algorithm string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT ` + runColumns + ` FROM training_runs`
	args := []any{}
	if algorithm != "" {
		query += ` WHERE algorithm = ?`
		args = append(args, algorithm)
	}
	query += ` ORDER BY started_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query training runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating training runs: %w", err)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var (
		run                   Run
		mode, startDate       string
		peersJSON, paramsJSON string
		reason                string
		success               int
		setsTested            sql.NullInt64
		startedAt             int64
		finishedAt            sql.NullInt64
	)
	err := s.Scan(&run.ID, &run.Algorithm, &mode, &startDate, &peersJSON, &reason, &success,
		&run.BestStreak, &paramsJSON, &run.Evaluated, &setsTested, &run.Artifact, &startedAt, &finishedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan training run: %w", err)
	}

	run.Mode = domain.Mode(mode)
	run.Reason = domain.TerminalReason(reason)
	run.Success = success != 0
	run.StartedAt = time.Unix(startedAt, 0).UTC()
	if d, err := domain.ParseDate(startDate); err == nil {
		run.StartDate = d
	}
	if err := json.Unmarshal([]byte(peersJSON), &run.Peers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal peers for run %s: %w", run.ID, err)
	}
	var params map[string]any
	dec := json.NewDecoder(strings.NewReader(paramsJSON))
	dec.UseNumber()
	if err := dec.Decode(&params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params for run %s: %w", run.ID, err)
	}
	run.BestParams = domain.NormalizeParams(params)
	if setsTested.Valid {
		n := int(setsTested.Int64)
		run.SetsTested = &n
	}
	if finishedAt.Valid {
		t := time.Unix(finishedAt.Int64, 0).UTC()
		run.FinishedAt = &t
	}
	return &run, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
