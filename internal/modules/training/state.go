// Package training persists resumable best-state snapshots and the history
// of finished optimization runs.
package training

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// State errors. A resume is refused for each of them and a fresh start offered.
var (
	ErrStateNotFound     = errors.New("training state not found")
	ErrStateCorrupt      = errors.New("training state corrupt")
	ErrStateNotResumable = errors.New("training state not resumable")
)

// Save reasons.
const (
	SaveImprovement = "improvement"
	SavePaused      = "paused"
	SaveStopped     = "stopped"
	SaveFinished    = "finished"
)

// StateFile is the on-disk snapshot format.
type StateFile struct {
	TargetAlgorithm       string         `json:"target_algorithm"`
	BestParams            map[string]any `json:"best_params"`
	BestStreak            int            `json:"best_streak"`
	CombinationAlgorithms []string       `json:"combination_algorithms"`
	StartDate             string         `json:"start_date"`
	OptimizationMode      string         `json:"optimization_mode"`
	SaveReason            string         `json:"save_reason"`
	SaveTimestamp         string         `json:"save_timestamp"`
}

// StateStore reads and writes training_state_<stem>.json under root/<stem>/.
type StateStore struct {
	root    string
	now     func() time.Time
	log     zerolog.Logger
	onSaved func(algorithmID, path string)
}

// NewStateStore creates a store rooted at the training directory.
func NewStateStore(root string, log zerolog.Logger) *StateStore {
	return &StateStore{
		root: root,
		now:  time.Now,
		log:  log.With().Str("component", "state_store").Logger(),
	}
}

// OnSaved registers a hook run after every successful write.
func (s *StateStore) OnSaved(fn func(algorithmID, path string)) {
	s.onSaved = fn
}

// Root returns the training directory.
func (s *StateStore) Root() string {
	return s.root
}

// Path returns the state file location for an algorithm.
func (s *StateStore) Path(algorithmID string) string {
	return filepath.Join(s.root, algorithmID, "training_state_"+algorithmID+".json")
}

// Save atomically writes state for algorithmID.
func (s *StateStore) Save(algorithmID string, state domain.BestState, reason string) (string, error) {
	peers := append([]string{}, state.PeerIDs...)
	sort.Strings(peers)

	file := StateFile{
		TargetAlgorithm:       algorithmID,
		BestParams:            map[string]any(state.Params.Clone()),
		BestStreak:            state.Streak,
		CombinationAlgorithms: peers,
		StartDate:             state.StartDate.Format(domain.StateDateLayout),
		OptimizationMode:      string(state.Mode),
		SaveReason:            reason,
		SaveTimestamp:         s.now().Format(time.RFC3339),
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode training state: %w", err)
	}

	path := s.Path(algorithmID)
	if err := writeAtomic(path, data); err != nil {
		return "", fmt.Errorf("failed to write training state: %w", err)
	}

	s.log.Debug().Str("algorithm", algorithmID).Int("streak", state.Streak).Str("reason", reason).Msg("Saved training state")
	if s.onSaved != nil {
		s.onSaved(algorithmID, path)
	}
	return path, nil
}

// Read returns the raw snapshot for algorithmID in any mode.
func (s *StateStore) Read(algorithmID string) (*StateFile, error) {
	return ReadFile(s.Path(algorithmID))
}

// Load returns the resumable best state for algorithmID.
func (s *StateStore) Load(algorithmID string) (*domain.BestState, error) {
	return LoadFile(s.Path(algorithmID))
}

// ReadFile decodes a snapshot. Numbers keep their integer or real kind.
func ReadFile(path string) (*StateFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrStateNotFound, path)
		}
		return nil, fmt.Errorf("failed to read training state: %w", err)
	}

	var raw struct {
		StateFile
		BestParams any `json:"best_params"`
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStateCorrupt, err)
	}

	file := raw.StateFile
	if params, ok := raw.BestParams.(map[string]any); ok {
		file.BestParams = map[string]any(domain.NormalizeParams(params))
	}
	return &file, nil
}

// LoadFile decodes a snapshot and converts it into a resumable state. Only
// Explore snapshots whose best_params is an object can be resumed.
func LoadFile(path string) (*domain.BestState, error) {
	file, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if domain.Mode(file.OptimizationMode) != domain.ModeExplore {
		return nil, fmt.Errorf("%w: saved in %q mode", ErrStateNotResumable, file.OptimizationMode)
	}
	if file.BestParams == nil {
		return nil, fmt.Errorf("%w: best_params is not an object", ErrStateNotResumable)
	}
	if file.BestStreak < 0 {
		return nil, fmt.Errorf("%w: negative best_streak %d", ErrStateCorrupt, file.BestStreak)
	}
	start, err := time.Parse(domain.StateDateLayout, file.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: start_date %q", ErrStateCorrupt, file.StartDate)
	}
	updated, _ := time.Parse(time.RFC3339, file.SaveTimestamp)

	return &domain.BestState{
		Params:    domain.ParameterVector(file.BestParams),
		Streak:    file.BestStreak,
		Mode:      domain.ModeExplore,
		StartDate: start,
		PeerIDs:   file.CombinationAlgorithms,
		UpdatedAt: updated,
	}, nil
}

// writeAtomic writes data to a temporary file next to path and renames it over path.
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
