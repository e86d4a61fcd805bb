package work

import (
	"errors"
	"fmt"
	"strings"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/modules/training"
)

// ErrSchemaMismatch marks a saved state whose parameters no longer match the
// algorithm's declaration.
var ErrSchemaMismatch = errors.New("saved parameters do not match the algorithm")

// MismatchError carries the differing parameter names.
type MismatchError struct {
	Algorithm string
	Mismatch  training.Mismatch
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s (missing: [%s], extra: [%s])", ErrSchemaMismatch, e.Algorithm,
		strings.Join(e.Mismatch.Missing, ", "), strings.Join(e.Mismatch.Extra, ", "))
}

func (e *MismatchError) Unwrap() error {
	return ErrSchemaMismatch
}

// PrepareResume fills req from the saved Explore state of its target. A schema
// mismatch is an error unless acceptMismatch is set, in which case the saved
// vector is restricted to the declared parameters. An unset start date or peer
// list is taken from the saved state.
func (r *Runner) PrepareResume(req *domain.JobRequest, acceptMismatch bool) error {
	info, ok := r.deps.Registry.Get(req.TargetAlgorithmID)
	if !ok {
		return fmt.Errorf("%w: target algorithm %q not found", domain.ErrConfig, req.TargetAlgorithmID)
	}
	state, err := r.deps.States.Load(req.TargetAlgorithmID)
	if err != nil {
		return err
	}

	declared := domain.NormalizeParams(info.Parameters)
	if m := training.Validate(state.Params, declared); !m.OK() {
		if !acceptMismatch {
			return &MismatchError{Algorithm: req.TargetAlgorithmID, Mismatch: m}
		}
		r.log.Info().
			Str("algorithm", req.TargetAlgorithmID).
			Strs("missing", m.Missing).
			Strs("extra", m.Extra).
			Msg("Resuming with restricted parameters")
	}

	req.Mode = domain.ModeExplore
	req.Explore.InitialVector = training.Restrict(state.Params, declared)
	req.Explore.InitialBestStreak = state.Streak
	if req.StartDate.IsZero() {
		req.StartDate = state.StartDate
	}
	if req.PeerAlgorithmIDs == nil {
		req.PeerAlgorithmIDs = append([]string(nil), state.PeerIDs...)
	}
	return nil
}
