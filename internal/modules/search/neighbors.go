package search

import (
	"math"
	"math/rand"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultMaxNeighbors caps the neighbors produced by one Generate call.
const DefaultMaxNeighbors = 1000

// autoFraction is the proportional step used for Auto parameters.
const autoFraction = 0.05

// NeighborGenerator perturbs the current best vector one parameter at a time.
type NeighborGenerator struct {
	steps       map[string]domain.StepConfig
	maxPerCycle int
	rng         *rand.Rand
	log         zerolog.Logger
	warned      map[string]bool
}

// NewNeighborGenerator creates a generator. Parameters missing from steps use
// Auto steps. A zero seed draws one from the clock.
func NewNeighborGenerator(steps map[string]domain.StepConfig, maxPerCycle int, seed int64, log zerolog.Logger) *NeighborGenerator {
	if maxPerCycle <= 0 {
		maxPerCycle = DefaultMaxNeighbors
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &NeighborGenerator{
		steps:       steps,
		maxPerCycle: maxPerCycle,
		rng:         rand.New(rand.NewSource(seed)),
		log:         log.With().Str("component", "neighbor_generator").Logger(),
		warned:      make(map[string]bool),
	}
}

// Generate returns unseen neighbors of best, marking each visited. Parameters
// are walked in a fresh random order per call; for each delta the positive
// direction comes first. An empty result means everything nearby was seen.
func (g *NeighborGenerator) Generate(best domain.ParameterVector, visited *VisitedSet) []domain.ParameterVector {
	keys := best.NumericKeys()
	g.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	var out []domain.ParameterVector
	for _, name := range keys {
		v := best[name]
		base, _ := domain.ToFloat(v)
		for _, delta := range g.deltas(name, v) {
			for _, sign := range [2]float64{1, -1} {
				candidate := best.Clone()
				candidate[name] = domain.CoerceLike(base+sign*delta, v)
				if !visited.Add(candidate) {
					continue
				}
				out = append(out, candidate)
				if len(out) >= g.maxPerCycle {
					return out
				}
			}
		}
	}
	return out
}

// deltas returns the positive step magnitudes for one parameter.
func (g *NeighborGenerator) deltas(name string, v any) []float64 {
	cfg, ok := g.steps[name]
	if !ok || cfg.Kind != domain.StepCustom {
		return AutoDeltas(v)
	}

	isInt := domain.IsInteger(v)
	out := make([]float64, 0, len(cfg.Steps))
	for _, s := range cfg.Steps {
		if s == 0 || math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		if isInt && s != math.Trunc(s) {
			if !g.warned[name] {
				g.warned[name] = true
				g.log.Warn().Str("param", name).Float64("step", s).Msg("Ignoring non-integer step for integer parameter")
			}
			continue
		}
		out = append(out, math.Abs(s))
	}
	return out
}

// AutoDeltas returns the proportional steps {0.5, 1, 2} x base for v.
// Integer steps are rounded, deduplicated and never zero.
func AutoDeltas(v any) []float64 {
	f, ok := domain.ToFloat(v)
	if !ok {
		return nil
	}
	abs := math.Abs(f)

	if domain.IsInteger(v) {
		base := math.Max(1, math.Round(abs*autoFraction))
		var out []float64
		seen := make(map[float64]bool, 3)
		for _, m := range [3]float64{0.5, 1, 2} {
			d := math.Round(m * base)
			if d == 0 || seen[d] {
				continue
			}
			seen[d] = true
			out = append(out, d)
		}
		return out
	}

	eps := 0.1
	if abs < 1 {
		eps = 0.01
	}
	base := math.Max(eps, abs*autoFraction)
	return []float64{0.5 * base, base, 2 * base}
}
