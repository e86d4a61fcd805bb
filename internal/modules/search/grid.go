package search

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// DefaultCombinationSizeLimit bounds the number of grid vectors.
	DefaultCombinationSizeLimit = 50_000_000
	// DefaultYieldEvery is how many products are built between stop checks.
	DefaultYieldEvery = 10_000

	// MinValuesPerParam and MaxValuesPerParam bound the grid menu size.
	MinValuesPerParam = 2
	MaxValuesPerParam = 100

	// Rough in-memory cost of one vector: map header plus one bucket slot per entry.
	vectorOverheadBytes = 96
	entryBytes          = 48
)

// GridConfig controls grid construction.
type GridConfig struct {
	ValuesPerParam int
	Sampling       domain.Sampling
	Seed           int64 // 0 draws one from the clock
	SizeLimit      int
	YieldEvery     int
}

// Menu is the candidate values for one parameter. Values[0] is the baseline.
type Menu struct {
	Name   string
	Values []any
}

// GridGenerator materializes the Cartesian product of per-parameter menus.
type GridGenerator struct {
	cfg          GridConfig
	ctl          *control.Flags
	rng          *rand.Rand
	log          zerolog.Logger
	memAvailable func() (uint64, error)
}

// NewGridGenerator creates a generator. ctl may be nil.
func NewGridGenerator(cfg GridConfig, ctl *control.Flags, log zerolog.Logger) *GridGenerator {
	if cfg.SizeLimit <= 0 {
		cfg.SizeLimit = DefaultCombinationSizeLimit
	}
	if cfg.YieldEvery <= 0 {
		cfg.YieldEvery = DefaultYieldEvery
	}
	if cfg.Sampling == "" {
		cfg.Sampling = domain.SamplingSequential
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &GridGenerator{
		cfg:          cfg,
		ctl:          ctl,
		rng:          rand.New(rand.NewSource(seed)),
		log:          log.With().Str("component", "grid_generator").Logger(),
		memAvailable: availableMemory,
	}
}

func availableMemory() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

// Menus builds one menu per numeric parameter of base, sorted by name.
func (g *GridGenerator) Menus(base domain.ParameterVector) ([]Menu, error) {
	n := g.cfg.ValuesPerParam
	if n < MinValuesPerParam || n > MaxValuesPerParam {
		return nil, fmt.Errorf("%w: values per parameter must be in %d..%d, got %d",
			domain.ErrConfig, MinValuesPerParam, MaxValuesPerParam, n)
	}

	keys := base.NumericKeys()
	menus := make([]Menu, 0, len(keys))
	for _, name := range keys {
		var values []any
		switch g.cfg.Sampling {
		case domain.SamplingRandom:
			values = g.randomMenu(base[name], n)
		case domain.SamplingSequential:
			values = sequentialMenu(base[name], n)
		default:
			return nil, fmt.Errorf("%w: unknown sampling %q", domain.ErrConfig, g.cfg.Sampling)
		}
		menus = append(menus, Menu{Name: name, Values: values})
	}
	return menus, nil
}

// Size returns the product of menu lengths, or false if it exceeds limit.
func Size(menus []Menu, limit int) (int, bool) {
	if len(menus) == 0 {
		return 0, true
	}
	size := 1
	for _, m := range menus {
		if len(m.Values) == 0 {
			return 0, true
		}
		if size > limit/len(m.Values) {
			return 0, false
		}
		size *= len(m.Values)
	}
	return size, size <= limit
}

// Generate returns every combination of the menus built from base. The first
// parameter varies slowest. Non-numeric entries of base are carried into every
// vector. A stop or cancellation observed while building returns an empty list.
func (g *GridGenerator) Generate(ctx context.Context, base domain.ParameterVector) ([]domain.ParameterVector, error) {
	menus, err := g.Menus(base)
	if err != nil {
		return nil, err
	}

	size, ok := Size(menus, g.cfg.SizeLimit)
	if !ok {
		return nil, fmt.Errorf("%w: combination count exceeds limit %d", domain.ErrGeneration, g.cfg.SizeLimit)
	}
	if size == 0 {
		return nil, nil
	}
	if err := g.checkMemory(size, len(base)); err != nil {
		return nil, err
	}

	g.log.Info().Int("params", len(menus)).Int("combinations", size).Str("sampling", string(g.cfg.Sampling)).Msg("Generating parameter grid")

	out := make([]domain.ParameterVector, 0, size)
	idx := make([]int, len(menus))
	for i := 0; i < size; i++ {
		if i > 0 && i%g.cfg.YieldEvery == 0 {
			runtime.Gosched()
			if g.ctl.Stopped() || ctx.Err() != nil {
				g.log.Info().Int("built", i).Msg("Grid generation stopped")
				return nil, nil
			}
		}

		v := base.Clone()
		for p, m := range menus {
			v[m.Name] = m.Values[idx[p]]
		}
		out = append(out, v)

		// odometer increment, last parameter fastest
		for p := len(idx) - 1; p >= 0; p-- {
			idx[p]++
			if idx[p] < len(menus[p].Values) {
				break
			}
			idx[p] = 0
		}
	}
	return out, nil
}

func (g *GridGenerator) checkMemory(size, entries int) error {
	if g.memAvailable == nil {
		return nil
	}
	avail, err := g.memAvailable()
	if err != nil {
		g.log.Warn().Err(err).Msg("Could not read available memory; skipping grid memory check")
		return nil
	}
	need := uint64(size) * uint64(vectorOverheadBytes+entryBytes*entries)
	if need > avail {
		return fmt.Errorf("%w: grid needs ~%d MB, only %d MB available",
			domain.ErrGeneration, need>>20, avail>>20)
	}
	return nil
}

// SequentialStep is the grid offset for a baseline value.
func SequentialStep(v any) float64 {
	f, _ := domain.ToFloat(v)
	abs := math.Abs(f)
	if domain.IsInteger(v) {
		return math.Max(1, math.Round(abs*0.1))
	}
	return math.Max(0.1, abs*0.1)
}

// sequentialMenu emits v, v-s, v+s, v-2s, v+2s, ... until n values.
func sequentialMenu(v any, n int) []any {
	f, _ := domain.ToFloat(v)
	step := SequentialStep(v)

	values := []any{v}
	seen := map[string]bool{FormatValue(v): true}
	for k := 1; len(values) < n; k++ {
		for _, sign := range [2]float64{-1, 1} {
			if len(values) >= n {
				break
			}
			c := domain.CoerceLike(f+sign*float64(k)*step, v)
			if key := FormatValue(c); !seen[key] {
				seen[key] = true
				values = append(values, c)
			}
		}
	}
	return values
}

// randomMenu samples up to n distinct values uniformly around v within a
// budget of 10n attempts.
func (g *GridGenerator) randomMenu(v any, n int) []any {
	f, _ := domain.ToFloat(v)
	spread := math.Max(SequentialStep(v), math.Abs(f)*0.25)

	values := []any{v}
	seen := map[string]bool{FormatValue(v): true}
	for attempt := 0; attempt < 10*n && len(values) < n; attempt++ {
		var c any
		if domain.IsInteger(v) {
			lo := int64(math.Round(f - spread))
			hi := int64(math.Round(f + spread))
			c = lo + g.rng.Int63n(hi-lo+1)
		} else {
			c = domain.RoundSignificant(f-spread+g.rng.Float64()*2*spread, 6)
		}
		if key := FormatValue(c); !seen[key] {
			seen[key] = true
			values = append(values, c)
		}
	}
	return values
}
