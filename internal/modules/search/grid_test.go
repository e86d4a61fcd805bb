package search

import (
	"context"
	"errors"
	"testing"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/control"
	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGrid(cfg GridConfig, ctl *control.Flags) *GridGenerator {
	g := NewGridGenerator(cfg, ctl, zerolog.Nop())
	g.memAvailable = func() (uint64, error) { return 1 << 40, nil }
	return g
}

func TestGridGenerate_SequentialProduct(t *testing.T) {
	g := newGrid(GridConfig{ValuesPerParam: 3, Sampling: domain.SamplingSequential}, nil)
	base := domain.ParameterVector{"a": int64(1), "b": int64(1), "tag": "x"}

	menus, err := g.Menus(base)
	require.NoError(t, err)
	require.Len(t, menus, 2)
	assert.Equal(t, []any{int64(1), int64(0), int64(2)}, menus[0].Values)

	out, err := g.Generate(context.Background(), base)
	require.NoError(t, err)
	require.Len(t, out, 9)

	assert.Equal(t, domain.ParameterVector{"a": int64(1), "b": int64(1), "tag": "x"}, out[0])
	assert.Equal(t, domain.ParameterVector{"a": int64(1), "b": int64(0), "tag": "x"}, out[1])
	assert.Equal(t, domain.ParameterVector{"a": int64(0), "b": int64(1), "tag": "x"}, out[3])
	assert.Equal(t, domain.ParameterVector{"a": int64(2), "b": int64(2), "tag": "x"}, out[8])

	visited := NewVisitedSet()
	for _, v := range out {
		assert.True(t, visited.Add(v), "grid vectors are distinct")
	}
}

func TestSequentialMenu_Reals(t *testing.T) {
	assert.Equal(t, []any{0.5, 0.4, 0.6, 0.3}, sequentialMenu(0.5, 4))
	assert.Equal(t, []any{20.0, 18.0, 22.0}, sequentialMenu(20.0, 3))
	assert.Equal(t, []any{int64(50), int64(45), int64(55)}, sequentialMenu(int64(50), 3))
}

func TestGridGenerate_RandomMenusIncludeBaseline(t *testing.T) {
	g := newGrid(GridConfig{ValuesPerParam: 5, Sampling: domain.SamplingRandom, Seed: 9}, nil)
	menus, err := g.Menus(domain.ParameterVector{"n": int64(20), "x": 2.0})
	require.NoError(t, err)

	for _, m := range menus {
		assert.LessOrEqual(t, len(m.Values), 5)
		assert.GreaterOrEqual(t, len(m.Values), 2)
	}
	assert.Equal(t, int64(20), menus[0].Values[0])
	for _, v := range menus[0].Values {
		n := v.(int64)
		assert.GreaterOrEqual(t, n, int64(15))
		assert.LessOrEqual(t, n, int64(25))
	}
	for _, v := range menus[1].Values {
		x := v.(float64)
		assert.GreaterOrEqual(t, x, 1.5)
		assert.LessOrEqual(t, x, 2.5)
	}
}

func TestGridGenerate_SizeLimit(t *testing.T) {
	g := newGrid(GridConfig{ValuesPerParam: 10, SizeLimit: 99}, nil)
	_, err := g.Generate(context.Background(), domain.ParameterVector{"a": int64(5), "b": int64(5)})
	assert.True(t, errors.Is(err, domain.ErrGeneration))
}

func TestGridGenerate_MemoryGuard(t *testing.T) {
	g := newGrid(GridConfig{ValuesPerParam: 10}, nil)
	g.memAvailable = func() (uint64, error) { return 1024, nil }

	_, err := g.Generate(context.Background(), domain.ParameterVector{"a": int64(5), "b": int64(5)})
	assert.ErrorIs(t, err, domain.ErrGeneration)
}

func TestGridGenerate_InvalidN(t *testing.T) {
	g := newGrid(GridConfig{ValuesPerParam: 1}, nil)
	_, err := g.Generate(context.Background(), domain.ParameterVector{"a": int64(5)})
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestGridGenerate_StopYieldsEmpty(t *testing.T) {
	ctl := control.New()
	ctl.Stop()
	g := newGrid(GridConfig{ValuesPerParam: 10, YieldEvery: 5}, ctl)

	out, err := g.Generate(context.Background(), domain.ParameterVector{"a": int64(5), "b": int64(5)})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestSize(t *testing.T) {
	menus := []Menu{{Values: make([]any, 100)}, {Values: make([]any, 100)}}
	n, ok := Size(menus, 10_000)
	assert.True(t, ok)
	assert.Equal(t, 10_000, n)

	_, ok = Size(menus, 9_999)
	assert.False(t, ok)
}
