package algorithms

import (
	"errors"
	"testing"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	testingpkg "github.com/junlangzi/Lottery-Predictor-sub001/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeParams(t *testing.T) {
	declared := domain.ParameterVector{"k": int64(1), "alpha": 0.5, "label": "x", "flag": true}
	vector := domain.ParameterVector{"k": int64(4), "alpha": 0.75, "label": int64(9), "extra": int64(3)}

	merged := MergeParams(declared, vector)

	assert.Equal(t, int64(4), merged["k"])
	assert.Equal(t, 0.75, merged["alpha"])
	assert.Equal(t, "x", merged["label"], "non-numeric declared entries are preserved")
	assert.Equal(t, true, merged["flag"])
	assert.NotContains(t, merged, "extra")
	assert.Equal(t, int64(1), declared["k"], "declared parameters are not mutated")
}

func TestMaterializer_Fixed(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	require.NoError(t, reg.Register(Descriptor{ID: "calib", Kind: "fixed", Parameters: domain.ParameterVector{"07": 1.0, "12": -0.5, "note": "x"}}))

	predict, err := NewMaterializer(reg).Materialize("calib", domain.ParameterVector{"07": 3.0})
	require.NoError(t, err)

	scores, err := predict(testingpkg.Day(1), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.Scores{"07": 3.0, "12": -0.5}, scores)
}

func TestMaterializer_UnknownAlgorithm(t *testing.T) {
	_, err := NewMaterializer(NewRegistry(zerolog.Nop())).Materialize("missing", nil)
	assert.ErrorIs(t, err, domain.ErrConfig)
}

func TestMaterializer_KindErrorIsPredictionError(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	require.NoError(t, reg.Register(Descriptor{ID: "f", Kind: "frequency", Parameters: domain.ParameterVector{"window": int64(10)}}))

	_, err := NewMaterializer(reg).Materialize("f", domain.ParameterVector{"window": int64(0)})
	assert.ErrorIs(t, err, domain.ErrPrediction)
}

func TestMaterializer_RecoversPanics(t *testing.T) {
	reg := NewRegistry(zerolog.Nop())
	reg.RegisterKind("explosive", func(domain.ParameterVector) (domain.PredictFunc, error) {
		return func(time.Time, []domain.DailyResult) (domain.Scores, error) {
			panic(errors.New("kaboom"))
		}, nil
	})
	require.NoError(t, reg.Register(Descriptor{ID: "boom", Kind: "explosive"}))

	predict, err := NewMaterializer(reg).Materialize("boom", nil)
	require.NoError(t, err)

	scores, err := predict(testingpkg.Day(0), nil)
	assert.Nil(t, scores)
	assert.ErrorIs(t, err, domain.ErrPrediction)
	assert.Contains(t, err.Error(), "kaboom")
}
