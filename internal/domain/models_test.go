package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "plain date", input: "2024-03-05", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "with time component", input: "2024-03-05T18:30:00", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "with space time", input: "2024-03-05 18:30:00", want: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)},
		{name: "day first", input: "05/03/2024", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got))
		})
	}
}

func TestTerminalReason_Success(t *testing.T) {
	assert.True(t, ReasonNoImprovement.Success())
	assert.True(t, ReasonStopped.Success())
	assert.True(t, ReasonAllSetsTested.Success())
	assert.True(t, ReasonTimeLimit.Success())
	assert.True(t, ReasonStreakLimitReached.Success())
	assert.False(t, ReasonCriticalError.Success())
	assert.False(t, ReasonGenerationError.Success())
	assert.False(t, ReasonNoParams.Success())
}

func TestNormalizeParams(t *testing.T) {
	var raw map[string]any
	dec := json.NewDecoder(strings.NewReader(`{"k": 3, "alpha": 0.25, "whole": 2.0, "name": "x", "on": true}`))
	dec.UseNumber()
	require.NoError(t, dec.Decode(&raw))

	p := NormalizeParams(raw)

	assert.Equal(t, int64(3), p["k"])
	assert.Equal(t, 0.25, p["alpha"])
	assert.Equal(t, 2.0, p["whole"])
	assert.Equal(t, "x", p["name"])
	assert.Equal(t, true, p["on"])
	assert.Equal(t, []string{"alpha", "k", "whole"}, p.NumericKeys())
}

func TestParameterVector_CloneIsIndependent(t *testing.T) {
	p := ParameterVector{"k": int64(1)}
	c := p.Clone()
	c["k"] = int64(2)
	assert.Equal(t, int64(1), p["k"])
}

func TestCoerceLike(t *testing.T) {
	assert.Equal(t, int64(3), CoerceLike(2.6, int64(1)))
	assert.Equal(t, 2.0, CoerceLike(int64(2), 1.5))
	assert.Equal(t, 0.333333, CoerceLike(1.0/3.0, 0.5))
	assert.Equal(t, "opaque", CoerceLike("opaque", int64(1)))
}

func TestRoundSignificant(t *testing.T) {
	assert.Equal(t, 1.23457, RoundSignificant(1.234567, 6))
	assert.Equal(t, 1234570.0, RoundSignificant(1234567, 6))
	assert.Equal(t, 0.0, RoundSignificant(0, 6))
}
