package training

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/junlangzi/Lottery-Predictor-sub001/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() domain.BestState {
	return domain.BestState{
		Params:    domain.ParameterVector{"k": int64(2), "alpha": 0.25, "label": "hot"},
		Streak:    9,
		Mode:      domain.ModeExplore,
		StartDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		PeerIDs:   []string{"zeta", "alpha"},
	}
}

func TestStateStore_SaveLoadRoundTrip(t *testing.T) {
	store := NewStateStore(t.TempDir(), zerolog.Nop())
	var saved []string
	store.OnSaved(func(id, path string) { saved = append(saved, path) })

	path, err := store.Save("hot", sampleState(), SaveImprovement)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "hot", "training_state_hot.json"), path)
	assert.Equal(t, []string{path}, saved)

	loaded, err := store.Load("hot")
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Streak)
	assert.Equal(t, domain.ParameterVector{"k": int64(2), "alpha": 0.25, "label": "hot"}, loaded.Params)
	assert.True(t, loaded.StartDate.Equal(sampleState().StartDate))
	assert.Equal(t, []string{"alpha", "zeta"}, loaded.PeerIDs)
	assert.Equal(t, domain.ModeExplore, loaded.Mode)
}

func TestStateStore_FileFormat(t *testing.T) {
	store := NewStateStore(t.TempDir(), zerolog.Nop())
	store.now = func() time.Time { return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC) }

	path, err := store.Save("hot", sampleState(), SavePaused)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "hot", raw["target_algorithm"])
	assert.Equal(t, "05/03/2024", raw["start_date"])
	assert.Equal(t, "Explore", raw["optimization_mode"])
	assert.Equal(t, "paused", raw["save_reason"])
	assert.Equal(t, "2024-06-01T12:00:00Z", raw["save_timestamp"])
	assert.Equal(t, 9.0, raw["best_streak"])

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files are left behind")
}

func TestStateStore_LoadErrors(t *testing.T) {
	root := t.TempDir()
	store := NewStateStore(root, zerolog.Nop())

	write := func(id, body string) {
		t.Helper()
		require.NoError(t, os.MkdirAll(filepath.Join(root, id), 0755))
		require.NoError(t, os.WriteFile(store.Path(id), []byte(body), 0644))
	}

	write("grid", `{"optimization_mode":"GenerateSets","best_params":{"k":1},"start_date":"01/01/2024"}`)
	write("list", `{"optimization_mode":"Explore","best_params":[1,2],"start_date":"01/01/2024"}`)
	write("junk", `{not json`)
	write("baddate", `{"optimization_mode":"Explore","best_params":{"k":1},"start_date":"2024-01-01"}`)

	tests := []struct {
		id   string
		want error
	}{
		{"missing", ErrStateNotFound},
		{"grid", ErrStateNotResumable},
		{"list", ErrStateNotResumable},
		{"junk", ErrStateCorrupt},
		{"baddate", ErrStateCorrupt},
	}
	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			_, err := store.Load(tt.id)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	raw, err := store.Read("grid")
	require.NoError(t, err)
	assert.Equal(t, int64(1), raw.BestParams["k"])
}

func TestValidateAndRestrict(t *testing.T) {
	declared := domain.ParameterVector{"k": int64(1), "alpha": 0.5, "label": "x"}
	saved := domain.ParameterVector{"k": 2.6, "old": int64(4)}

	m := Validate(saved, declared)
	assert.False(t, m.OK())
	assert.Equal(t, []string{"alpha"}, m.Missing)
	assert.Equal(t, []string{"old"}, m.Extra)

	got := Restrict(saved, declared)
	assert.Equal(t, domain.ParameterVector{"k": int64(3), "alpha": 0.5, "label": "x"}, got)

	assert.True(t, Validate(declared, declared).OK())
}

func TestStateStore_Vector(t *testing.T) {
	store := NewStateStore(t.TempDir(), zerolog.Nop())
	info := domain.AlgorithmInfo{ID: "hot", Parameters: domain.ParameterVector{"k": 1, "alpha": 0.5}}

	v, source, err := store.Vector(info, "")
	require.NoError(t, err)
	assert.Equal(t, SourceDefaults, source)
	assert.Equal(t, domain.ParameterVector{"k": int64(1), "alpha": 0.5}, v)

	_, _, err = store.Vector(info, SourceState)
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = store.Save("hot", sampleState(), SaveImprovement)
	require.NoError(t, err)

	v, source, err = store.Vector(info, "")
	require.NoError(t, err)
	assert.Equal(t, SourceState, source)
	assert.Equal(t, domain.ParameterVector{"k": int64(2), "alpha": 0.25}, v)

	v, source, err = store.Vector(info, SourceDefaults)
	require.NoError(t, err)
	assert.Equal(t, SourceDefaults, source)
	assert.Equal(t, int64(1), v["k"])
}
