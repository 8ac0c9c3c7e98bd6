package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/lattice/internal/lattice"
)

func TestParseDefaults(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte("grid: {width: 3, height: 3}\n"))
	require.NoError(t, err)
	assert.Equal(t, int64(DefaultSeed), d.Seed)
	assert.Equal(t, uint32(1000), d.MachineTimeStep)
	assert.Equal(t, uint32(5), d.TimeScaleFactor)
	assert.Equal(t, 10, d.CoresPerChip)
	assert.Equal(t, 1500, d.MaxOffset)
	assert.Equal(t, 12000, d.Timesteps(), "12 s at 1 ms per step")
}

func TestTimestepsExplicit(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte("n_timesteps: 3\nmachine_time_step: 500\nruntime_ms: 100\n"))
	require.NoError(t, err)
	assert.Equal(t, 3, d.Timesteps())

	d.NTimesteps = nil
	assert.Equal(t, 200, d.Timesteps())
}

func TestParseRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "sede: 4\n"},
		{"zero time step", "machine_time_step: 0\n"},
		{"negative timesteps", "n_timesteps: -1\n"},
		{"tiny grid", "grid: {width: 2, height: 5}\n"},
		{"bad direction", "cells:\n  - {label: a, neighbours: {UP: a}}\n"},
		{"dangling neighbour", "cells:\n  - {label: a, neighbours: {N: b}}\n"},
		{"duplicate label", "cells:\n  - {x: 1, y: 1}\n  - {label: cell_1_1}\n"},
		{"self neighbour", "cells:\n  - {label: a, neighbours: {N: a}}\n"},
		{"repeated neighbour", "cells:\n  - {label: a, neighbours: {N: b, S: b}}\n  - {label: b}\n"},
		{"run too long", "n_timesteps: 1073741819\n"},
		{"runtime too long", "runtime_ms: 5000000000\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestParseRejectsRepeatedNeighbour(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("cells:\n  - {label: a, neighbours: {W: b, E: b, N: c}}\n  - {label: b}\n  - {label: c}\n"))
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "cell a: neighbour b appears as both E and W")
}

func TestParseRunLengthBound(t *testing.T) {
	t.Parallel()

	d, err := Parse([]byte("n_timesteps: 1073741818\n"))
	require.NoError(t, err)
	assert.Equal(t, lattice.MaxTimesteps, d.Timesteps())

	_, err = Parse([]byte("n_timesteps: 1073741819\n"))
	require.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestGridCellsWrap(t *testing.T) {
	t.Parallel()

	cells := Grid{Width: 4, Height: 3, UX: 0.1}.Cells()
	require.Len(t, cells, 12)

	first := cells[0]
	assert.Equal(t, "cell_0_0", first.Label)
	assert.Equal(t, 0.1, first.UX)
	assert.Equal(t, map[string]string{
		"N":  "cell_0_1",
		"W":  "cell_3_0",
		"S":  "cell_0_2",
		"E":  "cell_1_0",
		"NW": "cell_3_1",
		"SW": "cell_3_2",
		"SE": "cell_1_2",
		"NE": "cell_1_1",
	}, first.Neighbours)
	assert.Equal(t, "cell_1_0", cells[1].Label, "row-major order")
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "deploy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
seed: 7
n_timesteps: 10
cells:
  - label: a
    x: 1
    y: 2
    u_x: 0.5
    neighbours: {N: b}
  - label: b
`), 0o644))

	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, int64(7), d.Seed)
	cells, err := d.ExpandCells()
	require.NoError(t, err)
	require.Len(t, cells, 2)
	assert.Equal(t, "b", cells[0].Neighbours["N"])

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}

func TestLoadUser(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	u, err := LoadUser(filepath.Join(dir, "none.yaml"))
	require.NoError(t, err)
	assert.Equal(t, User{}, u)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("ledger_path: /tmp/l.db\nworkers: 3\nlog_format: json\n"), 0o644))
	u, err = LoadUser(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/l.db", u.LedgerPath)
	assert.Equal(t, "json", u.LogFormat)
	require.NotNil(t, u.Workers)
	assert.Equal(t, 3, *u.Workers)

	require.NoError(t, os.WriteFile(path, []byte("workers: [\n"), 0o644))
	_, err = LoadUser(path)
	require.Error(t, err)
}
