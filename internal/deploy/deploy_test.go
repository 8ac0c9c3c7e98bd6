package deploy

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/lattice/internal/cellimage"
	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/recording"
	"github.com/samcharles93/lattice/internal/store"
)

func quietContext() context.Context {
	return logger.WithContext(context.Background(), logger.Discard())
}

func gridDeployment(t *testing.T, extra string) config.Deployment {
	t.Helper()
	d, err := config.Parse([]byte("n_timesteps: 4\ngrid: {width: 3, height: 3, u_x: 0.1}\n" + extra))
	require.NoError(t, err)
	return d
}

func TestBuildGrid(t *testing.T) {
	t.Parallel()

	plan, err := Build(gridDeployment(t, ""))
	require.NoError(t, err)
	require.Len(t, plan.Cells, 9)
	assert.Equal(t, 4, plan.NTimesteps)

	for i, c := range plan.Cells {
		require.NoError(t, c.ValidateConnectivity(plan.Graph), c.Label())
		p, err := plan.Placements.Of(c)
		require.NoError(t, err)
		assert.Equal(t, fabric.Placement{X: 0, Y: 0, P: 1 + i}, p)

		key, ok := plan.Routing.FirstKey(c, lattice.PartitionID)
		require.True(t, ok)
		assert.Equal(t, uint32(config.DefaultKeyBase+8*i), key)
	}

	centre := plan.Cells[4]
	assert.Equal(t, "cell_1_1", centre.Label())
	assert.Equal(t, "cell_1_2", centre.Neighbour(lattice.North).Label())
	assert.Equal(t, "cell_0_0", centre.Neighbour(lattice.SouthWest).Label())
}

func TestRunGrid(t *testing.T) {
	t.Parallel()

	ctx := quietContext()
	dir := t.TempDir()
	ledger, err := store.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	d := gridDeployment(t, "")
	res, err := Run(ctx, d, Options{OutputDir: filepath.Join(dir, "out"), Ledger: ledger, RunID: "run-1"})
	require.NoError(t, err)
	require.Len(t, res.Cells, 9)
	assert.Empty(t, res.Failed())

	plan, err := Build(d)
	require.NoError(t, err)
	keyOf := func(label string) int32 {
		for _, c := range plan.Cells {
			if c.Label() == label {
				k, _ := plan.Routing.FirstKey(c, lattice.PartitionID)
				return int32(k)
			}
		}
		t.Fatalf("no cell %s", label)
		return 0
	}

	for i, cr := range res.Cells {
		assert.Equal(t, lattice.Resources().Total(4), cr.Resources.Total(4))
		f, err := cellimage.Open(cr.Path)
		require.NoError(t, err)
		c, err := f.Contents()
		require.NoError(t, err)
		require.NoError(t, f.Close())

		assert.Equal(t, int32(cr.GridX), c.X)
		assert.Equal(t, int32(cr.GridY), c.Y)
		assert.Equal(t, int32(i), c.VertexIndex)
		assert.Equal(t, float32(0.1), c.UX)
		assert.Equal(t, uint32(4), c.NTimesteps)
		assert.Equal(t, uint32(0xFFFFFFF8), c.Mask)
		assert.LessOrEqual(t, int(c.Offset), lattice.MaxOffset)

		north := config.CellLabel(cr.GridX, (cr.GridY+1)%3)
		assert.Equal(t, keyOf(north), c.NeighbourKeys["N"], cr.Label)
	}

	manifest, err := ReadManifest(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Equal(t, "run-1", manifest.RunID)
	assert.Len(t, manifest.Cells, 9)

	images, err := ledger.Images(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, images, 9)
	assert.Equal(t, res.Cells[3].Label, images[3].Label)
	assert.Equal(t, 108, images[3].FixedBytes)
}

func TestRunIsReproducible(t *testing.T) {
	t.Parallel()

	d := gridDeployment(t, "seed: 42\n")
	read := func() [][]byte {
		dir := t.TempDir()
		res, err := Run(quietContext(), d, Options{OutputDir: dir})
		require.NoError(t, err)
		var out [][]byte
		for _, c := range res.Cells {
			data, err := os.ReadFile(c.Path)
			require.NoError(t, err)
			out = append(out, data)
		}
		return out
	}
	assert.Equal(t, read(), read())
}

func TestRunReportsMisconfiguredCells(t *testing.T) {
	t.Parallel()

	d := gridDeployment(t, "cells:\n  - {label: lonely, x: 9, y: 9}\n")
	dir := t.TempDir()
	res, err := Run(quietContext(), d, Options{OutputDir: dir})
	require.Error(t, err)
	require.ErrorIs(t, err, lattice.ErrConfiguration)

	failed := res.Failed()
	require.Len(t, failed, 1)
	assert.Equal(t, "lonely", failed[0].Label)
	assert.Empty(t, failed[0].Path)
	_, statErr := os.Stat(filepath.Join(dir, "lonely"+ImageExt))
	assert.True(t, errors.Is(statErr, os.ErrNotExist))

	manifest, err := ReadManifest(dir)
	require.NoError(t, err)
	assert.Contains(t, manifest.Cells[0].Error, "outgoing partition")
	assert.Len(t, manifest.Cells, 10)
}

func TestRunRejectsCellsFedByOneNeighbour(t *testing.T) {
	t.Parallel()

	everyDirection := func(label string) map[string]string {
		n := make(map[string]string)
		for _, d := range lattice.Directions() {
			n[d.String()] = label
		}
		return n
	}
	d := gridDeployment(t, "")
	d.Cells = append(d.Cells,
		config.CellSpec{Label: "a", X: 7, Y: 7, Neighbours: everyDirection("b")},
		config.CellSpec{Label: "b", X: 8, Y: 7, Neighbours: everyDirection("a")},
	)
	require.ErrorIs(t, d.Validate(), config.ErrInvalid)

	res, err := Run(quietContext(), d, Options{OutputDir: t.TempDir()})
	require.ErrorIs(t, err, lattice.ErrConfiguration)
	failed := res.Failed()
	require.Len(t, failed, 2)
	for _, c := range failed {
		assert.Contains(t, c.Error, "distinct", c.Label)
	}
}

func TestRunNeedsOutputDir(t *testing.T) {
	t.Parallel()

	_, err := Run(quietContext(), gridDeployment(t, ""), Options{})
	require.Error(t, err)
}

type mapSource map[fabric.Placement][]byte

func (m mapSource) DataByPlacement(_ context.Context, p fabric.Placement, _ int) ([]byte, bool, error) {
	raw, ok := m[p]
	if !ok {
		return nil, true, nil
	}
	return raw, false, nil
}

func TestRetrieve(t *testing.T) {
	t.Parallel()

	plan, err := Build(gridDeployment(t, ""))
	require.NoError(t, err)
	targets, err := plan.Targets()
	require.NoError(t, err)

	src := mapSource{}
	for i, tg := range targets {
		if tg.Label == "cell_2_2" {
			continue
		}
		src[tg.Placement] = recording.EncodeFloat32s([]float32{float32(i), float32(i) / 2})
	}

	got, err := Retrieve(quietContext(), targets, src, 3)
	require.ErrorIs(t, err, lattice.ErrDataMissing)
	require.Len(t, got, 9)
	for i, s := range got {
		assert.Equal(t, targets[i].Label, s.Label)
		if s.Label == "cell_2_2" {
			assert.True(t, s.Missing)
			assert.Empty(t, s.Values)
			continue
		}
		assert.False(t, s.Missing)
		assert.Equal(t, []float32{float32(i), float32(i) / 2}, s.Values)
	}
}

func TestRetrieveCancelled(t *testing.T) {
	t.Parallel()

	plan, err := Build(gridDeployment(t, ""))
	require.NoError(t, err)
	targets, err := plan.Targets()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(quietContext())
	cancel()
	_, err = Retrieve(ctx, targets, mapSource{}, 1)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTargetsFromImages(t *testing.T) {
	t.Parallel()

	targets := TargetsFromImages([]store.Image{{Label: "a", GridX: 2, GridY: 1, Placement: fabric.Placement{P: 4}}})
	require.Len(t, targets, 1)
	assert.Equal(t, "a", targets[0].Label)
	assert.Equal(t, 4, targets[0].Placement.P)
	require.NotNil(t, targets[0].Reader)
}

func TestWriteGridCSV(t *testing.T) {
	t.Parallel()

	samples := []Samples{
		{Label: "a", GridX: 0, GridY: 0, Values: []float32{1, 2}},
		{Label: "b", GridX: 1, GridY: 0, Values: []float32{3, 0.5}},
		{Label: "c", GridX: 0, GridY: 1, Values: []float32{5}},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteGridCSV(&buf, samples, 1))
	assert.Equal(t, "2,0.5\n,\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteGridCSV(&buf, samples, 0))
	assert.Equal(t, []string{"1,3", "5,"}, strings.Fields(buf.String()))

	require.Error(t, WriteGridCSV(&buf, samples, -1))
}
