package api

import (
	"bytes"
	"context"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samcharles93/lattice/internal/cellimage"
	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/recording"
	"github.com/samcharles93/lattice/internal/store"
)

func newTestEcho(t *testing.T, ledger *store.Store) *echo.Echo {
	t.Helper()
	e := echo.New()
	NewServer(ledger, config.Default(), nil).Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, path, contentType string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set(echo.HeaderContentType, contentType)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	return do(t, e, method, path, echo.MIMEApplicationJSON, []byte(body))
}

func TestHealth(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestEcho(t, nil), http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestLayout(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	rec := doJSON(t, e, http.MethodGet, "/v1/layout?n_timesteps=3", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out LayoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 108, out.FixedBytes)
	assert.Equal(t, 4, out.BytesPerTimestep)
	assert.Equal(t, 120, out.TotalBytes)
	require.Len(t, out.Regions, 7)
	assert.Equal(t, "NeighbourKeys", out.Regions[3].Name)
	assert.Equal(t, 32, out.Regions[6].Size)

	rec = doJSON(t, e, http.MethodGet, "/v1/layout?n_timesteps=1073741819", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, e, http.MethodGet, "/v1/layout?n_timesteps=-2", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"param":"n_timesteps"`)
}

const cellRequest = `{
	"label": "cell_5_5", "x": 5, "y": 5, "u_x": 0.1, "u_y": -0.2,
	"placement": {"x": 0, "y": 0, "p": 23},
	"n_timesteps": 3, "offset": 1400, "vertex_index": 7,
	"key": 8192,
	"neighbour_keys": {"N": 4096, "W": 4097, "S": 4098, "E": 4099, "NW": 4100, "SW": 4101, "SE": 4102},
	"mask": 4294967040
}`

func TestCellImageBinary(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestEcho(t, nil), http.MethodPost, "/v1/cells/image", cellRequest)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, mimeOctetStream, rec.Header().Get(echo.HeaderContentType))

	f, err := cellimage.Parse(rec.Body.Bytes())
	require.NoError(t, err)
	c, err := f.Contents()
	require.NoError(t, err)
	assert.Equal(t, uint32(1000), c.MachineTimeStep)
	assert.Equal(t, uint32(5), c.TimeScaleFactor)
	assert.Equal(t, uint32(0x2000), c.Key)
	assert.Equal(t, int32(7), c.VertexIndex)
	assert.Equal(t, int32(1400), c.Offset)
	assert.Equal(t, int32(0x1001), c.NeighbourKeys["W"])
	assert.Equal(t, lattice.MissingKey, c.NeighbourKeys["NE"])
	assert.Equal(t, uint32(0xFFFFFF00), c.Mask)
}

func TestCellImageJSON(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestEcho(t, nil), http.MethodPost, "/v1/cells/image?format=json", cellRequest)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out CellImageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, int32(5), out.Contents.X)
	assert.Equal(t, float32(-0.2), out.Contents.UY)
	assert.Positive(t, out.SizeBytes)
}

func TestCellImageValidation(t *testing.T) {
	t.Parallel()

	e := newTestEcho(t, nil)
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", `{"label":`, "decode request"},
		{"unknown field", `{"lable":"x"}`, "decode request"},
		{"negative timesteps", `{"n_timesteps": -1}`, "n_timesteps"},
		{"oversized run", `{"n_timesteps": 1000000000}`, `"param":"n_timesteps"`},
		{"run just over the cap", `{"n_timesteps": 16777217}`, "from 0 to 16777216"},
		{"bad direction", `{"neighbour_keys": {"UP": 1}}`, "unknown direction"},
		{"zero clock", `{"machine_time_step": 0}`, "machine_time_step"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := doJSON(t, e, http.MethodPost, "/v1/cells/image", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	raw := recording.EncodeFloat32s([]float32{0.5, float32(math.Inf(1)), -1})
	raw = append(raw, 0x01)
	rec := do(t, newTestEcho(t, nil), http.MethodPost, "/v1/results/decode", mimeOctetStream, raw)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out DecodeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, 3, out.Count)
	require.Len(t, out.Samples, 3)
	require.NotNil(t, out.Samples[0])
	assert.Equal(t, float32(0.5), *out.Samples[0])
	assert.Nil(t, out.Samples[1])
	assert.Equal(t, math.Float32bits(float32(math.Inf(1))), out.Bits[1])
	assert.Equal(t, float32(-1), *out.Samples[2])
}

func TestRunsWithoutLedger(t *testing.T) {
	t.Parallel()

	rec := doJSON(t, newTestEcho(t, nil), http.MethodGet, "/v1/runs", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRuns(t *testing.T) {
	t.Parallel()

	ledger, err := store.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })
	ctx := context.Background()
	_, err = ledger.CreateRun(ctx, store.Run{ID: "r1", Seed: 100, OutputDir: "/out"})
	require.NoError(t, err)
	require.NoError(t, ledger.RecordImage(ctx, store.Image{RunID: "r1", Label: "a", Path: "/out/a.dsg"}))

	e := newTestEcho(t, ledger)
	rec := doJSON(t, e, http.MethodGet, "/v1/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"r1"`)

	rec = doJSON(t, e, http.MethodGet, "/v1/runs/r1/images", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"label":"a"`), rec.Body.String())

	rec = doJSON(t, e, http.MethodGet, "/v1/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, e, http.MethodGet, "/v1/runs/nope/images", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
