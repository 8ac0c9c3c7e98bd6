// Package api serves single-cell image generation and result decoding over HTTP.
package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/lattice/internal/cellimage"
	"github.com/samcharles93/lattice/internal/config"
	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/logger"
	"github.com/samcharles93/lattice/internal/store"
	"github.com/samcharles93/lattice/internal/version"
	"github.com/samcharles93/lattice/pkg/dsg"
)

type Server struct {
	ledger   *store.Store
	defaults config.Deployment
	log      logger.Logger
}

// NewServer returns a server whose image requests fall back to defaults for
// clock and seed. ledger may be nil, which disables the /v1/runs routes.
func NewServer(ledger *store.Store, defaults config.Deployment, log logger.Logger) *Server {
	if log == nil {
		log = logger.Discard()
	}
	return &Server{ledger: ledger, defaults: defaults, log: log}
}

func (s *Server) Register(e *echo.Echo) {
	e.GET("/healthz", s.handleHealth)
	e.GET("/v1/layout", s.handleLayout)
	e.POST("/v1/cells/image", s.handleCellImage)
	e.POST("/v1/results/decode", s.handleDecode)

	// Ledger
	e.GET("/v1/runs", s.handleListRuns)
	e.GET("/v1/runs/:id", s.handleGetRun)
	e.GET("/v1/runs/:id/images", s.handleRunImages)
}

func (s *Server) handleHealth(c *echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Version: version.String()})
}

func (s *Server) handleLayout(c *echo.Context) error {
	n := 0
	if raw := c.QueryParam("n_timesteps"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || lattice.CheckTimesteps(v) != nil {
			return writeError(c, http.StatusBadRequest, "invalid_request_error",
				fmt.Sprintf("n_timesteps must be an integer from 0 to %d", lattice.MaxTimesteps), "n_timesteps", "")
		}
		n = v
	}
	res := lattice.Resources()
	out := LayoutResponse{
		NTimesteps:       n,
		FixedBytes:       res.FixedBytes,
		BytesPerTimestep: res.BytesPerTimestep,
		TotalBytes:       res.Total(n),
	}
	for _, r := range lattice.PlanRegions(n) {
		out.Regions = append(out.Regions, LayoutRegion{
			ID:    uint32(r.ID),
			Name:  lattice.RegionName(r.ID),
			Label: r.Label,
			Size:  r.Size,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleCellImage(c *echo.Context) error {
	req, err := decodeJSON[CellImageRequest](c.Request().Body)
	if err != nil {
		return writeInvalid(c, err)
	}
	raw, err := s.generate(c, req)
	if err != nil {
		if errors.Is(err, lattice.ErrConfiguration) || errors.Is(err, ErrInvalidRequest) {
			return writeInvalid(c, err)
		}
		s.log.Error("generate image", "error", err)
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}

	if c.QueryParam("format") == "json" {
		f, err := cellimage.Parse(raw)
		if err != nil {
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
		}
		contents, err := f.Contents()
		if err != nil {
			return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
		}
		return c.JSON(http.StatusOK, CellImageResponse{SizeBytes: len(raw), Contents: contents})
	}

	name := req.Label
	if name == "" {
		name = config.CellLabel(req.X, req.Y)
	}
	w := c.Response()
	w.Header().Set(echo.HeaderContentType, mimeOctetStream)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name+".dsg"))
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(raw)
	return err
}

func (s *Server) generate(c *echo.Context, req CellImageRequest) ([]byte, error) {
	if req.NTimesteps < 0 || req.NTimesteps > maxServedTimesteps {
		return nil, newInvalidRequest("n_timesteps", fmt.Sprintf("n_timesteps must be from 0 to %d", maxServedTimesteps))
	}
	if req.VertexIndex < 0 {
		return nil, newInvalidRequest("vertex_index", "vertex_index must not be negative")
	}
	timing := fabric.Timing{
		MachineTimeStep: s.defaults.MachineTimeStep,
		TimeScaleFactor: s.defaults.TimeScaleFactor,
	}
	if req.MachineTimeStep != nil {
		timing.MachineTimeStep = *req.MachineTimeStep
	}
	if req.TimeScaleFactor != nil {
		timing.TimeScaleFactor = *req.TimeScaleFactor
	}
	if timing.MachineTimeStep == 0 || timing.TimeScaleFactor == 0 {
		return nil, newInvalidRequest("machine_time_step", "machine_time_step and time_scale_factor must be positive")
	}

	cell := lattice.NewCell(req.Label, req.X, req.Y, req.UX, req.UY)
	g, routing, err := neighbourhood(cell, req)
	if err != nil {
		return nil, err
	}

	var jitter fabric.OffsetGenerator
	if req.Offset != nil {
		jitter = fixedOffset(*req.Offset)
	} else {
		seed := s.defaults.Seed
		if req.Seed != nil {
			seed = *req.Seed
		}
		jitter = lattice.NewJitterWith(seed, s.defaults.CoresPerChip, s.defaults.MaxOffset)
	}

	spec := dsg.NewSpec()
	ctx := logger.WithContext(c.Request().Context(), s.log)
	if err := cell.GenerateImage(ctx, spec, fabric.ImageContext{
		Placement:  req.Placement,
		Graph:      indexedGraph{Graph: g, cell: cell, index: req.VertexIndex},
		Routing:    routing,
		Timing:     timing,
		NTimesteps: req.NTimesteps,
		Jitter:     jitter,
	}); err != nil {
		return nil, err
	}
	return spec.Bytes()
}

// neighbourhood builds the one-cell graph a request describes: eight stub
// neighbours sending STATE to the cell and receiving from it.
func neighbourhood(cell *lattice.Cell, req CellImageRequest) (*fabric.Graph, *fabric.RoutingTable, error) {
	for name := range req.NeighbourKeys {
		if _, err := lattice.ParseDirection(name); err != nil {
			return nil, nil, newInvalidRequest("neighbour_keys", err.Error())
		}
	}

	g := fabric.NewGraph()
	routing := fabric.NewRoutingTable()
	if err := g.AddVertex(cell); err != nil {
		return nil, nil, err
	}
	if req.Key != nil {
		routing.Set(cell, lattice.PartitionID, fabric.KeyAndMask{Key: *req.Key, Mask: req.Mask})
	}
	for _, d := range lattice.Directions() {
		n := stubVertex(cell.Label() + "/" + d.String())
		if err := g.AddVertex(n); err != nil {
			return nil, nil, err
		}
		if err := g.AddEdge(n, cell, lattice.PartitionID); err != nil {
			return nil, nil, err
		}
		if err := g.AddEdge(cell, n, lattice.PartitionID); err != nil {
			return nil, nil, err
		}
		if err := cell.SetNeighbour(d, n); err != nil {
			return nil, nil, err
		}
		if key, ok := req.NeighbourKeys[d.String()]; ok {
			routing.Set(n, lattice.PartitionID, fabric.KeyAndMask{Key: key, Mask: req.Mask})
		}
	}
	return g, routing, nil
}

type stubVertex string

func (v stubVertex) Label() string { return string(v) }

type fixedOffset int

func (o fixedOffset) GenerateOffset(int) int { return int(o) }

// indexedGraph reports the requested grid index for the cell.
type indexedGraph struct {
	*fabric.Graph
	cell  fabric.Vertex
	index int
}

func (g indexedGraph) IndexOf(v fabric.Vertex) int {
	if v == g.cell {
		return g.index
	}
	return g.Graph.IndexOf(v)
}

func (s *Server) handleDecode(c *echo.Context) error {
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(c.Request().Body, maxBodyBytes)); err != nil {
		return writeBadRequest(c, fmt.Sprintf("read body: %v", err))
	}
	samples := lattice.DecodeResults(buf.Bytes())
	out := DecodeResponse{
		Count:   len(samples),
		Samples: make([]*float32, len(samples)),
		Bits:    make([]uint32, len(samples)),
	}
	for i := range samples {
		v := samples[i]
		out.Bits[i] = math.Float32bits(v)
		if !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0) {
			out.Samples[i] = &v
		}
	}
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleListRuns(c *echo.Context) error {
	if s.ledger == nil {
		return writeNotFound(c, "no ledger configured")
	}
	runs, err := s.ledger.ListRuns(c.Request().Context())
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": runs})
}

func (s *Server) handleGetRun(c *echo.Context) error {
	if s.ledger == nil {
		return writeNotFound(c, "no ledger configured")
	}
	run, err := s.ledger.GetRun(c.Request().Context(), c.Param("id"))
	if errors.Is(err, store.ErrRunNotFound) {
		return writeNotFound(c, "run not found")
	}
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	return c.JSON(http.StatusOK, run)
}

func (s *Server) handleRunImages(c *echo.Context) error {
	if s.ledger == nil {
		return writeNotFound(c, "no ledger configured")
	}
	ctx := c.Request().Context()
	id := c.Param("id")
	if _, err := s.ledger.GetRun(ctx, id); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			return writeNotFound(c, "run not found")
		}
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	images, err := s.ledger.Images(ctx, id)
	if err != nil {
		return writeError(c, http.StatusInternalServerError, "server_error", err.Error(), "", "")
	}
	return c.JSON(http.StatusOK, map[string]any{"object": "list", "data": images})
}
