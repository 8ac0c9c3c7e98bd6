package deploy

import (
	"context"
	"errors"
	"runtime"

	"github.com/samcharles93/lattice/internal/fabric"
	"github.com/samcharles93/lattice/internal/lattice"
	"github.com/samcharles93/lattice/internal/store"
)

// Target is one recorded vertex to drain.
type Target struct {
	Label     string
	GridX     int
	GridY     int
	Placement fabric.Placement
	Reader    fabric.ResultReadable
}

// Samples is the decoded recording of one target.
type Samples struct {
	Label     string           `json:"label"`
	GridX     int              `json:"grid_x"`
	GridY     int              `json:"grid_y"`
	Placement fabric.Placement `json:"placement"`
	Values    []float32        `json:"values"`
	Missing   bool             `json:"missing,omitempty"`
	Err       error            `json:"-"`
}

// TargetsFromImages rebuilds retrieval targets from a ledger run.
func TargetsFromImages(images []store.Image) []Target {
	out := make([]Target, 0, len(images))
	for _, img := range images {
		out = append(out, Target{
			Label:     img.Label,
			GridX:     img.GridX,
			GridY:     img.GridY,
			Placement: img.Placement,
			Reader:    lattice.NewCell(img.Label, img.GridX, img.GridY, 0, 0),
		})
	}
	return out
}

type retrieveTask struct {
	index  int
	target Target
}

func workersFor(n, requested int) int {
	workers := requested
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n > 0 && workers > n {
		workers = n
	}
	if workers < 1 {
		return 1
	}
	return workers
}

// Retrieve drains every target from src using up to workers goroutines.
// Results keep the order of targets. A target whose data is partially lost
// still returns the recovered samples with Missing set; the joined error
// reports every target that failed or lost data.
func Retrieve(ctx context.Context, targets []Target, src fabric.BufferSource, workers int) ([]Samples, error) {
	out := make([]Samples, len(targets))
	if len(targets) == 0 {
		return out, nil
	}

	workers = workersFor(len(targets), workers)
	tasks := make(chan retrieveTask, workers*2)
	done := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		go func() {
			for task := range tasks {
				out[task.index] = retrieveOne(ctx, task.target, src)
			}
			done <- struct{}{}
		}()
	}

	var ctxErr error
feed:
	for i, t := range targets {
		if err := ctx.Err(); err != nil {
			ctxErr = err
			break
		}
		select {
		case tasks <- retrieveTask{index: i, target: t}:
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		}
	}
	close(tasks)
	for i := 0; i < workers; i++ {
		<-done
	}
	if ctxErr != nil {
		return out, ctxErr
	}

	var errs []error
	for _, s := range out {
		if s.Err != nil {
			errs = append(errs, s.Err)
		}
	}
	return out, errors.Join(errs...)
}

func retrieveOne(ctx context.Context, t Target, src fabric.BufferSource) Samples {
	s := Samples{Label: t.Label, GridX: t.GridX, GridY: t.GridY, Placement: t.Placement}
	values, err := t.Reader.GetData(ctx, src, t.Placement)
	s.Values = values
	s.Err = err
	s.Missing = errors.Is(err, lattice.ErrDataMissing)
	return s
}
