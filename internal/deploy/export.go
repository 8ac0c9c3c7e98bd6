package deploy

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// WriteGridCSV writes the value each cell recorded at timestep as a matrix:
// one row per grid y, one column per grid x. Cells without a sample at that
// timestep are left empty.
func WriteGridCSV(w io.Writer, samples []Samples, timestep int) error {
	if timestep < 0 {
		return fmt.Errorf("deploy: negative timestep %d", timestep)
	}
	width, height := 0, 0
	for _, s := range samples {
		if s.GridX < 0 || s.GridY < 0 {
			return fmt.Errorf("deploy: cell %s has negative grid position", s.Label)
		}
		width = max(width, s.GridX+1)
		height = max(height, s.GridY+1)
	}

	grid := make([][]string, height)
	for y := range grid {
		grid[y] = make([]string, width)
	}
	for _, s := range samples {
		if timestep < len(s.Values) {
			grid[s.GridY][s.GridX] = strconv.FormatFloat(float64(s.Values[timestep]), 'g', -1, 32)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.WriteAll(grid); err != nil {
		return fmt.Errorf("deploy: write csv: %w", err)
	}
	return nil
}
