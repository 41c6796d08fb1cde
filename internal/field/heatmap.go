package field

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/compute"
)

// Heatmap holds |a| per grid cell, Values[i][j] at Grid.Point(i, j).
type Heatmap struct {
	Grid   Grid        `json:"grid"`
	Values [][]float64 `json:"values"`
}

func AccelHeatmap(ctx context.Context, backend compute.Backend, grid Grid, sources []bodies.Source, p Params) (*Heatmap, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	xs, ys := grid.Points()
	gx, gy, err := backend.Accelerations(ctx, xs, ys, sources, p.G, p.Softening)
	if err != nil {
		return nil, fmt.Errorf("heatmap: %w", err)
	}

	nx, ny := grid.Dims()
	values := make([][]float64, nx)
	for i := 0; i < nx; i++ {
		row := make([]float64, ny)
		for j := 0; j < ny; j++ {
			k := i*ny + j
			row[j] = math.Hypot(gx[k], gy[k])
		}
		values[i] = row
	}
	return &Heatmap{Grid: grid, Values: values}, nil
}

// Cell returns the world position of cell (i, j).
func (h *Heatmap) Cell(i, j int) (float64, float64) {
	return h.Grid.Point(i, j)
}

func (h *Heatmap) Len() int {
	if h == nil {
		return 0
	}
	n := 0
	for _, row := range h.Values {
		n += len(row)
	}
	return n
}

// Range returns the smallest and largest positive finite magnitude. ok is
// false when there is nothing to normalise against.
func (h *Heatmap) Range() (lo, hi float64, ok bool) {
	if h == nil {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, row := range h.Values {
		for _, v := range row {
			if !(v > 0) || math.IsInf(v, 0) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, false
	}
	return lo, hi, true
}

// Normalize maps v into [0, 1] on a log scale between lo and hi. Values
// outside the range are clamped; a degenerate range maps to 0.
func Normalize(v, lo, hi float64) float64 {
	if !(lo > 0) || !(hi > lo) || !(v > 0) {
		return 0
	}
	t := (math.Log(v) - math.Log(lo)) / (math.Log(hi) - math.Log(lo))
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
