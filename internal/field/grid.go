package field

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/orbview/internal/camera"
)

var ErrInvalidGrid = errors.New("field: invalid grid")

// Grid is a rectangular sampling region with uniform spacing. Points are
// (XMin + i·Step, YMin + j·Step) for every i, j that stays inside the
// region, both ends included.
type Grid struct {
	XMin float64 `json:"xmin"`
	XMax float64 `json:"xmax"`
	YMin float64 `json:"ymin"`
	YMax float64 `json:"ymax"`
	Step float64 `json:"step"`
}

// NewGrid snaps rect outward to multiples of step so the grid fully covers
// it. Snapping keeps sample positions stable while the view pans.
func NewGrid(rect camera.Rect, step float64) (Grid, error) {
	g := Grid{
		XMin: math.Floor(rect.XMin/step) * step,
		XMax: math.Ceil(rect.XMax/step) * step,
		YMin: math.Floor(rect.YMin/step) * step,
		YMax: math.Ceil(rect.YMax/step) * step,
		Step: step,
	}
	if err := g.Validate(); err != nil {
		return Grid{}, err
	}
	return g, nil
}

// GridForView builds a covering grid, doubling the step until the sample
// count is at most maxSamples.
func GridForView(rect camera.Rect, step float64, maxSamples int) (Grid, error) {
	if maxSamples < 1 {
		return Grid{}, fmt.Errorf("%w: max samples %d", ErrInvalidGrid, maxSamples)
	}
	for i := 0; i < 64; i++ {
		g, err := NewGrid(rect, step)
		if err != nil {
			return Grid{}, err
		}
		if g.Len() <= maxSamples {
			return g, nil
		}
		step *= 2
	}
	return Grid{}, fmt.Errorf("%w: cannot fit %d samples", ErrInvalidGrid, maxSamples)
}

func (g Grid) Validate() error {
	for _, v := range []float64{g.XMin, g.XMax, g.YMin, g.YMax, g.Step} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite bound", ErrInvalidGrid)
		}
	}
	if !(g.Step > 0) {
		return fmt.Errorf("%w: step must be positive, got %g", ErrInvalidGrid, g.Step)
	}
	if g.XMax < g.XMin || g.YMax < g.YMin {
		return fmt.Errorf("%w: inverted region", ErrInvalidGrid)
	}
	return nil
}

// Dims returns the number of samples along x and y.
func (g Grid) Dims() (nx, ny int) {
	return span(g.XMin, g.XMax, g.Step), span(g.YMin, g.YMax, g.Step)
}

func span(lo, hi, step float64) int {
	if !(step > 0) || hi < lo {
		return 0
	}
	return int(math.Floor((hi-lo)/step+1e-9)) + 1
}

func (g Grid) Len() int {
	nx, ny := g.Dims()
	return nx * ny
}

func (g Grid) Point(i, j int) (float64, float64) {
	return g.XMin + float64(i)*g.Step, g.YMin + float64(j)*g.Step
}

// Points lists every sample, x-major: index i*ny + j.
func (g Grid) Points() (xs, ys []float64) {
	nx, ny := g.Dims()
	xs = make([]float64, 0, nx*ny)
	ys = make([]float64, 0, nx*ny)
	for i := 0; i < nx; i++ {
		for j := 0; j < ny; j++ {
			x, y := g.Point(i, j)
			xs = append(xs, x)
			ys = append(ys, y)
		}
	}
	return xs, ys
}

// Covers reports whether the grid spans rect.
func (g Grid) Covers(rect camera.Rect) bool {
	nx, ny := g.Dims()
	if nx == 0 || ny == 0 {
		return false
	}
	lastX, lastY := g.Point(nx-1, ny-1)
	tol := g.Step * 1e-9
	return g.XMin <= rect.XMin+tol && g.YMin <= rect.YMin+tol &&
		lastX >= rect.XMax-tol && lastY >= rect.YMax-tol
}
