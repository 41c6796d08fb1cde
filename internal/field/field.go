// Package field samples the gravitational field of a body snapshot over a
// grid: acceleration vectors, acceleration magnitude heatmaps, and the
// Lagrange points of a primary/secondary pair.
package field

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/compute"
)

const (
	G         = 6.6743e-11
	Softening = 1e6 // world units², added to r²
)

// Kind tags the three derived fields.
type Kind int

const (
	KindVector Kind = iota
	KindHeatmap
	KindLagrange
)

// Kinds lists every field kind in dispatch order.
var Kinds = []Kind{KindVector, KindHeatmap, KindLagrange}

func (k Kind) String() string {
	switch k {
	case KindVector:
		return "vector"
	case KindHeatmap:
		return "heatmap"
	case KindLagrange:
		return "lagrange"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(s) {
	case "vector", "vector_field":
		return KindVector, nil
	case "heatmap", "accel_heatmap":
		return KindHeatmap, nil
	case "lagrange":
		return KindLagrange, nil
	}
	return 0, fmt.Errorf("unknown field kind: %s", s)
}

type Params struct {
	G         float64
	Softening float64
}

func DefaultParams() Params {
	return Params{G: G, Softening: Softening}
}

// Vector is the acceleration (GX, GY) at sample point (X, Y).
type Vector struct {
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
	GX float64 `json:"gx"`
	GY float64 `json:"gy"`
}

func (v Vector) Magnitude() float64 { return math.Hypot(v.GX, v.GY) }

// VectorField evaluates the field at every grid point, x-major. An empty
// source set yields zero vectors.
func VectorField(ctx context.Context, backend compute.Backend, grid Grid, sources []bodies.Source, p Params) ([]Vector, error) {
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	xs, ys := grid.Points()
	gx, gy, err := backend.Accelerations(ctx, xs, ys, sources, p.G, p.Softening)
	if err != nil {
		return nil, fmt.Errorf("vector field: %w", err)
	}
	out := make([]Vector, len(xs))
	for i := range xs {
		out[i] = Vector{X: xs[i], Y: ys[i], GX: gx[i], GY: gy[i]}
	}
	return out, nil
}

// Profile samples |g| at n evenly spaced points from (x0, y0) to (x1, y1).
func Profile(ctx context.Context, backend compute.Backend, x0, y0, x1, y1 float64, n int, sources []bodies.Source, p Params) ([]float64, error) {
	if n < 2 {
		return nil, fmt.Errorf("profile needs at least 2 samples, got %d", n)
	}
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) / float64(n-1)
		xs[i] = x0 + t*(x1-x0)
		ys[i] = y0 + t*(y1-y0)
	}
	gx, gy, err := backend.Accelerations(ctx, xs, ys, sources, p.G, p.Softening)
	if err != nil {
		return nil, err
	}
	mags := make([]float64, n)
	for i := range mags {
		mags[i] = math.Hypot(gx[i], gy[i])
	}
	return mags, nil
}
