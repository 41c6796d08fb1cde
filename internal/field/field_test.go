package field

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/camera"
	"github.com/san-kum/orbview/internal/compute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sunMass   = 1.98847e30
	earthMass = 5.972e24
	au        = 1.49597871e11
)

func TestNewGridSnapsOutward(t *testing.T) {
	g, err := NewGrid(camera.Rect{XMin: -15, XMax: 25, YMin: 3, YMax: 7}, 10)
	require.NoError(t, err)

	assert.Equal(t, -20.0, g.XMin)
	assert.Equal(t, 30.0, g.XMax)
	assert.Equal(t, 0.0, g.YMin)
	assert.Equal(t, 10.0, g.YMax)

	nx, ny := g.Dims()
	assert.Equal(t, 6, nx)
	assert.Equal(t, 2, ny)
	assert.True(t, g.Covers(camera.Rect{XMin: -15, XMax: 25, YMin: 3, YMax: 7}))
}

func TestGridPointsXMajor(t *testing.T) {
	g := Grid{XMin: 0, XMax: 2, YMin: 0, YMax: 1, Step: 1}
	xs, ys := g.Points()
	require.Len(t, xs, 6)

	assert.Equal(t, []float64{0, 0, 1, 1, 2, 2}, xs)
	assert.Equal(t, []float64{0, 1, 0, 1, 0, 1}, ys)
}

func TestGridValidate(t *testing.T) {
	tests := []struct {
		name string
		g    Grid
	}{
		{"zero step", Grid{XMax: 1, YMax: 1}},
		{"negative step", Grid{XMax: 1, YMax: 1, Step: -1}},
		{"inverted x", Grid{XMin: 2, XMax: 1, YMax: 1, Step: 1}},
		{"nan", Grid{XMin: math.NaN(), XMax: 1, YMax: 1, Step: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.g.Validate(), ErrInvalidGrid)
		})
	}
}

func TestGridForViewRespectsMaxSamples(t *testing.T) {
	rect := camera.Rect{XMin: -1000, XMax: 1000, YMin: -1000, YMax: 1000}
	g, err := GridForView(rect, 1, 400)
	require.NoError(t, err)

	assert.LessOrEqual(t, g.Len(), 400)
	assert.Greater(t, g.Step, 1.0)
	assert.True(t, g.Covers(rect))
}

func TestVectorFieldTwoBodies(t *testing.T) {
	d := 1e9
	sources := []bodies.Source{
		{Mass: 1e24, X: 0, Y: 0},
		{Mass: 1e24, X: d, Y: 0},
	}
	g := Grid{XMin: 2 * d, XMax: 2 * d, YMin: 0, YMax: 0, Step: d}

	vs, err := VectorField(context.Background(), compute.NewCPUBackend(), g, sources, DefaultParams())
	require.NoError(t, err)
	require.Len(t, vs, 1)

	want := -G * 1e24 * (2*d/math.Pow(4*d*d+Softening, 1.5) + d/math.Pow(d*d+Softening, 1.5))
	assert.InEpsilon(t, want, vs[0].GX, 1e-12)
	assert.Zero(t, vs[0].GY)
	assert.Equal(t, 2*d, vs[0].X)
}

func TestVectorFieldDeterministic(t *testing.T) {
	sources := []bodies.Source{{Mass: sunMass}, {Mass: earthMass, X: au}}
	g, err := NewGrid(camera.Rect{XMin: -2 * au, XMax: 2 * au, YMin: -2 * au, YMax: 2 * au}, au/10)
	require.NoError(t, err)

	a, err := VectorField(context.Background(), compute.NewCPUBackend(), g, sources, DefaultParams())
	require.NoError(t, err)
	b, err := VectorField(context.Background(), compute.NewCPUBackendWorkers(1), g, sources, DefaultParams())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestVectorFieldNoBodies(t *testing.T) {
	g := Grid{XMax: 3, YMax: 3, Step: 1}
	vs, err := VectorField(context.Background(), compute.NewCPUBackend(), g, nil, DefaultParams())
	require.NoError(t, err)
	require.Len(t, vs, 16)
	for _, v := range vs {
		assert.Zero(t, v.Magnitude())
	}
}

func TestAccelHeatmapMatchesVectors(t *testing.T) {
	sources := []bodies.Source{{Mass: sunMass}}
	g := Grid{XMin: au, XMax: 3 * au, YMin: -au, YMax: au, Step: au}

	hm, err := AccelHeatmap(context.Background(), compute.NewCPUBackend(), g, sources, DefaultParams())
	require.NoError(t, err)
	vs, err := VectorField(context.Background(), compute.NewCPUBackend(), g, sources, DefaultParams())
	require.NoError(t, err)

	nx, ny := g.Dims()
	require.Len(t, hm.Values, nx)
	for i := 0; i < nx; i++ {
		require.Len(t, hm.Values[i], ny)
		for j := 0; j < ny; j++ {
			assert.Equal(t, vs[i*ny+j].Magnitude(), hm.Values[i][j])
			x, y := hm.Cell(i, j)
			assert.Equal(t, vs[i*ny+j].X, x)
			assert.Equal(t, vs[i*ny+j].Y, y)
		}
	}
}

func TestHeatmapRange(t *testing.T) {
	hm := &Heatmap{Values: [][]float64{{0, 2}, {8, math.Inf(1)}}}
	lo, hi, ok := hm.Range()
	require.True(t, ok)
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 8.0, hi)

	_, _, ok = (&Heatmap{}).Range()
	assert.False(t, ok)

	var nilMap *Heatmap
	_, _, ok = nilMap.Range()
	assert.False(t, ok)
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, 0.0, Normalize(1, 1, 100))
	assert.Equal(t, 1.0, Normalize(100, 1, 100))
	assert.InDelta(t, 0.5, Normalize(10, 1, 100), 1e-12)
	assert.Equal(t, 0.0, Normalize(5, 5, 5), "degenerate range")
	assert.Equal(t, 1.0, Normalize(1e9, 1, 100), "clamped")
	assert.Equal(t, 0.0, Normalize(0, 1, 100))
}

func TestProfile(t *testing.T) {
	sources := []bodies.Source{{Mass: sunMass}}
	mags, err := Profile(context.Background(), compute.NewCPUBackend(), au, 0, 5*au, 0, 5, sources, DefaultParams())
	require.NoError(t, err)
	require.Len(t, mags, 5)
	for i := 1; i < len(mags); i++ {
		assert.Less(t, mags[i], mags[i-1])
	}

	_, err = Profile(context.Background(), compute.NewCPUBackend(), 0, 0, 1, 1, 1, sources, DefaultParams())
	assert.Error(t, err)
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("Heatmap")
	require.NoError(t, err)
	assert.Equal(t, KindHeatmap, k)
	assert.Equal(t, "lagrange", KindLagrange.String())

	_, err = ParseKind("tides")
	assert.Error(t, err)
}

func TestResultEmpty(t *testing.T) {
	assert.True(t, EmptyResult(KindVector, 1).Empty())
	assert.True(t, EmptyResult(KindHeatmap, 1).Empty())
	assert.True(t, EmptyResult(KindLagrange, 1).Empty())
	assert.False(t, Result{Kind: KindLagrange, Lagrange: map[string]Point{"L1": {}}}.Empty())
}
