package compute

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/orbview/internal/bodies"
)

const (
	testG   = 6.6743e-11
	testEps = 1e6
)

func TestAccelerationsPointMass(t *testing.T) {
	c := NewCPUBackend()
	src := []bodies.Source{{Mass: 1.98847e30}}

	r := 1.49597871e11
	gx, gy, err := c.Accelerations(context.Background(), []float64{r}, []float64{0}, src, testG, testEps)
	if err != nil {
		t.Fatal(err)
	}

	expected := -testG * 1.98847e30 / (r * r)
	if math.Abs(gx[0]-expected)/math.Abs(expected) > 1e-9 {
		t.Errorf("expected gx ~%g, got %g", expected, gx[0])
	}
	if gy[0] != 0 {
		t.Errorf("expected gy 0, got %g", gy[0])
	}
}

func TestAccelerationsCoincidentPoint(t *testing.T) {
	c := NewCPUBackend()
	src := []bodies.Source{{Mass: 1e30, X: 5, Y: 5}}

	gx, gy, err := c.Accelerations(context.Background(), []float64{5}, []float64{5}, src, testG, testEps)
	if err != nil {
		t.Fatal(err)
	}
	if gx[0] != 0 || gy[0] != 0 || math.IsNaN(gx[0]) {
		t.Errorf("coincident point should yield zero, got (%g, %g)", gx[0], gy[0])
	}
}

func TestAccelerationsNoSources(t *testing.T) {
	c := NewCPUBackend()
	gx, gy, err := c.Accelerations(context.Background(), []float64{1, 2}, []float64{3, 4}, nil, testG, testEps)
	if err != nil {
		t.Fatal(err)
	}
	for i := range gx {
		if gx[i] != 0 || gy[i] != 0 {
			t.Errorf("expected zero field at %d", i)
		}
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	n := 3000
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := range xs {
		xs[i] = float64(i%60) * 1e10
		ys[i] = float64(i/60) * 1e10
	}
	src := []bodies.Source{
		{Mass: 1.98847e30},
		{Mass: 5.972e24, X: 1.49597871e11},
		{Mass: 1898e24, X: 778.6e9, Y: 1e10},
	}

	serialGX, serialGY, err := NewCPUBackendWorkers(1).Accelerations(context.Background(), xs, ys, src, testG, testEps)
	if err != nil {
		t.Fatal(err)
	}
	parGX, parGY, err := NewCPUBackendWorkers(8).Accelerations(context.Background(), xs, ys, src, testG, testEps)
	if err != nil {
		t.Fatal(err)
	}

	for i := range serialGX {
		if serialGX[i] != parGX[i] || serialGY[i] != parGY[i] {
			t.Fatalf("mismatch at %d: serial (%g,%g) parallel (%g,%g)", i, serialGX[i], serialGY[i], parGX[i], parGY[i])
		}
	}
}

func TestAccelerationsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	xs := make([]float64, 1000)
	ys := make([]float64, 1000)
	_, _, err := NewCPUBackendWorkers(4).Accelerations(ctx, xs, ys, []bodies.Source{{Mass: 1}}, testG, testEps)
	if err == nil {
		t.Error("expected context error")
	}
}

func TestAccelerationsLengthMismatch(t *testing.T) {
	_, _, err := NewCPUBackend().Accelerations(context.Background(), []float64{1}, nil, nil, testG, testEps)
	if err == nil {
		t.Error("expected error for mismatched slices")
	}
}
