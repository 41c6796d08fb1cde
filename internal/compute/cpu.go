package compute

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/san-kum/orbview/internal/bodies"
	"golang.org/x/sync/errgroup"
)

const minParallelPoints = 256

type CPUBackend struct {
	workers int
}

func NewCPUBackend() *CPUBackend {
	return &CPUBackend{
		workers: runtime.NumCPU(),
	}
}

// NewCPUBackendWorkers caps the number of goroutines used per call.
func NewCPUBackendWorkers(n int) *CPUBackend {
	if n < 1 {
		n = 1
	}
	return &CPUBackend{workers: n}
}

func (c *CPUBackend) Name() string    { return "cpu" }
func (c *CPUBackend) Available() bool { return true }

func (c *CPUBackend) Accelerations(ctx context.Context, xs, ys []float64, sources []bodies.Source, g, eps float64) ([]float64, []float64, error) {
	if len(xs) != len(ys) {
		return nil, nil, fmt.Errorf("compute: %d x coordinates, %d y coordinates", len(xs), len(ys))
	}
	n := len(xs)
	gx := make([]float64, n)
	gy := make([]float64, n)

	if n < minParallelPoints || c.workers <= 1 {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		sumRange(xs, ys, sources, g, eps, gx, gy, 0, n)
		return gx, gy, nil
	}

	if err := c.sumParallel(ctx, xs, ys, sources, g, eps, gx, gy); err != nil {
		return nil, nil, err
	}
	return gx, gy, nil
}

func (c *CPUBackend) sumParallel(ctx context.Context, xs, ys []float64, sources []bodies.Source, g, eps float64, gx, gy []float64) error {
	n := len(xs)
	workers := c.workers
	if n/minParallelPoints < workers {
		workers = n / minParallelPoints
	}
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + workers - 1) / workers

	eg, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			sumRange(xs, ys, sources, g, eps, gx, gy, start, end)
			return nil
		})
	}
	return eg.Wait()
}

// sumRange writes disjoint indices, so chunks need no synchronisation.
func sumRange(xs, ys []float64, sources []bodies.Source, g, eps float64, gx, gy []float64, start, end int) {
	for i := start; i < end; i++ {
		x, y := xs[i], ys[i]
		var ax, ay float64

		for _, s := range sources {
			dx := s.X - x
			dy := s.Y - y
			r2 := dx*dx + dy*dy + eps

			rInv := 1.0 / math.Sqrt(r2)
			r3Inv := rInv * rInv * rInv

			f := g * s.Mass * r3Inv
			ax += f * dx
			ay += f * dy
		}

		gx[i] = ax
		gy[i] = ay
	}
}
