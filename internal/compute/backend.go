package compute

import (
	"context"

	"github.com/san-kum/orbview/internal/bodies"
)

type Backend interface {
	Name() string
	Available() bool
	// Accelerations returns the field (gx, gy) at every (xs[i], ys[i]).
	// eps is added to the squared distance.
	Accelerations(ctx context.Context, xs, ys []float64, sources []bodies.Source, g, eps float64) (gx, gy []float64, err error)
}

var activeBackend Backend = NewCPUBackend()

func GetBackend() Backend {
	return activeBackend
}
