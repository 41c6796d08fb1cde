package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/scheduler"
)

var errNoTarget = errors.New("remote: lagrange request without target")

// FieldDispatcher serves scheduler requests from the field-query
// endpoints, one goroutine per request.
type FieldDispatcher struct {
	client *Client
}

func NewFieldDispatcher(c *Client) *FieldDispatcher {
	return &FieldDispatcher{client: c}
}

func (d *FieldDispatcher) Dispatch(ctx context.Context, req scheduler.Request, deliver func(scheduler.Response)) error {
	if req.Kind == field.KindLagrange && req.Target.Name == "" {
		return errNoTarget
	}
	go func() {
		res, err := d.Fetch(ctx, req)
		deliver(scheduler.Response{Kind: req.Kind, Generation: req.Generation, Result: res, Err: err})
	}()
	return nil
}

// Fetch performs req synchronously.
func (d *FieldDispatcher) Fetch(ctx context.Context, req scheduler.Request) (field.Result, error) {
	res := field.Result{Kind: req.Kind, Generation: req.Generation}
	var err error
	switch req.Kind {
	case field.KindVector:
		res.Vectors, err = d.client.VectorField(ctx, req.Grid)
	case field.KindHeatmap:
		res.Heatmap, err = d.client.AccelHeatmap(ctx, req.Grid)
	case field.KindLagrange:
		res.Lagrange, err = d.client.Lagrange(ctx, req.Target.Name)
		res.Target = req.Target.Name
	default:
		err = fmt.Errorf("remote: unknown field kind %v", req.Kind)
	}
	if err != nil {
		return field.Result{}, err
	}
	return res, nil
}
