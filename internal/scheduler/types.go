package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/field"
)

var ErrNoDispatcher = errors.New("scheduler: no dispatcher for kind")

type Kind = field.Kind

const (
	KindVector   = field.KindVector
	KindHeatmap  = field.KindHeatmap
	KindLagrange = field.KindLagrange
)

func ParseKind(s string) (Kind, error) { return field.ParseKind(s) }

type Phase int

const (
	Idle Phase = iota
	Dispatching
	AwaitingResult
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	case AwaitingResult:
		return "awaiting"
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// Request is a self-contained snapshot of everything needed to compute one
// field. It must not share memory with live state.
type Request struct {
	Kind       Kind
	Generation uint64
	Grid       field.Grid
	Sources    []bodies.Source
	Params     field.Params

	// Lagrange only.
	Primary bodies.Body
	Target  bodies.Body
}

type Response struct {
	Kind       Kind
	Generation uint64
	Result     field.Result
	Err        error
}

// Dispatcher starts computing req. Implementations call deliver exactly
// once, from any goroutine, unless they return an error.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request, deliver func(Response)) error
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, req Request, deliver func(Response)) error

func (f DispatcherFunc) Dispatch(ctx context.Context, req Request, deliver func(Response)) error {
	return f(ctx, req, deliver)
}

// Builder captures the request inputs for kind at dispatch time. ok is
// false when no meaningful query exists.
type Builder func(kind Kind) (req Request, ok bool)

type KindConfig struct {
	Enabled  bool
	Interval time.Duration
	Timeout  time.Duration // 0 disables expiry
}

// SlotState is a point-in-time copy of one kind's bookkeeping.
type SlotState struct {
	Kind         Kind
	Enabled      bool
	Phase        Phase
	Dirty        bool
	Generation   uint64
	HasResult    bool
	LastDispatch time.Time
	LastUpdate   time.Time
	LastError    error
}

func (s SlotState) Busy() bool { return s.Phase != Idle }
