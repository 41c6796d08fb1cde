// Package worker runs field computations off the UI goroutine. Requests
// travel as self-contained envelopes over a bounded inbox and results come
// back as replies; the worker never sees live simulation state.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/compute"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/scheduler"
	"github.com/sirupsen/logrus"
)

var (
	ErrBusy   = errors.New("worker: inbox full")
	ErrClosed = errors.New("worker: closed")
)

const DefaultQueue = 4

type Envelope struct {
	Kind       field.Kind
	Generation uint64
	Grid       field.Grid
	Sources    []bodies.Source
	Params     field.Params
	Primary    bodies.Body
	Target     bodies.Body
}

type Reply struct {
	Kind       field.Kind
	Generation uint64
	Result     field.Result
	Err        error
}

type job struct {
	ctx   context.Context
	env   Envelope
	reply func(Reply)
}

type Worker struct {
	backend compute.Backend
	log     logrus.FieldLogger
	inbox   chan job

	mu      sync.RWMutex
	closed  bool
	quit    chan struct{}
	done    chan struct{}
	started bool
}

func New(backend compute.Backend, queue int, log logrus.FieldLogger) *Worker {
	if queue < 1 {
		queue = DefaultQueue
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Worker{
		backend: backend,
		log:     log,
		inbox:   make(chan job, queue),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine. It exits when ctx is done or Close
// is called.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started || w.closed {
		return
	}
	w.started = true
	go w.loop(ctx)
}

func (w *Worker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			w.drain(ctx.Err())
			return
		case <-w.quit:
			w.drain(ErrClosed)
			return
		case j := <-w.inbox:
			j.reply(w.run(j))
		}
	}
}

func (w *Worker) drain(err error) {
	for {
		select {
		case j := <-w.inbox:
			j.reply(Reply{Kind: j.env.Kind, Generation: j.env.Generation, Err: err})
		default:
			return
		}
	}
}

func (w *Worker) run(j job) (r Reply) {
	r = Reply{Kind: j.env.Kind, Generation: j.env.Generation}
	defer func() {
		if p := recover(); p != nil {
			w.log.WithFields(logrus.Fields{
				"kind":       j.env.Kind.String(),
				"generation": j.env.Generation,
			}).Errorf("field computation panicked: %v", p)
			r.Result = field.Result{}
			r.Err = fmt.Errorf("worker: computation panicked: %v", p)
		}
	}()

	if err := j.ctx.Err(); err != nil {
		r.Err = err
		return r
	}
	r.Result, r.Err = Compute(j.ctx, w.backend, j.env)
	return r
}

// Submit queues env without blocking. reply is called exactly once from
// the worker goroutine when Submit succeeds.
func (w *Worker) Submit(ctx context.Context, env Envelope, reply func(Reply)) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return ErrClosed
	}
	select {
	case w.inbox <- job{ctx: ctx, env: env, reply: reply}:
		return nil
	default:
		return ErrBusy
	}
}

// Dispatch lets the worker serve as a scheduler dispatcher.
func (w *Worker) Dispatch(ctx context.Context, req scheduler.Request, deliver func(scheduler.Response)) error {
	env := Envelope{
		Kind:       req.Kind,
		Generation: req.Generation,
		Grid:       req.Grid,
		Sources:    append([]bodies.Source(nil), req.Sources...),
		Params:     req.Params,
		Primary:    req.Primary,
		Target:     req.Target,
	}
	return w.Submit(ctx, env, func(r Reply) {
		deliver(scheduler.Response{Kind: r.Kind, Generation: r.Generation, Result: r.Result, Err: r.Err})
	})
}

// Close stops the worker. Queued envelopes are answered with ErrClosed.
func (w *Worker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	started := w.started
	close(w.quit)
	w.mu.Unlock()

	if started {
		<-w.done
	} else {
		w.drain(ErrClosed)
	}
	return nil
}

// Compute evaluates the field described by env.
func Compute(ctx context.Context, backend compute.Backend, env Envelope) (field.Result, error) {
	p := env.Params
	if p.G == 0 {
		p = field.DefaultParams()
	}
	res := field.Result{Kind: env.Kind, Generation: env.Generation}

	switch env.Kind {
	case field.KindVector:
		vs, err := field.VectorField(ctx, backend, env.Grid, env.Sources, p)
		if err != nil {
			return field.Result{}, err
		}
		res.Vectors = vs
	case field.KindHeatmap:
		hm, err := field.AccelHeatmap(ctx, backend, env.Grid, env.Sources, p)
		if err != nil {
			return field.Result{}, err
		}
		res.Heatmap = hm
	case field.KindLagrange:
		pts, err := field.LagrangePoints(env.Primary, env.Target, p.G)
		if err != nil {
			return field.Result{}, err
		}
		res.Lagrange = pts
		res.Target = env.Target.Name
	default:
		return field.Result{}, fmt.Errorf("worker: unknown field kind %v", env.Kind)
	}
	return res, nil
}
