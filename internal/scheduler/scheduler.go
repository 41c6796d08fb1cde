package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/metrics"
	"github.com/sirupsen/logrus"
)

var ErrTimeout = errors.New("scheduler: request timed out")

const defaultBuffer = 16

type Options struct {
	Logger  logrus.FieldLogger
	Metrics *metrics.Scheduler
	Clock   Clock
	// Buffer bounds the delivered-response queue.
	Buffer int
}

type slot struct {
	kind       Kind
	cfg        KindConfig
	dispatcher Dispatcher

	phase      Phase
	dirty      bool
	generation uint64
	// epoch counts invalidations; sentEpoch is its value at dispatch.
	epoch     uint64
	sentEpoch uint64
	inflight  uint64
	sentAt    time.Time
	cancel    context.CancelFunc

	lastDispatch time.Time
	lastUpdate   time.Time
	lastErr      error

	result    field.Result
	hasResult bool
}

// Scheduler keeps at most one request outstanding per field kind and
// decides when each kind is recomputed. Responses are queued by deliver and
// applied on the next Tick, so all state changes happen on the caller's
// goroutine.
type Scheduler struct {
	mu        sync.Mutex
	build     Builder
	slots     map[Kind]*slot
	responses chan Response

	ctx   context.Context
	stop  context.CancelFunc
	log   logrus.FieldLogger
	stats *metrics.Scheduler
	clock Clock
}

// New creates a scheduler with every configured kind marked dirty. build is
// called with the scheduler lock held and must not call back into it.
func New(build Builder, kinds map[Kind]KindConfig, opts Options) *Scheduler {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.Clock == nil {
		opts.Clock = RealClock()
	}
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Scheduler{
		build:     build,
		slots:     make(map[Kind]*slot, len(kinds)),
		responses: make(chan Response, opts.Buffer),
		ctx:       ctx,
		stop:      stop,
		log:       opts.Logger,
		stats:     opts.Metrics,
		clock:     opts.Clock,
	}
	for kind, cfg := range kinds {
		s.slots[kind] = &slot{kind: kind, cfg: cfg, dirty: true, epoch: 1}
	}
	return s
}

func (s *Scheduler) SetDispatcher(kind Kind, d Dispatcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl := s.slots[kind]; sl != nil {
		sl.dispatcher = d
	}
}

// Close abandons every outstanding request.
func (s *Scheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		s.abandon(sl, false)
	}
	s.stop()
}

// Poll is Tick at the scheduler clock's current time.
func (s *Scheduler) Poll() {
	s.Tick(s.clock.Now())
}

// Tick applies delivered responses, expires stale requests, then dispatches
// every kind that is due. It never blocks on a dispatcher's result.
func (s *Scheduler) Tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drain(now)
	s.expire(now)
	for _, kind := range field.Kinds {
		if sl := s.slots[kind]; sl != nil && s.due(sl, now) {
			s.dispatch(sl, now)
		}
	}
}

func (s *Scheduler) deliver(resp Response) {
	select {
	case s.responses <- resp:
	default:
		s.log.WithFields(logrus.Fields{
			"kind":       resp.Kind.String(),
			"generation": resp.Generation,
		}).Warn("field response dropped, queue full")
	}
}

func (s *Scheduler) drain(now time.Time) {
	for {
		select {
		case resp := <-s.responses:
			s.handle(resp, now)
		default:
			return
		}
	}
}

func (s *Scheduler) handle(resp Response, now time.Time) {
	log := s.log.WithFields(logrus.Fields{
		"kind":       resp.Kind.String(),
		"generation": resp.Generation,
	})

	sl := s.slots[resp.Kind]
	if sl == nil || sl.phase != AwaitingResult || resp.Generation != sl.inflight {
		log.Debug("stale field response discarded")
		s.stats.ObserveDiscard(resp.Kind.String())
		return
	}

	sl.cancel()
	sl.cancel = nil
	sl.phase = Idle
	elapsed := now.Sub(sl.sentAt)

	sl.lastUpdate = now
	if resp.Err != nil {
		sl.lastErr = resp.Err
		log.WithError(resp.Err).Warn("field request failed")
		s.stats.ObserveFailure(resp.Kind.String(), true)
		return
	}

	res := resp.Result
	res.Kind = resp.Kind
	res.Generation = resp.Generation
	sl.result = res
	sl.hasResult = true
	sl.lastErr = nil
	if sl.epoch == sl.sentEpoch {
		sl.dirty = false
	}
	log.WithField("elapsed", elapsed).Debug("field result accepted")
	s.stats.ObserveAccept(resp.Kind.String(), elapsed)
}

func (s *Scheduler) expire(now time.Time) {
	for _, sl := range s.slots {
		if sl.phase != AwaitingResult || sl.cfg.Timeout <= 0 {
			continue
		}
		if now.Sub(sl.sentAt) < sl.cfg.Timeout {
			continue
		}
		s.log.WithFields(logrus.Fields{
			"kind":       sl.kind.String(),
			"generation": sl.inflight,
			"elapsed":    now.Sub(sl.sentAt),
		}).Warn("field request timed out")
		s.abandon(sl, true)
		sl.lastUpdate = now
		sl.lastErr = ErrTimeout
	}
}

func (s *Scheduler) due(sl *slot, now time.Time) bool {
	if !sl.cfg.Enabled || !sl.dirty || sl.phase != Idle {
		return false
	}
	// refused dispatches never produce an update
	last := sl.lastUpdate
	if sl.lastDispatch.After(last) {
		last = sl.lastDispatch
	}
	return last.IsZero() || now.Sub(last) >= sl.cfg.Interval
}

func (s *Scheduler) dispatch(sl *slot, now time.Time) {
	sl.phase = Dispatching
	req, ok := s.build(sl.kind)
	if !ok {
		sl.generation++
		sl.result = field.EmptyResult(sl.kind, sl.generation)
		sl.hasResult = true
		sl.lastUpdate = now
		sl.dirty = false
		sl.phase = Idle
		return
	}

	log := s.log.WithField("kind", sl.kind.String())
	sl.lastDispatch = now
	if sl.dispatcher == nil {
		sl.phase = Idle
		sl.lastErr = ErrNoDispatcher
		log.Warn("no dispatcher configured")
		return
	}

	sl.generation++
	req.Kind = sl.kind
	req.Generation = sl.generation

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if sl.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(s.ctx, sl.cfg.Timeout)
	} else {
		ctx, cancel = context.WithCancel(s.ctx)
	}

	sl.sentAt = now
	sl.sentEpoch = sl.epoch
	if err := sl.dispatcher.Dispatch(ctx, req, s.deliver); err != nil {
		cancel()
		sl.phase = Idle
		sl.lastErr = err
		log.WithError(err).WithField("generation", req.Generation).Warn("field dispatch failed")
		s.stats.ObserveFailure(sl.kind.String(), false)
		return
	}

	sl.cancel = cancel
	sl.inflight = req.Generation
	sl.phase = AwaitingResult
	log.WithField("generation", req.Generation).Debug("field request dispatched")
	s.stats.ObserveDispatch(sl.kind.String())
}

// abandon drops the outstanding request of sl, if any. Its eventual
// response no longer matches and is discarded.
func (s *Scheduler) abandon(sl *slot, timeout bool) {
	if sl.phase != AwaitingResult {
		return
	}
	sl.cancel()
	sl.cancel = nil
	sl.phase = Idle
	sl.inflight = 0
	s.stats.ObserveAbandon(sl.kind.String(), timeout)
}

func (s *Scheduler) MarkDirty(kinds ...Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range kinds {
		if sl := s.slots[k]; sl != nil {
			sl.dirty = true
			sl.epoch++
		}
	}
}

func (s *Scheduler) MarkAllDirty() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sl := range s.slots {
		sl.dirty = true
		sl.epoch++
	}
}

// Reset forgets the stored result of kind and any request in flight for it,
// then marks it dirty. Used when the query target itself changes.
func (s *Scheduler) Reset(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[kind]
	if sl == nil {
		return
	}
	s.abandon(sl, false)
	sl.generation++
	sl.result = field.Result{}
	sl.hasResult = false
	sl.dirty = true
	sl.epoch++
}

func (s *Scheduler) SetEnabled(kind Kind, enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[kind]
	if sl == nil || sl.cfg.Enabled == enabled {
		return
	}
	sl.cfg.Enabled = enabled
	if enabled {
		sl.dirty = true
		sl.epoch++
		return
	}
	s.abandon(sl, false)
	sl.generation++
	sl.result = field.Result{}
	sl.hasResult = false
}

func (s *Scheduler) Enabled(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[kind]
	return sl != nil && sl.cfg.Enabled
}

// Latest returns the most recently accepted result for kind. Disabled kinds
// report nothing.
func (s *Scheduler) Latest(kind Kind) (field.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[kind]
	if sl == nil || !sl.cfg.Enabled || !sl.hasResult {
		return field.Result{}, false
	}
	return sl.result, true
}

func (s *Scheduler) State(kind Kind) SlotState {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slots[kind]
	if sl == nil {
		return SlotState{Kind: kind}
	}
	return SlotState{
		Kind:         kind,
		Enabled:      sl.cfg.Enabled,
		Phase:        sl.phase,
		Dirty:        sl.dirty,
		Generation:   sl.generation,
		HasResult:    sl.hasResult,
		LastDispatch: sl.lastDispatch,
		LastUpdate:   sl.lastUpdate,
		LastError:    sl.lastErr,
	}
}
