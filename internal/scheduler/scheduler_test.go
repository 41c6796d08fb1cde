package scheduler_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/san-kum/orbview/internal/field"
	"github.com/san-kum/orbview/internal/logging"
	"github.com/san-kum/orbview/internal/metrics"
	"github.com/san-kum/orbview/internal/scheduler"
)

type call struct {
	req     scheduler.Request
	deliver func(scheduler.Response)
}

// fakeDispatcher records requests. In sync mode it answers before
// returning; otherwise the test delivers by hand.
type fakeDispatcher struct {
	sync    bool
	failErr error
	dispErr error
	calls   []call
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req scheduler.Request, deliver func(scheduler.Response)) error {
	if f.dispErr != nil {
		return f.dispErr
	}
	f.calls = append(f.calls, call{req: req, deliver: deliver})
	if f.sync {
		deliver(answer(req, f.failErr))
	}
	return nil
}

func answer(req scheduler.Request, err error) scheduler.Response {
	resp := scheduler.Response{Kind: req.Kind, Generation: req.Generation, Err: err}
	if err == nil {
		resp.Result = field.Result{Vectors: []field.Vector{{X: float64(req.Generation)}}}
	}
	return resp
}

func (f *fakeDispatcher) complete(i int) {
	c := f.calls[i]
	c.deliver(answer(c.req, nil))
}

var _ = Describe("Scheduler", func() {
	const (
		interval = 250 * time.Millisecond
		timeout  = 5 * time.Second
	)

	var (
		clock  *scheduler.ManualClock
		t0     time.Time
		disp   *fakeDispatcher
		stats  *metrics.Scheduler
		target string
		sched  *scheduler.Scheduler
	)

	build := func(kind scheduler.Kind) (scheduler.Request, bool) {
		if kind == scheduler.KindLagrange && target == "" {
			return scheduler.Request{}, false
		}
		return scheduler.Request{
			Grid:    field.Grid{XMax: 10, YMax: 10, Step: 1},
			Sources: []bodies.Source{{Mass: 1}},
			Target:  bodies.Body{Name: target},
		}, true
	}

	at := func(d time.Duration) {
		sched.Tick(clock.Advance(d))
	}

	BeforeEach(func() {
		t0 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		clock = scheduler.NewManualClock(t0)
		disp = &fakeDispatcher{}
		target = "Earth"

		var err error
		stats, err = metrics.NewScheduler(prometheus.NewRegistry())
		Expect(err).NotTo(HaveOccurred())

		sched = scheduler.New(build, map[scheduler.Kind]scheduler.KindConfig{
			scheduler.KindVector: {Enabled: true, Interval: interval, Timeout: timeout},
		}, scheduler.Options{Logger: logging.Discard(), Metrics: stats, Clock: clock})
		sched.SetDispatcher(scheduler.KindVector, disp)
	})

	AfterEach(func() {
		sched.Close()
	})

	Describe("rate limiting", func() {
		It("coalesces invalidations within one interval into a single dispatch", func() {
			disp.sync = true
			sched.Poll()
			Expect(disp.calls).To(HaveLen(1))

			sched.MarkDirty(scheduler.KindVector)
			at(10 * time.Millisecond)
			sched.MarkDirty(scheduler.KindVector)
			at(100 * time.Millisecond)
			Expect(disp.calls).To(HaveLen(1))

			// the interval runs from the accepted update at t0+10ms
			at(140 * time.Millisecond)
			Expect(disp.calls).To(HaveLen(1))
			at(10 * time.Millisecond)
			Expect(disp.calls).To(HaveLen(2))
		})

		It("waits a full interval after a slow response before dispatching again", func() {
			sched.Poll()
			sched.MarkDirty(scheduler.KindVector)

			disp.complete(0)
			at(400 * time.Millisecond)
			Expect(sched.State(scheduler.KindVector).Dirty).To(BeTrue())
			Expect(disp.calls).To(HaveLen(1))

			at(interval - time.Millisecond)
			Expect(disp.calls).To(HaveLen(1))
			at(time.Millisecond)
			Expect(disp.calls).To(HaveLen(2))
		})

		It("does not dispatch clean kinds", func() {
			disp.sync = true
			sched.Poll()
			at(time.Millisecond)
			at(time.Second)
			Expect(disp.calls).To(HaveLen(1))
			Expect(sched.State(scheduler.KindVector).Dirty).To(BeFalse())
		})
	})

	Describe("outstanding requests", func() {
		It("keeps at most one request in flight per kind", func() {
			sched.Poll()
			Expect(sched.State(scheduler.KindVector).Phase).To(Equal(scheduler.AwaitingResult))

			sched.MarkDirty(scheduler.KindVector)
			at(300 * time.Millisecond)
			at(300 * time.Millisecond)
			Expect(disp.calls).To(HaveLen(1))

			disp.complete(0)
			at(time.Millisecond)
			Expect(disp.calls).To(HaveLen(1))
			at(interval)
			Expect(disp.calls).To(HaveLen(2))
			Expect(disp.calls[1].req.Generation).To(BeNumerically(">", disp.calls[0].req.Generation))
		})

		It("shows a result but stays dirty when invalidated during flight", func() {
			sched.Poll()
			sched.MarkDirty(scheduler.KindVector)
			disp.complete(0)
			at(10 * time.Millisecond)

			res, ok := sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeTrue())
			Expect(res.Generation).To(Equal(uint64(1)))
			Expect(sched.State(scheduler.KindVector).Dirty).To(BeTrue())
		})

		It("clears dirty when nothing changed during flight", func() {
			sched.Poll()
			disp.complete(0)
			at(10 * time.Millisecond)

			st := sched.State(scheduler.KindVector)
			Expect(st.Dirty).To(BeFalse())
			Expect(st.Phase).To(Equal(scheduler.Idle))
			Expect(st.LastUpdate).To(Equal(t0.Add(10 * time.Millisecond)))
		})
	})

	Describe("stale responses", func() {
		BeforeEach(func() {
			sched.Poll()
			at(timeout)
			at(interval)
			Expect(disp.calls).To(HaveLen(2))
		})

		It("discards an older response that completes after a newer one", func() {
			disp.complete(1)
			disp.complete(0)
			at(time.Millisecond)

			res, ok := sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeTrue())
			Expect(res.Generation).To(Equal(uint64(2)))
			Expect(res.Vectors[0].X).To(Equal(2.0))
			Expect(testutil.ToFloat64(stats.Discarded.WithLabelValues("vector"))).To(Equal(1.0))
		})

		It("discards an older response that arrives while a newer one is in flight", func() {
			disp.complete(0)
			at(time.Millisecond)

			_, ok := sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeFalse())
			Expect(sched.State(scheduler.KindVector).Phase).To(Equal(scheduler.AwaitingResult))

			disp.complete(1)
			at(time.Millisecond)
			res, ok := sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeTrue())
			Expect(res.Generation).To(Equal(uint64(2)))
		})
	})

	Describe("timeouts", func() {
		It("returns a hung kind to idle while keeping it dirty", func() {
			sched.Poll()
			at(timeout - time.Millisecond)
			Expect(sched.State(scheduler.KindVector).Phase).To(Equal(scheduler.AwaitingResult))

			sched.SetDispatcher(scheduler.KindVector, &fakeDispatcher{dispErr: errors.New("offline")})
			at(time.Millisecond)

			st := sched.State(scheduler.KindVector)
			Expect(st.Phase).To(Equal(scheduler.Idle))
			Expect(st.Dirty).To(BeTrue())
			Expect(testutil.ToFloat64(stats.Timeouts.WithLabelValues("vector"))).To(Equal(1.0))
			Expect(testutil.ToFloat64(stats.Inflight.WithLabelValues("vector"))).To(Equal(0.0))
		})

		It("redispatches once the interval has passed", func() {
			sched.Poll()
			at(timeout)
			st := sched.State(scheduler.KindVector)
			Expect(disp.calls).To(HaveLen(1))
			Expect(st.LastError).To(MatchError(scheduler.ErrTimeout))
			Expect(st.LastUpdate).To(Equal(t0.Add(timeout)))

			at(interval)
			Expect(disp.calls).To(HaveLen(2))
			Expect(sched.State(scheduler.KindVector).Generation).To(Equal(uint64(2)))
		})
	})

	Describe("failures", func() {
		It("keeps the kind dirty after an error response", func() {
			disp.sync = true
			disp.failErr = errors.New("boom")
			sched.Poll()
			at(10 * time.Millisecond)

			st := sched.State(scheduler.KindVector)
			Expect(st.Phase).To(Equal(scheduler.Idle))
			Expect(st.Dirty).To(BeTrue())
			Expect(st.LastError).To(MatchError("boom"))
			Expect(st.LastUpdate).To(Equal(t0.Add(10 * time.Millisecond)))
			_, ok := sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeFalse())

			at(interval - time.Millisecond)
			Expect(disp.calls).To(HaveLen(1))
			at(time.Millisecond)
			Expect(disp.calls).To(HaveLen(2))
		})

		It("keeps the kind dirty when the dispatcher refuses", func() {
			disp.dispErr = errors.New("busy")
			sched.Poll()

			st := sched.State(scheduler.KindVector)
			Expect(st.Phase).To(Equal(scheduler.Idle))
			Expect(st.Dirty).To(BeTrue())
			Expect(testutil.ToFloat64(stats.Failed.WithLabelValues("vector"))).To(Equal(1.0))
		})

		It("reports a missing dispatcher", func() {
			s := scheduler.New(build, map[scheduler.Kind]scheduler.KindConfig{
				scheduler.KindHeatmap: {Enabled: true, Interval: interval},
			}, scheduler.Options{Logger: logging.Discard(), Clock: clock})
			defer s.Close()

			s.Poll()
			Expect(s.State(scheduler.KindHeatmap).LastError).To(MatchError(scheduler.ErrNoDispatcher))
		})
	})

	Describe("lagrange", func() {
		var lag *fakeDispatcher

		BeforeEach(func() {
			lag = &fakeDispatcher{}
			sched.Close()
			sched = scheduler.New(build, map[scheduler.Kind]scheduler.KindConfig{
				scheduler.KindLagrange: {Enabled: true, Interval: interval, Timeout: timeout},
			}, scheduler.Options{Logger: logging.Discard(), Clock: clock})
			sched.SetDispatcher(scheduler.KindLagrange, lag)
		})

		It("stores an explicit empty result when there is no target", func() {
			target = ""
			sched.Poll()

			Expect(lag.calls).To(BeEmpty())
			res, ok := sched.Latest(scheduler.KindLagrange)
			Expect(ok).To(BeTrue())
			Expect(res.Empty()).To(BeTrue())
			Expect(res.Kind).To(Equal(scheduler.KindLagrange))
			Expect(sched.State(scheduler.KindLagrange).Dirty).To(BeFalse())
		})

		It("drops the in-flight answer for a previous target on reset", func() {
			sched.Poll()
			Expect(lag.calls).To(HaveLen(1))

			target = "Mars"
			sched.Reset(scheduler.KindLagrange)
			lag.complete(0)
			at(interval)

			_, ok := sched.Latest(scheduler.KindLagrange)
			Expect(ok).To(BeFalse())
			Expect(lag.calls).To(HaveLen(2))
			Expect(lag.calls[1].req.Target.Name).To(Equal("Mars"))

			lag.complete(1)
			at(time.Millisecond)
			res, ok := sched.Latest(scheduler.KindLagrange)
			Expect(ok).To(BeTrue())
			Expect(res.Generation).To(Equal(lag.calls[1].req.Generation))
		})
	})

	Describe("enabling", func() {
		It("skips disabled kinds and hides their results", func() {
			disp.sync = true
			sched.Poll()
			at(time.Millisecond)
			_, ok := sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeTrue())

			sched.SetEnabled(scheduler.KindVector, false)
			_, ok = sched.Latest(scheduler.KindVector)
			Expect(ok).To(BeFalse())

			sched.MarkAllDirty()
			at(time.Second)
			Expect(disp.calls).To(HaveLen(1))

			sched.SetEnabled(scheduler.KindVector, true)
			Expect(sched.Enabled(scheduler.KindVector)).To(BeTrue())
			at(time.Millisecond)
			Expect(disp.calls).To(HaveLen(2))
		})
	})
})
