package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orbview"

// Scheduler holds the field request collectors, labelled by kind. A nil
// *Scheduler is valid and records nothing.
type Scheduler struct {
	Dispatched *prometheus.CounterVec
	Accepted   *prometheus.CounterVec
	Discarded  *prometheus.CounterVec
	Failed     *prometheus.CounterVec
	Timeouts   *prometheus.CounterVec
	Inflight   *prometheus.GaugeVec
	Latency    *prometheus.HistogramVec
}

func NewScheduler(reg prometheus.Registerer) (*Scheduler, error) {
	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "field",
			Name:      name,
			Help:      help,
		}, []string{"kind"})
	}

	m := &Scheduler{
		Dispatched: counter("requests_dispatched_total", "Field requests handed to a dispatcher."),
		Accepted:   counter("requests_accepted_total", "Field responses stored as the latest result."),
		Discarded:  counter("requests_discarded_total", "Field responses dropped as stale."),
		Failed:     counter("requests_failed_total", "Field requests that returned an error."),
		Timeouts:   counter("requests_timeouts_total", "Field requests abandoned after the timeout."),
		Inflight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "field",
			Name:      "requests_inflight",
			Help:      "Field requests awaiting a response.",
		}, []string{"kind"}),
		Latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "field",
			Name:      "request_seconds",
			Help:      "Time from dispatch to accepted response.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"kind"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.Dispatched, m.Accepted, m.Discarded, m.Failed, m.Timeouts, m.Inflight, m.Latency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Scheduler) ObserveDispatch(kind string) {
	if m == nil {
		return
	}
	m.Dispatched.WithLabelValues(kind).Inc()
	m.Inflight.WithLabelValues(kind).Inc()
}

func (m *Scheduler) ObserveAccept(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Accepted.WithLabelValues(kind).Inc()
	m.Inflight.WithLabelValues(kind).Dec()
	m.Latency.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Scheduler) ObserveDiscard(kind string) {
	if m == nil {
		return
	}
	m.Discarded.WithLabelValues(kind).Inc()
}

func (m *Scheduler) ObserveFailure(kind string, inflight bool) {
	if m == nil {
		return
	}
	m.Failed.WithLabelValues(kind).Inc()
	if inflight {
		m.Inflight.WithLabelValues(kind).Dec()
	}
}

// ObserveAbandon records a request given up on without a response, either
// by timeout or by cancellation.
func (m *Scheduler) ObserveAbandon(kind string, timeout bool) {
	if m == nil {
		return
	}
	if timeout {
		m.Timeouts.WithLabelValues(kind).Inc()
	}
	m.Inflight.WithLabelValues(kind).Dec()
}
