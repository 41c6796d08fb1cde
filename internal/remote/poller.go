package remote

import (
	"context"
	"time"

	"github.com/san-kum/orbview/internal/bodies"
)

// StateSource is the part of the service a Poller reads.
type StateSource interface {
	State(ctx context.Context) ([]bodies.Body, error)
	Time(ctx context.Context) (SimTime, error)
}

// Snapshot is one poll of /state and /time. Err is set when the state
// could not be fetched; TimeErr alone leaves Bodies usable.
type Snapshot struct {
	Bodies  []bodies.Body
	Time    SimTime
	Err     error
	TimeErr error
}

// Poller fetches snapshots on a fixed interval, one request at a time.
type Poller struct {
	src      StateSource
	interval time.Duration
	timeout  time.Duration
}

func NewPoller(src StateSource, interval, timeout time.Duration) *Poller {
	return &Poller{src: src, interval: interval, timeout: timeout}
}

// Run polls until ctx is done. Each snapshot is handed to out before the
// next poll starts, so a slow reader slows the poller down instead of
// queueing stale state.
func (p *Poller) Run(ctx context.Context, out chan<- Snapshot) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		snap := p.poll(ctx)
		select {
		case out <- snap:
		case <-ctx.Done():
			return
		}
		timer.Reset(p.interval)
	}
}

func (p *Poller) poll(ctx context.Context) Snapshot {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	bs, err := p.src.State(ctx)
	if err != nil {
		return Snapshot{Err: err}
	}
	t, err := p.src.Time(ctx)
	return Snapshot{Bodies: bs, Time: t, TimeErr: err}
}
