package remote

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/san-kum/orbview/internal/bodies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySource struct {
	calls atomic.Int32
}

// every second state request fails
func (f *flakySource) State(context.Context) ([]bodies.Body, error) {
	if f.calls.Add(1)%2 == 0 {
		return nil, errors.New("connection refused")
	}
	return []bodies.Body{{Name: "Sun"}}, nil
}

func (f *flakySource) Time(context.Context) (SimTime, error) {
	return SimTime{Days: 3}, nil
}

func TestPollerDeliversSnapshots(t *testing.T) {
	src := &flakySource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Snapshot)
	done := make(chan struct{})
	go func() {
		NewPoller(src, time.Millisecond, time.Second).Run(ctx, out)
		close(done)
	}()

	first := <-out
	require.NoError(t, first.Err)
	assert.Equal(t, "Sun", first.Bodies[0].Name)
	assert.Equal(t, 3.0, first.Time.Days)

	second := <-out
	assert.Error(t, second.Err)
	assert.Empty(t, second.Bodies)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPollerWaitsForReader(t *testing.T) {
	src := &flakySource{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	out := make(chan Snapshot)
	go NewPoller(src, time.Millisecond, 0).Run(ctx, out)

	<-out
	require.Eventually(t, func() bool { return src.calls.Load() == 2 }, 5*time.Second, time.Millisecond)
	// the second snapshot is still unread, so no third poll
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(2), src.calls.Load())
}
