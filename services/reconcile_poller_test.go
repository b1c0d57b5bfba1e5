package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
	err   error
}

func (s *countingSweeper) Sweep(_ context.Context) (SweepReport, error) {
	s.calls.Add(1)
	return SweepReport{Examined: 1, Repaired: 1}, s.err
}

func TestReconcilePoller_RunsUntilCancelled(t *testing.T) {
	sweeper := &countingSweeper{}
	poller := NewReconcilePoller(sweeper, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestReconcilePoller_SweepErrorKeepsRunning(t *testing.T) {
	sweeper := &countingSweeper{err: errors.New("db down")}
	poller := NewReconcilePoller(sweeper, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go poller.Run(ctx)

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
}
