package notify_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
	"github.com/vasiliy-maslov/rental-admin-console/internal/notify"
)

type counterFunc func(ctx context.Context) (int, error)

func (f counterFunc) UnreadCount(ctx context.Context) (int, error) { return f(ctx) }

func TestPoller_KeepsPreviousCountOnFailure(t *testing.T) {
	var calls atomic.Int32
	p := notify.NewPoller(counterFunc(func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 3, nil
		}
		return 0, errors.New("backend down")
	}), time.Hour)

	ctx := context.Background()
	p.Poll(ctx)
	assert.Equal(t, notify.Badge{Unread: 3, UpdatedAt: p.Badge().UpdatedAt}, p.Badge())

	p.Poll(ctx)
	badge := p.Badge()
	assert.Equal(t, 3, badge.Unread)
	assert.True(t, badge.Stale)
}

func TestPoller_RunTicksUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	p := notify.NewPoller(counterFunc(func(context.Context) (int, error) {
		return int(calls.Add(1)), nil
	}), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.Badge().Unread >= 3 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
}

func TestPoller_RunStopsOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	p := notify.NewPoller(counterFunc(func(context.Context) (int, error) {
		if calls.Add(1) == 1 {
			return 4, nil
		}
		return 0, &apiclient.APIError{Status: 401, Message: "token expired"}
	}), 10*time.Millisecond)

	done := make(chan struct{})
	go func() {
		p.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller kept running with a rejected token")
	}
	assert.Equal(t, int32(2), calls.Load())
	badge := p.Badge()
	assert.Equal(t, 4, badge.Unread)
	assert.True(t, badge.Stale)
}
