// Package notify polls the backend for the unread-notification badge.
package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vasiliy-maslov/rental-admin-console/internal/apiclient"
)

type Counter interface {
	UnreadCount(ctx context.Context) (int, error)
}

// Poller keeps the last successfully fetched unread count.
type Poller struct {
	counter  Counter
	interval time.Duration

	mu        sync.RWMutex
	count     int
	updatedAt time.Time
	lastErr   error
}

func NewPoller(counter Counter, interval time.Duration) *Poller {
	return &Poller{counter: counter, interval: interval}
}

// Run polls immediately and then on every tick until ctx is done or the
// backend rejects the session token. ctx must carry the operator session.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if p.unauthorized(p.Poll(ctx)) {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.unauthorized(p.Poll(ctx)) {
				return
			}
		}
	}
}

func (p *Poller) unauthorized(err error) bool {
	if !errors.Is(err, apiclient.ErrUnauthorized) {
		return false
	}
	log.Info().Msg("Session token rejected, badge polling stopped")
	return true
}

// Poll fetches once. A failure keeps the previous count.
func (p *Poller) Poll(ctx context.Context) error {
	n, err := p.counter.UnreadCount(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()
	if err != nil {
		if ctx.Err() == nil {
			log.Warn().Err(err).Msg("Failed to poll unread notifications")
		}
		p.lastErr = err
		return err
	}
	p.count = n
	p.updatedAt = time.Now()
	p.lastErr = nil
	return nil
}

type Badge struct {
	Unread    int       `json:"unread"`
	UpdatedAt time.Time `json:"updatedAt"`
	Stale     bool      `json:"stale"`
}

func (p *Poller) Badge() Badge {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return Badge{Unread: p.count, UpdatedAt: p.updatedAt, Stale: p.lastErr != nil}
}
