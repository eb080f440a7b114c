// Package poller refreshes a view's data on a fixed interval while the view
// is active.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ray-remotestate/preorder/client"
)

const (
	VendorDashboardInterval  = 10 * time.Second
	ConsumerTrackingInterval = 20 * time.Second
)

type Option[T any] func(*Poller[T])

// WithOnUpdate is called with every successful fetch.
func WithOnUpdate[T any](fn func(T)) Option[T] {
	return func(p *Poller[T]) { p.onUpdate = fn }
}

// WithOnError is called for failures other than client.ErrUnauthorized. The
// last good value is kept and the next tick retries.
func WithOnError[T any](fn func(error)) Option[T] {
	return func(p *Poller[T]) { p.onError = fn }
}

// WithOnUnauthorized is called once when a fetch fails with
// client.ErrUnauthorized; polling stops afterwards. It must not call Stop.
func WithOnUnauthorized[T any](fn func()) Option[T] {
	return func(p *Poller[T]) { p.onUnauthorized = fn }
}

// Poller runs fetch once on Start and then once per interval until Stop.
// A tick that finds the previous fetch still running is skipped.
type Poller[T any] struct {
	interval time.Duration
	fetch    func(context.Context) (T, error)

	onUpdate       func(T)
	onError        func(error)
	onUnauthorized func()

	inFlight atomic.Bool

	mu      sync.RWMutex
	last    T
	hasLast bool

	runMu  sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New[T any](interval time.Duration, fetch func(context.Context) (T, error), opts ...Option[T]) *Poller[T] {
	p := &Poller[T]{
		interval: interval,
		fetch:    fetch,
		onError: func(err error) {
			logrus.WithError(err).Warn("poll failed, keeping last state")
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling. It is a no-op while the poller is already started;
// call Stop before starting it again.
func (p *Poller[T]) Start(ctx context.Context) {
	p.runMu.Lock()
	defer p.runMu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		p.poll(ctx, cancel)
		for {
			select {
			case <-ticker.C:
				p.poll(ctx, cancel)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the timer and any in-flight fetch, and waits for them to
// finish. No hook runs after Stop returns.
func (p *Poller[T]) Stop() {
	p.runMu.Lock()
	cancel := p.cancel
	p.cancel = nil
	p.runMu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

// Last returns the most recent successful fetch.
func (p *Poller[T]) Last() (T, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.hasLast
}

func (p *Poller[T]) poll(ctx context.Context, stop context.CancelFunc) {
	if !p.inFlight.CompareAndSwap(false, true) {
		logrus.Debug("previous poll still running, skipping tick")
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)

		v, err := p.fetch(ctx)
		if ctx.Err() != nil {
			return
		}

		switch {
		case errors.Is(err, client.ErrUnauthorized):
			stop()
			if p.onUnauthorized != nil {
				p.onUnauthorized()
			}
		case err != nil:
			if p.onError != nil {
				p.onError(err)
			}
		default:
			p.mu.Lock()
			p.last, p.hasLast = v, true
			p.mu.Unlock()
			if p.onUpdate != nil {
				p.onUpdate(v)
			}
		}
	}()
}
