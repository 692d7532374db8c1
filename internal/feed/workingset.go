package feed

import (
	"context"
	"sync"
	"time"

	"bloodlink/pkg/types"

	"github.com/sirupsen/logrus"
)

// Subscriber is the subscribe half of Feed.
type Subscriber interface {
	Subscribe() (<-chan []*types.Donor, func())
}

// WorkingSet is the current donor collection for matching. It becomes ready on
// the first of: a feed delivery, the initial fetch completing (successfully or
// not), or the fallback timeout. Every delivery after that replaces the
// collection wholesale.
type WorkingSet struct {
	logger *logrus.Logger

	// changeMu orders each replacement together with its listener calls
	changeMu sync.Mutex

	mu          sync.RWMutex
	donors      []*types.Donor
	err         error
	established bool
	listeners   []func([]*types.Donor)

	ready     chan struct{}
	readyOnce sync.Once

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorkingSet(ctx context.Context, loader Loader, sub Subscriber, fallback time.Duration, logger *logrus.Logger) *WorkingSet {
	ctx, cancel := context.WithCancel(ctx)

	ws := &WorkingSet{
		logger: logger,
		donors: []*types.Donor{},
		ready:  make(chan struct{}),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	updates, unsubscribe := sub.Subscribe()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		ws.fetch(ctx, loader)
	}()
	go func() {
		defer wg.Done()
		defer unsubscribe()
		ws.consume(ctx, updates, fallback)
	}()
	go func() {
		wg.Wait()
		close(ws.done)
	}()

	return ws
}

func (ws *WorkingSet) fetch(ctx context.Context, loader Loader) {
	donors, err := loader.AllDonors(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		ws.logger.WithError(err).Error("initial donor fetch failed")
		ws.mu.Lock()
		if !ws.established {
			ws.err = err
		}
		ws.mu.Unlock()
		// readers see the error instead of waiting out the fallback
		ws.markReady()
		return
	}

	// a feed delivery that already landed is newer than this fetch
	ws.replace(donors, true)
}

func (ws *WorkingSet) consume(ctx context.Context, updates <-chan []*types.Donor, fallback time.Duration) {
	timer := time.NewTimer(fallback)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if !ws.Ready() {
				ws.logger.WithField("timeout", fallback).Warn("donor feed slow, using current working set")
				ws.markReady()
			}
		case donors, ok := <-updates:
			if !ok {
				return
			}
			ws.replace(donors, false)
		}
	}
}

func (ws *WorkingSet) replace(donors []*types.Donor, onlyIfFirst bool) {
	if donors == nil {
		donors = []*types.Donor{}
	}

	ws.changeMu.Lock()
	defer ws.changeMu.Unlock()

	ws.mu.Lock()
	if onlyIfFirst && ws.established {
		ws.mu.Unlock()
		return
	}
	ws.donors = donors
	ws.err = nil
	ws.established = true
	listeners := append([]func([]*types.Donor){}, ws.listeners...)
	ws.mu.Unlock()

	ws.markReady()

	for _, fn := range listeners {
		fn(donors)
	}
}

func (ws *WorkingSet) markReady() {
	ws.readyOnce.Do(func() { close(ws.ready) })
}

// Ready reports whether Wait would return immediately.
func (ws *WorkingSet) Ready() bool {
	select {
	case <-ws.ready:
		return true
	default:
		return false
	}
}

// Wait blocks until the working set is established or ctx is done.
func (ws *WorkingSet) Wait(ctx context.Context) error {
	select {
	case <-ws.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Donors returns the current collection, never nil.
func (ws *WorkingSet) Donors() []*types.Donor {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.donors
}

// Err reports the last fetch failure; it clears once a collection arrives.
func (ws *WorkingSet) Err() error {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.err
}

// OnChange registers fn to run after every replacement. Calls arrive one at a
// time in replacement order.
func (ws *WorkingSet) OnChange(fn func([]*types.Donor)) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	ws.listeners = append(ws.listeners, fn)
}

// Close unsubscribes from the feed and waits for background work to stop.
func (ws *WorkingSet) Close() {
	ws.cancel()
	<-ws.done
}
