// Package scheduler runs the fetch, load and apply cycle that keeps the
// live page in line with remote configuration.
package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lockard-llc/lockard-site/flags"
	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/lockard-llc/lockard-site/model"
	"github.com/lockard-llc/lockard-site/page"
	"github.com/lockard-llc/lockard-site/store"
	"github.com/lockard-llc/lockard-site/theme"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultInterval = 300000 * time.Millisecond
	minInterval     = 5 * time.Second

	RefreshedEvent = "config_refreshed"
)

// State is the scheduler's position in a refresh cycle.
type State int32

const (
	Idle State = iota
	Fetching
	Applying
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Fetching:
		return "fetching"
	case Applying:
		return "applying"
	default:
		return "unknown"
	}
}

// Tracker records analytics events.
type Tracker interface {
	Track(ctx context.Context, name string, params map[string]interface{})
}

// Scheduler owns the refresh cycle. At most one cycle runs at a time.
type Scheduler struct {
	Store    *store.Store
	Live     *page.Live
	Interval time.Duration
	Tracker  Tracker
	Metrics  *metrics.Metrics

	Theme theme.Applier
	Flags flags.Gate

	sem     *semaphore.Weighted
	state   atomic.Int32
	applied atomic.Bool
	healthy atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New returns an idle scheduler.
func New(st *store.Store, live *page.Live, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if interval < minInterval {
		logrus.Warn("refresh interval too low, setting it to 5 seconds")
		interval = minInterval
	}
	return &Scheduler{
		Store:    st,
		Live:     live,
		Interval: interval,
		sem:      semaphore.NewWeighted(1),
	}
}

// Start runs one cycle and then refreshes on every tick until ctx ends or
// Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	s.Refresh(ctx)
	go s.refresh(ctx, done)
}

func (s *Scheduler) refresh(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Refresh(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the ticker and waits for the loop to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// State returns the current cycle state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Ready reports whether a snapshot has been applied to the page.
func (s *Scheduler) Ready() bool {
	return s.applied.Load()
}

// Healthy reports whether the last fetch succeeded.
func (s *Scheduler) Healthy() bool {
	return s.healthy.Load()
}

// Refresh runs one fetch, load and apply cycle. It returns false without
// doing anything when another cycle is in flight.
func (s *Scheduler) Refresh(ctx context.Context) bool {
	if !s.sem.TryAcquire(1) {
		logrus.Debug("refresh already in flight, skipping")
		if s.Metrics != nil {
			s.Metrics.RefreshSkipped.Inc()
		}
		return false
	}
	defer s.sem.Release(1)
	defer s.state.Store(int32(Idle))

	s.state.Store(int32(Fetching))
	var snap model.Snapshot
	result := "success"
	err := s.Store.FetchAndActivate(ctx)
	switch {
	case errors.Is(err, store.ErrThrottled):
		s.count("throttled")
		if s.applied.Load() {
			return true
		}
		result = "throttled"
		snap = s.Store.Snapshot()
	case err != nil:
		logrus.WithError(err).Error("error refreshing remote config")
		result = "fetch_error"
		s.healthy.Store(false)
		s.count(result)
		if s.applied.Load() {
			return true
		}
		// The page is themed even when the first fetch fails.
		snap = s.Store.Snapshot()
	default:
		s.healthy.Store(true)
		snap = s.Store.Load()
	}

	s.state.Store(int32(Applying))
	err = s.Live.Update(func(doc *page.Document) {
		s.Theme.Apply(doc, snap)
		s.Flags.Apply(doc, snap)
	})
	if err != nil {
		logrus.WithError(err).Error("error rendering page")
		s.count("render_error")
		return true
	}
	s.applied.Store(true)
	if result == "success" {
		s.count(result)
	}
	if s.Metrics != nil {
		s.Metrics.ConfigVersion.Set(float64(snap.Version()))
	}
	if s.Tracker != nil {
		s.Tracker.Track(ctx, RefreshedEvent, map[string]interface{}{
			"version": snap.Version(),
			"result":  result,
		})
	}
	return true
}

// RefreshNow runs a cycle that ignores the store's minimum fetch interval.
func (s *Scheduler) RefreshNow(ctx context.Context) bool {
	s.Store.Expire()
	return s.Refresh(ctx)
}

func (s *Scheduler) count(result string) {
	if s.Metrics != nil {
		s.Metrics.RefreshCycles.WithLabelValues(result).Inc()
	}
}
