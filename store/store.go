package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/lockard-llc/lockard-site/model"
	"github.com/lockard-llc/lockard-site/source"
	"github.com/sirupsen/logrus"
)

const (
	DefaultFetchTimeout         = 60 * time.Second
	DefaultMinimumFetchInterval = 5 * time.Minute
)

// Listener is called with every snapshot the store swaps in.
type Listener func(model.Snapshot)

// Store holds the active configuration snapshot backed by a remote
// repository. Reads always observe one complete snapshot.
type Store struct {
	Repository           source.Repository
	FetchTimeout         time.Duration
	MinimumFetchInterval time.Duration
	Cache                Cache

	current   atomic.Pointer[model.Snapshot]
	fetchedAt atomic.Int64

	mu        sync.Mutex
	listeners []Listener

	now func() time.Time
}

// New creates a store whose current snapshot is the static defaults.
func New(repository source.Repository) *Store {
	s := &Store{
		Repository:           repository,
		FetchTimeout:         DefaultFetchTimeout,
		MinimumFetchInterval: DefaultMinimumFetchInterval,
		now:                  time.Now,
	}
	defaults := model.Defaults()
	s.current.Store(&defaults)
	return s
}

// ErrThrottled is returned by FetchAndActivate when the last successful
// fetch started within MinimumFetchInterval. The activated values stand.
var ErrThrottled = errors.New("remote config fetched recently")

// fetchSlack absorbs ticker jitter, so a caller polling at exactly
// MinimumFetchInterval is not throttled on alternate calls.
const fetchSlack = time.Second

// FetchAndActivate refreshes the repository. A call within
// MinimumFetchInterval of the start of the last successful fetch returns
// ErrThrottled. On failure the current snapshot remains authoritative and
// the error is a *source.FetchError.
func (s *Store) FetchAndActivate(ctx context.Context) error {
	if s.throttled() {
		logrus.Debug("remote config fetched recently, using activated values")
		return ErrThrottled
	}

	if s.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.FetchTimeout)
		defer cancel()
	}
	started := s.now()
	if err := s.Repository.Refresh(ctx); err != nil {
		return &source.FetchError{Source: s.Repository.GetName(), Err: err}
	}
	s.fetchedAt.Store(started.UnixNano())
	return nil
}

func (s *Store) throttled() bool {
	last := s.fetchedAt.Load()
	if last == 0 || s.MinimumFetchInterval <= 0 {
		return false
	}
	window := s.MinimumFetchInterval - min(fetchSlack, s.MinimumFetchInterval/10)
	return s.now().Sub(time.Unix(0, last)) < window
}

// Load builds a snapshot from the repository data, filling every schema key
// the repository lacks (or holds empty or unparsable) with its default, and
// swaps it in.
func (s *Store) Load() model.Snapshot {
	values := make(map[model.Key]model.Value, len(model.Schema))
	for _, d := range model.Schema {
		raw, ok := s.lookup(d.Key)
		if !ok || raw == "" {
			continue
		}
		v, err := model.Parse(d.Kind, raw)
		if err != nil {
			logrus.WithError(err).WithField("key", d.Key).Warn("invalid remote config value, using default")
			continue
		}
		values[d.Key] = v
	}
	snap := s.activate(values)
	if s.Cache != nil {
		if err := s.Cache.Save(context.Background(), snap.Raw()); err != nil {
			logrus.WithError(err).Warn("error caching activated config")
		}
	}
	return snap
}

// Restore seeds the current snapshot from the cache, so a restart that
// cannot reach the repository serves the last activated values instead of
// the static defaults.
func (s *Store) Restore(ctx context.Context) (bool, error) {
	if s.Cache == nil {
		return false, nil
	}
	raw, err := s.Cache.Load(ctx)
	if err != nil {
		return false, err
	}
	if len(raw) == 0 {
		return false, nil
	}
	values := make(map[model.Key]model.Value, len(raw))
	for _, d := range model.Schema {
		r, ok := raw[string(d.Key)]
		if !ok || r == "" {
			continue
		}
		v, err := model.Parse(d.Kind, r)
		if err != nil {
			continue
		}
		values[d.Key] = v
	}
	s.activate(values)
	return true, nil
}

func (s *Store) activate(values map[model.Key]model.Value) model.Snapshot {
	prev := s.current.Load()
	snap := model.NewSnapshot(prev.Version()+1, values)
	s.current.Store(&snap)

	s.mu.Lock()
	listeners := append([]Listener(nil), s.listeners...)
	s.mu.Unlock()
	for _, l := range listeners {
		l(snap)
	}
	return snap
}

func (s *Store) lookup(key model.Key) (string, bool) {
	if s.Repository == nil {
		return "", false
	}
	v, ok := s.Repository.GetData(string(key))
	if !ok || v == nil {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	default:
		return fmt.Sprint(t), true
	}
}

// Snapshot returns the current snapshot.
func (s *Store) Snapshot() model.Snapshot {
	return *s.current.Load()
}

// Get returns the current value of key, or its static default.
func (s *Store) Get(key model.Key) model.Value {
	return s.current.Load().Get(key)
}

func (s *Store) GetString(key model.Key) string { return s.Get(key).String() }

func (s *Store) GetBool(key model.Key) bool { return s.Get(key).Bool() }

// Variant returns the A/B variant configured for test, "default" when unset.
func (s *Store) Variant(test string) string {
	v, ok := s.current.Load().Lookup(model.Key(test + "_variant"))
	if !ok || v.IsEmpty() {
		return "default"
	}
	return v.String()
}

// OnChange registers fn to be called after every swap.
func (s *Store) OnChange(fn Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// LastFetch returns the start time of the last successful fetch.
func (s *Store) LastFetch() time.Time {
	n := s.fetchedAt.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Expire forgets the last fetch time so the next FetchAndActivate reaches
// the repository regardless of MinimumFetchInterval.
func (s *Store) Expire() {
	s.fetchedAt.Store(0)
}
