// Package analytics forwards named events to analytics sinks without ever
// blocking or failing the caller.
package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/lockard-llc/lockard-site/model"
	"github.com/sirupsen/logrus"
)

const (
	DefaultBufferSize  = 256
	DefaultSendTimeout = 10 * time.Second

	// PerformanceEvent is only tracked while performance tracking is on.
	PerformanceEvent = "performance_metrics"
)

// Flags reports boolean configuration values.
type Flags interface {
	GetBool(model.Key) bool
}

// Options configures a Tracker.
type Options struct {
	// Realtime receives a copy of each event while realtime analytics is
	// enabled.
	Realtime    Sink
	Flags       Flags
	Metrics     *metrics.Metrics
	BufferSize  int
	SendTimeout time.Duration
}

type envelope struct {
	ev       Event
	realtime bool
}

// Tracker queues events and delivers them from a single worker.
type Tracker struct {
	sink     Sink
	realtime Sink
	flags    Flags
	metrics  *metrics.Metrics
	timeout  time.Duration

	queue   chan envelope
	done    chan struct{}
	stopped chan struct{}
	close   sync.Once

	sessionOnce sync.Once
	session     string

	now func() time.Time
}

// NewTracker starts a tracker delivering to sink.
func NewTracker(sink Sink, o Options) *Tracker {
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.SendTimeout <= 0 {
		o.SendTimeout = DefaultSendTimeout
	}
	t := &Tracker{
		sink:     sink,
		realtime: o.Realtime,
		flags:    o.Flags,
		metrics:  o.Metrics,
		timeout:  o.SendTimeout,
		queue:    make(chan envelope, o.BufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		now:      time.Now,
	}
	go t.run()
	return t
}

// Track records an event. It attaches a timestamp and the session id from
// ctx (or the process session) and returns immediately. A full buffer
// drops the event.
func (t *Tracker) Track(ctx context.Context, name string, params map[string]interface{}) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("event", name).Errorf("analytics tracking panicked: %v", r)
			t.count("tracker", "panic")
		}
	}()

	if !t.enabled(model.TrackUserInteractions) {
		t.count("tracker", "disabled")
		return
	}
	if name == PerformanceEvent && !t.enabled(model.TrackPerformanceMetrics) {
		t.count("tracker", "disabled")
		return
	}

	ev := Event{
		Name:      name,
		SessionID: t.sessionID(ctx),
		Timestamp: t.now().UTC(),
		Params:    make(map[string]interface{}, len(params)+2),
	}
	for k, v := range params {
		ev.Params[k] = v
	}
	ev.Params["timestamp"] = ev.Timestamp.Format(time.RFC3339)
	ev.Params["session_id"] = ev.SessionID

	env := envelope{ev: ev, realtime: t.realtime != nil && t.enabled(model.RealtimeAnalyticsEnabled)}
	select {
	case <-t.done:
		t.count("tracker", "dropped")
	case t.queue <- env:
	default:
		logrus.WithField("event", name).Debug("analytics buffer full, dropping event")
		t.count("tracker", "dropped")
	}
}

// ProcessSessionID returns the session id used for events without a
// request session.
func (t *Tracker) ProcessSessionID() string {
	t.sessionOnce.Do(func() {
		t.session = uuid.NewString()
	})
	return t.session
}

func (t *Tracker) sessionID(ctx context.Context) string {
	if ctx != nil {
		if id, ok := SessionFrom(ctx); ok {
			return id
		}
	}
	return t.ProcessSessionID()
}

func (t *Tracker) enabled(key model.Key) bool {
	if t.flags == nil {
		return model.DefaultValue(key).Bool()
	}
	return t.flags.GetBool(key)
}

func (t *Tracker) run() {
	defer close(t.stopped)
	for {
		select {
		case env := <-t.queue:
			t.deliver(env)
		case <-t.done:
			for {
				select {
				case env := <-t.queue:
					t.deliver(env)
				default:
					return
				}
			}
		}
	}
}

func (t *Tracker) deliver(env envelope) {
	t.send(t.sink, env.ev)
	if env.realtime {
		t.send(t.realtime, env.ev)
	}
}

func (t *Tracker) send(sink Sink, ev Event) {
	if sink == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{"sink": sink.Name(), "event": ev.Name}).Errorf("analytics sink panicked: %v", r)
			t.count(sink.Name(), "panic")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()
	if err := sink.Send(ctx, ev); err != nil {
		logrus.WithError(&SinkError{Sink: sink.Name(), Event: ev.Name, Err: err}).Warn("analytics tracking failed")
		t.count(sink.Name(), "error")
		return
	}
	t.count(sink.Name(), "sent")
}

func (t *Tracker) count(sink, outcome string) {
	if t.metrics == nil {
		return
	}
	t.metrics.AnalyticsEvents.WithLabelValues(sink, outcome).Inc()
}

// Close stops accepting events and waits for queued ones to be delivered
// or for ctx to end.
func (t *Tracker) Close(ctx context.Context) error {
	t.close.Do(func() { close(t.done) })
	select {
	case <-t.stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("flushing analytics events: %w", ctx.Err())
	}
}
