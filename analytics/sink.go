package analytics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Event is one tracked occurrence.
type Event struct {
	Name      string
	SessionID string
	Timestamp time.Time
	Params    map[string]interface{}
}

// Sink delivers events to an analytics backend.
type Sink interface {
	Name() string
	Send(ctx context.Context, ev Event) error
}

// SinkError wraps a failed delivery.
type SinkError struct {
	Sink  string
	Event string
	Err   error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sending event %s to %s: %v", e.Event, e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error {
	return e.Err
}

// LogSink writes events to the process log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Send(_ context.Context, ev Event) error {
	fields := logrus.Fields{
		"event":      ev.Name,
		"session_id": ev.SessionID,
	}
	for k, v := range ev.Params {
		if _, ok := fields[k]; !ok {
			fields[k] = v
		}
	}
	logrus.WithFields(fields).Info("analytics event")
	return nil
}

// MultiSink sends every event to each of its sinks.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Send(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Send(ctx, ev); err != nil {
			errs = append(errs, &SinkError{Sink: s.Name(), Event: ev.Name, Err: err})
		}
	}
	return errors.Join(errs...)
}
