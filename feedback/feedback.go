// Package feedback records visitor feedback submitted from the site.
package feedback

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultStream = "lockard:user_feedback"

// Entry is one piece of feedback. Rating is zero when the visitor gave none.
type Entry struct {
	Message   string
	Rating    int
	Page      string
	SessionID string
	Timestamp time.Time
}

// Store persists feedback entries.
type Store interface {
	Save(ctx context.Context, e Entry) error
}

// RedisStore appends entries to a Redis stream.
type RedisStore struct {
	Client redis.UniversalClient
	Stream string
	MaxLen int64
}

func (s *RedisStore) Save(ctx context.Context, e Entry) error {
	stream := s.Stream
	if stream == "" {
		stream = DefaultStream
	}
	values := map[string]interface{}{
		"feedback":   e.Message,
		"page":       e.Page,
		"session_id": e.SessionID,
		"timestamp":  e.Timestamp.UTC().Format(time.RFC3339),
	}
	if e.Rating > 0 {
		values["rating"] = strconv.Itoa(e.Rating)
	}
	return s.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: s.MaxLen,
		Approx: s.MaxLen > 0,
		Values: values,
	}).Err()
}

// LogStore writes entries to the log only.
type LogStore struct{}

func (LogStore) Save(_ context.Context, e Entry) error {
	logrus.WithFields(logrus.Fields{
		"rating":     e.Rating,
		"page":       e.Page,
		"session_id": e.SessionID,
		"feedback":   e.Message,
	}).Info("feedback received")
	return nil
}
