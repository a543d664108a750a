package analytics

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "lockard:analytics_events"

// RedisStreamSink appends events to a capped Redis stream for realtime
// consumers.
type RedisStreamSink struct {
	Client redis.UniversalClient
	Stream string
	MaxLen int64
}

func (s *RedisStreamSink) Name() string { return "redis" }

func (s *RedisStreamSink) Send(ctx context.Context, ev Event) error {
	params, err := json.Marshal(ev.Params)
	if err != nil {
		return err
	}
	stream := s.Stream
	if stream == "" {
		stream = DefaultStream
	}
	maxLen := s.MaxLen
	if maxLen == 0 {
		maxLen = 10000
	}
	return s.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		MaxLen: maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"event_name": ev.Name,
			"session_id": ev.SessionID,
			"timestamp":  ev.Timestamp.Format(time.RFC3339),
			"params":     string(params),
		},
	}).Err()
}
