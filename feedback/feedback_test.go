package feedback

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestLogStore(t *testing.T) {
	if err := (LogStore{}).Save(context.Background(), Entry{Message: "Nice", Rating: 5}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	s := &RedisStore{Client: client, Stream: "lockard:test:" + t.Name()}
	defer client.Del(ctx, s.Stream)

	entries := []Entry{
		{Message: "Love the new colors", Rating: 4, Page: "/", SessionID: "s1", Timestamp: time.Now()},
		{Message: "No rating", Page: "/", Timestamp: time.Now()},
	}
	for _, e := range entries {
		if err := s.Save(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := client.XRange(ctx, s.Stream, "-", "+").Result()
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(msgs))
	}
	if msgs[0].Values["feedback"] != "Love the new colors" || msgs[0].Values["rating"] != "4" {
		t.Errorf("unexpected first entry %v", msgs[0].Values)
	}
	if _, ok := msgs[1].Values["rating"]; ok {
		t.Error("expected no rating field without a rating")
	}
}
