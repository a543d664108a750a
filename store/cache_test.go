package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

func TestRedisCache(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	cache, err := NewRedisCache(ctx, &redis.Options{Addr: addr}, "lockard:test:"+t.Name(), time.Minute)
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	defer cache.Client.Del(ctx, cache.Key)

	if err := cache.Save(ctx, map[string]string{"primary_color": "#000000", "cta_text": "Go"}); err != nil {
		t.Fatal(err)
	}
	if err := cache.Save(ctx, map[string]string{"primary_color": "#ffffff"}); err != nil {
		t.Fatal(err)
	}
	values, err := cache.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(values) != 1 || values["primary_color"] != "#ffffff" {
		t.Errorf("expected only the last saved values, got %v", values)
	}
}
