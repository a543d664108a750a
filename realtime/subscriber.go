// Package realtime pushes remote config changes to the site between polls.
// A publisher announces a change on a Redis channel and every subscribed
// server runs a refresh cycle right away.
package realtime

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lockard-llc/lockard-site/model"
	"github.com/lockard-llc/lockard-site/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const DefaultChannel = "lockard:remote_config:updates"

// Refresher runs a refresh cycle outside the poll schedule.
type Refresher interface {
	RefreshNow(ctx context.Context) bool
}

// Subscriber refreshes on every notification while enable_realtime_sync is
// on in the active snapshot.
type Subscriber struct {
	Client    redis.UniversalClient
	Channel   string
	Refresher Refresher

	enabled atomic.Bool
}

// NewSubscriber follows the realtime sync flag of st.
func NewSubscriber(client redis.UniversalClient, channel string, refresher Refresher, st *store.Store) *Subscriber {
	if channel == "" {
		channel = DefaultChannel
	}
	s := &Subscriber{Client: client, Channel: channel, Refresher: refresher}
	s.enabled.Store(st.GetBool(model.EnableRealtimeSync))
	st.OnChange(s.observe)
	return s
}

func (s *Subscriber) observe(snap model.Snapshot) {
	on := snap.Bool(model.EnableRealtimeSync)
	if s.enabled.Swap(on) != on {
		logrus.WithField("enabled", on).Info("realtime config sync toggled")
	}
}

// Enabled reports whether notifications currently trigger a refresh.
func (s *Subscriber) Enabled() bool {
	return s.enabled.Load()
}

// Run listens on the channel until ctx ends.
func (s *Subscriber) Run(ctx context.Context) error {
	pubsub := s.Client.Subscribe(ctx, s.Channel)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.Channel, err)
	}
	logrus.WithField("channel", s.Channel).Info("listening for config updates")

	messages := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.Handle(ctx, msg.Payload)
		}
	}
}

// Handle reacts to one notification and reports whether a cycle ran.
func (s *Subscriber) Handle(ctx context.Context, payload string) bool {
	if !s.enabled.Load() {
		logrus.Debug("realtime config sync disabled, ignoring update")
		return false
	}
	logrus.WithField("payload", payload).Info("config update received, refreshing")
	if !s.Refresher.RefreshNow(ctx) {
		logrus.Debug("refresh already in flight, update folded into it")
		return false
	}
	return true
}

// Publish announces a config change to every subscriber.
func Publish(ctx context.Context, client redis.UniversalClient, channel, payload string) error {
	if channel == "" {
		channel = DefaultChannel
	}
	return client.Publish(ctx, channel, payload).Err()
}
