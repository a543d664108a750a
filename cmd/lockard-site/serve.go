package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lockard-llc/lockard-site/ai"
	"github.com/lockard-llc/lockard-site/analytics"
	"github.com/lockard-llc/lockard-site/config"
	"github.com/lockard-llc/lockard-site/feedback"
	"github.com/lockard-llc/lockard-site/logging"
	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/lockard-llc/lockard-site/page"
	"github.com/lockard-llc/lockard-site/realtime"
	"github.com/lockard-llc/lockard-site/recaptcha"
	"github.com/lockard-llc/lockard-site/scheduler"
	"github.com/lockard-llc/lockard-site/server"
	"github.com/lockard-llc/lockard-site/source"
	"github.com/lockard-llc/lockard-site/store"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the site and keep it in line with remote config",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		closer, err := logging.Setup(cfg.Logging)
		if err != nil {
			return err
		}
		defer closer.Close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg)
	},
}

func serve(ctx context.Context, cfg *config.Config) error {
	repo, err := source.New(cfg.Source)
	if err != nil {
		return fmt.Errorf("creating config source: %w", err)
	}
	st := store.New(repo)
	st.FetchTimeout = cfg.Refresh.FetchTimeout
	st.MinimumFetchInterval = cfg.Refresh.MinimumFetchInterval
	m := metrics.New()

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		cache, err := store.NewRedisCache(ctx, &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}, cfg.Redis.CacheKey, cfg.Redis.CacheTTL)
		if err != nil {
			logrus.WithError(err).Warn("continuing without redis")
		} else {
			defer cache.Close()
			st.Cache = cache
			rdb = cache.Client
			if ok, err := st.Restore(ctx); err != nil {
				logrus.WithError(err).Warn("error restoring cached config")
			} else if ok {
				logrus.Info("restored last activated config from redis")
			}
		}
	}

	tracker := newTracker(cfg, st, m, rdb)

	doc, err := loadTemplate(cfg.Server.Template)
	if err != nil {
		return err
	}
	live, err := page.NewLive(doc)
	if err != nil {
		return fmt.Errorf("rendering page: %w", err)
	}

	sched := scheduler.New(st, live, cfg.Refresh.Interval)
	sched.Tracker = tracker
	sched.Metrics = m

	srv := server.NewServer(ctx, sched)
	srv.Tracker = tracker
	srv.Metrics = m
	srv.AuthKey = cfg.Server.AuthKey
	srv.MinScore = cfg.Recaptcha.MinScore
	srv.Verifier = newVerifier(cfg, m)
	srv.Feedback = newFeedbackStore(cfg, rdb)
	if srv.Generator, err = newGenerator(ctx, cfg, tracker, m); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(cfg.Server.Addr)
	})
	if rdb != nil {
		sub := realtime.NewSubscriber(rdb, cfg.Redis.UpdatesChannel, sched, st)
		g.Go(func() error {
			if err := sub.Run(gctx); err != nil {
				logrus.WithError(err).Warn("realtime config sync stopped")
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if terr := tracker.Close(shutdownCtx); terr != nil {
			logrus.WithError(terr).Warn("analytics events were not flushed")
		}
		return err
	})
	return g.Wait()
}

func newFeedbackStore(cfg *config.Config, rdb *redis.Client) feedback.Store {
	if rdb == nil {
		return feedback.LogStore{}
	}
	return &feedback.RedisStore{Client: rdb, Stream: cfg.Redis.FeedbackStream, MaxLen: 100000}
}

func loadTemplate(path string) (*page.Document, error) {
	if path == "" {
		return page.Default()
	}
	doc, err := page.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading page template: %w", err)
	}
	return doc, nil
}

func newTracker(cfg *config.Config, st *store.Store, m *metrics.Metrics, rdb *redis.Client) *analytics.Tracker {
	sinks := analytics.MultiSink{analytics.LogSink{}}
	if cfg.Analytics.MeasurementID != "" {
		ga := analytics.NewMeasurementSink(cfg.Analytics.MeasurementID, cfg.Analytics.APISecret)
		if cfg.Analytics.Endpoint != "" {
			ga.Endpoint = cfg.Analytics.Endpoint
		}
		sinks = append(sinks, ga)
	}
	opts := analytics.Options{
		Flags:      st,
		Metrics:    m,
		BufferSize: cfg.Analytics.BufferSize,
	}
	if rdb != nil {
		opts.Realtime = &analytics.RedisStreamSink{Client: rdb, Stream: cfg.Redis.Stream}
	}
	return analytics.NewTracker(sinks, opts)
}

// newVerifier returns nil when neither a project nor a development debug
// token is configured, which disables the contact endpoint.
func newVerifier(cfg *config.Config, m *metrics.Metrics) *recaptcha.Verifier {
	rc := cfg.Recaptcha
	v := &recaptcha.Verifier{
		DebugToken:  rc.DebugToken,
		Development: cfg.Development(),
		Metrics:     m,
	}
	if rc.ProjectID != "" {
		v.Assessor = &recaptcha.EnterpriseClient{
			ProjectID: rc.ProjectID,
			SiteKey:   rc.SiteKey,
			APIKey:    rc.APIKey,
			Endpoint:  rc.Endpoint,
		}
	} else if rc.DebugToken == "" {
		logrus.Warn("recaptcha is not configured, contact form disabled")
		return nil
	}
	return v
}

func newGenerator(ctx context.Context, cfg *config.Config, tracker ai.EventTracker, m *metrics.Metrics) (*ai.Generator, error) {
	if cfg.AI.APIKey == "" {
		logrus.Info("no ai api key, ai features disabled")
		return nil, nil
	}
	client, err := ai.NewClient(ctx, cfg.AI.APIKey)
	if err != nil {
		return nil, err
	}
	gen := ai.NewGenerator(client.Models)
	gen.Models = ai.Models{
		Flash:    cfg.AI.FlashModel,
		Pro:      cfg.AI.ProModel,
		Fallback: cfg.AI.FallbackModel,
	}
	if rpm := cfg.AI.RequestsPerMinute; rpm > 0 {
		gen.Limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)
	}
	gen.Retries = cfg.AI.Retries
	gen.RetryDelay = cfg.AI.RetryDelay
	gen.Tracker = tracker
	gen.Metrics = m
	return gen, nil
}
