package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-http-utils/etag"
	"github.com/lockard-llc/lockard-site/ai"
	"github.com/lockard-llc/lockard-site/analytics"
	"github.com/lockard-llc/lockard-site/feedback"
	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/lockard-llc/lockard-site/recaptcha"
	"github.com/lockard-llc/lockard-site/scheduler"
	"github.com/sirupsen/logrus"
)

// EventTracker records analytics events for page views and form
// submissions.
type EventTracker interface {
	Track(ctx context.Context, name string, params map[string]interface{})
}

type Server struct {
	Scheduler *scheduler.Scheduler
	Tracker   EventTracker
	Verifier  *recaptcha.Verifier
	Generator *ai.Generator
	Feedback  feedback.Store
	Metrics   *metrics.Metrics

	// AuthKey guards the admin endpoints. They are not served when empty.
	AuthKey  string
	MinScore float64

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer starts the scheduler, which applies the first snapshot before
// returning, and returns a server for it.
func NewServer(ctx context.Context, sched *scheduler.Scheduler) *Server {
	sched.Start(ctx)
	return &Server{
		Scheduler: sched,
		MinScore:  recaptcha.DefaultMinScore,
	}
}

func (s *Server) Stop() {
	s.Scheduler.Stop()
}

// Start listens on addr and serves until Shutdown.
func (s *Server) Start(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(l)
}

func (s *Server) Serve(l net.Listener) error {
	logrus.WithField("addr", l.Addr().String()).Info("Starting server")
	err := s.srv().Serve(l)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the refresh loop and drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Stop()
	return s.srv().Shutdown(ctx)
}

func (s *Server) srv() *http.Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.httpServer == nil {
		s.httpServer = &http.Server{
			Handler:           etag.Handler(s.CreateHandlers(), false),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}
	return s.httpServer
}

func (s *Server) CreateHandlers() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /{$}", analytics.SessionMiddleware(http.HandlerFunc(s.handlePage)))
	mux.HandleFunc("GET /config", s.handleConfig)
	mux.HandleFunc("GET /config/raw", s.handleRawConfig)

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)

	mux.Handle("POST /api/events", analytics.SessionMiddleware(http.HandlerFunc(s.handleEvent)))
	mux.Handle("POST /api/contact", analytics.SessionMiddleware(s.contactHandler()))
	mux.Handle("POST /api/feedback", analytics.SessionMiddleware(http.HandlerFunc(s.handleFeedback)))
	mux.Handle("POST /api/ai/{feature}", analytics.SessionMiddleware(http.HandlerFunc(s.handleGenerate)))

	if s.AuthKey != "" {
		mux.Handle("POST /admin/refresh", Auth(http.HandlerFunc(s.handleRefresh), s.AuthKey))
	}
	if s.Metrics != nil {
		mux.Handle("GET /metrics", s.Metrics.Handler())
	}
	return mux
}

func Auth(next http.Handler, authKey string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("X-API-KEY")
		if key == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		if subtle.ConstantTimeCompare([]byte(key), []byte(authKey)) != 1 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
