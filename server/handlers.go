package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

const PageViewEvent = "page_view"

// Status is the body of GET /status.
type Status struct {
	Healthy      bool       `json:"healthy"`
	Ready        bool       `json:"ready"`
	State        string     `json:"state"`
	Version      uint64     `json:"version"`
	Source       string     `json:"source"`
	Renders      uint64     `json:"renders"`
	LastFetch    *time.Time `json:"last_fetch,omitempty"`
	LastFetchAgo string     `json:"last_fetch_ago,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(s.Scheduler.Live.Bytes()); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
	if r.Method != http.MethodGet || s.Tracker == nil {
		return
	}
	st := s.Scheduler.Store
	s.Tracker.Track(r.Context(), PageViewEvent, map[string]interface{}{
		"page_path":    r.URL.Path,
		"hero_variant": st.Variant("hero"),
		"cta_variant":  st.Variant("cta"),
	})
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	snap := s.Scheduler.Store.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": snap.Version(),
		"values":  snap.Raw(),
	})
}

// handleRawConfig serves the document last fetched from the source.
func (s *Server) handleRawConfig(w http.ResponseWriter, r *http.Request) {
	repo := s.Scheduler.Store.Repository
	if repo == nil {
		http.NotFound(w, r)
		return
	}
	raw := repo.GetRawData()
	if len(raw) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if _, err := w.Write(raw); err != nil {
		logrus.WithError(err).Error("error writing response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.IsHealthy() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if !s.IsReady() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Status())
}

// IsHealthy reports whether the last fetch reached the source.
func (s *Server) IsHealthy() bool {
	return s.Scheduler.Healthy()
}

// IsReady reports whether the page has been themed at least once.
func (s *Server) IsReady() bool {
	return s.Scheduler.Ready()
}

func (s *Server) Status() Status {
	st := s.Scheduler.Store
	status := Status{
		Healthy: s.IsHealthy(),
		Ready:   s.IsReady(),
		State:   s.Scheduler.State().String(),
		Version: st.Snapshot().Version(),
		Renders: s.Scheduler.Live.Renders(),
	}
	if st.Repository != nil {
		status.Source = st.Repository.GetName()
	}
	if last := st.LastFetch(); !last.IsZero() {
		status.LastFetch = &last
		status.LastFetchAgo = humanize.Time(last)
	}
	return status
}
