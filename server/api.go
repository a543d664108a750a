package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lockard-llc/lockard-site/ai"
	"github.com/lockard-llc/lockard-site/analytics"
	"github.com/lockard-llc/lockard-site/feedback"
	"github.com/lockard-llc/lockard-site/recaptcha"
	"github.com/sirupsen/logrus"
)

const (
	ContactAction       = "contact_form"
	ContactEvent        = "contact_form_submitted"
	FeedbackEvent       = "feedback_submitted"
	contactThanks       = "Thank you for your message. We will get back to you soon."
	feedbackThanks      = "Thank you for your feedback."
	maxRating           = 5
	maxRequestBody      = 1 << 20
	maxMessageLength    = 5000
	contactPreviewRunes = 100
)

type failure struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func fail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, failure{Error: msg})
}

type eventRequest struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params"`
}

// handleEvent accepts a client-side analytics event. Delivery is
// asynchronous and subject to the tracking flags.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		fail(w, http.StatusBadRequest, "event name is required")
		return
	}
	if s.Tracker != nil {
		s.Tracker.Track(r.Context(), req.Name, req.Params)
	}
	writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// problem returns the message shown for an incomplete form, or "".
func (c contactRequest) problem() string {
	if strings.TrimSpace(c.Name) == "" || strings.TrimSpace(c.Email) == "" || strings.TrimSpace(c.Message) == "" {
		return "Name, email, and message are required"
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return "A valid email address is required"
	}
	if utf8.RuneCountInString(c.Message) > maxMessageLength {
		return "Message is too long"
	}
	return ""
}

func preview(s string) string {
	if utf8.RuneCountInString(s) <= contactPreviewRunes {
		return s
	}
	return string([]rune(s)[:contactPreviewRunes]) + "..."
}

// contactHandler validates the form fields before the reCAPTCHA check, so
// an incomplete form never costs an assessment.
func (s *Server) contactHandler() http.Handler {
	var verified http.Handler = http.HandlerFunc(s.handleContact)
	if s.Verifier != nil {
		verified = recaptcha.Middleware(s.Verifier, ContactAction, s.MinScore)(verified)
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.Verifier == nil {
			fail(w, http.StatusServiceUnavailable, "reCAPTCHA is not configured")
			return
		}
		body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
		if err != nil {
			fail(w, http.StatusBadRequest, "error reading request body")
			return
		}
		var req contactRequest
		if err := json.Unmarshal(body, &req); err != nil {
			fail(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if msg := req.problem(); msg != "" {
			fail(w, http.StatusBadRequest, msg)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
		verified.ServeHTTP(w, r)
	})
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	result, _ := recaptcha.FromContext(r.Context())

	logrus.WithFields(logrus.Fields{
		"name":            req.Name,
		"email":           req.Email,
		"message":         preview(req.Message),
		"recaptcha_score": result.Score,
	}).Info("contact form submitted")
	if s.Tracker != nil {
		s.Tracker.Track(r.Context(), ContactEvent, map[string]interface{}{
			"recaptcha_score": result.Score,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":         true,
		"message":         contactThanks,
		"recaptcha_score": result.Score,
	})
}

type feedbackRequest struct {
	Message string `json:"message"`
	Rating  int    `json:"rating"`
	Page    string `json:"page"`
}

func (f feedbackRequest) problem() string {
	if strings.TrimSpace(f.Message) == "" && f.Rating == 0 {
		return "Feedback message or rating is required"
	}
	if f.Rating < 0 || f.Rating > maxRating {
		return "Rating must be between 1 and 5"
	}
	if utf8.RuneCountInString(f.Message) > maxMessageLength {
		return "Message is too long"
	}
	return ""
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.Feedback == nil {
		fail(w, http.StatusServiceUnavailable, "feedback is not configured")
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBody)).Decode(&req); err != nil {
		fail(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if msg := req.problem(); msg != "" {
		fail(w, http.StatusBadRequest, msg)
		return
	}
	if req.Page == "" {
		req.Page = r.Referer()
	}
	session, _ := analytics.SessionFrom(r.Context())
	entry := feedback.Entry{
		Message:   strings.TrimSpace(req.Message),
		Rating:    req.Rating,
		Page:      req.Page,
		SessionID: session,
		Timestamp: time.Now(),
	}
	if err := s.Feedback.Save(r.Context(), entry); err != nil {
		logrus.WithError(err).Error("error storing feedback")
		fail(w, http.StatusInternalServerError, "error storing feedback")
		return
	}
	if s.Tracker != nil {
		params := map[string]interface{}{"has_message": entry.Message != ""}
		if entry.Rating > 0 {
			params["rating"] = entry.Rating
		}
		s.Tracker.Track(r.Context(), FeedbackEvent, params)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": feedbackThanks,
	})
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if s.Generator == nil {
		fail(w, http.StatusServiceUnavailable, "AI features are not configured")
		return
	}
	out, err := s.Generator.Generate(r.Context(), r.PathValue("feature"))
	switch {
	case errors.Is(err, ai.ErrUnknownFeature):
		fail(w, http.StatusNotFound, "unknown feature")
		return
	case errors.Is(err, ai.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		fail(w, http.StatusTooManyRequests, "Rate limit exceeded. Please wait before making more requests.")
		return
	case err != nil:
		logrus.WithError(err).Error("error generating content")
		fail(w, http.StatusBadGateway, "generation failed")
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRefresh runs a refresh cycle now, bypassing the minimum fetch
// interval.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.Scheduler.RefreshNow(r.Context()) {
		fail(w, http.StatusConflict, "refresh already in progress")
		return
	}
	writeJSON(w, http.StatusOK, s.Status())
}
