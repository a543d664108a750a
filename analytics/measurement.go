package analytics

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lockard-llc/lockard-site/httpclient"
)

const DefaultMeasurementEndpoint = "https://www.google-analytics.com/mp/collect"

// MeasurementSink sends events to Google Analytics 4 through the
// Measurement Protocol.
type MeasurementSink struct {
	MeasurementID string
	APISecret     string
	Endpoint      string
	HTTPClient    *http.Client
}

// NewMeasurementSink returns a sink using a retrying client behind a
// circuit breaker.
func NewMeasurementSink(measurementID, apiSecret string) *MeasurementSink {
	return &MeasurementSink{
		MeasurementID: measurementID,
		APISecret:     apiSecret,
		Endpoint:      DefaultMeasurementEndpoint,
		HTTPClient: httpclient.New(httpclient.Options{
			Name:             "ga4",
			Timeout:          5 * time.Second,
			Retries:          2,
			RetryWaitMin:     200 * time.Millisecond,
			RetryWaitMax:     2 * time.Second,
			TripAfter:        5,
			OpenStateTimeout: time.Minute,
			HalfOpenRequests: 1,
		}),
	}
}

func (s *MeasurementSink) Name() string { return "ga4" }

type measurementEvent struct {
	Name   string                 `json:"name"`
	Params map[string]interface{} `json:"params,omitempty"`
}

type measurementPayload struct {
	ClientID        string             `json:"client_id"`
	TimestampMicros int64              `json:"timestamp_micros,omitempty"`
	Events          []measurementEvent `json:"events"`
}

func (s *MeasurementSink) Send(ctx context.Context, ev Event) error {
	payload := measurementPayload{
		ClientID:        ev.SessionID,
		TimestampMicros: ev.Timestamp.UnixMicro(),
		Events:          []measurementEvent{{Name: eventName(ev.Name), Params: ev.Params}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	endpoint := s.Endpoint
	if endpoint == "" {
		endpoint = DefaultMeasurementEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	q := u.Query()
	q.Set("measurement_id", s.MeasurementID)
	q.Set("api_secret", s.APISecret)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("measurement protocol returned %s", resp.Status)
	}
	return nil
}

// eventName maps a name onto the characters GA4 accepts.
func eventName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if len(name) > 40 {
		name = name[:40]
	}
	return name
}
