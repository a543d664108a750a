// Package httpclient builds the outbound http.Client used for vendor APIs:
// request logging, a circuit breaker and retries.
package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// Options configures New. Zero values disable the matching layer.
type Options struct {
	Name    string
	Timeout time.Duration

	// Retries is the number of retries after the first attempt.
	Retries      int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// TripAfter opens the circuit after this many consecutive failures.
	TripAfter        uint32
	OpenStateTimeout time.Duration
	HalfOpenRequests uint32

	Transport http.RoundTripper
}

// New returns a standard http.Client wrapping the configured layers.
func New(o Options) *http.Client {
	base := o.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	log := logrus.WithField("http_client", o.Name)

	var rt http.RoundTripper = &logRoundTripper{base: base, log: log}
	if o.TripAfter > 0 {
		rt = &circuitRoundTripper{
			base: rt,
			cb: gobreaker.NewCircuitBreaker(gobreaker.Settings{
				Name:        o.Name,
				MaxRequests: o.HalfOpenRequests,
				Timeout:     o.OpenStateTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= o.TripAfter
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					switch to {
					case gobreaker.StateOpen:
						log.Error("circuit has been opened")
					case gobreaker.StateHalfOpen:
						log.WithField("max_requests", o.HalfOpenRequests).Warn("circuit is half open")
					case gobreaker.StateClosed:
						log.Info("circuit has been closed")
					}
				},
			}),
		}
	}

	if o.Retries <= 0 {
		return &http.Client{Timeout: o.Timeout, Transport: rt}
	}
	rc := retryablehttp.Client{
		HTTPClient:   &http.Client{Timeout: o.Timeout, Transport: rt},
		Logger:       nil,
		RetryWaitMin: o.RetryWaitMin,
		RetryWaitMax: o.RetryWaitMax,
		RetryMax:     o.Retries,
		CheckRetry:   retryablehttp.DefaultRetryPolicy,
		Backoff:      retryablehttp.DefaultBackoff,
		ErrorHandler: retryablehttp.PassthroughErrorHandler,
	}
	return rc.StandardClient()
}

type logRoundTripper struct {
	base http.RoundTripper
	log  *logrus.Entry
}

func (rt *logRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := rt.base.RoundTrip(req)
	if err != nil {
		rt.log.WithError(err).WithField("host", req.URL.Host).Debug("request failed")
		return nil, err
	}
	rt.log.WithFields(logrus.Fields{
		"host":    req.URL.Host,
		"status":  resp.StatusCode,
		"latency": time.Since(start),
	}).Debug("response received")
	return resp, nil
}

// statusError marks a server side failure for the breaker while still
// handing the response back to the caller.
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d", e.code)
}

type circuitRoundTripper struct {
	base http.RoundTripper
	cb   *gobreaker.CircuitBreaker
}

func (rt *circuitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	var resp *http.Response
	_, err := rt.cb.Execute(func() (interface{}, error) {
		r, err := rt.base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		resp = r
		if r.StatusCode >= http.StatusInternalServerError {
			return r, statusError{code: r.StatusCode}
		}
		return r, nil
	})
	if resp != nil {
		return resp, nil
	}
	return nil, err
}
