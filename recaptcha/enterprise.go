// Package recaptcha scores form submissions with reCAPTCHA Enterprise.
package recaptcha

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/lockard-llc/lockard-site/httpclient"
	"golang.org/x/oauth2/google"
)

const (
	DefaultEndpoint = "https://recaptchaenterprise.googleapis.com"
	cloudScope      = "https://www.googleapis.com/auth/cloud-platform"
)

// Assessment is the part of an assessment response the verifier uses.
type Assessment struct {
	Valid         bool
	InvalidReason string
	Action        string
	Score         float64
	Reasons       []string
}

// Assessor creates risk assessments for client tokens.
type Assessor interface {
	CreateAssessment(ctx context.Context, token, action string) (*Assessment, error)
}

// EnterpriseClient calls the reCAPTCHA Enterprise REST API. Requests are
// authorized with APIKey when set, otherwise with application default
// credentials.
type EnterpriseClient struct {
	ProjectID  string
	SiteKey    string
	APIKey     string
	Endpoint   string
	HTTPClient *http.Client

	once    sync.Once
	initErr error
}

type assessmentRequest struct {
	Event assessmentEvent `json:"event"`
}

type assessmentEvent struct {
	Token          string `json:"token"`
	SiteKey        string `json:"siteKey"`
	ExpectedAction string `json:"expectedAction,omitempty"`
}

type assessmentResponse struct {
	TokenProperties struct {
		Valid         bool   `json:"valid"`
		InvalidReason string `json:"invalidReason"`
		Action        string `json:"action"`
	} `json:"tokenProperties"`
	RiskAnalysis struct {
		Score   float64  `json:"score"`
		Reasons []string `json:"reasons"`
	} `json:"riskAnalysis"`
}

func (c *EnterpriseClient) init(ctx context.Context) error {
	c.once.Do(func() {
		if c.HTTPClient != nil {
			return
		}
		if c.APIKey != "" {
			c.HTTPClient = httpclient.New(httpclient.Options{
				Name:         "recaptcha",
				Timeout:      10 * time.Second,
				Retries:      2,
				RetryWaitMin: 100 * time.Millisecond,
				RetryWaitMax: time.Second,
			})
			return
		}
		c.HTTPClient, c.initErr = google.DefaultClient(ctx, cloudScope)
	})
	return c.initErr
}

func (c *EnterpriseClient) CreateAssessment(ctx context.Context, token, action string) (*Assessment, error) {
	if err := c.init(ctx); err != nil {
		return nil, fmt.Errorf("creating recaptcha client: %w", err)
	}

	body, err := json.Marshal(assessmentRequest{Event: assessmentEvent{
		Token:          token,
		SiteKey:        c.SiteKey,
		ExpectedAction: action,
	}})
	if err != nil {
		return nil, err
	}

	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	u := fmt.Sprintf("%s/v1/projects/%s/assessments", endpoint, url.PathEscape(c.ProjectID))
	if c.APIKey != "" {
		u += "?key=" + url.QueryEscape(c.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("assessment request returned %s: %s", resp.Status, bytes.TrimSpace(data))
	}

	var ar assessmentResponse
	if err := json.Unmarshal(data, &ar); err != nil {
		return nil, fmt.Errorf("decoding assessment: %w", err)
	}
	return &Assessment{
		Valid:         ar.TokenProperties.Valid,
		InvalidReason: ar.TokenProperties.InvalidReason,
		Action:        ar.TokenProperties.Action,
		Score:         ar.RiskAnalysis.Score,
		Reasons:       ar.RiskAnalysis.Reasons,
	}, nil
}
