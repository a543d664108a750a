// Package ai generates text for the site's Gemini-backed features.
package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/microcosm-cc/bluemonday"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

const (
	DefaultFlashModel    = "gemini-2.5-flash"
	DefaultProModel      = "gemini-2.5-pro"
	DefaultFallbackModel = "gemini-1.5-flash"

	DefaultRequestsPerMinute = 15
	DefaultRetries           = 3
	DefaultRetryDelay        = time.Second
)

var (
	ErrUnknownFeature = errors.New("unknown ai feature")
	ErrRateLimited    = errors.New("ai rate limit exceeded")
	errEmptyResponse  = errors.New("model returned no text")
)

// ContentGenerator is the model call the generator needs. *genai.Models
// satisfies it.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// EventTracker records generation outcomes.
type EventTracker interface {
	Track(ctx context.Context, name string, params map[string]interface{})
}

// Models names the model for each tier.
type Models struct {
	Flash    string
	Pro      string
	Fallback string
}

// Output is a generated response.
type Output struct {
	Feature string `json:"feature"`
	Title   string `json:"title"`
	Model   string `json:"model"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Generator serves features from a content generator under a shared rate
// limit. A failing model is retried and then replaced by the fallback.
type Generator struct {
	Client     ContentGenerator
	Models     Models
	Limiter    *rate.Limiter
	Retries    uint64
	RetryDelay time.Duration
	Tracker    EventTracker
	Metrics    *metrics.Metrics

	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewGenerator returns a generator with the default models and limits.
func NewGenerator(client ContentGenerator) *Generator {
	return &Generator{
		Client: client,
		Models: Models{
			Flash:    DefaultFlashModel,
			Pro:      DefaultProModel,
			Fallback: DefaultFallbackModel,
		},
		Limiter:    rate.NewLimiter(rate.Every(time.Minute/DefaultRequestsPerMinute), DefaultRequestsPerMinute),
		Retries:    DefaultRetries,
		RetryDelay: DefaultRetryDelay,
		markdown:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:     bluemonday.UGCPolicy(),
	}
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GenAI API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

func generationConfig() *genai.GenerateContentConfig {
	block := genai.HarmBlockThresholdBlockMediumAndAbove
	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopK:            genai.Ptr[float32](40),
		TopP:            genai.Ptr[float32](0.95),
		MaxOutputTokens: 1024,
		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: block},
			{Category: genai.HarmCategoryHateSpeech, Threshold: block},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: block},
			{Category: genai.HarmCategoryDangerousContent, Threshold: block},
		},
	}
}

// Generate runs the feature's prompt.
func (g *Generator) Generate(ctx context.Context, featureID string) (*Output, error) {
	feature, ok := Lookup(featureID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFeature, featureID)
	}
	if g.Limiter != nil && !g.Limiter.Allow() {
		g.count(feature.ID, "rate_limited")
		return nil, ErrRateLimited
	}

	model := g.model(feature.Tier)
	text, err := g.generateWithRetry(ctx, model, feature.Prompt)
	if err != nil && g.Models.Fallback != "" && g.Models.Fallback != model && ctx.Err() == nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"feature":  feature.ID,
			"model":    model,
			"fallback": g.Models.Fallback,
		}).Warn("primary model failed, using fallback")
		model = g.Models.Fallback
		text, err = g.generate(ctx, model, feature.Prompt)
	}
	if err != nil {
		g.count(feature.ID, "error")
		g.track(ctx, "ai_"+feature.ID+"_error", map[string]interface{}{
			"feature": feature.ID,
			"success": false,
			"error":   err.Error(),
		})
		return nil, fmt.Errorf("generating %s: %w", feature.ID, err)
	}

	g.count(feature.ID, "success")
	g.track(ctx, "ai_"+feature.ID+"_generated", map[string]interface{}{
		"feature":         feature.ID,
		"model":           model,
		"success":         true,
		"response_length": len(text),
	})
	return &Output{
		Feature: feature.ID,
		Title:   feature.Title,
		Model:   model,
		Text:    text,
		HTML:    g.Render(text),
	}, nil
}

func (g *Generator) generateWithRetry(ctx context.Context, model, prompt string) (string, error) {
	var text string
	var b backoff.BackOff = backoff.NewConstantBackOff(g.RetryDelay)
	b = backoff.WithMaxRetries(b, g.Retries)
	err := backoff.Retry(func() error {
		var err error
		text, err = g.generate(ctx, model, prompt)
		if errors.Is(err, errEmptyResponse) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
	return text, err
}

func (g *Generator) generate(ctx context.Context, model, prompt string) (string, error) {
	resp, err := g.Client.GenerateContent(ctx, model, genai.Text(prompt), generationConfig())
	if err != nil {
		return "", err
	}
	text := responseText(resp)
	if strings.TrimSpace(text) == "" {
		return "", errEmptyResponse
	}
	return text, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && !part.Thought {
			sb.WriteString(part.Text)
		}
	}
	return sb.String()
}

// Render converts model markdown into sanitized HTML.
func (g *Generator) Render(text string) string {
	md := g.markdown
	if md == nil {
		md = goldmark.New(goldmark.WithExtensions(extension.GFM))
	}
	policy := g.policy
	if policy == nil {
		policy = bluemonday.UGCPolicy()
	}
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		return policy.Sanitize(text)
	}
	return policy.Sanitize(buf.String())
}

func (g *Generator) model(t Tier) string {
	switch t {
	case Pro:
		if g.Models.Pro != "" {
			return g.Models.Pro
		}
		return DefaultProModel
	default:
		if g.Models.Flash != "" {
			return g.Models.Flash
		}
		return DefaultFlashModel
	}
}

func (g *Generator) track(ctx context.Context, name string, params map[string]interface{}) {
	if g.Tracker != nil {
		g.Tracker.Track(ctx, name, params)
	}
}

func (g *Generator) count(feature, outcome string) {
	if g.Metrics != nil {
		g.Metrics.Generations.WithLabelValues(feature, outcome).Inc()
	}
}
