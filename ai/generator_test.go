package ai

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type mockClient struct {
	mu       sync.Mutex
	failures map[string]int
	text     string
	calls    []string
	configs  []*genai.GenerateContentConfig
}

func (m *mockClient) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, model)
	m.configs = append(m.configs, config)
	if m.failures[model] != 0 {
		if m.failures[model] > 0 {
			m.failures[model]--
		}
		return nil, errors.New("model unavailable")
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: genai.NewContentFromText(m.text, genai.RoleModel),
		}},
	}, nil
}

type mockTracker struct {
	mu     sync.Mutex
	events []string
}

func (m *mockTracker) Track(ctx context.Context, name string, params map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, name)
}

func newTestGenerator(client *mockClient) (*Generator, *mockTracker) {
	tracker := &mockTracker{}
	g := NewGenerator(client)
	g.RetryDelay = time.Millisecond
	g.Tracker = tracker
	return g, tracker
}

func TestGenerate(t *testing.T) {
	client := &mockClient{text: "## Insights\n\n1. **Listen** to users"}
	g, tracker := newTestGenerator(client)

	out, err := g.Generate(context.Background(), "research_insights")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Model != DefaultProModel {
		t.Errorf("expected pro model for research insights, got %s", out.Model)
	}
	if !strings.Contains(out.HTML, "<strong>Listen</strong>") || !strings.Contains(out.HTML, "<h2") {
		t.Errorf("expected rendered markdown, got %s", out.HTML)
	}
	if len(tracker.events) != 1 || tracker.events[0] != "ai_research_insights_generated" {
		t.Errorf("unexpected events %v", tracker.events)
	}

	cfg := client.configs[0]
	if *cfg.Temperature != 0.7 || *cfg.TopK != 40 || *cfg.TopP != 0.95 || cfg.MaxOutputTokens != 1024 {
		t.Errorf("unexpected generation config %+v", cfg)
	}
	if len(cfg.SafetySettings) != 4 {
		t.Errorf("expected 4 safety settings, got %d", len(cfg.SafetySettings))
	}
}

func TestGenerateRetries(t *testing.T) {
	client := &mockClient{text: "ok", failures: map[string]int{DefaultFlashModel: 2}}
	g, _ := newTestGenerator(client)

	out, err := g.Generate(context.Background(), "content_suggestions")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Model != DefaultFlashModel {
		t.Errorf("expected flash model after retries, got %s", out.Model)
	}
	if len(client.calls) != 3 {
		t.Errorf("expected 3 calls, got %v", client.calls)
	}
}

func TestGenerateFallsBack(t *testing.T) {
	client := &mockClient{text: "ok", failures: map[string]int{DefaultFlashModel: -1}}
	g, _ := newTestGenerator(client)

	out, err := g.Generate(context.Background(), "message_assistant")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Model != DefaultFallbackModel {
		t.Errorf("expected fallback model, got %s", out.Model)
	}
	// One attempt plus three retries before falling back.
	if len(client.calls) != 5 {
		t.Errorf("expected 5 calls, got %v", client.calls)
	}
}

func TestGenerateError(t *testing.T) {
	m := metrics.New()
	client := &mockClient{failures: map[string]int{DefaultFlashModel: -1, DefaultFallbackModel: -1}}
	g, tracker := newTestGenerator(client)
	g.Metrics = m

	if _, err := g.Generate(context.Background(), "content_suggestions"); err == nil {
		t.Fatal("expected an error")
	}
	if len(tracker.events) != 1 || tracker.events[0] != "ai_content_suggestions_error" {
		t.Errorf("unexpected events %v", tracker.events)
	}
	if got := testutil.ToFloat64(m.Generations.WithLabelValues("content_suggestions", "error")); got != 1 {
		t.Errorf("expected 1 error, got %v", got)
	}
}

func TestGenerateUnknownFeature(t *testing.T) {
	g, _ := newTestGenerator(&mockClient{})
	if _, err := g.Generate(context.Background(), "nope"); !errors.Is(err, ErrUnknownFeature) {
		t.Errorf("expected ErrUnknownFeature, got %v", err)
	}
}

func TestGenerateRateLimited(t *testing.T) {
	g, _ := newTestGenerator(&mockClient{text: "ok"})
	g.Limiter = rate.NewLimiter(rate.Every(time.Hour), 1)

	if _, err := g.Generate(context.Background(), "content_suggestions"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := g.Generate(context.Background(), "content_suggestions"); !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRenderSanitizes(t *testing.T) {
	g := NewGenerator(nil)
	out := g.Render("Hello <script>alert(1)</script> [link](javascript:alert(1))")
	if strings.Contains(out, "<script") || strings.Contains(out, "javascript:") {
		t.Errorf("expected unsafe markup removed, got %s", out)
	}
}

func TestFeatures(t *testing.T) {
	if len(Features()) != 3 {
		t.Fatalf("expected 3 features, got %d", len(Features()))
	}
	for _, f := range Features() {
		if f.Prompt == "" || f.Title == "" {
			t.Errorf("feature %s is incomplete", f.ID)
		}
	}
}
