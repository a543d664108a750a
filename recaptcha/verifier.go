package recaptcha

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lockard-llc/lockard-site/metrics"
	"github.com/sirupsen/logrus"
)

const (
	DefaultMinScore = 0.5
	debugScore      = 0.9

	ReasonValid   = "Token validated successfully"
	ReasonInvalid = "Invalid token or assessment failed"
)

// ScoringError reports a token that could not be scored for the expected
// action.
type ScoringError struct {
	Action string
	Reason string
	Err    error
}

func (e *ScoringError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scoring %s token: %s: %v", e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("scoring %s token: %s", e.Action, e.Reason)
}

func (e *ScoringError) Unwrap() error {
	return e.Err
}

// Result is the outcome of validating a token.
type Result struct {
	Valid  bool    `json:"valid"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
	Action string  `json:"action,omitempty"`
	Debug  bool    `json:"debug,omitempty"`
}

// Verifier scores tokens and applies a minimum score.
type Verifier struct {
	Assessor Assessor

	// DebugToken, when set in development, accepts tokens of the form
	// "<DebugToken>:<action>" without contacting the backend.
	DebugToken  string
	Development bool

	Metrics *metrics.Metrics
}

// Score returns the risk score for token. A token the backend rejects, or
// one issued for a different action, is a *ScoringError.
func (v *Verifier) Score(ctx context.Context, token, action string) (float64, bool, error) {
	if got, ok := v.debugAction(token); ok {
		if got != action {
			return 0, false, &ScoringError{Action: action, Reason: fmt.Sprintf("debug token action mismatch: got %q", got)}
		}
		logrus.WithField("action", action).Debug("using recaptcha debug token")
		return debugScore, true, nil
	}
	if v.Assessor == nil {
		return 0, false, &ScoringError{Action: action, Reason: "no assessor configured"}
	}

	a, err := v.Assessor.CreateAssessment(ctx, token, action)
	if err != nil {
		return 0, false, &ScoringError{Action: action, Reason: "assessment failed", Err: err}
	}
	if !a.Valid {
		return 0, false, &ScoringError{Action: action, Reason: "token invalid: " + a.InvalidReason}
	}
	if a.Action != action {
		return 0, false, &ScoringError{Action: action, Reason: fmt.Sprintf("action mismatch: got %q", a.Action)}
	}
	if len(a.Reasons) > 0 {
		logrus.WithFields(logrus.Fields{"action": action, "reasons": a.Reasons}).Debug("recaptcha risk reasons")
	}
	return a.Score, false, nil
}

// Validate scores token and accepts it when the score reaches minScore.
// A minScore of zero or less uses DefaultMinScore.
func (v *Verifier) Validate(ctx context.Context, token, action string, minScore float64) Result {
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	score, debug, err := v.Score(ctx, token, action)
	if err != nil {
		logrus.WithError(err).Warn("recaptcha assessment rejected")
		v.count(action, "invalid")
		return Result{Valid: false, Score: 0, Reason: ReasonInvalid, Action: action}
	}
	if score < minScore {
		v.count(action, "low_score")
		return Result{
			Valid:  false,
			Score:  score,
			Reason: "Score too low: " + formatScore(score) + " < " + formatScore(minScore),
			Action: action,
			Debug:  debug,
		}
	}
	v.count(action, "valid")
	return Result{Valid: true, Score: score, Reason: ReasonValid, Action: action, Debug: debug}
}

// debugAction returns the action a debug token was issued for. A bare
// DebugToken carries no action and is not a debug token.
func (v *Verifier) debugAction(token string) (string, bool) {
	if !v.Development || v.DebugToken == "" {
		return "", false
	}
	action, ok := strings.CutPrefix(token, v.DebugToken+":")
	return action, ok && action != ""
}

// DebugTokenFor returns the debug token for action.
func (v *Verifier) DebugTokenFor(action string) string {
	return v.DebugToken + ":" + action
}

func (v *Verifier) count(action, outcome string) {
	if v.Metrics != nil {
		v.Metrics.Assessments.WithLabelValues(action, outcome).Inc()
	}
}

func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
