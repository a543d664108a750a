package recaptcha

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const (
	TokenHeader = "X-Recaptcha-Token"
	tokenField  = "recaptcha_token"
	maxBodySize = 1 << 20
)

type resultKey struct{}

// FromContext returns the verification result stored by Middleware.
func FromContext(ctx context.Context) (Result, bool) {
	r, ok := ctx.Value(resultKey{}).(Result)
	return r, ok
}

type rejection struct {
	Success bool    `json:"success"`
	Error   string  `json:"error"`
	Score   float64 `json:"score,omitempty"`
	Reason  string  `json:"reason,omitempty"`
}

// Middleware verifies the request's token for action before calling next.
// The token is read from the "recaptcha_token" field of a JSON body or the
// X-Recaptcha-Token header.
func Middleware(v *Verifier, action string, minScore float64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := tokenFrom(r)
			if errors.Is(err, errBodyTooLarge) {
				reject(w, http.StatusRequestEntityTooLarge, rejection{Error: "request body too large"})
				return
			}
			if err != nil {
				reject(w, http.StatusBadRequest, rejection{Error: "error reading request body"})
				return
			}
			if token == "" {
				reject(w, http.StatusBadRequest, rejection{Error: "reCAPTCHA token is required"})
				return
			}

			result := v.Validate(r.Context(), token, action, minScore)
			if !result.Valid {
				reject(w, http.StatusBadRequest, rejection{
					Error:  "reCAPTCHA verification failed",
					Score:  result.Score,
					Reason: result.Reason,
				})
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resultKey{}, result)))
		})
	}
}

// tokenFrom reads the token and leaves the body readable for the next
// handler.
func tokenFrom(r *http.Request) (string, error) {
	if r.Body != nil && r.Body != http.NoBody {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize+1))
		_ = r.Body.Close()
		if err != nil {
			return "", err
		}
		if len(body) > maxBodySize {
			return "", errBodyTooLarge
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var fields map[string]json.RawMessage
		if json.Unmarshal(body, &fields) == nil {
			var token string
			if raw, ok := fields[tokenField]; ok && json.Unmarshal(raw, &token) == nil && token != "" {
				return token, nil
			}
		}
	}
	return r.Header.Get(TokenHeader), nil
}

type bodyError string

func (e bodyError) Error() string { return string(e) }

const errBodyTooLarge = bodyError("request body too large")

func reject(w http.ResponseWriter, status int, body rejection) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
