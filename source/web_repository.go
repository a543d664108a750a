package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"
)

// WebRepository fetches the configuration document from an HTTP endpoint.
type WebRepository struct {
	document
	Name       string       // Name of the configuration source
	URL        *url.URL     // URL of the configuration document
	APIKey     string       // Optional API key for X-API-Key header authentication
	HTTPClient *http.Client // Client used for requests, http.DefaultClient when nil
}

// GetName returns the name of the configuration source.
func (w *WebRepository) GetName() string {
	if w.Name == "" {
		return "http"
	}
	return w.Name
}

// Refresh fetches the document and swaps in its content.
func (w *WebRepository) Refresh(ctx context.Context) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, w.URL.String(), nil)
	if err != nil {
		logrus.Debug("error creating request")
		return err
	}
	if w.APIKey != "" {
		request.Header.Set("X-API-Key", w.APIKey)
	}

	client := w.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(request)
	if err != nil {
		logrus.Debug("error doing request")
		return err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			logrus.WithError(err).Debug("error closing response body")
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, w.URL.Redacted())
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		logrus.Debug("error reading response body")
		return err
	}
	if err := w.swap(data); err != nil {
		logrus.Debug("error unmarshalling response body")
		return err
	}
	return nil
}
