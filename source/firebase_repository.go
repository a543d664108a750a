package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2/google"
)

const (
	firebaseEndpoint = "https://firebaseremoteconfig.googleapis.com"
	firebaseScope    = "https://www.googleapis.com/auth/firebase.remoteconfig"
)

// FirebaseRepository reads the published Firebase Remote Config template of
// a project and flattens each parameter to its default value.
type FirebaseRepository struct {
	document
	Name       string       // Name of the configuration source
	ProjectID  string       // Firebase project id
	Endpoint   string       // API base URL, the public endpoint when empty
	HTTPClient *http.Client // Authenticated client, Google default credentials when nil

	clientOnce    sync.Once
	clientInitErr error
	etag          string
}

type firebaseValue struct {
	Value           *string `json:"value"`
	UseInAppDefault bool    `json:"useInAppDefault"`
}

type firebaseParameter struct {
	DefaultValue *firebaseValue `json:"defaultValue"`
}

type firebaseTemplate struct {
	Parameters      map[string]firebaseParameter `json:"parameters"`
	ParameterGroups map[string]struct {
		Parameters map[string]firebaseParameter `json:"parameters"`
	} `json:"parameterGroups"`
}

// GetName returns the name of the configuration source.
func (f *FirebaseRepository) GetName() string {
	if f.Name == "" {
		return "firebase"
	}
	return f.Name
}

// ETag returns the version tag of the last fetched template.
func (f *FirebaseRepository) ETag() string {
	f.RLock()
	defer f.RUnlock()
	return f.etag
}

func (f *FirebaseRepository) client(ctx context.Context) (*http.Client, error) {
	f.clientOnce.Do(func() {
		if f.HTTPClient != nil {
			return
		}
		f.HTTPClient, f.clientInitErr = google.DefaultClient(ctx, firebaseScope)
	})
	return f.HTTPClient, f.clientInitErr
}

// Refresh downloads the template and swaps in the flattened parameters.
func (f *FirebaseRepository) Refresh(ctx context.Context) error {
	if f.ProjectID == "" {
		return fmt.Errorf("firebase project id is required")
	}
	client, err := f.client(ctx)
	if err != nil {
		return fmt.Errorf("creating firebase client: %w", err)
	}

	endpoint := f.Endpoint
	if endpoint == "" {
		endpoint = firebaseEndpoint
	}
	endpoint = strings.TrimRight(endpoint, "/") + "/v1/projects/" + f.ProjectID + "/remoteConfig"
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}

	resp, err := client.Do(request)
	if err != nil {
		logrus.Debug("error requesting remote config template")
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("remote config template request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tmpl firebaseTemplate
	if err := json.Unmarshal(body, &tmpl); err != nil {
		return fmt.Errorf("decoding remote config template: %w", err)
	}

	data := map[string]interface{}{}
	flatten := func(params map[string]firebaseParameter) {
		for key, p := range params {
			if p.DefaultValue == nil || p.DefaultValue.UseInAppDefault || p.DefaultValue.Value == nil {
				continue
			}
			data[key] = *p.DefaultValue.Value
		}
	}
	flatten(tmpl.Parameters)
	for _, group := range tmpl.ParameterGroups {
		flatten(group.Parameters)
	}

	f.set(data, body)
	f.Lock()
	f.etag = resp.Header.Get("ETag")
	f.Unlock()
	return nil
}
