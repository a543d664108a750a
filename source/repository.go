package source

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Repository is a remote configuration document that can be refreshed.
// Implementations keep their previous data when Refresh fails.
type Repository interface {
	GetName() string
	Refresh(ctx context.Context) error
	GetData(key string) (config interface{}, isPresent bool)
	GetRawData() []byte
}

// FetchError reports a refresh that could not reach or decode its source.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching remote config from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// decode parses a YAML (or JSON) document into a flat key map.
func decode(raw []byte) (map[string]interface{}, error) {
	var data map[string]interface{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	return data, nil
}
