package source

import (
	"fmt"
	"net/url"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/lockard-llc/lockard-site/httpclient"
)

// Config selects and parameterizes a Repository.
type Config struct {
	Type      string `mapstructure:"type"` // file, http, s3, gcs, git or firebase
	Name      string `mapstructure:"name"`
	Path      string `mapstructure:"path"`
	URL       string `mapstructure:"url"`
	APIKey    string `mapstructure:"api_key"`
	Bucket    string `mapstructure:"bucket"`
	Object    string `mapstructure:"object"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Branch    string `mapstructure:"branch"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	ProjectID string `mapstructure:"project_id"`
}

// New builds the repository described by cfg.
func New(cfg Config) (Repository, error) {
	switch cfg.Type {
	case "file", "fs", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file source: path is required")
		}
		return &FileRepository{Name: cfg.Name, Path: cfg.Path}, nil
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("http source: url is required")
		}
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("http source: %w", err)
		}
		return &WebRepository{
			Name:   cfg.Name,
			URL:    u,
			APIKey: cfg.APIKey,
			HTTPClient: httpclient.New(httpclient.Options{
				Name:             "remote-config",
				Retries:          2,
				RetryWaitMin:     500 * time.Millisecond,
				RetryWaitMax:     5 * time.Second,
				TripAfter:        5,
				OpenStateTimeout: time.Minute,
				HalfOpenRequests: 1,
			}),
		}, nil
	case "s3":
		if cfg.Bucket == "" || cfg.Object == "" {
			return nil, fmt.Errorf("s3 source: bucket and object are required")
		}
		return &AwsS3Repository{
			Name:       cfg.Name,
			BucketName: cfg.Bucket,
			ObjectName: cfg.Object,
			Region:     cfg.Region,
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
		}, nil
	case "gcs":
		if cfg.Bucket == "" || cfg.Object == "" {
			return nil, fmt.Errorf("gcs source: bucket and object are required")
		}
		return &GcpStorageRepository{Name: cfg.Name, BucketName: cfg.Bucket, ObjectName: cfg.Object}, nil
	case "git":
		if cfg.URL == "" || cfg.Path == "" {
			return nil, fmt.Errorf("git source: url and path are required")
		}
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("git source: %w", err)
		}
		repo := &GitRepository{Name: cfg.Name, URL: u, Path: cfg.Path, Branch: cfg.Branch}
		if cfg.Username != "" || cfg.Password != "" {
			repo.Auth = &http.BasicAuth{Username: cfg.Username, Password: cfg.Password}
		}
		return repo, nil
	case "firebase":
		if cfg.ProjectID == "" {
			return nil, fmt.Errorf("firebase source: project_id is required")
		}
		return &FirebaseRepository{Name: cfg.Name, ProjectID: cfg.ProjectID, Endpoint: cfg.Endpoint}, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", cfg.Type)
	}
}
