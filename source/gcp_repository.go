package source

import (
	"context"
	"io"
	"sync"

	"cloud.google.com/go/storage"
)

// GcpStorageRepository reads the configuration document from a GCS object.
type GcpStorageRepository struct {
	document
	Name       string          // Name of the configuration source
	BucketName string          // Name of the GCS bucket
	ObjectName string          // Name of the configuration document within the bucket
	Client     *storage.Client // GCS client instance, created on first refresh when nil

	clientOnce    sync.Once // Ensures client is initialized only once
	clientInitErr error     // Stores error from client initialization
}

// GetName returns the name of the configuration source.
func (g *GcpStorageRepository) GetName() string {
	if g.Name == "" {
		return "gcs"
	}
	return g.Name
}

// Refresh downloads the object and swaps in its content.
func (g *GcpStorageRepository) Refresh(ctx context.Context) error {
	g.clientOnce.Do(func() {
		if g.Client == nil {
			g.Client, g.clientInitErr = storage.NewClient(ctx)
		}
	})
	if g.clientInitErr != nil {
		return g.clientInitErr
	}

	reader, err := g.Client.Bucket(g.BucketName).Object(g.ObjectName).NewReader(ctx)
	if err != nil {
		return err
	}
	defer reader.Close()

	fileContent, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	return g.swap(fileContent)
}
