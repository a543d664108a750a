package source

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// AwsS3Repository reads the configuration document from an S3 object.
type AwsS3Repository struct {
	document
	Name       string     // Name of the configuration source
	BucketName string     // Name of the S3 bucket
	ObjectName string     // Key of the configuration document within the bucket
	Region     string     // Optional region override
	Endpoint   string     // Optional S3-compatible endpoint, path-style addressing is used when set
	AccessKey  string     // Optional static credentials
	SecretKey  string     // Optional static credentials
	Client     *s3.Client // S3 client instance, created on first refresh when nil

	clientOnce    sync.Once // Ensures client is initialized only once
	clientInitErr error     // Stores error from client initialization
}

// GetName returns the name of the configuration source.
func (a *AwsS3Repository) GetName() string {
	if a.Name == "" {
		return "s3"
	}
	return a.Name
}

func (a *AwsS3Repository) client(ctx context.Context) (*s3.Client, error) {
	a.clientOnce.Do(func() {
		if a.Client != nil {
			return
		}
		var opts []func(*config.LoadOptions) error
		if a.Region != "" {
			opts = append(opts, config.WithRegion(a.Region))
		}
		if a.AccessKey != "" {
			opts = append(opts, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(a.AccessKey, a.SecretKey, ""),
			))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			a.clientInitErr = fmt.Errorf("failed to load AWS config: %w", err)
			return
		}
		a.Client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			if a.Endpoint != "" {
				o.BaseEndpoint = aws.String(a.Endpoint)
				o.UsePathStyle = true
			}
		})
	})
	return a.Client, a.clientInitErr
}

// Refresh downloads the object and swaps in its content.
func (a *AwsS3Repository) Refresh(ctx context.Context) error {
	client, err := a.client(ctx)
	if err != nil {
		return err
	}

	result, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.BucketName),
		Key:    aws.String(a.ObjectName),
	})
	if err != nil {
		return err
	}
	defer result.Body.Close()

	fileContent, err := io.ReadAll(result.Body)
	if err != nil {
		return err
	}
	return a.swap(fileContent)
}
