package storage

import (
	"context"
	"io"
	"os"

	gcs "cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"

	"github.com/ajitpratap0/mrmr/pkg/errors"
)

// Backend moves whole objects between an object store and local files
type Backend interface {
	// Download writes the object at loc into dst
	Download(ctx context.Context, loc Location, dst *os.File) error
	// Upload stores everything read from src at loc
	Upload(ctx context.Context, loc Location, src io.Reader, contentType string) error
	// Close releases client resources
	Close() error
}

// S3Backend talks to Amazon S3 through the transfer manager
type S3Backend struct {
	client     *s3.Client
	uploader   *manager.Uploader
	downloader *manager.Downloader
}

// NewS3Backend loads the default AWS credential chain, optionally pinning a region
func NewS3Backend(ctx context.Context, region string) (*S3Backend, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to load AWS configuration")
	}

	client := s3.NewFromConfig(cfg)
	return &S3Backend{
		client:     client,
		uploader:   manager.NewUploader(client),
		downloader: manager.NewDownloader(client),
	}, nil
}

// Download implements Backend
func (b *S3Backend) Download(ctx context.Context, loc Location, dst *os.File) error {
	_, err := b.downloader.Download(ctx, dst, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to download from S3").
			WithDetail("location", loc.String())
	}
	return nil
}

// Upload implements Backend
func (b *S3Backend) Upload(ctx context.Context, loc Location, src io.Reader, contentType string) error {
	_, err := b.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(loc.Bucket),
		Key:         aws.String(loc.Key),
		Body:        src,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to upload to S3").
			WithDetail("location", loc.String())
	}
	return nil
}

// Close implements Backend
func (b *S3Backend) Close() error {
	return nil
}

// GCSBackend talks to Google Cloud Storage
type GCSBackend struct {
	client *gcs.Client
}

// NewGCSBackend creates a client from a credentials file or application default credentials
func NewGCSBackend(ctx context.Context, credentialsFile string) (*GCSBackend, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to create GCS client")
	}
	return &GCSBackend{client: client}, nil
}

// Download implements Backend
func (b *GCSBackend) Download(ctx context.Context, loc Location, dst *os.File) error {
	r, err := b.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to open GCS object").
			WithDetail("location", loc.String())
	}
	defer r.Close()

	if _, err := io.Copy(dst, r); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to download from GCS").
			WithDetail("location", loc.String())
	}
	return nil
}

// Upload implements Backend
func (b *GCSBackend) Upload(ctx context.Context, loc Location, src io.Reader, contentType string) error {
	w := b.client.Bucket(loc.Bucket).Object(loc.Key).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, src); err != nil {
		_ = w.Close()
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to write to GCS").
			WithDetail("location", loc.String())
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to close GCS writer").
			WithDetail("location", loc.String())
	}
	return nil
}

// Close implements Backend
func (b *GCSBackend) Close() error {
	return b.client.Close()
}
