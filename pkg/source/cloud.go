package source

import (
	"bytes"
	"context"
	"io"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"google.golang.org/api/option"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// s3Fetcher downloads whole objects with the concurrent range downloader.
// Training files fit in memory, so the object is buffered before parsing.
type s3Fetcher struct {
	downloader *manager.Downloader
}

func newS3Fetcher(ctx context.Context, region string) (*s3Fetcher, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to load aws configuration")
	}
	return &s3Fetcher{downloader: manager.NewDownloader(s3.NewFromConfig(cfg))}, nil
}

func (f *s3Fetcher) Fetch(ctx context.Context, loc Location) (io.ReadCloser, error) {
	buf := manager.NewWriteAtBuffer(nil)
	_, err := f.downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, s3Error(err, loc)
	}
	return io.NopCloser(bytes.NewReader(buf.Bytes())), nil
}

func s3Error(err error, loc Location) error {
	var noKey *types.NoSuchKey
	var notFound *types.NotFound
	var noBucket *types.NoSuchBucket
	if errors.As(err, &noKey) || errors.As(err, &notFound) || errors.As(err, &noBucket) {
		return errors.NotFound("data not found", loc.String())
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "failed to download object").
		WithDetail("uri", loc.String())
}

type gcsFetcher struct {
	client *storage.Client
}

func newGCSFetcher(ctx context.Context, credentialsFile string) (*gcsFetcher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to create gcs client")
	}
	return &gcsFetcher{client: client}, nil
}

func (f *gcsFetcher) Fetch(ctx context.Context, loc Location) (io.ReadCloser, error) {
	r, err := f.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if err != nil {
		return nil, gcsError(err, loc)
	}
	return r, nil
}

func gcsError(err error, loc Location) error {
	if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
		return errors.NotFound("data not found", loc.String())
	}
	return errors.Wrap(err, errors.ErrorTypeConnection, "failed to open object").
		WithDetail("uri", loc.String())
}
