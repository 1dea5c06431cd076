// Package source opens datasets by URI from the local filesystem, Amazon S3
// or Google Cloud Storage.
//
// Supported URIs:
//
//	data/churn.csv               local file
//	file:///srv/data/churn.csv   local file
//	s3://bucket/path/churn.csv   Amazon S3
//	gs://bucket/path/churn.arrow Google Cloud Storage
//
// The data format is taken from the object's extension after any
// compression suffix is removed, so "churn.csv.zst" is zstd-compressed CSV.
package source

import (
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/compression"
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
	"github.com/Dawood-ML/uv-project-management/pkg/metrics"
)

// URI schemes.
const (
	SchemeFile = "file"
	SchemeS3   = "s3"
	SchemeGCS  = "gs"
)

// Data formats.
const (
	FormatCSV   = "csv"
	FormatArrow = "arrow"
)

// Config holds object-store settings.
type Config struct {
	AWSRegion          string `yaml:"aws_region" mapstructure:"aws_region"`
	GCSCredentialsFile string `yaml:"gcs_credentials_file" mapstructure:"gcs_credentials_file"`
}

// Location is a parsed data URI. Bucket is empty for local files and Key is
// then the filesystem path.
type Location struct {
	Scheme string
	Bucket string
	Key    string
}

// String returns the URI form of l.
func (l Location) String() string {
	if l.Scheme == SchemeFile {
		return l.Key
	}
	return l.Scheme + "://" + l.Bucket + "/" + l.Key
}

// Parse splits a data URI. Paths without a scheme are local files.
func Parse(uri string) (Location, error) {
	if uri == "" {
		return Location{}, errors.Configuration("empty data uri")
	}
	if !strings.Contains(uri, "://") {
		return Location{Scheme: SchemeFile, Key: uri}, nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return Location{}, errors.Wrap(err, errors.ErrorTypeConfig, "invalid data uri").
			WithDetail("uri", uri)
	}
	switch u.Scheme {
	case SchemeFile:
		return Location{Scheme: SchemeFile, Key: u.Path}, nil
	case SchemeS3, SchemeGCS:
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return Location{}, errors.Configuration("object uri needs a bucket and a key").
				WithDetail("uri", uri)
		}
		return Location{Scheme: u.Scheme, Bucket: u.Host, Key: key}, nil
	default:
		return Location{}, errors.Configuration("unsupported uri scheme").
			WithDetail("uri", uri).
			WithDetail("scheme", u.Scheme)
	}
}

// Format returns the data format implied by the key's extension.
func (l Location) Format() (string, error) {
	switch strings.ToLower(filepath.Ext(compression.TrimExtension(l.Key))) {
	case ".csv":
		return FormatCSV, nil
	case ".arrow", ".ipc", ".feather":
		return FormatArrow, nil
	default:
		return "", errors.Configuration("cannot infer data format from extension").
			WithDetail("uri", l.String())
	}
}

// Fetcher opens the raw bytes at a location. Missing objects must return a
// not-found error.
type Fetcher interface {
	Fetch(ctx context.Context, loc Location) (io.ReadCloser, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, loc Location) (io.ReadCloser, error)

// Fetch calls f.
func (f FetcherFunc) Fetch(ctx context.Context, loc Location) (io.ReadCloser, error) {
	return f(ctx, loc)
}

// Opener resolves URIs to datasets. Cloud clients are created on first use.
// Safe for concurrent use.
type Opener struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	fetchers map[string]Fetcher
	csv      dataset.CSVOptions
}

// Option configures an Opener.
type Option func(*Opener)

// WithFetcher replaces the fetcher for scheme.
func WithFetcher(scheme string, f Fetcher) Option {
	return func(o *Opener) { o.fetchers[scheme] = f }
}

// WithCSVOptions sets the CSV parsing options.
func WithCSVOptions(opts dataset.CSVOptions) Option {
	return func(o *Opener) { o.csv = opts }
}

// New returns an Opener. Local files need no configuration.
func New(cfg Config, log *zap.Logger, opts ...Option) *Opener {
	o := &Opener{
		cfg:      cfg,
		logger:   logger.OrGlobal(log).With(zap.String("component", "source")),
		fetchers: map[string]Fetcher{SchemeFile: FetcherFunc(fetchFile)},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func (o *Opener) fetcher(ctx context.Context, scheme string) (Fetcher, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if f, ok := o.fetchers[scheme]; ok {
		return f, nil
	}
	var (
		f   Fetcher
		err error
	)
	switch scheme {
	case SchemeS3:
		f, err = newS3Fetcher(ctx, o.cfg.AWSRegion)
	case SchemeGCS:
		f, err = newGCSFetcher(ctx, o.cfg.GCSCredentialsFile)
	default:
		return nil, errors.Configuration("unsupported uri scheme").WithDetail("scheme", scheme)
	}
	if err != nil {
		return nil, err
	}
	o.fetchers[scheme] = f
	return f, nil
}

// Open returns the decompressed bytes at uri.
func (o *Opener) Open(ctx context.Context, uri string) (io.ReadCloser, Location, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, loc, err
	}
	f, err := o.fetcher(ctx, loc.Scheme)
	if err != nil {
		return nil, loc, err
	}
	raw, err := f.Fetch(ctx, loc)
	if err != nil {
		return nil, loc, err
	}

	codec, err := compression.NewCompressor(&compression.Config{Algorithm: compression.FromPath(loc.Key)})
	if err != nil {
		raw.Close()
		return nil, loc, err
	}
	r, err := codec.NewReader(raw)
	if err != nil {
		raw.Close()
		return nil, loc, err
	}
	return &stackedReader{ReadCloser: r, under: raw}, loc, nil
}

// Load reads the dataset at uri.
func (o *Opener) Load(ctx context.Context, uri string) (*dataset.Dataset, error) {
	loc, err := Parse(uri)
	if err != nil {
		return nil, err
	}
	format, err := loc.Format()
	if err != nil {
		return nil, err
	}

	r, _, err := o.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var ds *dataset.Dataset
	switch format {
	case FormatArrow:
		ds, err = dataset.ReadArrow(r)
	default:
		ds, err = dataset.ReadCSV(r, o.csv)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse data").
			WithDetail("uri", uri)
	}

	metrics.RowsLoaded.WithLabelValues(format).Add(float64(ds.Rows()))
	o.logger.Info("loaded records",
		zap.String("uri", uri),
		zap.String("format", format),
		zap.Int("rows", ds.Rows()),
		zap.Int("columns", ds.Width()))
	return ds, nil
}

// stackedReader closes the decompressor and then the underlying stream.
type stackedReader struct {
	io.ReadCloser
	under io.Closer
}

func (s *stackedReader) Close() error {
	err := s.ReadCloser.Close()
	if uerr := s.under.Close(); err == nil {
		err = uerr
	}
	return err
}

func fetchFile(_ context.Context, loc Location) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(loc.Key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("data not found", loc.Key)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open data file").
			WithDetail("path", loc.Key)
	}
	return f, nil
}
