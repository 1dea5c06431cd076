// Package compression wraps the stream codecs used for model bundles and
// exported datasets.
//
// # Algorithm Selection
//
//   - Snappy/S2: fastest, moderate ratio
//   - LZ4: very fast, decent ratio
//   - Zstd: best ratio, good speed; the default for bundles
//   - Gzip: widest tool compatibility
//
// # Basic Usage
//
//	codec, err := compression.NewCompressor(&compression.Config{
//	    Algorithm: compression.Zstd,
//	    Level:     compression.Better,
//	})
//	w, err := codec.NewWriter(file)
//	defer w.Close()
//
// The algorithm for a file is usually picked from its extension with
// FromPath, so "model.json.zst" is read back without extra configuration.
package compression

import (
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/s2"
	"github.com/klauspost/compress/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// Algorithm represents a compression algorithm.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// Gzip represents gzip compression
	Gzip Algorithm = "gzip"
	// Snappy represents framed snappy compression
	Snappy Algorithm = "snappy"
	// LZ4 represents lz4 frame compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
	// S2 represents s2 compression (Snappy compatible)
	S2 Algorithm = "s2"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// DefaultMaxDecompressedSize caps reader output at 1 GiB.
const DefaultMaxDecompressedSize int64 = 1 << 30

// Compressor encodes and decodes one algorithm. Implementations are safe
// for concurrent use; each writer or reader they return is not.
type Compressor interface {
	// NewWriter wraps dst. Close flushes the stream but does not close dst.
	NewWriter(dst io.Writer) (io.WriteCloser, error)
	// NewReader wraps src. Reading past the configured size limit fails
	// with a data error.
	NewReader(src io.Reader) (io.ReadCloser, error)
	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm
	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm Algorithm `yaml:"algorithm" mapstructure:"algorithm"`
	Level     Level     `yaml:"level" mapstructure:"level"`
	// MaxDecompressedSize bounds reader output; 0 means DefaultMaxDecompressedSize.
	MaxDecompressedSize int64 `yaml:"max_decompressed_size" mapstructure:"max_decompressed_size"`
}

// DefaultConfig returns zstd at the default level.
func DefaultConfig() *Config {
	return &Config{Algorithm: Zstd, Level: Default}
}

// NewCompressor creates a compressor for config. A nil config uses
// DefaultConfig. Unknown algorithms return a config error.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}
	limit := config.MaxDecompressedSize
	if limit <= 0 {
		limit = DefaultMaxDecompressedSize
	}
	base := baseCompressor{algorithm: config.Algorithm, level: config.Level, limit: limit}

	switch config.Algorithm {
	case None, "":
		base.algorithm = None
		return &noneCompressor{base}, nil
	case Gzip:
		return &gzipCompressor{base, mapGzipLevel(config.Level)}, nil
	case Snappy:
		return &snappyCompressor{base}, nil
	case LZ4:
		return &lz4Compressor{base, mapLZ4Level(config.Level)}, nil
	case Zstd:
		return &zstdCompressor{base, mapZstdLevel(config.Level)}, nil
	case S2:
		return &s2Compressor{base}, nil
	default:
		return nil, errors.Configuration("unsupported compression algorithm").
			WithDetail("algorithm", string(config.Algorithm))
	}
}

// ParseAlgorithm accepts an algorithm name, case-insensitively.
func ParseAlgorithm(name string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(name)))
	switch a {
	case "":
		return None, nil
	case None, Gzip, Snappy, LZ4, Zstd, S2:
		return a, nil
	default:
		return "", errors.Configuration("unsupported compression algorithm").
			WithDetail("algorithm", name)
	}
}

var extensions = map[string]Algorithm{
	".gz":   Gzip,
	".gzip": Gzip,
	".sz":   Snappy,
	".lz4":  LZ4,
	".zst":  Zstd,
	".zstd": Zstd,
	".s2":   S2,
}

// FromPath returns the algorithm implied by the last extension of path, or
// None when the extension is not a compression suffix.
func FromPath(path string) Algorithm {
	if a, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return a
	}
	return None
}

// Extension returns the canonical file suffix for a, or "" for None.
func (a Algorithm) Extension() string {
	switch a {
	case Gzip:
		return ".gz"
	case Snappy:
		return ".sz"
	case LZ4:
		return ".lz4"
	case Zstd:
		return ".zst"
	case S2:
		return ".s2"
	default:
		return ""
	}
}

// TrimExtension strips a compression suffix from path, so
// "model.json.zst" becomes "model.json".
func TrimExtension(path string) string {
	if FromPath(path) == None {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path))
}

type baseCompressor struct {
	algorithm Algorithm
	level     Level
	limit     int64
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm { return bc.algorithm }

// Level returns the compression level
func (bc *baseCompressor) Level() Level { return bc.level }

// bounded wraps a decoder so that it yields at most limit bytes.
func (bc *baseCompressor) bounded(r io.Reader, c io.Closer) io.ReadCloser {
	return &boundedReader{r: io.LimitReader(r, bc.limit+1), c: c, limit: bc.limit, algorithm: bc.algorithm}
}

type boundedReader struct {
	r         io.Reader
	c         io.Closer
	n         int64
	limit     int64
	algorithm Algorithm
}

func (b *boundedReader) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	b.n += int64(n)
	if b.n > b.limit {
		return n - int(b.n-b.limit), errors.New(errors.ErrorTypeData, "decompressed data exceeds size limit").
			WithDetail("limit", b.limit).
			WithDetail("algorithm", string(b.algorithm))
	}
	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, errors.ErrorTypeData, "failed to decompress").
			WithDetail("algorithm", string(b.algorithm))
	}
	return n, err
}

func (b *boundedReader) Close() error {
	if b.c == nil {
		return nil
	}
	return b.c.Close()
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	return nopWriteCloser{dst}, nil
}

func (nc *noneCompressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	return nc.bounded(src, nil), nil
}

type nopWriteCloser struct{ io.Writer }

func (nopWriteCloser) Close() error { return nil }

// Gzip compressor
type gzipCompressor struct {
	baseCompressor
	gzipLevel int
}

func (gc *gzipCompressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	w, err := gzip.NewWriterLevel(dst, gc.gzipLevel)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid gzip level")
	}
	return w, nil
}

func (gc *gzipCompressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	r, err := gzip.NewReader(src)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid gzip stream")
	}
	return gc.bounded(r, r), nil
}

// Snappy compressor, using the framed stream format
type snappyCompressor struct {
	baseCompressor
}

func (sc *snappyCompressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	return snappy.NewBufferedWriter(dst), nil
}

func (sc *snappyCompressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	return sc.bounded(snappy.NewReader(src), nil), nil
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func (lc *lz4Compressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid lz4 level")
	}
	return w, nil
}

func (lc *lz4Compressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	return lc.bounded(lz4.NewReader(src), nil), nil
}

// Zstd compressor
type zstdCompressor struct {
	baseCompressor
	encoderLevel zstd.EncoderLevel
}

func (zc *zstdCompressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	w, err := zstd.NewWriter(dst, zstd.WithEncoderLevel(zc.encoderLevel))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to create zstd encoder")
	}
	return w, nil
}

func (zc *zstdCompressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	r, err := zstd.NewReader(src)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid zstd stream")
	}
	rc := r.IOReadCloser()
	return zc.bounded(rc, rc), nil
}

// S2 compressor (Snappy-compatible but better compression)
type s2Compressor struct {
	baseCompressor
}

func (sc *s2Compressor) NewWriter(dst io.Writer) (io.WriteCloser, error) {
	if sc.level >= Better {
		return s2.NewWriter(dst, s2.WriterBetterCompression()), nil
	}
	return s2.NewWriter(dst), nil
}

func (sc *s2Compressor) NewReader(src io.Reader) (io.ReadCloser, error) {
	return sc.bounded(s2.NewReader(src), nil), nil
}

// Helper functions to map compression levels

func mapGzipLevel(level Level) int {
	switch level {
	case Fastest:
		return gzip.BestSpeed
	case Best:
		return gzip.BestCompression
	default:
		return gzip.DefaultCompression
	}
}

func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
