// Package modelstore saves and loads trained model bundles.
//
// A bundle is one JSON document holding the fitted classifier, the feature
// transformer's frozen statistics and fit-time schema, and the metadata
// needed to prepare inference data the same way training data was
// prepared. The file is compressed according to its extension, so
// "models/churn.json.zst" is zstd and "models/churn.json" is plain JSON.
package modelstore

import (
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/Dawood-ML/uv-project-management/pkg/classifier"
	"github.com/Dawood-ML/uv-project-management/pkg/compression"
	"github.com/Dawood-ML/uv-project-management/pkg/dataset"
	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/evaluation"
	"github.com/Dawood-ML/uv-project-management/pkg/features"
	"github.com/Dawood-ML/uv-project-management/pkg/json"
	"github.com/Dawood-ML/uv-project-management/pkg/logger"
)

// FormatVersion is the bundle layout written by Save.
const FormatVersion = 1

// Bundle is everything needed to score new data with a trained model.
type Bundle struct {
	Version        int                         `json:"version"`
	CreatedAt      time.Time                   `json:"created_at"`
	RunID          string                      `json:"run_id,omitempty"`
	Target         string                      `json:"target"`
	PositiveLabel  string                      `json:"positive_label,omitempty"`
	DroppedColumns []string                    `json:"dropped_columns,omitempty"`
	Classifier     *classifier.Snapshot        `json:"classifier"`
	Statistics     []features.ColumnStatistics `json:"statistics"`
	Schema         []dataset.Field             `json:"schema"`
	Metrics        *evaluation.Metrics         `json:"metrics,omitempty"`
}

// NewBundle captures a fitted classifier and transformer.
func NewBundle(c *classifier.Classifier, t *features.Transformer) (*Bundle, error) {
	if !t.Fitted() {
		return nil, errors.NotFitted("transformer has not been fitted")
	}
	snap, err := c.Snapshot()
	if err != nil {
		return nil, err
	}
	return &Bundle{
		Version:    FormatVersion,
		CreatedAt:  time.Now().UTC(),
		Classifier: snap,
		Statistics: t.Statistics(),
		Schema:     t.Schema(),
	}, nil
}

// Restore rebuilds the fitted classifier and transformer.
func (b *Bundle) Restore(log *zap.Logger) (*classifier.Classifier, *features.Transformer, error) {
	if b.Classifier == nil {
		return nil, nil, errors.New(errors.ErrorTypeData, "bundle has no classifier")
	}
	c, err := classifier.Restore(b.Classifier, log)
	if err != nil {
		return nil, nil, err
	}
	t, err := features.FromStatistics(b.Statistics, b.Schema, features.WithLogger(log))
	if err != nil {
		return nil, nil, err
	}
	return c, t, nil
}

// Save writes b to path, creating parent directories. The file is written
// to a temporary name in the same directory and renamed into place.
func Save(path string, b *Bundle, log *zap.Logger) error {
	log = logger.OrGlobal(log)

	codec, err := compression.NewCompressor(&compression.Config{
		Algorithm: compression.FromPath(path),
		Level:     compression.Better,
	})
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create model directory").
			WithDetail("path", dir)
	}
	tmp, err := os.CreateTemp(dir, ".bundle-*")
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create model file").
			WithDetail("path", path)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp, codec, b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write model file").
			WithDetail("path", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write model file").
			WithDetail("path", path)
	}

	log.Info("model saved",
		zap.String("path", path),
		zap.String("model_type", b.Classifier.Kind),
		zap.String("compression", string(codec.Algorithm())))
	return nil
}

func write(f *os.File, codec compression.Compressor, b *Bundle) error {
	w, err := codec.NewWriter(f)
	if err != nil {
		return err
	}
	if err := json.Encode(w, b, false); err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode model bundle")
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write model file")
	}
	return nil
}

// Load reads the bundle at path. A missing file is a not-found error.
func Load(path string, log *zap.Logger) (*Bundle, error) {
	log = logger.OrGlobal(log)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("model not found", path)
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open model file").
			WithDetail("path", path)
	}
	defer f.Close()

	codec, err := compression.NewCompressor(&compression.Config{Algorithm: compression.FromPath(path)})
	if err != nil {
		return nil, err
	}
	r, err := codec.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var b Bundle
	if err := json.Decode(r, &b); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode model bundle").
			WithDetail("path", path)
	}
	if b.Version != FormatVersion {
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported bundle version %d", b.Version).
			WithDetail("path", path)
	}
	if b.Classifier == nil {
		return nil, errors.New(errors.ErrorTypeData, "bundle has no classifier").
			WithDetail("path", path)
	}

	log.Info("model loaded", zap.String("path", path), zap.String("model_type", b.Classifier.Kind))
	return &b, nil
}
