package runstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
	"github.com/Dawood-ML/uv-project-management/pkg/json"
)

// SQLite has no native timestamp type, so started_at is stored as a
// fixed-width UTC string that sorts chronologically, and JSON columns as TEXT.
const sqliteSchema = `CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	kind        TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	duration_ms INTEGER NOT NULL,
	model_type  TEXT NOT NULL,
	data_uri    TEXT NOT NULL,
	model_path  TEXT NOT NULL,
	params      TEXT NOT NULL,
	metrics     TEXT NOT NULL,
	decision    TEXT NOT NULL
)`

const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

const runColumns = `id, kind, started_at, duration_ms, model_type, data_uri, model_path, params, metrics, decision`

func init() {
	Register("sqlite", NewSQLite)
}

type sqliteStore struct {
	db *sql.DB
}

// NewSQLite opens the database at dsn (a file path or "file:" URI).
func NewSQLite(ctx context.Context, dsn string) (Store, error) {
	if dsn == "" {
		return nil, errors.Configuration("sqlite run store needs a dsn")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open run store")
	}
	// A single connection keeps writes serialized and in-memory databases shared.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open run store")
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to create runs table")
	}
	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) Record(ctx context.Context, r *Run) error {
	params, metrics, err := encodeMaps(r)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Kind, r.StartedAt.UTC().Format(sqliteTime), r.Duration.Milliseconds(),
		r.ModelType, r.DataURI, r.ModelPath, params, metrics, r.Decision)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return errors.New(errors.ErrorTypeConflict, "run already recorded").WithDetail("id", r.ID)
		}
		return errors.Wrap(err, errors.ErrorTypeConnection, "failed to record run").WithDetail("id", r.ID)
	}
	return nil
}

func (s *sqliteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanSQLite(row)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrorTypeNotFound, "run not found").WithDetail("id", id)
	}
	return r, err
}

func (s *sqliteStore) List(ctx context.Context, limit int) ([]*Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list runs")
	}
	defer rows.Close()

	var out []*Run
	for rows.Next() {
		r, err := scanSQLite(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to list runs")
	}
	return out, nil
}

func (s *sqliteStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLite(sc scanner) (*Run, error) {
	var (
		r               Run
		started         string
		durationMS      int64
		params, metrics string
	)
	if err := sc.Scan(&r.ID, &r.Kind, &started, &durationMS, &r.ModelType, &r.DataURI,
		&r.ModelPath, &params, &metrics, &r.Decision); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to read run")
	}
	t, err := time.Parse(sqliteTime, started)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "invalid run timestamp").WithDetail("id", r.ID)
	}
	r.StartedAt = t
	r.Duration = time.Duration(durationMS) * time.Millisecond
	if err := decodeMaps(&r, []byte(params), []byte(metrics)); err != nil {
		return nil, err
	}
	return &r, nil
}

func encodeMaps(r *Run) (string, string, error) {
	params, err := json.Marshal(nonNil(r.Params))
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode run params")
	}
	metrics, err := json.Marshal(nonNil(r.Metrics))
	if err != nil {
		return "", "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode run metrics")
	}
	return string(params), string(metrics), nil
}

func decodeMaps(r *Run, params, metrics []byte) error {
	if err := json.Unmarshal(params, &r.Params); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid run params").WithDetail("id", r.ID)
	}
	if err := json.Unmarshal(metrics, &r.Metrics); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "invalid run metrics").WithDetail("id", r.ID)
	}
	return nil
}

func nonNil(m map[string]float64) map[string]float64 {
	if m == nil {
		return map[string]float64{}
	}
	return m
}
