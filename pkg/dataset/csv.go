package dataset

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// missingTokens are cell values read as missing.
var missingTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"NaN":  {},
	"nan":  {},
	"null": {},
	"NULL": {},
}

// CSVOptions controls CSV parsing.
type CSVOptions struct {
	Comma      rune
	LazyQuotes bool
	// Categorical forces the named columns to be categorical even when every
	// cell parses as a number.
	Categorical []string
}

// ReadCSV parses CSV data with a header row. Column kinds are inferred: a
// column is numeric when every present cell parses as a float.
func ReadCSV(r io.Reader, opts CSVOptions) (*Dataset, error) {
	cr := csv.NewReader(r)
	if opts.Comma != 0 {
		cr.Comma = opts.Comma
	}
	cr.LazyQuotes = opts.LazyQuotes
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if err == io.EOF {
		return New()
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "read header")
	}

	names := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF")
		}
		if h == "" {
			return nil, errors.Newf(errors.ErrorTypeData, "header column %d is empty", i+1)
		}
		names[i] = h
	}

	cells := make([][]string, len(names))
	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "csv read").WithDetail("line", line)
		}
		for i, v := range rec {
			cells[i] = append(cells[i], strings.TrimSpace(v))
		}
	}

	forced := make(map[string]struct{}, len(opts.Categorical))
	for _, n := range opts.Categorical {
		forced[n] = struct{}{}
	}

	cols := make([]*Column, len(names))
	for i, name := range names {
		if _, ok := forced[name]; ok {
			cols[i] = categoricalFromCells(name, cells[i])
			continue
		}
		if nums, ok := parseNumeric(cells[i]); ok {
			cols[i] = NumericColumn(name, nums)
		} else {
			cols[i] = categoricalFromCells(name, cells[i])
		}
	}
	return New(cols...)
}

func parseNumeric(cells []string) ([]float64, bool) {
	out := make([]float64, len(cells))
	for i, v := range cells {
		if _, missing := missingTokens[v]; missing {
			out[i] = math.NaN()
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		out[i] = f
	}
	return out, true
}

func categoricalFromCells(name string, cells []string) *Column {
	labels := make([]string, len(cells))
	var missing []bool
	for i, v := range cells {
		if _, m := missingTokens[v]; m {
			if missing == nil {
				missing = make([]bool, len(cells))
			}
			missing[i] = true
			continue
		}
		labels[i] = v
	}
	return CategoricalColumn(name, labels, missing)
}

// WriteCSV writes the dataset with a header row. Missing cells are empty.
func WriteCSV(w io.Writer, d *Dataset) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Names()); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "write header")
	}
	rec := make([]string, d.Width())
	for i := 0; i < d.Rows(); i++ {
		for j, c := range d.columns {
			rec[j] = c.String(i)
		}
		if err := cw.Write(rec); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "write row").WithDetail("row", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "flush csv")
	}
	return nil
}

// SaveCSV writes the dataset to path, creating parent directories.
func SaveCSV(path string, d *Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "create output directory").WithDetail("path", path)
	}
	f, err := os.Create(filepath.Clean(path))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "create output file").WithDetail("path", path)
	}
	if err := WriteCSV(f, d); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
