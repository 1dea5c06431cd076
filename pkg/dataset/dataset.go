// Package dataset provides the in-memory tabular model shared by every
// pipeline stage: an ordered set of named columns, each either numeric or
// categorical, with rows aligned 1:1 across columns.
//
// Numeric cells are float64 and a missing numeric cell is stored as NaN.
// Categorical cells are strings with a separate missing mask, so an empty
// string and a missing value stay distinguishable.
//
// Datasets are treated as immutable by the pipeline: every operation that
// changes shape (Drop, Take, Select, WithColumn) returns a new Dataset and
// never aliases the receiver's value slices.
package dataset

import (
	"fmt"
	"math"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// Kind is the value type of a column.
type Kind int

const (
	// Numeric columns hold real values.
	Numeric Kind = iota
	// Categorical columns hold labels or identifiers.
	Categorical
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column is one named column of a Dataset.
type Column struct {
	Name    string
	Kind    Kind
	Numbers []float64 // Numeric only; NaN marks a missing cell
	Labels  []string  // Categorical only
	Missing []bool    // Categorical only; nil means nothing is missing
}

// NumericColumn builds a numeric column. The slice is not copied.
func NumericColumn(name string, values []float64) *Column {
	return &Column{Name: name, Kind: Numeric, Numbers: values}
}

// CategoricalColumn builds a categorical column. missing may be nil.
func CategoricalColumn(name string, values []string, missing []bool) *Column {
	return &Column{Name: name, Kind: Categorical, Labels: values, Missing: missing}
}

// Len returns the number of cells in the column.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Numbers)
	}
	return len(c.Labels)
}

// IsMissing reports whether row i has no value.
func (c *Column) IsMissing(i int) bool {
	if c.Kind == Numeric {
		return math.IsNaN(c.Numbers[i])
	}
	return c.Missing != nil && c.Missing[i]
}

// HasMissing reports whether any cell is missing.
func (c *Column) HasMissing() bool {
	n := c.Len()
	for i := 0; i < n; i++ {
		if c.IsMissing(i) {
			return true
		}
	}
	return false
}

// HasInf reports whether a numeric column contains +Inf or -Inf.
func (c *Column) HasInf() bool {
	if c.Kind != Numeric {
		return false
	}
	for _, v := range c.Numbers {
		if math.IsInf(v, 0) {
			return true
		}
	}
	return false
}

// String returns the cell at row i formatted for output. Missing cells are "".
func (c *Column) String(i int) string {
	if c.IsMissing(i) {
		return ""
	}
	if c.Kind == Numeric {
		return formatFloat(c.Numbers[i])
	}
	return c.Labels[i]
}

// Clone returns a deep copy of the column.
func (c *Column) Clone() *Column { return c.clone() }

func (c *Column) clone() *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	if c.Numbers != nil {
		out.Numbers = append([]float64(nil), c.Numbers...)
	}
	if c.Labels != nil {
		out.Labels = append([]string(nil), c.Labels...)
	}
	if c.Missing != nil {
		out.Missing = append([]bool(nil), c.Missing...)
	}
	return out
}

func (c *Column) take(rows []int) *Column {
	out := &Column{Name: c.Name, Kind: c.Kind}
	switch c.Kind {
	case Numeric:
		out.Numbers = make([]float64, len(rows))
		for i, r := range rows {
			out.Numbers[i] = c.Numbers[r]
		}
	default:
		out.Labels = make([]string, len(rows))
		for i, r := range rows {
			out.Labels[i] = c.Labels[r]
		}
		if c.Missing != nil {
			out.Missing = make([]bool, len(rows))
			for i, r := range rows {
				out.Missing[i] = c.Missing[r]
			}
		}
	}
	return out
}

// Field is the name and kind of one column.
type Field struct {
	Name string `json:"name"`
	Kind Kind   `json:"kind"`
}

// Dataset is an ordered collection of equally long named columns.
type Dataset struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// New builds a dataset from columns. Names must be unique and all columns
// must have the same length.
func New(columns ...*Column) (*Dataset, error) {
	ds := &Dataset{
		columns: make([]*Column, 0, len(columns)),
		index:   make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if c == nil {
			return nil, errors.Newf(errors.ErrorTypeData, "column %d is nil", i)
		}
		if c.Name == "" {
			return nil, errors.Newf(errors.ErrorTypeData, "column %d has no name", i)
		}
		if _, dup := ds.index[c.Name]; dup {
			return nil, errors.New(errors.ErrorTypeData, "duplicate column name").
				WithDetail("column", c.Name)
		}
		if c.Kind == Categorical && c.Missing != nil && len(c.Missing) != len(c.Labels) {
			return nil, errors.New(errors.ErrorTypeData, "missing mask length differs from column length").
				WithDetail("column", c.Name)
		}
		if i == 0 {
			ds.rows = c.Len()
		} else if c.Len() != ds.rows {
			return nil, errors.Newf(errors.ErrorTypeData,
				"column %q has %d rows, expected %d", c.Name, c.Len(), ds.rows).
				WithDetail("column", c.Name)
		}
		ds.index[c.Name] = len(ds.columns)
		ds.columns = append(ds.columns, c)
	}
	return ds, nil
}

// Rows returns the number of rows.
func (d *Dataset) Rows() int { return d.rows }

// Width returns the number of columns.
func (d *Dataset) Width() int { return len(d.columns) }

// Columns returns the columns in order. The slice is a copy; the columns are not.
func (d *Dataset) Columns() []*Column {
	return append([]*Column(nil), d.columns...)
}

// Column returns the named column.
func (d *Dataset) Column(name string) (*Column, bool) {
	i, ok := d.index[name]
	if !ok {
		return nil, false
	}
	return d.columns[i], true
}

// Has reports whether the named column exists.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// Names returns the column names in order.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// NumericNames returns the names of numeric columns in order.
func (d *Dataset) NumericNames() []string {
	var names []string
	for _, c := range d.columns {
		if c.Kind == Numeric {
			names = append(names, c.Name)
		}
	}
	return names
}

// Schema returns the name and kind of every column in order.
func (d *Dataset) Schema() []Field {
	fields := make([]Field, len(d.columns))
	for i, c := range d.columns {
		fields[i] = Field{Name: c.Name, Kind: c.Kind}
	}
	return fields
}

// Drop returns a copy without the named columns. Absent names are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	skip := make(map[string]struct{}, len(names))
	for _, n := range names {
		skip[n] = struct{}{}
	}
	var kept []*Column
	for _, c := range d.columns {
		if _, ok := skip[c.Name]; !ok {
			kept = append(kept, c.clone())
		}
	}
	return mustRebuild(kept, d.rows)
}

// Select returns a copy holding only the named columns, in the given order.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	cols := make([]*Column, 0, len(names))
	var missing []string
	for _, n := range names {
		c, ok := d.Column(n)
		if !ok {
			missing = append(missing, n)
			continue
		}
		cols = append(cols, c.clone())
	}
	if len(missing) > 0 {
		return nil, errors.SchemaMismatch(missing, nil, nil)
	}
	return mustRebuild(cols, d.rows), nil
}

// Take returns a copy holding the given rows, in the given order.
func (d *Dataset) Take(rows []int) (*Dataset, error) {
	for _, r := range rows {
		if r < 0 || r >= d.rows {
			return nil, errors.Newf(errors.ErrorTypeData, "row %d out of range [0,%d)", r, d.rows)
		}
	}
	cols := make([]*Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = c.take(rows)
	}
	return mustRebuild(cols, len(rows)), nil
}

// Clone returns a deep copy.
func (d *Dataset) Clone() *Dataset {
	cols := make([]*Column, len(d.columns))
	for i, c := range d.columns {
		cols[i] = c.clone()
	}
	return mustRebuild(cols, d.rows)
}

// WithColumn returns a copy in which c replaces the column of the same name,
// or is appended when no such column exists.
func (d *Dataset) WithColumn(c *Column) (*Dataset, error) {
	if d.Width() > 0 && c.Len() != d.rows {
		return nil, errors.Newf(errors.ErrorTypeData,
			"column %q has %d rows, expected %d", c.Name, c.Len(), d.rows)
	}
	cols := make([]*Column, 0, len(d.columns)+1)
	replaced := false
	for _, existing := range d.columns {
		if existing.Name == c.Name {
			cols = append(cols, c)
			replaced = true
			continue
		}
		cols = append(cols, existing.clone())
	}
	if !replaced {
		cols = append(cols, c)
	}
	return New(cols...)
}

// Matrix returns the named numeric columns as row-major feature vectors.
func (d *Dataset) Matrix(names []string) ([][]float64, error) {
	cols := make([]*Column, len(names))
	for j, n := range names {
		c, ok := d.Column(n)
		if !ok {
			return nil, errors.SchemaMismatch([]string{n}, nil, nil)
		}
		if c.Kind != Numeric {
			return nil, errors.SchemaMismatch(nil, nil, []string{n})
		}
		cols[j] = c
	}
	out := make([][]float64, d.rows)
	for i := range out {
		row := make([]float64, len(cols))
		for j, c := range cols {
			row[j] = c.Numbers[i]
		}
		out[i] = row
	}
	return out, nil
}

// mustRebuild assembles columns that are already known to be consistent.
func mustRebuild(cols []*Column, rows int) *Dataset {
	ds := &Dataset{
		columns: cols,
		index:   make(map[string]int, len(cols)),
		rows:    rows,
	}
	for i, c := range cols {
		ds.index[c.Name] = i
	}
	if len(cols) == 0 {
		ds.rows = 0
	}
	return ds
}
