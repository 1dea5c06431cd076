package dataset

import (
	"bytes"
	"io"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Dawood-ML/uv-project-management/pkg/errors"
)

// ArrowSchema maps the dataset schema to Arrow: numeric columns become
// nullable float64, categorical columns nullable utf8.
func ArrowSchema(d *Dataset) *arrow.Schema {
	fields := make([]arrow.Field, d.Width())
	for i, c := range d.columns {
		typ := arrow.DataType(arrow.PrimitiveTypes.Float64)
		if c.Kind == Categorical {
			typ = arrow.BinaryTypes.String
		}
		fields[i] = arrow.Field{Name: c.Name, Type: typ, Nullable: true}
	}
	return arrow.NewSchema(fields, nil)
}

// WriteArrow writes the dataset as a single-batch Arrow IPC file.
// Missing cells are written as nulls.
func WriteArrow(w io.Writer, d *Dataset) error {
	pool := memory.NewGoAllocator()
	schema := ArrowSchema(d)

	builder := array.NewRecordBuilder(pool, schema)
	defer builder.Release()

	for i, c := range d.columns {
		switch b := builder.Field(i).(type) {
		case *array.Float64Builder:
			b.Reserve(d.rows)
			for _, v := range c.Numbers {
				if math.IsNaN(v) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
		case *array.StringBuilder:
			b.Reserve(d.rows)
			for r, v := range c.Labels {
				if c.IsMissing(r) {
					b.AppendNull()
				} else {
					b.Append(v)
				}
			}
		}
	}

	record := builder.NewRecord()
	defer record.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create Arrow writer")
	}
	if err := fw.Write(record); err != nil {
		_ = fw.Close()
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write record batch")
	}
	if err := fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close Arrow writer")
	}
	return nil
}

// arrowMagic opens and closes the IPC file format; its absence means the
// IPC stream format.
var arrowMagic = []byte("ARROW1")

// ReadArrow reads every record batch of Arrow IPC data, in either the file
// or the stream format, into one dataset. Integer, floating point and
// boolean columns become numeric; utf8 columns become categorical.
func ReadArrow(r io.Reader) (*Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read Arrow data")
	}
	pool := memory.NewGoAllocator()

	if !bytes.HasPrefix(data, arrowMagic) {
		sr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(pool))
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create Arrow reader")
		}
		defer sr.Release()

		cols, err := arrowColumns(sr.Schema())
		if err != nil {
			return nil, err
		}
		// Each record is owned by the reader until the next call to Next.
		for sr.Next() {
			rec := sr.Record()
			for i := 0; i < int(rec.NumCols()); i++ {
				appendArrowColumn(cols[i], rec.Column(i))
			}
		}
		if err := sr.Err(); err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record batch")
		}
		return New(cols...)
	}

	fr, err := ipc.NewFileReader(bytes.NewReader(data), ipc.WithAllocator(pool))
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to create Arrow reader")
	}
	defer fr.Close()

	cols, err := arrowColumns(fr.Schema())
	if err != nil {
		return nil, err
	}
	for b := 0; b < fr.NumRecords(); b++ {
		// Owned by the reader; values are copied out before the next call.
		rec, err := fr.Record(b)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to read record batch").
				WithDetail("batch", b)
		}
		for i := 0; i < int(rec.NumCols()); i++ {
			appendArrowColumn(cols[i], rec.Column(i))
		}
	}
	return New(cols...)
}

func arrowColumns(schema *arrow.Schema) ([]*Column, error) {
	cols := make([]*Column, schema.NumFields())
	for i, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.STRING:
			cols[i] = CategoricalColumn(f.Name, nil, nil)
		case arrow.FLOAT64, arrow.FLOAT32, arrow.INT64, arrow.INT32, arrow.BOOL:
			cols[i] = NumericColumn(f.Name, nil)
		default:
			return nil, errors.Newf(errors.ErrorTypeData, "unsupported Arrow type %s", f.Type).
				WithDetail("column", f.Name)
		}
	}
	return cols, nil
}

func appendArrowColumn(c *Column, arr arrow.Array) {
	n := arr.Len()
	if c.Kind == Categorical {
		s := arr.(*array.String)
		base := len(c.Labels)
		for r := 0; r < n; r++ {
			if s.IsNull(r) {
				if c.Missing == nil {
					// Cells appended before the first null are present.
					c.Missing = make([]bool, len(c.Labels), base+n)
				}
				c.Labels = append(c.Labels, "")
				c.Missing = append(c.Missing, true)
				continue
			}
			c.Labels = append(c.Labels, s.Value(r))
			if c.Missing != nil {
				c.Missing = append(c.Missing, false)
			}
		}
		return
	}

	for r := 0; r < n; r++ {
		if arr.IsNull(r) {
			c.Numbers = append(c.Numbers, math.NaN())
			continue
		}
		var v float64
		switch a := arr.(type) {
		case *array.Float64:
			v = a.Value(r)
		case *array.Float32:
			v = float64(a.Value(r))
		case *array.Int64:
			v = float64(a.Value(r))
		case *array.Int32:
			v = float64(a.Value(r))
		case *array.Boolean:
			if a.Value(r) {
				v = 1
			}
		}
		c.Numbers = append(c.Numbers, v)
	}
}
