package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/winelabs/wineserve/internal/models"
)

// Frame is a column-oriented dataset. Cells hold float64 for numeric columns
// and string for categoricals (the wine type column).
type Frame struct {
	Columns []string
	Rows    [][]any
}

// NumRows returns the number of data rows.
func (f *Frame) NumRows() int {
	return len(f.Rows)
}

// ColumnIndex returns the position of the named column, or -1.
func (f *Frame) ColumnIndex(name string) int {
	for i, c := range f.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Copy returns a deep copy sharing no row storage with the receiver.
func (f *Frame) Copy() *Frame {
	out := &Frame{Columns: append([]string(nil), f.Columns...)}
	out.Rows = make([][]any, len(f.Rows))
	for i, row := range f.Rows {
		out.Rows[i] = append([]any(nil), row...)
	}
	return out
}

// DropColumn returns a new frame without the named column. Dropping an
// absent column returns an unchanged copy.
func (f *Frame) DropColumn(name string) *Frame {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return f.Copy()
	}
	out := &Frame{Columns: make([]string, 0, len(f.Columns)-1)}
	out.Columns = append(out.Columns, f.Columns[:idx]...)
	out.Columns = append(out.Columns, f.Columns[idx+1:]...)
	out.Rows = make([][]any, len(f.Rows))
	for i, row := range f.Rows {
		newRow := make([]any, 0, len(row)-1)
		newRow = append(newRow, row[:idx]...)
		newRow = append(newRow, row[idx+1:]...)
		out.Rows[i] = newRow
	}
	return out
}

// FloatColumn extracts a numeric column. Non-numeric cells are an error.
func (f *Frame) FloatColumn(name string) ([]float64, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(f.Rows))
	for i, row := range f.Rows {
		v, ok := row[idx].(float64)
		if !ok {
			return nil, fmt.Errorf("column %q row %d is not numeric", name, i)
		}
		out[i] = v
	}
	return out, nil
}

// StringColumn extracts a categorical column as strings.
func (f *Frame) StringColumn(name string) ([]string, error) {
	idx := f.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]string, len(f.Rows))
	for i, row := range f.Rows {
		switch v := row[idx].(type) {
		case string:
			out[i] = v
		case float64:
			out[i] = strconv.FormatFloat(v, 'g', -1, 64)
		default:
			return nil, fmt.Errorf("column %q row %d has unsupported type", name, i)
		}
	}
	return out, nil
}

// LabelColumn extracts an integer label column such as quality.
func (f *Frame) LabelColumn(name string) ([]int, error) {
	values, err := f.FloatColumn(name)
	if err != nil {
		return nil, err
	}
	labels := make([]int, len(values))
	for i, v := range values {
		labels[i] = int(v)
	}
	return labels, nil
}

// FromRecords builds a single frame in training-schema column order from
// feature records, excluding the target.
func FromRecords(records []models.FeatureRecord) *Frame {
	f := &Frame{Columns: models.TrainingColumns()}
	f.Rows = make([][]any, len(records))
	for i, rec := range records {
		f.Rows[i] = rec.Values()
	}
	return f
}

// Load reads a CSV dataset. Numeric cells are parsed to float64; any row
// with a missing or unparseable cell is dropped, matching the reference
// pipeline's dropna behaviour. The type column stays a string.
func Load(path string) (*Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	// Ragged rows are dropped in parseRow rather than aborting the read.
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read dataset header: %w", err)
	}

	f := &Frame{Columns: header}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return nil, fmt.Errorf("read dataset: %w", err)
		}
		row, ok := parseRow(header, record)
		if !ok {
			continue
		}
		f.Rows = append(f.Rows, row)
	}
	return f, nil
}

func parseRow(header, record []string) ([]any, bool) {
	if len(record) != len(header) {
		return nil, false
	}
	row := make([]any, len(record))
	for i, cell := range record {
		if cell == "" {
			return nil, false
		}
		if header[i] == "type" {
			row[i] = cell
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		row[i] = v
	}
	return row, true
}

// Save writes the frame as CSV, creating parent directories as needed.
func Save(f *Frame, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dataset dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create dataset: %w", err)
	}
	defer file.Close()
	return f.WriteCSV(file)
}

// WriteCSV encodes the frame as CSV with a header row.
func (f *Frame) WriteCSV(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(f.Columns); err != nil {
		return err
	}
	for _, row := range f.Rows {
		record := make([]string, len(row))
		for i, cell := range row {
			record[i] = formatCell(cell)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatCell(cell any) string {
	switch v := cell.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Split partitions the frame into train and test sets with a seeded shuffle,
// so the same seed always yields the same partition.
func Split(f *Frame, testSize float64, seed int64) (*Frame, *Frame, error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("test size %v outside (0, 1)", testSize)
	}

	n := f.NumRows()
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })

	// Round up, so a non-integer ratio never yields an undersized test set.
	testCount := int(math.Ceil(float64(n) * testSize))
	test := &Frame{Columns: append([]string(nil), f.Columns...)}
	train := &Frame{Columns: append([]string(nil), f.Columns...)}
	for i, idx := range indices {
		row := append([]any(nil), f.Rows[idx]...)
		if i < testCount {
			test.Rows = append(test.Rows, row)
		} else {
			train.Rows = append(train.Rows, row)
		}
	}
	return train, test, nil
}
