package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
)

// CSVReader reads records from a CSV export with a header row.
type CSVReader struct {
	r      *csv.Reader
	header []string
	line   int
}

// NewCSVReader consumes the header row of r and returns a reader for the
// remaining rows. An empty input yields a reader that returns io.EOF.
func NewCSVReader(r io.Reader) (*CSVReader, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &CSVReader{r: cr}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	// strip a UTF-8 byte order mark left by spreadsheet exports
	if len(header) > 0 && len(header[0]) >= 3 && header[0][:3] == "\xef\xbb\xbf" {
		header[0] = header[0][3:]
	}
	return &CSVReader{r: cr, header: header, line: 1}, nil
}

// Read returns the next record. Rows shorter than the header are padded
// with empty values, extra values are ignored.
func (c *CSVReader) Read() (*Record, error) {
	if c.header == nil {
		return nil, io.EOF
	}
	row, err := c.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read csv row %d: %w", c.line+1, err)
	}
	c.line++

	cols := make(map[string]string, len(c.header))
	for i, name := range c.header {
		if i < len(row) {
			cols[name] = row[i]
		} else {
			cols[name] = ""
		}
	}
	return FromColumns(cols), nil
}

// ReadAll drains r into a slice.
func ReadAll(r Reader) ([]*Record, error) {
	var out []*Record
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
