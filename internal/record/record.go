// Package record defines the normalized SIEM event record and the readers
// that produce record streams from CSV exports and Wazuh alert JSON.
package record

import (
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// Column names of the normalized CSV export.
const (
	ColumnID        = "id"
	ColumnTimestamp = "timestamp"
	ColumnRule      = "rule"
	ColumnAgent     = "agent"
	ColumnFullLog   = "full_log"
	ColumnLocation  = "location"
)

// Descriptor is the raw text of a JSON object column (rule or agent).
// Lookups parse lazily; text that is not a JSON object behaves as an
// empty mapping.
type Descriptor string

// Raw returns the unparsed column text.
func (d Descriptor) Raw() string { return string(d) }

// Valid reports whether the text parses as a JSON object.
func (d Descriptor) Valid() bool {
	s := strings.TrimSpace(string(d))
	return s != "" && gjson.Valid(s) && gjson.Parse(s).IsObject()
}

// String returns the value at key as text, or "" when absent, null, or
// the descriptor is malformed. Numbers are returned in their JSON form.
func (d Descriptor) String(key string) string {
	r, ok := d.lookup(key)
	if !ok || r.Type == gjson.Null {
		return ""
	}
	return r.String()
}

// Has reports whether key is present in the descriptor.
func (d Descriptor) Has(key string) bool {
	_, ok := d.lookup(key)
	return ok
}

func (d Descriptor) lookup(key string) (gjson.Result, bool) {
	if !d.Valid() {
		return gjson.Result{}, false
	}
	r := gjson.Get(string(d), key)
	return r, r.Exists()
}

// Record is one normalized SIEM event. Records are immutable once read.
type Record struct {
	ID        string
	Timestamp string
	Rule      Descriptor
	Agent     Descriptor
	FullLog   string
	Location  string

	// Fields holds every raw column by name, including the ones above.
	Fields map[string]string
}

// Field returns the raw text of the named column, or "" when absent.
func (r *Record) Field(name string) string {
	switch name {
	case ColumnID:
		return r.ID
	case ColumnTimestamp:
		return r.Timestamp
	case ColumnRule:
		return r.Rule.Raw()
	case ColumnAgent:
		return r.Agent.Raw()
	case ColumnFullLog:
		return r.FullLog
	case ColumnLocation:
		return r.Location
	}
	return r.Fields[name]
}

// FromColumns builds a Record from a column name to value mapping.
// Missing columns are treated as empty.
func FromColumns(cols map[string]string) *Record {
	fields := make(map[string]string, len(cols))
	for k, v := range cols {
		fields[k] = v
	}
	return &Record{
		ID:        cols[ColumnID],
		Timestamp: cols[ColumnTimestamp],
		Rule:      Descriptor(cols[ColumnRule]),
		Agent:     Descriptor(cols[ColumnAgent]),
		FullLog:   cols[ColumnFullLog],
		Location:  cols[ColumnLocation],
		Fields:    fields,
	}
}

// FromWazuhAlert converts one Wazuh alert JSON document into a Record.
// Nested rule and agent objects are kept as descriptor text. Returns
// false when line is not a JSON object.
func FromWazuhAlert(line string) (*Record, bool) {
	if !gjson.Valid(line) {
		return nil, false
	}
	doc := gjson.Parse(line)
	if !doc.IsObject() {
		return nil, false
	}

	cols := make(map[string]string)
	doc.ForEach(func(key, value gjson.Result) bool {
		if value.IsObject() || value.IsArray() {
			cols[key.String()] = value.Raw
		} else {
			cols[key.String()] = value.String()
		}
		return true
	})
	return FromColumns(cols), true
}

// Reader yields records in arrival order. Read returns io.EOF when the
// stream is exhausted.
type Reader interface {
	Read() (*Record, error)
}

// SliceReader is a Reader over an in-memory slice of records.
type SliceReader struct {
	recs []*Record
	pos  int
}

// NewSliceReader returns a Reader over recs.
func NewSliceReader(recs []*Record) *SliceReader {
	return &SliceReader{recs: recs}
}

// Read returns the next record or io.EOF.
func (s *SliceReader) Read() (*Record, error) {
	if s.pos >= len(s.recs) {
		return nil, io.EOF
	}
	r := s.recs[s.pos]
	s.pos++
	return r, nil
}
