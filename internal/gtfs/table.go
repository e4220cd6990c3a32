package gtfs

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Table reads one CSV input table row by row. Fields are addressed by header
// name so column order in the file does not matter.
type Table struct {
	path string
	file *os.File
	r    *csv.Reader
	idx  map[string]int
	row  []string
	line int
	err  error
}

// OpenTable opens a CSV table and reads its header. A missing file is
// reported as a FeedError wrapping fs.ErrNotExist so callers can distinguish
// absent optional tables from broken ones.
func OpenTable(path string) (*Table, error) {
	name := filepath.Base(path)
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &FeedError{File: name, Reason: "file not found", Err: err}
		}
		return nil, &FeedError{File: name, Reason: "cannot open file", Err: err}
	}

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true
	header, err := r.Read()
	if err != nil {
		f.Close()
		if err == io.EOF {
			return nil, &FeedError{File: name, Reason: "file is empty", Err: err}
		}
		return nil, &FeedError{File: name, Reason: "cannot read header", Err: err}
	}

	return &Table{
		path: path,
		file: f,
		r:    r,
		idx:  makeIndex(header),
		line: 1,
	}, nil
}

// makeIndex maps trimmed header names to their column positions. A UTF-8 BOM
// on the first column is stripped.
func makeIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		h = strings.TrimPrefix(h, "\uFEFF")
		idx[h] = i
	}
	return idx
}

// Next advances to the next data row. It returns false at end of file or on
// error; check Err afterwards.
func (t *Table) Next() bool {
	if t.err != nil {
		return false
	}
	row, err := t.r.Read()
	if err == io.EOF {
		return false
	}
	t.line++
	if err != nil {
		t.err = &FeedError{File: t.Name(), Line: t.line, Reason: "malformed row", Err: err}
		return false
	}
	t.row = row
	return true
}

// Field returns the current row's value for the named column, trimmed. It
// returns "" when the column is absent from the file.
func (t *Table) Field(name string) string {
	i, ok := t.idx[name]
	if !ok || i >= len(t.row) {
		return ""
	}
	return strings.TrimSpace(t.row[i])
}

// IntField parses the named column as an integer. An empty value returns the
// fallback; a non-numeric value is recorded as the table error.
func (t *Table) IntField(name string, fallback int) int {
	v := t.Field(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		t.fail(name, fmt.Sprintf("not an integer: %q", v))
		return fallback
	}
	return n
}

// FloatField parses the named column as a float. An empty value returns the
// fallback; a non-numeric value is recorded as the table error.
func (t *Table) FloatField(name string, fallback float64) float64 {
	v := t.Field(name)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		t.fail(name, fmt.Sprintf("not a number: %q", v))
		return fallback
	}
	return f
}

// TimeField parses the named column as a GTFS HH:MM:SS clock time and
// returns seconds since midnight. Hours may exceed 24 for trips running past
// midnight. An empty value returns -1.
func (t *Table) TimeField(name string) int {
	v := t.Field(name)
	if v == "" {
		return -1
	}
	sec, err := parseClock(v)
	if err != nil {
		t.fail(name, err.Error())
		return -1
	}
	return sec
}

func parseClock(v string) (int, error) {
	parts := strings.Split(v, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("bad time %q: want HH:MM:SS", v)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	s, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil || h < 0 || m < 0 || m > 59 || s < 0 || s > 59 {
		return 0, fmt.Errorf("bad time %q: want HH:MM:SS", v)
	}
	return h*3600 + m*60 + s, nil
}

// RequireColumns records an error unless every named column is present in
// the header.
func (t *Table) RequireColumns(names ...string) bool {
	for _, n := range names {
		if _, ok := t.idx[n]; !ok {
			t.fail(n, "required column missing")
			return false
		}
	}
	return true
}

// HasColumn reports whether the header contains the named column.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.idx[name]
	return ok
}

// Name returns the base name of the table's file.
func (t *Table) Name() string { return filepath.Base(t.path) }

// Line returns the 1-based line number of the current row.
func (t *Table) Line() int { return t.line }

// Err returns the first error hit while reading, or nil.
func (t *Table) Err() error { return t.err }

func (t *Table) fail(column, reason string) {
	if t.err == nil {
		t.err = &FeedError{File: t.Name(), Line: t.line, Column: column, Reason: reason}
	}
}

func (t *Table) Close() error { return t.file.Close() }
