// Package catalog parses equipment and irradiance catalogs from CSV exports.
// Headers are matched loosely: case, accents, spaces, underscores and
// punctuation are ignored, and decimal commas are accepted.
package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrNoHeader = errors.New("csv has no header row")

// Skip is a data row that was not imported.
type Skip struct {
	Line   int
	Reason string
}

// Result holds the parsed rows of one file.
type Result[T any] struct {
	Items   []T
	Skipped []Skip
}

func (r *Result[T]) skip(line int, format string, args ...interface{}) {
	r.Skipped = append(r.Skipped, Skip{Line: line, Reason: fmt.Sprintf(format, args...)})
}

// NormalizeHeader folds a column name to its matching key.
func NormalizeHeader(s string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type table struct {
	reader  *csv.Reader
	columns map[string]int
}

func openTable(r io.Reader) (*table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoHeader
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, h := range header {
		key := NormalizeHeader(h)
		if _, dup := columns[key]; !dup && key != "" {
			columns[key] = i
		}
	}
	if len(columns) == 0 {
		return nil, ErrNoHeader
	}
	return &table{reader: cr, columns: columns}, nil
}

// next returns the next record and its line number, or io.EOF.
func (t *table) next() (row, error) {
	record, err := t.reader.Read()
	if err != nil {
		return row{}, err
	}
	line, _ := t.reader.FieldPos(0)
	return row{t: t, record: record, line: line}, nil
}

// each calls fn for every data row. Malformed CSV aborts the whole file.
func (t *table) each(fn func(row)) error {
	for {
		r, err := t.next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read csv: %w", err)
		}
		if r.blank() {
			continue
		}
		fn(r)
	}
}

type row struct {
	t      *table
	record []string
	line   int
}

func (r row) blank() bool {
	for _, v := range r.record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// text returns the trimmed value of the first present column among names.
func (r row) text(names ...string) string {
	for _, name := range names {
		if i, ok := r.t.columns[NormalizeHeader(name)]; ok && i < len(r.record) {
			return strings.TrimSpace(r.record[i])
		}
	}
	return ""
}

// number parses a decimal column. ok is false when the cell is empty.
func (r row) number(names ...string) (v float64, ok bool, err error) {
	s := strings.ReplaceAll(r.text(names...), ",", ".")
	if s == "" {
		return 0, false, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", s)
	}
	return d.InexactFloat64(), true, nil
}

// optional is number as a pointer, nil for an empty cell.
func (r row) optional(names ...string) (*float64, error) {
	v, ok, err := r.number(names...)
	if err != nil || !ok {
		return nil, err
	}
	return &v, nil
}

// integer accepts whole numbers written as decimals, e.g. "12.0".
func (r row) integer(names ...string) (v int64, ok bool, err error) {
	s := r.text(names...)
	if s == "" {
		return 0, false, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true, nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
	if err != nil || !d.Equal(d.Truncate(0)) {
		return 0, false, fmt.Errorf("%q is not a whole number", s)
	}
	return d.IntPart(), true, nil
}
