// Package fsstats merges FreeSurfer statistics tables produced by
// asegstats2table and aparcstats2table into one subject-by-measure table.
package fsstats

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"
)

// ErrDuplicateColumn is returned when two inputs share a column whose
// values disagree.
var ErrDuplicateColumn = errors.New("duplicate column with different values")

// IDColumn is the name given to the first (subject) column.
const IDColumn = "ID"

// Table is a tab separated table keyed by its first column. Cells are kept
// as text; a missing cell is the empty string.
type Table struct {
	// Columns are the measure columns, in order, excluding the ID column.
	Columns []string

	// Rows maps ID to column to cell.
	Rows map[string]map[string]string
}

// prefixes applied to aseg tables, which reuse structure names as columns
var asegPrefixes = map[string]string{
	"Measure:mean":   "aseg_mean_",
	"Measure:volume": "aseg_volume_",
}

// Read parses a table. The first column becomes the ID; aseg tables get
// their columns prefixed with the measure.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, errors.New("empty table")
	}

	header := records[0]
	prefix := asegPrefixes[header[0]]
	t := &Table{Rows: make(map[string]map[string]string)}
	for _, c := range header[1:] {
		t.Columns = append(t.Columns, prefix+c)
	}
	for n, rec := range records[1:] {
		id := rec[0]
		if _, dup := t.Rows[id]; dup {
			return nil, fmt.Errorf("row %d: duplicate ID %q", n+2, id)
		}
		row := make(map[string]string, len(t.Columns))
		for i, c := range t.Columns {
			if i+1 < len(rec) {
				row[c] = rec[i+1]
			}
		}
		t.Rows[id] = row
	}
	return t, nil
}

// ReadFile reads a table from path.
func ReadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	return t, nil
}

// sameCell compares two cells numerically when both are numbers.
func sameCell(a, b string) bool {
	if a == b {
		return true
	}
	x, errX := strconv.ParseFloat(a, 64)
	y, errY := strconv.ParseFloat(b, 64)
	return errX == nil && errY == nil && x == y
}

// column returns the non-missing cells of c keyed by ID.
func (t *Table) column(c string) map[string]string {
	out := make(map[string]string)
	for id, row := range t.Rows {
		if v := row[c]; v != "" {
			out[id] = v
		}
	}
	return out
}

func sameColumn(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for id, v := range a {
		w, ok := b[id]
		if !ok || !sameCell(v, w) {
			return false
		}
	}
	return true
}

// Combine outer-joins tables on ID. A column present in several tables is
// kept once, and only if its non-missing values agree.
func Combine(tables []*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, errors.New("no input tables")
	}
	out := &Table{Rows: make(map[string]map[string]string)}
	have := make(map[string]bool)
	for i, t := range tables {
		for _, c := range t.Columns {
			if have[c] {
				if !sameColumn(out.column(c), t.column(c)) {
					return nil, fmt.Errorf("%w: %s (input %d)", ErrDuplicateColumn, c, i+1)
				}
				log.WithField("column", c).Debug("Dropping duplicate column")
				continue
			}
			have[c] = true
			out.Columns = append(out.Columns, c)
			for id, row := range t.Rows {
				if _, ok := out.Rows[id]; !ok {
					out.Rows[id] = make(map[string]string)
				}
				out.Rows[id][c] = row[c]
			}
		}
		for id := range t.Rows {
			if _, ok := out.Rows[id]; !ok {
				out.Rows[id] = make(map[string]string)
			}
		}
	}
	return out, nil
}

// IDs returns the row IDs in sorted order.
func (t *Table) IDs() []string {
	ids := maps.Keys(t.Rows)
	sort.Strings(ids)
	return ids
}

// Write serialises the table as TSV with rows sorted by ID.
func (t *Table) Write(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	if err := cw.Write(append([]string{IDColumn}, t.Columns...)); err != nil {
		return err
	}
	for _, id := range t.IDs() {
		rec := make([]string, 0, len(t.Columns)+1)
		rec = append(rec, id)
		for _, c := range t.Columns {
			rec = append(rec, t.Rows[id][c])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table to path.
func (t *Table) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := t.Write(f); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	return f.Close()
}
