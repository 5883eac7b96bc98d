// Package points reads and writes labelled point sets in the formats used
// by common neuroimaging tools. Points are held in RAS world coordinates;
// formats using another convention are converted on the way in and out.
package points

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"pndniutils/internal/models"
	"pndniutils/internal/numfmt"
)

// ErrUnsupportedFormat is returned for file extensions with no reader or
// writer.
var ErrUnsupportedFormat = errors.New("unsupported file type")

// Format identifies a point file format.
type Format int

const (
	// TSV is a tab separated table with x, y, z and index columns, in RAS.
	TSV Format = iota
	// ANTsCSV is a comma separated table with x, y, z, index and t
	// columns, in LPS.
	ANTsCSV
	// MNITag is an MNI tag point file, in RAS.
	MNITag
	// SlicerFCSV is a 3D Slicer markups fiducial file, in RAS.
	SlicerFCSV
)

func (f Format) String() string {
	switch f {
	case TSV:
		return "tsv"
	case ANTsCSV:
		return "ants-csv"
	case MNITag:
		return "mni-tag"
	case SlicerFCSV:
		return "slicer-fcsv"
	default:
		return "unknown"
	}
}

// FormatFor picks the format from the file extension.
func FormatFor(path string) (Format, error) {
	switch filepath.Ext(path) {
	case ".tsv":
		return TSV, nil
	case ".csv":
		return ANTsCSV, nil
	case ".tag":
		return MNITag, nil
	case ".fcsv":
		return SlicerFCSV, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}

var fcsvHeader = []string{
	"# Markups fiducial file version = 4.10.2",
	"# CoordinateSystem = 0",
	"# columns = id,x,y,z,label",
}

// ReadFile reads points from path, choosing the format by extension.
func ReadFile(path string) ([]models.Point, error) {
	format, err := FormatFor(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	pts, err := Read(f, format)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	log.WithFields(log.Fields{"file": path, "format": format, "points": len(pts)}).Debug("Read points")
	return pts, nil
}

// WriteFile writes points to path, choosing the format by extension.
func WriteFile(path string, pts []models.Point) error {
	format, err := FormatFor(path)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := Write(w, format, pts); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read parses points in the given format.
func Read(r io.Reader, format Format) ([]models.Point, error) {
	switch format {
	case TSV:
		return readTable(r, '\t', false)
	case ANTsCSV:
		return readTable(r, ',', true)
	case MNITag:
		return readTag(r)
	case SlicerFCSV:
		return readFCSV(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

// Write serialises points in the given format.
func Write(w io.Writer, format Format, pts []models.Point) error {
	switch format {
	case TSV:
		return writeTSV(w, pts)
	case ANTsCSV:
		return writeANTs(w, pts)
	case MNITag:
		return writeTag(w, pts)
	case SlicerFCSV:
		return writeFCSV(w, pts)
	default:
		return ErrUnsupportedFormat
	}
}

func parsePoint(x, y, z, index string) (models.Point, error) {
	var p models.Point
	var err error
	if p.X, err = strconv.ParseFloat(strings.TrimSpace(x), 64); err != nil {
		return p, err
	}
	if p.Y, err = strconv.ParseFloat(strings.TrimSpace(y), 64); err != nil {
		return p, err
	}
	if p.Z, err = strconv.ParseFloat(strings.TrimSpace(z), 64); err != nil {
		return p, err
	}
	if p.Index, err = strconv.Atoi(strings.TrimSpace(index)); err != nil {
		return p, err
	}
	return p, nil
}

// readTable reads a delimited table with a header naming at least the x,
// y, z and index columns. Other columns are ignored. lps negates x and y.
func readTable(r io.Reader, delim rune, lps bool) ([]models.Point, error) {
	cr := csv.NewReader(r)
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("missing header row")
	}
	col := make(map[string]int)
	for i, name := range rows[0] {
		col[name] = i
	}
	for _, name := range []string{"x", "y", "z", "index"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing %q column", name)
		}
	}

	pts := make([]models.Point, 0, len(rows)-1)
	for n, row := range rows[1:] {
		get := func(name string) string {
			if i := col[name]; i < len(row) {
				return row[i]
			}
			return ""
		}
		p, err := parsePoint(get("x"), get("y"), get("z"), get("index"))
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		if lps {
			p.X, p.Y = -p.X, -p.Y
		}
		pts = append(pts, p)
	}
	return pts, nil
}

func writeTSV(w io.Writer, pts []models.Point) error {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	cw.UseCRLF = true
	if err := cw.Write([]string{"x", "y", "z", "index"}); err != nil {
		return err
	}
	for _, p := range pts {
		if err := cw.Write([]string{numfmt.Float(p.X), numfmt.Float(p.Y), numfmt.Float(p.Z), strconv.Itoa(p.Index)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeANTs(w io.Writer, pts []models.Point) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	if err := cw.Write([]string{"x", "y", "z", "index", "t"}); err != nil {
		return err
	}
	for _, p := range pts {
		row := []string{numfmt.Float(-p.X), numfmt.Float(-p.Y), numfmt.Float(p.Z), strconv.Itoa(p.Index), numfmt.Float(0)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

var (
	tagComment = regexp.MustCompile(`[#%][^\n]*\n`)
	tagBody    = regexp.MustCompile(`^MNI Tag Point File\n+Volumes = [12];\n+\s*Points =([^;]*);`)
)

// readTag reads an MNI tag file. Each point must have exactly seven
// fields (x, y, z, weight, structure id, patient id, quoted label); only
// the coordinates and label are kept.
func readTag(r io.Reader) ([]models.Point, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	contents := tagComment.ReplaceAllString(string(raw), "\n")
	m := tagBody.FindStringSubmatch(contents)
	if m == nil {
		return nil, errors.New("not an MNI tag point file")
	}
	fields := strings.Fields(m[1])
	if len(fields)%7 != 0 {
		return nil, errors.New("MNI Tags file must have 7 fields per point")
	}

	pts := make([]models.Point, 0, len(fields)/7)
	for i := 0; i < len(fields); i += 7 {
		row := fields[i : i+7]
		label := row[6]
		if len(label) < 2 || label[0] != '"' || label[len(label)-1] != '"' {
			return nil, fmt.Errorf("point %d: index must be surrounded by quotes", i/7+1)
		}
		p, err := parsePoint(row[0], row[1], row[2], label[1:len(label)-1])
		if err != nil {
			return nil, fmt.Errorf("point %d: %w", i/7+1, err)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

func writeTag(w io.Writer, pts []models.Point) error {
	var b strings.Builder
	b.WriteString("MNI Tag Point File\nVolumes = 1;\nPoints =")
	for _, p := range pts {
		fmt.Fprintf(&b, "\n %s %s %s 0 -1 -1 \"%d\"", numfmt.Float(p.X), numfmt.Float(p.Y), numfmt.Float(p.Z), p.Index)
	}
	b.WriteString(";\n")
	_, err := io.WriteString(w, b.String())
	return err
}

// readFCSV reads a Slicer fiducial file holding only the id, x, y, z and
// label columns. The id column is ignored.
func readFCSV(r io.Reader) ([]models.Point, error) {
	br := bufio.NewReader(r)
	for i, want := range fcsvHeader {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("line %d of fcsv: %w", i+1, err)
		}
		line = strings.TrimSpace(line)
		if i == 0 {
			key, _, _ := strings.Cut(line, "=")
			wantKey, _, _ := strings.Cut(want, "=")
			if key != wantKey {
				return nil, errors.New("first line of fcsv must be slicer version line")
			}
			continue
		}
		if line != want {
			return nil, fmt.Errorf("line %d of fcsv must be %s", i+1, want)
		}
	}

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	var pts []models.Point
	for n := 4; ; n++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("line %d of fcsv: expected 5 columns, got %d", n, len(row))
		}
		p, err := parsePoint(row[1], row[2], row[3], row[4])
		if err != nil {
			return nil, fmt.Errorf("line %d of fcsv: %w", n, err)
		}
		pts = append(pts, p)
	}
	return pts, nil
}

func writeFCSV(w io.Writer, pts []models.Point) error {
	if _, err := io.WriteString(w, strings.Join(fcsvHeader, "\n")+"\n"); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	cw.UseCRLF = true
	for i, p := range pts {
		row := []string{strconv.Itoa(i), numfmt.Float(p.X), numfmt.Float(p.Y), numfmt.Float(p.Z), strconv.Itoa(p.Index)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
