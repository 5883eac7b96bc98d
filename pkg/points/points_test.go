package points

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"pndniutils/internal/models"
)

var fixtures = map[string]string{
	"mni.tag": "MNI Tag Point File\nVolumes = 1;\nPoints =\n" +
		" 1.1 1.2 1.3 0 -1 -1 \"10\"\n" +
		" 2.1 2.2 2.3 0 -1 -1 \"20\";\n",
	"ants.csv": "x,y,z,index,t\r\n" +
		"-1.1,-1.2,1.3,10,0.0\r\n" +
		"-2.1,-2.2,2.3,20,0.0\r\n",
	"simple.tsv": "x\ty\tz\tindex\r\n" +
		"1.1\t1.2\t1.3\t10\t0.0\r\n" +
		"2.1\t2.2\t2.3\t20\t0.0\r\n",
	"slicer.fcsv": "# Markups fiducial file version = 4.10.2\n" +
		"# CoordinateSystem = 0\n" +
		"# columns = id,x,y,z,label\n" +
		"0,1.1,1.2,1.3,10\r\n" +
		"1,2.1,2.2,2.3,20\r\n",
}

var expected = []models.Point{
	{X: 1.1, Y: 1.2, Z: 1.3, Index: 10},
	{X: 2.1, Y: 2.2, Z: 2.3, Index: 20},
}

// createFixtures writes every fixture file into a fresh temp dir.
func createFixtures(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range fixtures {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	return dir
}

func TestReadFile(t *testing.T) {
	dir := createFixtures(t)
	for name := range fixtures {
		pts, err := ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("%s: ReadFile failed: %v", name, err)
		}
		if !reflect.DeepEqual(pts, expected) {
			t.Errorf("%s: got %+v, want %+v", name, pts, expected)
		}
	}
}

func TestWriteMatchesFixtures(t *testing.T) {
	for _, name := range []string{"ants.csv", "mni.tag", "slicer.fcsv"} {
		format, err := FormatFor(name)
		if err != nil {
			t.Fatalf("FormatFor(%s) failed: %v", name, err)
		}
		var buf bytes.Buffer
		if err := Write(&buf, format, expected); err != nil {
			t.Fatalf("%s: Write failed: %v", name, err)
		}
		if buf.String() != fixtures[name] {
			t.Errorf("%s: wrote\n%q\nwant\n%q", name, buf.String(), fixtures[name])
		}
	}
}

func TestWriteTSV(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, TSV, expected); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "x\ty\tz\tindex\r\n1.1\t1.2\t1.3\t10\r\n2.1\t2.2\t2.3\t20\r\n"
	if buf.String() != want {
		t.Errorf("wrote %q, want %q", buf.String(), want)
	}
}

func TestConvertAllPairs(t *testing.T) {
	dir := createFixtures(t)
	for in := range fixtures {
		for _, out := range []string{"ants.csv", "mni.tag", "slicer.fcsv"} {
			pts, err := ReadFile(filepath.Join(dir, in))
			if err != nil {
				t.Fatalf("%s: ReadFile failed: %v", in, err)
			}
			outPath := filepath.Join(dir, "out_"+out)
			if err := WriteFile(outPath, pts); err != nil {
				t.Fatalf("%s: WriteFile failed: %v", out, err)
			}
			got, err := os.ReadFile(outPath)
			if err != nil {
				t.Fatalf("failed to read %s: %v", outPath, err)
			}
			if string(got) != fixtures[out] {
				t.Errorf("%s -> %s: wrote %q, want %q", in, out, got, fixtures[out])
			}
		}
	}
}

func TestReadTagComments(t *testing.T) {
	body := "MNI Tag Point File\nVolumes = 1;\n% a comment\nPoints =\n 1 2 3 0 -1 -1 \"4\" # trailing\n;\n"
	pts, err := Read(strings.NewReader(body), MNITag)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if want := []models.Point{{X: 1, Y: 2, Z: 3, Index: 4}}; !reflect.DeepEqual(pts, want) {
		t.Errorf("got %+v, want %+v", pts, want)
	}
}

func TestReadErrors(t *testing.T) {
	cases := []struct {
		name   string
		format Format
		body   string
	}{
		{"tag field count", MNITag, "MNI Tag Point File\nVolumes = 1;\nPoints =\n 1 2 3 0 -1 \"4\";\n"},
		{"tag unquoted", MNITag, "MNI Tag Point File\nVolumes = 1;\nPoints =\n 1 2 3 0 -1 -1 4;\n"},
		{"tag header", MNITag, "Not a tag file\n"},
		{"fcsv version", SlicerFCSV, "# Something = 1\n# CoordinateSystem = 0\n# columns = id,x,y,z,label\n"},
		{"fcsv system", SlicerFCSV, "# Markups fiducial file version = 4.11\n# CoordinateSystem = 1\n# columns = id,x,y,z,label\n"},
		{"tsv missing column", TSV, "x\ty\tz\n1\t2\t3\n"},
		{"csv bad number", ANTsCSV, "x,y,z,index\n1,two,3,4\n"},
	}
	for _, tc := range cases {
		if _, err := Read(strings.NewReader(tc.body), tc.format); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}

func TestFormatFor(t *testing.T) {
	if _, err := FormatFor("points.txt"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("err = %v, want ErrUnsupportedFormat", err)
	}
	if f, err := FormatFor("/a/b.c/points.fcsv"); err != nil || f != SlicerFCSV {
		t.Errorf("FormatFor = %v, %v", f, err)
	}
}
