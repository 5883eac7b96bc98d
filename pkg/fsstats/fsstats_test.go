package fsstats

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const (
	aparcArea = "lh.aparc.area\tlh_bankssts_area\tlh_cuneus_area\n" +
		"sub-02\t1100\t1500\n" +
		"sub-01\t1000\t1400\n"
	asegMean = "Measure:mean\tLeft-Thalamus\tBrainSegVol\n" +
		"sub-01\t90.5\t1200000\n"
	asegVolume = "Measure:volume\tLeft-Thalamus\tBrainSegVol\n" +
		"sub-01\t7000\t1200000\n" +
		"sub-03\t7100\t1150000\n"
)

func mustRead(t *testing.T, body string) *Table {
	t.Helper()
	tbl, err := Read(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	return tbl
}

func TestReadAsegPrefix(t *testing.T) {
	tbl := mustRead(t, asegMean)
	want := []string{"aseg_mean_Left-Thalamus", "aseg_mean_BrainSegVol"}
	if !reflect.DeepEqual(tbl.Columns, want) {
		t.Errorf("columns = %v, want %v", tbl.Columns, want)
	}
	if got := tbl.Rows["sub-01"]["aseg_mean_Left-Thalamus"]; got != "90.5" {
		t.Errorf("cell = %q, want 90.5", got)
	}

	tbl = mustRead(t, aparcArea)
	if tbl.Columns[0] != "lh_bankssts_area" {
		t.Errorf("aparc columns should not be prefixed: %v", tbl.Columns)
	}
}

func TestCombine(t *testing.T) {
	out, err := Combine([]*Table{mustRead(t, aparcArea), mustRead(t, asegMean), mustRead(t, asegVolume)})
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}
	var buf bytes.Buffer
	if err := out.Write(&buf); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	want := "ID\tlh_bankssts_area\tlh_cuneus_area\taseg_mean_Left-Thalamus\taseg_mean_BrainSegVol\taseg_volume_Left-Thalamus\taseg_volume_BrainSegVol\n" +
		"sub-01\t1000\t1400\t90.5\t1200000\t7000\t1200000\n" +
		"sub-02\t1100\t1500\t\t\t\t\n" +
		"sub-03\t\t\t\t\t7100\t1150000\n"
	if buf.String() != want {
		t.Errorf("wrote\n%q\nwant\n%q", buf.String(), want)
	}
}

func TestCombineDuplicateColumns(t *testing.T) {
	agree := "subject\tlh_cuneus_area\textra\n" +
		"sub-01\t1400.0\t1\n" +
		"sub-02\t1500\t2\n" +
		"sub-03\t\t3\n"
	out, err := Combine([]*Table{mustRead(t, aparcArea), mustRead(t, agree)})
	if err != nil {
		t.Fatalf("agreeing duplicate: Combine failed: %v", err)
	}
	if want := []string{"lh_bankssts_area", "lh_cuneus_area", "extra"}; !reflect.DeepEqual(out.Columns, want) {
		t.Errorf("columns = %v, want %v", out.Columns, want)
	}

	disagree := "subject\tlh_cuneus_area\n" +
		"sub-01\t1401\n" +
		"sub-02\t1500\n"
	if _, err := Combine([]*Table{mustRead(t, aparcArea), mustRead(t, disagree)}); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("disagreeing duplicate: err = %v, want ErrDuplicateColumn", err)
	}

	extraRow := "subject\tlh_cuneus_area\n" +
		"sub-01\t1400\n" +
		"sub-02\t1500\n" +
		"sub-09\t1600\n"
	if _, err := Combine([]*Table{mustRead(t, aparcArea), mustRead(t, extraRow)}); !errors.Is(err, ErrDuplicateColumn) {
		t.Errorf("duplicate with extra values: err = %v, want ErrDuplicateColumn", err)
	}
}

func TestReadDuplicateID(t *testing.T) {
	if _, err := Read(strings.NewReader("id\ta\ns1\t1\ns1\t2\n")); err == nil {
		t.Errorf("expected error for duplicate ID")
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "aparc.txt")
	if err := os.WriteFile(in, []byte(aparcArea), 0644); err != nil {
		t.Fatalf("failed to write input: %v", err)
	}
	tbl, err := ReadFile(in)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	outPath := filepath.Join(dir, "out.tsv")
	if err := tbl.WriteFile(outPath); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}
	want := "ID\tlh_bankssts_area\tlh_cuneus_area\nsub-01\t1000\t1400\nsub-02\t1100\t1500\n"
	if string(got) != want {
		t.Errorf("wrote %q, want %q", got, want)
	}
}
