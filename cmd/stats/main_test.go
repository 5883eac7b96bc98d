package main

import (
	"bytes"
	"flag"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"pndniutils/pkg/nifti"
)

func createImage(t *testing.T, dir, name string, values ...float64) string {
	t.Helper()
	img, err := nifti.NewImage(values, [3]int{len(values), 1, 1}, nifti.Float64)
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := nifti.Save(path, img); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	return path
}

func runStats(t *testing.T, args ...string) string {
	t.Helper()
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	var out bytes.Buffer
	if err := run(fs, args, &out); err != nil {
		t.Fatalf("run(%v) failed: %v", args, err)
	}
	return strings.TrimSuffix(out.String(), "\n")
}

func TestStatsFlagOrder(t *testing.T) {
	dir := t.TempDir()
	input := createImage(t, dir, "in.nii", 1, 3)

	if got, want := runStats(t, input, "--median", "-s", "-m"), "2.0 1.4142135623730951 2.0"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if got, want := runStats(t, "-m", input, "-m"), "2.0 2.0"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStatsMasked(t *testing.T) {
	dir := t.TempDir()
	input := createImage(t, dir, "in.nii", 1, 3, 5)
	mask := createImage(t, dir, "mask.nii", 1, 3, 3)

	// label 2 is empty
	if got, want := runStats(t, "-K", mask, input, "-m", "-s"), "1.0 0.0 0.0 0.0 4.0 1.4142135623730951"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStatsErrors(t *testing.T) {
	dir := t.TempDir()
	input := createImage(t, dir, "in.nii", 1, 3)
	mask := createImage(t, dir, "mask.nii", 0.5, 1)
	short := createImage(t, dir, "short.nii", 1)

	for _, args := range [][]string{
		{},
		{input, input},
		{"-K", mask, input, "-m"},
		{"-K", short, input, "-m"},
		{filepath.Join(dir, "missing.nii"), "-m"},
	} {
		fs := flag.NewFlagSet("stats", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if err := run(fs, args, io.Discard); err == nil {
			t.Errorf("run(%v): expected error", args)
		}
	}
}
