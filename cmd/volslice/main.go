// Command volslice writes every slice of a volume along one axis as a JPEG
// snapshot for quality control. The volume is reoriented to RAS first so
// snapshots of differently stored images line up.
package main

import (
	"flag"
	"fmt"
	"os"

	"pndniutils/internal/cli"
	"pndniutils/pkg/nifti"
	"pndniutils/pkg/visualization"
	"pndniutils/pkg/volume"
)

func main() {
	fs := flag.NewFlagSet("volslice", flag.ContinueOnError)
	axis := fs.String("axis", "", "Slicing axis: x, y or z (default from config)")
	quality := fs.Int("quality", 0, "JPEG quality 1-100 (default from config)")
	numCores := fs.Int("cores", 0, "Number of CPU cores to use (default from config: all available)")
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: volslice INPUT OUTDIR [flags]\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, os.Args[1:], 2, false)
	if err != nil {
		cli.Fatal(fs, err)
	}
	cfg, err := common.Setup()
	if err != nil {
		cli.Fatal(fs, err)
	}
	if *axis == "" {
		*axis = cfg.Preview.Axis
	}
	if *quality == 0 {
		*quality = cfg.Preview.Quality
	}
	if *numCores == 0 {
		*numCores = cfg.Preview.NumCores
	}
	if *quality < 1 || *quality > 100 {
		cli.Fatal(fs, fmt.Errorf("%w: quality %d out of range 1-100", cli.ErrUsage, *quality))
	}

	img, err := nifti.Load(pos[0])
	if err != nil {
		cli.Fatal(fs, err)
	}
	v, err := volume.Canonical(img.Volume())
	if err != nil {
		cli.Fatal(fs, err)
	}
	viewer := visualization.NewViewer(v, *quality)
	viewer.SetNumCores(*numCores)
	if _, err := viewer.SaveSliceSequence(*axis, pos[1]); err != nil {
		cli.Fatal(fs, err)
	}
}
