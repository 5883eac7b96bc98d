// Command convertpoints converts a labelled point file to another format.
// Formats are chosen by extension:
//
//	.tsv   x, y, z and index columns, RAS
//	.csv   ANTs x, y, z, index (and t) columns, LPS
//	.tag   MNI tag points with 7 fields each and a quoted label, RAS
//	.fcsv  3D Slicer fiducials with id, x, y, z, label columns, RAS
package main

import (
	"flag"
	"fmt"
	"os"

	"pndniutils/internal/cli"
	"pndniutils/pkg/points"
)

func main() {
	fs := flag.NewFlagSet("convertpoints", flag.ContinueOnError)
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: convertpoints INFILE OUTFILE [flags]\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, os.Args[1:], 2, false)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if _, err := common.Setup(); err != nil {
		cli.Fatal(fs, err)
	}

	pts, err := points.ReadFile(pos[0])
	if err != nil {
		cli.Fatal(fs, err)
	}
	if err := points.WriteFile(pos[1], pts); err != nil {
		cli.Fatal(fs, err)
	}
}
