// Command combinelabels merges label images so that every combination of
// input labels gets its own output label.
package main

import (
	"flag"
	"fmt"
	"os"

	"pndniutils/internal/cli"
	"pndniutils/pkg/labels"
	"pndniutils/pkg/nifti"
)

func main() {
	fs := flag.NewFlagSet("combinelabels", flag.ContinueOnError)
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: combinelabels OUTPUT INPUT... [flags]\n\n"+
			"Each input must hold integer labels >= 0. Labels are combined pairwise as\n"+
			"l1 + (l2-1)*max(l1), with voxels unlabelled in any input set to 0.\n\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, os.Args[1:], 2, true)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if _, err := common.Setup(); err != nil {
		cli.Fatal(fs, err)
	}

	var images []*nifti.Image
	for _, path := range pos[1:] {
		img, err := nifti.Load(path)
		if err != nil {
			cli.Fatal(fs, err)
		}
		images = append(images, img)
	}
	out, err := labels.Combine(images)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if err := nifti.Save(pos[0], out); err != nil {
		cli.Fatal(fs, err)
	}
}
