// Command swaplabels remaps label values in an image. For example
//
//	swaplabels "2: 1, 5: 10" input.nii output.nii
//
// changes every 2 to 1 and every 5 to 10. Unmapped values become 0.
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
	fs := flag.NewFlagSet("swaplabels", flag.ContinueOnError)
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: swaplabels MAP INPUT OUTPUT [flags]\n\n"+
			"MAP has the form 'in1: out1, in2: out2, ...'; all values must be integers.\n\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, os.Args[1:], 3, false)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if _, err := common.Setup(); err != nil {
		cli.Fatal(fs, err)
	}

	m, err := labels.ParseMap(pos[0])
	if err != nil {
		cli.Fatal(fs, fmt.Errorf("%w: %v", cli.ErrUsage, err))
	}
	img, err := nifti.Load(pos[1])
	if err != nil {
		cli.Fatal(fs, err)
	}
	out, err := labels.Swap(img, m)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if err := nifti.Save(pos[2], out); err != nil {
		cli.Fatal(fs, err)
	}
}
