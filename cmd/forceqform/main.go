// Command forceqform rewrites a NIfTI header so that only the qform is set,
// so tools that read only the qform agree with tools that prefer the
// sform.
package main

import (
	"flag"
	"fmt"
	"os"

	"pndniutils/internal/cli"
	"pndniutils/pkg/nifti"
)

func main() {
	fs := flag.NewFlagSet("forceqform", flag.ContinueOnError)
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: forceqform INPUT OUTPUT [flags]\n\n"+
			"  qform set, sform unset: unchanged\n"+
			"  both set:               sform cleared\n"+
			"  only sform set:         qform set from the sform (shears rejected), sform cleared\n"+
			"  neither set:            error\n\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, os.Args[1:], 2, false)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if _, err := common.Setup(); err != nil {
		cli.Fatal(fs, err)
	}

	img, err := nifti.Load(pos[0])
	if err != nil {
		cli.Fatal(fs, err)
	}
	if err := img.Header.ForceQForm(); err != nil {
		cli.Fatal(fs, fmt.Errorf("%s: %w", pos[0], err))
	}
	if err := nifti.Save(pos[1], img); err != nil {
		cli.Fatal(fs, err)
	}
}
