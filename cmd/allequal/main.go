// Command allequal compares two NIfTI images after lining them up in world
// coordinates. Images may differ in data layout, or one may be a cropped
// version of the other, as long as their orientations agree.
//
// The exit status is 0 when the images are equal, 1 when the data differ,
// 2 when the voxel grids cannot be reconciled and 3 on any other error.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"pndniutils/internal/cli"
	"pndniutils/pkg/compare"
)

func main() {
	fs := flag.NewFlagSet("allequal", flag.ContinueOnError)
	status, err := run(fs, os.Args[1:], os.Stdout)
	if err != nil {
		cli.Fatal(fs, err)
	}
	os.Exit(status)
}

func run(fs *flag.FlagSet, args []string, stdout io.Writer) (int, error) {
	closeEq := fs.Bool("close", false, "Use approximate equality instead of checking for strict equality")
	round := fs.Bool("round", false, "Round each image to the nearest integer before comparing")
	intersectionOnly := fs.Bool("intersection_only", false, "Only compare data where the images overlap in world coordinates")
	roundOffset := fs.Bool("round_offset", false, "Round a non-integer voxel offset between the images instead of failing")
	verbose := fs.Bool("verbose", false, "Print the comparison result")
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: allequal IMAGE1 IMAGE2 [flags]\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, args, 2, false)
	if err != nil {
		return cli.ExitFailure, err
	}
	cfg, err := common.Setup()
	if err != nil {
		return cli.ExitFailure, err
	}

	opts := compare.Options{
		Close:            *closeEq,
		Round:            *round,
		IntersectionOnly: *intersectionOnly,
		RoundOffset:      *roundOffset,
		RTol:             cfg.Compare.RTol,
		ATol:             cfg.Compare.ATol,
	}
	res, err := compare.CompareFiles(pos[0], pos[1], opts)
	if err != nil {
		return cli.ExitFailure, err
	}

	if *verbose || cfg.Output.Verbose {
		fmt.Fprintln(stdout, res)
		if ne, ok := res.(compare.NotEqual); ok && ne.Diff != nil {
			fmt.Fprintln(stdout, ne.Diff)
		}
	}
	return res.StatusCode(), nil
}
