// Command stats behaves like fslstats with a different set of statistics.
// Statistics are printed space separated in the order their flags appear.
// With -K, every statistic is computed for each label 1..max of the mask.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"pndniutils/internal/cli"
	"pndniutils/internal/numfmt"
	"pndniutils/pkg/nifti"
	"pndniutils/pkg/stats"
)

// statFlag appends its statistic to a shared list each time it is set,
// so the output follows flag order and repeated flags repeat values.
type statFlag struct {
	stat stats.Statistic
	list *[]stats.Statistic
}

func (f *statFlag) String() string   { return "" }
func (f *statFlag) IsBoolFlag() bool { return true }

func (f *statFlag) Set(s string) error {
	if s != "true" {
		return fmt.Errorf("flag takes no value")
	}
	*f.list = append(*f.list, f.stat)
	return nil
}

func main() {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := run(fs, os.Args[1:], os.Stdout); err != nil {
		cli.Fatal(fs, err)
	}
}

func run(fs *flag.FlagSet, args []string, stdout io.Writer) error {
	var list []stats.Statistic
	mask := fs.String("K", "", "Label mask")
	fs.Var(&statFlag{stats.Mean, &list}, "m", "Mean")
	fs.Var(&statFlag{stats.StdDev, &list}, "s", "Standard deviation")
	fs.Var(&statFlag{stats.Skew, &list}, "skew", "Skewness")
	fs.Var(&statFlag{stats.Kurtosis, &list}, "kurtosis", "Excess kurtosis")
	fs.Var(&statFlag{stats.Median, &list}, "median", "Median")
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: stats [-K MASK] INPUT [-m] [-s] [--skew] [--kurtosis] [--median]\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, args, 1, false)
	if err != nil {
		return err
	}
	if _, err := common.Setup(); err != nil {
		return err
	}

	img, err := nifti.Load(pos[0])
	if err != nil {
		return err
	}
	var out []float64
	if *mask == "" {
		out = stats.Compute(img.Data, list)
	} else {
		m, err := nifti.Load(*mask)
		if err != nil {
			return err
		}
		if m.Shape != img.Shape {
			return fmt.Errorf("%w: mask shape %v does not match input %v", stats.ErrMask, m.Shape, img.Shape)
		}
		if out, err = stats.ComputeMasked(img.Data, m.Data, list); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintln(stdout, strings.Join(numfmt.Floats(out), " "))
	return err
}
