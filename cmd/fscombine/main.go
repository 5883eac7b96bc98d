// Command fscombine joins FreeSurfer stats tables (from asegstats2table or
// aparcstats2table) into a single table keyed by subject ID.
package main

import (
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"pndniutils/internal/cli"
	"pndniutils/pkg/fsstats"
)

func main() {
	fs := flag.NewFlagSet("fscombine", flag.ContinueOnError)
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: fscombine INPUT... OUTPUT [flags]\n")
		fs.PrintDefaults()
	}

	pos, err := cli.ParseN(fs, os.Args[1:], 2, true)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if _, err := common.Setup(); err != nil {
		cli.Fatal(fs, err)
	}

	inputs, output := pos[:len(pos)-1], pos[len(pos)-1]
	var tables []*fsstats.Table
	for _, path := range inputs {
		t, err := fsstats.ReadFile(path)
		if err != nil {
			cli.Fatal(fs, err)
		}
		tables = append(tables, t)
	}
	combined, err := fsstats.Combine(tables)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if err := combined.WriteFile(output); err != nil {
		cli.Fatal(fs, err)
	}
	log.WithFields(log.Fields{
		"inputs":  len(inputs),
		"rows":    len(combined.Rows),
		"columns": len(combined.Columns),
	}).Info("Combined stats tables")
}
