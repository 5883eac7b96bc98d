// Command labels2probmaps turns a set of label images into one probability
// map per label: the fraction of inputs assigning each voxel that label.
package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"pndniutils/internal/cli"
	"pndniutils/internal/models"
	"pndniutils/pkg/labels"
	"pndniutils/pkg/nifti"
)

// labelList collects integer labels from repeated or comma separated
// --labels flags.
type labelList []int64

func (l *labelList) String() string {
	parts := make([]string, len(*l))
	for i, x := range *l {
		parts[i] = strconv.FormatInt(x, 10)
	}
	return strings.Join(parts, ",")
}

func (l *labelList) Set(s string) error {
	for _, part := range strings.Split(s, ",") {
		x, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return err
		}
		*l = append(*l, x)
	}
	return nil
}

func main() {
	fs := flag.NewFlagSet("labels2probmaps", flag.ContinueOnError)
	var want labelList
	fs.Var(&want, "labels", "Labels to compute maps for, comma separated or repeated (default: all labels of the first input)")
	bids := fs.Bool("bids_labels", false, "Name maps by the BEP011 abbreviation of each label (see --show_bids_labels)")
	show := fs.Bool("show_bids_labels", false, "Print the standard BEP011 labels")
	common := cli.AddCommon(fs)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: labels2probmaps OUT_TEMPLATE INPUT... [flags]\n\n"+
			"OUT_TEMPLATE names the output files; {label} is replaced by the label.\n\n")
		fs.PrintDefaults()
	}

	args := os.Args[1:]
	pos, err := cli.Parse(fs, args)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if _, err := common.Setup(); err != nil {
		cli.Fatal(fs, err)
	}
	if *show {
		for i, l := range models.BIDSLabels {
			fmt.Printf("%d\t%s\t%s\n", i, l.Name, l.Abbr)
		}
		if len(pos) == 0 {
			return
		}
	}
	if len(pos) < 2 {
		cli.Fatal(fs, fmt.Errorf("%w: need an output template and at least one input", cli.ErrUsage))
	}

	template := pos[0]
	var images []*nifti.Image
	for _, path := range pos[1:] {
		img, err := nifti.Load(path)
		if err != nil {
			cli.Fatal(fs, err)
		}
		images = append(images, img)
	}

	maps, err := labels.ProbMaps(images, want, *bids)
	if err != nil {
		cli.Fatal(fs, err)
	}
	if len(maps) > 1 && !strings.Contains(template, "{label}") {
		cli.Fatal(fs, fmt.Errorf("%w: template %q has no {label} placeholder", cli.ErrUsage, template))
	}
	for _, pm := range maps {
		out, err := nifti.NewImage(pm.Data, images[0].Shape, nifti.Float64)
		if err != nil {
			cli.Fatal(fs, err)
		}
		nifti.CopyForms(out.Header, images[0].Header)
		name := labels.OutputName(template, pm.Key)
		if err := nifti.Save(name, out); err != nil {
			cli.Fatal(fs, err)
		}
		log.WithFields(log.Fields{"label": pm.Label, "file": name}).Info("Wrote probability map")
	}
}
