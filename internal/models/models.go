package models

// Point is a labelled point in world space, in RAS millimetres
type Point struct {
	X, Y, Z float64

	// Index is the integer label of the point
	Index int
}

// LabelName is one entry of a standard anatomical label table
type LabelName struct {
	// Name is the full tissue name
	Name string

	// Abbr is the abbreviation used in file names
	Abbr string
}

// BIDSLabels are the standard anatomical labels of BIDS extension
// proposal BEP011, indexed by label value.
var BIDSLabels = []LabelName{
	{"Background", "BG"},
	{"Grey Matter", "GM"},
	{"White Matter", "WM"},
	{"Cerebrospinal Fluid", "CSF"},
	{"Grey and White Matter", "GWM"},
	{"Bone", "B"},
	{"Soft Tissue", "ST"},
	{"Non-brain", "NB"},
	{"Lesion", "L"},
	{"Cortical Grey Matter", "CGM"},
	{"Subcortical Grey Matter", "SCGM"},
	{"Brainstem", "BS"},
	{"Cerebellum", "CBM"},
}
