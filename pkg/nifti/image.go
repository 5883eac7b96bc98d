package nifti

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/pbnjay/memory"
	log "github.com/sirupsen/logrus"

	"pndniutils/pkg/volume"
)

// Image is a loaded NIfTI volume: its header, the on-disk datatype, and
// the (scaled) samples.
type Image struct {
	Header   *Header
	DataType DataType

	// Data holds one sample per voxel, first axis fastest, with
	// scl_slope/scl_inter already applied.
	Data []float64

	Shape [3]int
}

// Load reads a .nii or .nii.gz file. Volumes with more than three
// non-singleton dimensions are rejected with ErrUnsupported.
func Load(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("error opening gzip stream of %s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	img, err := Read(r)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	log.WithFields(log.Fields{
		"file":     path,
		"shape":    img.Shape,
		"dataType": img.DataType,
	}).Debug("Loaded image")
	return img, nil
}

// Read decodes a single-file NIfTI-1 stream.
func Read(r io.Reader) (*Image, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	h, order, err := parseHeader(b)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{
		"byteOrder": order,
		"dim":       h.Dim,
		"dataType":  h.DataType,
	}).Debug("Parsed header")

	for i := 4; i <= int(h.Dim[0]); i++ {
		if h.Dim[i] > 1 {
			return nil, fmt.Errorf("%w: dimension %d has extent %d, only 3-D volumes are supported",
				ErrUnsupported, i, h.Dim[i])
		}
	}
	shape := h.Shape()
	for i, n := range shape {
		if n < 1 {
			return nil, fmt.Errorf("invalid extent %d along axis %d", n, i)
		}
	}
	dt, err := lookupDataType(h.DataType)
	if err != nil {
		return nil, err
	}
	n := shape[0] * shape[1] * shape[2]
	warnIfTooLarge(n)

	offset := int(h.VoxOffset)
	if offset < headerSize || offset > len(b) {
		return nil, fmt.Errorf("invalid vox_offset %v", h.VoxOffset)
	}
	data, err := decode(b[offset:], dt, order, n)
	if err != nil {
		return nil, err
	}
	applyScaling(data, float64(h.SclSlope), float64(h.SclInter))

	return &Image{Header: h, DataType: dt, Data: data, Shape: shape}, nil
}

// Scaling is only applied when slope is set and not the identity.
func applyScaling(data []float64, slope, inter float64) {
	if slope == 0 || math.IsNaN(slope) || (slope == 1 && inter == 0) {
		return
	}
	if math.IsNaN(inter) {
		inter = 0
	}
	for i := range data {
		data[i] = data[i]*slope + inter
	}
}

// Volumes are fully materialised as float64; warn when that will not fit.
func warnIfTooLarge(nvox int) {
	need := uint64(nvox) * 8
	if total := memory.TotalMemory(); total > 0 && need > total/2 {
		log.WithFields(log.Fields{
			"voxels":      nvox,
			"neededMiB":   need / 1024 / 1024,
			"physicalMiB": total / 1024 / 1024,
		}).Warn("Volume needs more than half of physical memory")
	}
}

// Volume returns the samples and best affine as a volume. The samples are
// copied.
func (img *Image) Volume() *volume.Volume {
	data := make([]float64, len(img.Data))
	copy(data, img.Data)
	return &volume.Volume{Data: data, Shape: img.Shape, Affine: img.Header.Affine()}
}

// NewImage creates an image with a fresh header for data of the given
// shape, stored as dt. No transform is set.
func NewImage(data []float64, shape [3]int, dt DataType) (*Image, error) {
	if len(data) != shape[0]*shape[1]*shape[2] {
		return nil, fmt.Errorf("data length %d does not match shape %v", len(data), shape)
	}
	return &Image{Header: NewHeader(shape, dt), DataType: dt, Data: data, Shape: shape}, nil
}

// FromVolume creates an image from a volume, storing its affine as an
// aligned sform and as a qform with shears stripped.
func FromVolume(v *volume.Volume, dt DataType) (*Image, error) {
	img, err := NewImage(v.Data, v.Shape, dt)
	if err != nil {
		return nil, err
	}
	img.Header.SetSForm(v.Affine, XformAlignedAnat)
	if err := img.Header.SetQForm(v.Affine, XformUnknown, true); err != nil {
		return nil, err
	}
	return img, nil
}

// Save writes the image as single-file NIfTI-1, gzip-compressed when the
// name ends in .gz.
func Save(path string, img *Image) error {
	var buf bytes.Buffer
	if err := img.Write(&buf); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var w io.Writer = f
	var gz *gzip.Writer
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		gz = gzip.NewWriter(f)
		w = gz
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		f.Close()
		return fmt.Errorf("error writing %s: %w", path, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			f.Close()
			return fmt.Errorf("error writing %s: %w", path, err)
		}
	}
	log.WithFields(log.Fields{
		"file":     path,
		"shape":    img.Shape,
		"dataType": img.DataType,
	}).Debug("Saved image")
	return f.Close()
}

// Write encodes the image. The header's dim, datatype, bitpix and
// vox_offset are updated to match the data; scaling is reset.
func (img *Image) Write(w io.Writer) error {
	h := *img.Header
	h.SizeOfHdr = headerSize
	h.Magic = singleFileMagic
	h.Dim = [8]int16{3, int16(img.Shape[0]), int16(img.Shape[1]), int16(img.Shape[2]), 1, 1, 1, 1}
	h.DataType = img.DataType.Code
	h.BitPix = int16(img.DataType.Size * 8)
	h.VoxOffset = dataOffset
	h.SclSlope, h.SclInter = 1, 0
	for i := 1; i < 4; i++ {
		if h.PixDim[i] == 0 {
			h.PixDim[i] = 1
		}
	}

	hdr, err := h.encode()
	if err != nil {
		return err
	}
	data, err := encode(img.Data, img.DataType)
	if err != nil {
		return err
	}
	if _, err := w.Write(hdr); err != nil {
		return err
	}
	// Extension flag: no extensions.
	if _, err := w.Write(make([]byte, dataOffset-headerSize)); err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
