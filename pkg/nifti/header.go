// Package nifti reads and writes single-file NIfTI-1 volumes (.nii and
// .nii.gz) and manipulates their qform/sform transforms.
//
// Based on the NIfTI-1 header definition,
// https://nifti.nimh.nih.gov/pub/dist/src/niftilib/nifti1.h
package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// Header is the on-disk NIfTI-1 header. Field order and sizes match the
// C struct exactly, so it is read and written with encoding/binary.
//
// C     Go
// -------------
// int   int32
// float float32
// short int16
// char  uint8
type Header struct {
	SizeOfHdr          int32    // Must be 348
	UnusedDataType     [10]byte // Unused
	UnusedDbName       [18]byte // Unused
	UnusedExtents      int32    // Unused
	UnusedSessionError int16    // Unused
	UnusedRegular      uint8    // Unused
	DimInfo            uint8    // MRI slice ordering

	Dim           [8]int16   // Data array dimensions
	IntentP1      float32    // 1st intent parameter
	IntentP2      float32    // 2nd intent parameter
	IntentP3      float32    // 3rd intent parameter
	IntentCode    int16      // NIFTI_INTENT_* code
	DataType      int16      // Defines data type
	BitPix        int16      // Number bits/voxel
	SliceStart    int16      // First slice index
	PixDim        [8]float32 // Grid spacing
	VoxOffset     float32    // Offset into .nii file
	SclSlope      float32    // Data scaling: slope
	SclInter      float32    // Data scaling: offset
	SliceEnd      int16      // Last slice index
	SliceCode     uint8      // Slice timing order
	XYZTUnits     uint8      // Units of pixdim[1..4]
	CalMax        float32    // Max display intensity
	CalMin        float32    // Min display intensity
	SliceDuration float32    // Time for 1 slice
	TOffset       float32    // Time axis shift
	UnusedGlmax   int32      // Unused
	UnusedGlmin   int32      // Unused

	Descrip [80]byte // Any text you like
	AuxFile [24]byte // Auxiliary filename

	QFormCode int16 // NIFTI_XFORM_* code
	SFormCode int16 // NIFTI_XFORM_* code

	QuaternB float32 // Quaternion b param
	QuaternC float32 // Quaternion c param
	QuaternD float32 // Quaternion d param
	QOffsetX float32 // Quaternion x shift
	QOffsetY float32 // Quaternion y shift
	QOffsetZ float32 // Quaternion z shift

	SRowX [4]float32 // 1st row affine transform
	SRowY [4]float32 // 2nd row affine transform
	SRowZ [4]float32 // 3rd row affine transform

	IntentName [16]byte // 'name' or meaning of data

	Magic [4]byte // "n+1\0" for single-file NIfTI-1
}

const (
	headerSize = 348
	// dataOffset is where voxel data starts in files we write: the header
	// plus the 4-byte extension flag.
	dataOffset = 352
)

var singleFileMagic = [4]byte{'n', '+', '1', 0}

// XFORM codes.
const (
	XformUnknown     = 0
	XformScannerAnat = 1
	XformAlignedAnat = 2
	XformTalairach   = 3
	XformMNI152      = 4
)

// Units code for millimetres, the only spatial unit we write.
const unitsMM = 2

// ErrUnsupported is returned for files this package cannot handle, such as
// two-file (.hdr/.img) pairs or volumes with more than three non-singleton
// dimensions.
var ErrUnsupported = errors.New("unsupported NIfTI file")

// parseHeader decodes a header, detecting the byte order from sizeof_hdr.
func parseHeader(b []byte) (*Header, binary.ByteOrder, error) {
	if len(b) < headerSize {
		return nil, nil, fmt.Errorf("file too short for a NIfTI-1 header (%d bytes)", len(b))
	}
	var order binary.ByteOrder = binary.LittleEndian
	h := &Header{}
	if err := binary.Read(bytes.NewReader(b[:headerSize]), order, h); err != nil {
		return nil, nil, fmt.Errorf("error reading header: %w", err)
	}
	if h.SizeOfHdr != headerSize {
		order = binary.BigEndian
		h = &Header{}
		if err := binary.Read(bytes.NewReader(b[:headerSize]), order, h); err != nil {
			return nil, nil, fmt.Errorf("error reading header: %w", err)
		}
	}
	if err := h.validate(); err != nil {
		return nil, nil, err
	}
	return h, order, nil
}

func (h *Header) validate() error {
	switch {
	case h.SizeOfHdr != headerSize:
		return fmt.Errorf("invalid header size %d for NIfTI-1", h.SizeOfHdr)
	case h.Magic != singleFileMagic:
		return fmt.Errorf("%w: magic %q, data must be stored in the same file as the header",
			ErrUnsupported, string(bytes.TrimRight(h.Magic[:], "\x00")))
	case h.Dim[0] < 1 || h.Dim[0] > 7:
		return fmt.Errorf("invalid dim[0] = %d", h.Dim[0])
	}
	if _, err := lookupDataType(h.DataType); err != nil {
		return err
	}
	return nil
}

// encode serialises the header in little-endian order.
func (h *Header) encode() ([]byte, error) {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		return nil, fmt.Errorf("error encoding header: %w", err)
	}
	return buf.Bytes(), nil
}

// Shape returns the spatial dimensions, treating missing ones as 1.
func (h *Header) Shape() [3]int {
	shape := [3]int{1, 1, 1}
	for i := 0; i < 3 && i < int(h.Dim[0]); i++ {
		shape[i] = int(h.Dim[i+1])
	}
	return shape
}

// NumVoxels returns the product of all used dimensions.
func (h *Header) NumVoxels() int {
	n := 1
	for i := 1; i <= int(h.Dim[0]); i++ {
		n *= int(h.Dim[i])
	}
	return n
}

// Description returns the descrip field as a string.
func (h *Header) Description() string {
	return string(bytes.TrimRight(h.Descrip[:], "\x00"))
}

// NewHeader creates a minimal header for a 3-D volume of the given shape
// and datatype. Both transforms are unset; see SetQForm, SetSForm and
// CopyForms.
func NewHeader(shape [3]int, dt DataType) *Header {
	h := &Header{
		SizeOfHdr: headerSize,
		DataType:  dt.Code,
		BitPix:    int16(dt.Size * 8),
		VoxOffset: dataOffset,
		XYZTUnits: unitsMM,
		Magic:     singleFileMagic,
	}
	h.Dim[0] = 3
	for i := 0; i < 3; i++ {
		h.Dim[i+1] = int16(shape[i])
		h.PixDim[i+1] = 1
	}
	for i := 4; i < 8; i++ {
		h.Dim[i] = 1
		h.PixDim[i] = 1
	}
	h.PixDim[0] = 1
	return h
}
