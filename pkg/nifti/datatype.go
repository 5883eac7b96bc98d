package nifti

import (
	"encoding/binary"
	"fmt"
	"math"
)

// DataType describes a NIfTI voxel datatype.
type DataType struct {
	Code int16
	Name string
	Size int // bytes per voxel
}

// Supported datatypes (NIFTI_TYPE_* codes).
var (
	Uint8   = DataType{2, "uint8", 1}
	Int16   = DataType{4, "int16", 2}
	Int32   = DataType{8, "int32", 4}
	Float32 = DataType{16, "float32", 4}
	Float64 = DataType{64, "float64", 8}
	Int8    = DataType{256, "int8", 1}
	Uint16  = DataType{512, "uint16", 2}
	Uint32  = DataType{768, "uint32", 4}
	Int64   = DataType{1024, "int64", 8}
	Uint64  = DataType{1280, "uint64", 8}
)

var dataTypes = []DataType{Uint8, Int16, Int32, Float32, Float64, Int8, Uint16, Uint32, Int64, Uint64}

func lookupDataType(code int16) (DataType, error) {
	for _, dt := range dataTypes {
		if dt.Code == code {
			return dt, nil
		}
	}
	return DataType{}, fmt.Errorf("%w: datatype code %d", ErrUnsupported, code)
}

// IsInteger reports whether the datatype stores integers.
func (dt DataType) IsInteger() bool {
	return dt != Float32 && dt != Float64
}

func (dt DataType) String() string {
	return dt.Name
}

// MinScalarType returns the smallest datatype that can hold every integer
// in [lo, hi]. Unsigned types are preferred when lo >= 0.
func MinScalarType(lo, hi int64) DataType {
	if lo >= 0 {
		switch {
		case hi <= math.MaxUint8:
			return Uint8
		case hi <= math.MaxUint16:
			return Uint16
		case hi <= math.MaxUint32:
			return Uint32
		default:
			return Uint64
		}
	}
	switch {
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		return Int8
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		return Int16
	case lo >= math.MinInt32 && hi <= math.MaxInt32:
		return Int32
	default:
		return Int64
	}
}

// decode converts raw voxel bytes to float64 samples.
func decode(raw []byte, dt DataType, order binary.ByteOrder, n int) ([]float64, error) {
	if len(raw) < n*dt.Size {
		return nil, fmt.Errorf("voxel data truncated: have %d bytes, need %d", len(raw), n*dt.Size)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		b := raw[i*dt.Size:]
		switch dt {
		case Uint8:
			out[i] = float64(b[0])
		case Int8:
			out[i] = float64(int8(b[0]))
		case Int16:
			out[i] = float64(int16(order.Uint16(b)))
		case Uint16:
			out[i] = float64(order.Uint16(b))
		case Int32:
			out[i] = float64(int32(order.Uint32(b)))
		case Uint32:
			out[i] = float64(order.Uint32(b))
		case Int64:
			out[i] = float64(int64(order.Uint64(b)))
		case Uint64:
			out[i] = float64(order.Uint64(b))
		case Float32:
			out[i] = float64(math.Float32frombits(order.Uint32(b)))
		case Float64:
			out[i] = math.Float64frombits(order.Uint64(b))
		}
	}
	return out, nil
}

// encode converts samples to little-endian voxel bytes. Integer types
// round to nearest; values outside the type's range are an error.
func encode(data []float64, dt DataType) ([]byte, error) {
	out := make([]byte, len(data)*dt.Size)
	le := binary.LittleEndian
	for i, x := range data {
		b := out[i*dt.Size:]
		if dt.IsInteger() {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("cannot store %v as %s", x, dt)
			}
			x = math.Round(x)
			if lo, hi := integerRange(dt); x < lo || x > hi {
				return nil, fmt.Errorf("value %v out of range for %s", x, dt)
			}
		}
		switch dt {
		case Uint8:
			b[0] = uint8(x)
		case Int8:
			b[0] = uint8(int8(x))
		case Int16:
			le.PutUint16(b, uint16(int16(x)))
		case Uint16:
			le.PutUint16(b, uint16(x))
		case Int32:
			le.PutUint32(b, uint32(int32(x)))
		case Uint32:
			le.PutUint32(b, uint32(x))
		case Int64:
			le.PutUint64(b, uint64(int64(x)))
		case Uint64:
			le.PutUint64(b, uint64(x))
		case Float32:
			le.PutUint32(b, math.Float32bits(float32(x)))
		case Float64:
			le.PutUint64(b, math.Float64bits(x))
		}
	}
	return out, nil
}

func integerRange(dt DataType) (float64, float64) {
	switch dt {
	case Uint8:
		return 0, math.MaxUint8
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	case Int64:
		return math.MinInt64, math.MaxInt64
	default:
		return 0, math.MaxUint64
	}
}
