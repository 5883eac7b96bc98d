package nifti

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"pndniutils/pkg/volume"
)

func createRampImage(t *testing.T, shape [3]int, dt DataType) *Image {
	t.Helper()
	data := make([]float64, shape[0]*shape[1]*shape[2])
	for i := range data {
		data[i] = float64(i)
	}
	img, err := NewImage(data, shape, dt)
	if err != nil {
		t.Fatalf("NewImage failed: %v", err)
	}
	return img
}

func TestHeaderSize(t *testing.T) {
	if got := binary.Size(Header{}); got != headerSize {
		t.Fatalf("Header encodes to %d bytes, want %d", got, headerSize)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	aff := volume.Diagonal([3]float64{1, 2, 4}, [3]float64{-20, -30, -40})

	for _, dt := range dataTypes {
		for _, name := range []string{"img.nii", "img.nii.gz"} {
			img := createRampImage(t, [3]int{2, 3, 4}, dt)
			img.Header.SetSForm(aff, XformAlignedAnat)
			path := filepath.Join(dir, dt.Name+"_"+name)
			if err := Save(path, img); err != nil {
				t.Fatalf("%s: Save failed: %v", path, err)
			}
			got, err := Load(path)
			if err != nil {
				t.Fatalf("%s: Load failed: %v", path, err)
			}
			if got.DataType != dt {
				t.Errorf("%s: datatype = %v, want %v", path, got.DataType, dt)
			}
			if got.Shape != [3]int{2, 3, 4} {
				t.Errorf("%s: shape = %v", path, got.Shape)
			}
			for i, x := range got.Data {
				if x != float64(i) {
					t.Fatalf("%s: sample %d = %v, want %d", path, i, x, i)
				}
			}
			if !got.Header.Affine().AllClose(aff, 0, 0) {
				t.Errorf("%s: affine = \n%v", path, got.Header.Affine())
			}
		}
	}
}

func TestReadBigEndianAndScaling(t *testing.T) {
	h := NewHeader([3]int{2, 1, 1}, Int16)
	h.SclSlope = 2
	h.SclInter = 1
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.BigEndian, h); err != nil {
		t.Fatalf("binary.Write failed: %v", err)
	}
	buf.Write(make([]byte, 4))
	binary.Write(&buf, binary.BigEndian, []int16{3, -4})

	img, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if img.Data[0] != 7 || img.Data[1] != -7 {
		t.Errorf("scaled data = %v, want [7 -7]", img.Data)
	}
}

func TestReadRejects(t *testing.T) {
	h := NewHeader([3]int{2, 2, 2}, Uint8)
	h.Dim[0] = 4
	h.Dim[4] = 3
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(make([]byte, 4+24))
	if _, err := Read(&buf); !errors.Is(err, ErrUnsupported) {
		t.Errorf("4-D volume: err = %v, want ErrUnsupported", err)
	}

	h = NewHeader([3]int{2, 2, 2}, Uint8)
	h.Magic = [4]byte{'n', 'i', '1', 0}
	buf.Reset()
	binary.Write(&buf, binary.LittleEndian, h)
	if _, err := Read(&buf); !errors.Is(err, ErrUnsupported) {
		t.Errorf("two-file magic: err = %v, want ErrUnsupported", err)
	}

	if _, err := Read(bytes.NewReader([]byte("short"))); err == nil {
		t.Error("Expected error for truncated file")
	}
}

func TestFourDimSingleton(t *testing.T) {
	h := NewHeader([3]int{2, 1, 1}, Uint8)
	h.Dim[0] = 4
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, h)
	buf.Write(make([]byte, 4))
	buf.Write([]byte{5, 6})
	img, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if img.Shape != [3]int{2, 1, 1} {
		t.Errorf("shape = %v", img.Shape)
	}
}

func TestEncodeRange(t *testing.T) {
	if _, err := encode([]float64{256}, Uint8); err == nil {
		t.Error("Expected out-of-range error for 256 as uint8")
	}
	if _, err := encode([]float64{math.NaN()}, Int16); err == nil {
		t.Error("Expected error for NaN as int16")
	}
	if _, err := encode([]float64{math.NaN()}, Float32); err != nil {
		t.Errorf("NaN as float32 should be allowed: %v", err)
	}
}

func TestMinScalarType(t *testing.T) {
	tests := []struct {
		lo, hi int64
		want   DataType
	}{
		{0, 0, Uint8},
		{0, 255, Uint8},
		{0, 256, Uint16},
		{0, 70000, Uint32},
		{0, 1 << 40, Uint64},
		{-1, 127, Int8},
		{-1, 128, Int16},
		{-40000, 0, Int32},
		{-1 << 40, 0, Int64},
	}
	for _, tt := range tests {
		if got := MinScalarType(tt.lo, tt.hi); got != tt.want {
			t.Errorf("MinScalarType(%d, %d) = %v, want %v", tt.lo, tt.hi, got, tt.want)
		}
	}
}

func TestQFormRoundTrip(t *testing.T) {
	affines := []volume.Affine{
		volume.Diagonal([3]float64{1, 2, 4}, [3]float64{-20, -30, -40}),
		volume.Diagonal([3]float64{-1, 1, 1}, [3]float64{90, -126, -72}),
		{{0, 0, 2, 1}, {-1, 0, 0, 2}, {0, 3, 0, 3}, {0, 0, 0, 1}},
		{{0.8660254, -0.5, 0, 5}, {0.5, 0.8660254, 0, 6}, {0, 0, 1.5, 7}, {0, 0, 0, 1}},
	}
	for n, aff := range affines {
		h := NewHeader([3]int{2, 3, 4}, Float32)
		if err := h.SetQForm(aff, XformScannerAnat, false); err != nil {
			t.Fatalf("case %d: SetQForm failed: %v", n, err)
		}
		got, code := h.QForm()
		if code != XformScannerAnat {
			t.Errorf("case %d: qform code = %d", n, code)
		}
		if !got.AllClose(aff, 1e-5, 1e-5) {
			t.Errorf("case %d: qform = \n%v\nwant\n%v", n, got, aff)
		}
	}
}

func TestSetQFormShears(t *testing.T) {
	sheared := volume.Affine{{1, 0.5, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}, {0, 0, 0, 1}}
	h := NewHeader([3]int{2, 2, 2}, Float32)
	if err := h.SetQForm(sheared, XformScannerAnat, false); !errors.Is(err, ErrShears) {
		t.Errorf("err = %v, want ErrShears", err)
	}
	if h.QFormCode != 0 {
		t.Error("header changed despite error")
	}
	if err := h.SetQForm(sheared, XformScannerAnat, true); err != nil {
		t.Errorf("SetQForm with stripShears failed: %v", err)
	}
}

func TestAffinePrecedence(t *testing.T) {
	q := volume.Diagonal([3]float64{1, 1, 1}, [3]float64{1, 2, 3})
	s := volume.Diagonal([3]float64{2, 2, 2}, [3]float64{4, 5, 6})

	h := NewHeader([3]int{3, 3, 3}, Uint8)
	h.PixDim[1], h.PixDim[2], h.PixDim[3] = 2, 3, 4
	base := h.Affine()
	want := volume.Diagonal([3]float64{-2, 3, 4}, [3]float64{2, -3, -4})
	if !base.AllClose(want, 0, 1e-12) {
		t.Errorf("base affine = \n%v\nwant\n%v", base, want)
	}

	h.SetQForm(q, XformScannerAnat, false)
	if !h.Affine().AllClose(q, 0, 1e-6) {
		t.Errorf("qform not used when sform unset")
	}
	h.SetSForm(s, XformAlignedAnat)
	if !h.Affine().AllClose(s, 0, 0) {
		t.Errorf("sform not preferred over qform")
	}
}

func TestForceQForm(t *testing.T) {
	aff := volume.Diagonal([3]float64{1, 2, 4}, [3]float64{-20, -30, -40})
	double := aff
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			double[i][j] *= 2
		}
	}

	for _, tt := range []string{"qform", "sform", "both", "none"} {
		t.Run(tt, func(t *testing.T) {
			h := NewHeader([3]int{2, 3, 4}, Int16)
			switch tt {
			case "qform":
				h.SetQForm(aff, XformAlignedAnat, false)
			case "sform":
				h.SetSForm(aff, XformAlignedAnat)
			case "both":
				h.SetQForm(aff, XformAlignedAnat, false)
				h.SetSForm(double, XformAlignedAnat)
			}

			err := h.ForceQForm()
			if tt == "none" {
				if !errors.Is(err, ErrNoForm) {
					t.Fatalf("err = %v, want ErrNoForm", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ForceQForm failed: %v", err)
			}

			// Survives a write/read cycle.
			path := filepath.Join(t.TempDir(), "out.nii")
			img := createRampImage(t, [3]int{2, 3, 4}, Int16)
			img.Header = h
			if err := Save(path, img); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			out, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if !out.Header.Affine().AllClose(aff, 0, 0) {
				t.Errorf("affine = \n%v\nwant\n%v", out.Header.Affine(), aff)
			}
			if q, _ := out.Header.QForm(); !q.AllClose(aff, 0, 0) {
				t.Errorf("qform = \n%v", q)
			}
			if _, code := out.Header.SForm(); code != 0 {
				t.Errorf("sform code = %d, want 0", code)
			}
		})
	}
}

func TestCopyForms(t *testing.T) {
	src := NewHeader([3]int{2, 2, 2}, Float32)
	aff := volume.Diagonal([3]float64{-1, 2, 3}, [3]float64{4, 5, 6})
	src.SetQForm(aff, XformScannerAnat, false)
	src.SetSForm(aff, XformMNI152)

	dst := NewHeader([3]int{2, 2, 2}, Uint8)
	CopyForms(dst, src)
	if q, code := dst.QForm(); code != XformScannerAnat || !q.AllClose(aff, 1e-6, 1e-6) {
		t.Errorf("qform not copied: code %d\n%v", code, q)
	}
	if s, code := dst.SForm(); code != XformMNI152 || !s.AllClose(aff, 0, 0) {
		t.Errorf("sform not copied: code %d\n%v", code, s)
	}
	if dst.DataType != Uint8.Code {
		t.Error("CopyForms must not touch the datatype")
	}
}

func TestFromVolume(t *testing.T) {
	v := volume.Zeros([3]int{2, 2, 2}, volume.Diagonal([3]float64{1, 1, 1}, [3]float64{3, 2, 1}))
	img, err := FromVolume(v, Float64)
	if err != nil {
		t.Fatalf("FromVolume failed: %v", err)
	}
	if !img.Volume().Affine.AllClose(v.Affine, 0, 0) {
		t.Error("FromVolume affine mismatch")
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.nii")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load of missing file: err = %v", err)
	}
}
