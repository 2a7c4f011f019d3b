package vector

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestNewStore(t *testing.T) {
	s, err := NewStore(3, [][]float32{{1, 0, 0}, {0.5, 0.5, 0}, {0, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}
	if s.Dimension() != 3 || s.Size() != 3 {
		t.Errorf("Dimension=%d Size=%d", s.Dimension(), s.Size())
	}
	v, err := s.VectorAt(1)
	if err != nil {
		t.Fatal(err)
	}
	if v[0] != 0.5 || v[1] != 0.5 {
		t.Errorf("VectorAt(1) = %v", v)
	}
	v[0] = 9
	again, _ := s.VectorAt(1)
	if again[0] != 0.5 {
		t.Error("VectorAt must return a copy")
	}
}

func TestNewStore_invalid(t *testing.T) {
	tests := []struct {
		name    string
		dim     int
		vectors [][]float32
		want    error
	}{
		{"zero dimension", 0, nil, ErrInvalidVector},
		{"short vector", 2, [][]float32{{1, 0}, {1}}, ErrDimensionMismatch},
		{"negative component", 2, [][]float32{{1, -0.1}}, ErrInvalidVector},
		{"nan component", 2, [][]float32{{float32(math.NaN()), 0}}, ErrInvalidVector},
		{"inf component", 1, [][]float32{{float32(math.Inf(1))}}, ErrInvalidVector},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(tt.dim, tt.vectors)
			if !errors.Is(err, tt.want) {
				t.Errorf("NewStore() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStore_outOfRange(t *testing.T) {
	s, _ := NewStore(2, [][]float32{{1, 0}, {0, 1}})
	for _, pos := range []int{-1, 2, 100} {
		if _, err := s.VectorAt(pos); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("VectorAt(%d) error = %v, want ErrOutOfRange", pos, err)
		}
		if _, err := s.Similarity(0, pos); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Similarity(0, %d) error = %v, want ErrOutOfRange", pos, err)
		}
	}
	if err := s.Scan(0, 1, 3, func(int, float64) {}); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("Scan past end error = %v, want ErrOutOfRange", err)
	}
}

func TestStore_Similarity(t *testing.T) {
	s, _ := NewStore(2, [][]float32{{1, 0}, {3, 0}, {0, 2}, {0, 0}, {1, 1}})
	tests := []struct {
		a, b int
		want float64
	}{
		{0, 1, 1},
		{0, 2, 0},
		{0, 3, 0}, // zero norm
		{3, 3, 0},
		{0, 4, 1 / math.Sqrt2},
	}
	for _, tt := range tests {
		got, err := s.Similarity(tt.a, tt.b)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("Similarity(%d, %d) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
		if got < 0 || got > 1 {
			t.Errorf("Similarity(%d, %d) = %v outside [0,1]", tt.a, tt.b, got)
		}
	}
}

func TestStore_Scan(t *testing.T) {
	s, _ := NewStore(2, [][]float32{{1, 0}, {0, 1}, {1, 1}})
	var positions []int
	err := s.Scan(0, 0, s.Size(), func(pos int, score float64) {
		positions = append(positions, pos)
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(positions) != 3 || positions[0] != 0 || positions[2] != 2 {
		t.Errorf("Scan visited %v", positions)
	}
}

func TestWriteReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "vectors.bin")
	s, _ := NewStore(3, [][]float32{{0.1, 0.2, 0.3}, {1, 0, 0}})
	if err := WriteFile(path, "catalog-1", s); err != nil {
		t.Fatal(err)
	}
	loaded, id, err := ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if id != "catalog-1" {
		t.Errorf("catalog id = %q", id)
	}
	if loaded.Dimension() != 3 || loaded.Size() != 2 {
		t.Fatalf("loaded Dimension=%d Size=%d", loaded.Dimension(), loaded.Size())
	}
	v, _ := loaded.VectorAt(0)
	if v[2] != 0.3 {
		t.Errorf("loaded vector 0 = %v", v)
	}
}

// rawHeader builds a vector file header with arbitrary fields.
func rawHeader(version, dim, n, idLen uint32) []byte {
	var buf bytes.Buffer
	buf.WriteString("OSVS")
	_ = binary.Write(&buf, binary.LittleEndian, []uint32{version, dim, n, idLen})
	return buf.Bytes()
}

func TestDecode_badInput(t *testing.T) {
	if _, _, err := Decode(bytes.NewReader([]byte("NOPE0000"))); !errors.Is(err, ErrBadFormat) {
		t.Errorf("bad magic: got %v", err)
	}

	s, _ := NewStore(2, [][]float32{{1, 0}, {0, 1}})
	var buf bytes.Buffer
	if err := Encode(&buf, "c", s); err != nil {
		t.Fatal(err)
	}
	truncated := buf.Bytes()[:buf.Len()-2]
	if _, _, err := Decode(bytes.NewReader(truncated)); err == nil {
		t.Error("expected error for truncated file")
	}

	raw := append([]byte(nil), buf.Bytes()...)
	raw[4] = 9 // version
	if _, _, err := Decode(bytes.NewReader(raw)); !errors.Is(err, ErrBadFormat) {
		t.Errorf("bad version: got %v", err)
	}

	overflow := rawHeader(FormatVersion, 0xFFFFFFFF, 0xFFFFFFFF, 0)
	if _, _, err := Decode(bytes.NewReader(overflow)); !errors.Is(err, ErrBadFormat) {
		t.Errorf("overflowing header: got %v", err)
	}
}

func TestDecode_corruptHeader(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
	}{
		{"overflowing count and dimension", rawHeader(FormatVersion, 0xFFFFFFFF, 0xFFFFFFFF, 0)},
		{"huge dimension, no vectors", rawHeader(FormatVersion, 0xFFFFFFFF, 0, 0)},
		{"huge count", rawHeader(FormatVersion, 4, 1<<30, 0)},
		{"huge catalog id", rawHeader(FormatVersion, 2, 1, 1<<20)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := Decode(bytes.NewReader(tt.header)); !errors.Is(err, ErrBadFormat) {
				t.Errorf("error = %v, want ErrBadFormat", err)
			}
		})
	}
}

func TestDecode_countBeyondStream(t *testing.T) {
	// The header claims more rows than the stream holds.
	for _, h := range [][]byte{
		rawHeader(FormatVersion, 4, 1<<20, 0),
		rawHeader(FormatVersion, 1<<29, 1, 0),
	} {
		if _, _, err := Decode(bytes.NewReader(h)); err == nil {
			t.Errorf("header %x: expected error for missing vectors", h)
		}
	}
}

func TestReadFile_sizeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vectors.bin")
	s, _ := NewStore(2, [][]float32{{1, 0}, {0, 1}})
	var buf bytes.Buffer
	if err := Encode(&buf, "c", s); err != nil {
		t.Fatal(err)
	}
	data := append(buf.Bytes(), 0, 0, 0, 0)
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadFile(path); !errors.Is(err, ErrBadFormat) {
		t.Errorf("trailing bytes: got %v, want ErrBadFormat", err)
	}

	raw := rawHeader(FormatVersion, 0xFFFFFFFF, 0xFFFFFFFF, 0)
	if err := os.WriteFile(path, raw, 0600); err != nil {
		t.Fatal(err)
	}
	if _, _, err := ReadFile(path); !errors.Is(err, ErrBadFormat) {
		t.Errorf("corrupt header: got %v, want ErrBadFormat", err)
	}
}
