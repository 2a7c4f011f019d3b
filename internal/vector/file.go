package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
)

// FormatVersion is the vector file layout version written by WriteFile.
const FormatVersion uint32 = 2

var fileMagic = [4]byte{'O', 'S', 'V', 'S'}

const (
	headerSize = 4 + 4*4
	// Upper bounds on header fields; anything larger is treated as corruption.
	maxCatalogIDLen = 256
	maxValues       = 1 << 30
	// Rows are appended in chunks so a lying header cannot force one huge allocation.
	initialValues = 1 << 16
)

// ErrBadFormat is returned when a vector file has the wrong magic, version or size.
var ErrBadFormat = errors.New("unsupported vector file format")

// WriteFile persists the store to path, stamped with catalogID. The directory is created
// if needed. Layout (little endian): magic "OSVS", version (4), dimension (4), count (4),
// catalog id length (4), catalog id bytes, then count*dimension float32 values, row-major
// by position.
func WriteFile(path, catalogID string, s *Store) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create vector dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create vector file: %w", err)
	}
	w := bufio.NewWriter(f)
	if err := Encode(w, catalogID, s); err != nil {
		_ = f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush vector file: %w", err)
	}
	return f.Close()
}

// Encode writes the store in vector file layout to w.
func Encode(w io.Writer, catalogID string, s *Store) error {
	if len(catalogID) > maxCatalogIDLen {
		return fmt.Errorf("%w: catalog id longer than %d bytes", ErrBadFormat, maxCatalogIDLen)
	}
	if _, err := w.Write(fileMagic[:]); err != nil {
		return fmt.Errorf("write magic: %w", err)
	}
	header := []uint32{FormatVersion, uint32(s.dimension), uint32(s.size), uint32(len(catalogID))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if _, err := io.WriteString(w, catalogID); err != nil {
		return fmt.Errorf("write catalog id: %w", err)
	}
	buf := make([]byte, s.dimension*4)
	for pos := 0; pos < s.size; pos++ {
		for i, v := range s.row(pos) {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
		}
		if _, err := w.Write(buf); err != nil {
			return fmt.Errorf("write vector %d: %w", pos, err)
		}
	}
	return nil
}

// ReadFile loads a Store and its catalog id from a file written by WriteFile. The header
// must account for the file size exactly.
func ReadFile(path string) (*Store, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open vector file: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat vector file: %w", err)
	}
	return decode(bufio.NewReader(f), info.Size())
}

// Decode reads a Store and its catalog id in vector file layout from r.
func Decode(r io.Reader) (*Store, string, error) {
	return decode(r, -1)
}

// decode reads the layout from r. size is the total byte length, or -1 when unknown.
func decode(r io.Reader, size int64) (*Store, string, error) {
	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, "", fmt.Errorf("read magic: %w", err)
	}
	if magic != fileMagic {
		return nil, "", fmt.Errorf("%w: bad magic %q", ErrBadFormat, magic[:])
	}
	var header [4]uint32
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, "", fmt.Errorf("read header: %w", err)
	}
	version, dim, n, idLen := header[0], uint64(header[1]), uint64(header[2]), uint64(header[3])
	if version != FormatVersion {
		return nil, "", fmt.Errorf("%w: version %d, expected %d", ErrBadFormat, version, FormatVersion)
	}
	if dim == 0 {
		return nil, "", fmt.Errorf("%w: dimension 0", ErrInvalidVector)
	}
	if dim > maxValues || n*dim > maxValues || idLen > maxCatalogIDLen {
		return nil, "", fmt.Errorf("%w: header claims %d vectors of dimension %d", ErrBadFormat, n, dim)
	}
	if size >= 0 {
		if want := int64(headerSize + idLen + n*dim*4); want != size {
			return nil, "", fmt.Errorf("%w: header implies %d bytes, file has %d", ErrBadFormat, want, size)
		}
	}

	id := make([]byte, idLen)
	if _, err := io.ReadFull(r, id); err != nil {
		return nil, "", fmt.Errorf("read catalog id: %w", err)
	}

	// Values are read in fixed chunks so the header alone never sizes an allocation.
	total := int(n * dim)
	data := make([]float32, 0, min(total, initialValues))
	buf := make([]byte, 4*min(total, initialValues))
	for len(data) < total {
		chunk := buf[:4*min(total-len(data), initialValues)]
		if _, err := io.ReadFull(r, chunk); err != nil {
			return nil, "", fmt.Errorf("read vector %d: %w", len(data)/int(dim), err)
		}
		for i := 0; i < len(chunk); i += 4 {
			data = append(data, math.Float32frombits(binary.LittleEndian.Uint32(chunk[i:])))
		}
	}
	s, err := newStore(int(dim), data)
	if err != nil {
		return nil, "", err
	}
	return s, string(id), nil
}
