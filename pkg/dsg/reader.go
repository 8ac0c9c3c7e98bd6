package dsg

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/sys/unix"
)

type File struct {
	Data    []byte
	Header  *DSGHeader
	Regions []RegionEntry
	mmapped bool
}

// Open maps a DSG image read-only and validates its structure.
// If mmap is unavailable, it falls back to ReadAt-based loading.
// The returned file must be closed to release any mapping.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	size64 := stat.Size()
	if size64 < 0 || size64 > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	size := int(size64)
	if size < dsgHeaderSize {
		return nil, ErrCorruptFile
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		df, parseErr := Parse(data)
		if parseErr != nil {
			_ = unix.Munmap(data)
			return nil, parseErr
		}
		df.mmapped = true
		return df, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// OpenReaderAt loads and validates a DSG image from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, ErrCorruptFile
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Parse validates an in-memory image. The returned File aliases data.
func Parse(data []byte) (*File, error) {
	if len(data) < dsgHeaderSize {
		return nil, ErrCorruptFile
	}
	hdr, ok := decodeHeader(data[:dsgHeaderSize])
	if !ok {
		return nil, ErrCorruptFile
	}
	if !hdr.Valid() {
		return nil, ErrInvalidMagic
	}
	if !hdr.Compatible() {
		return nil, ErrUnsupportedMajor
	}
	if hdr.FileSize != uint64(len(data)) {
		return nil, ErrCorruptFile
	}
	if hdr.RegionCount > MaxRegions {
		return nil, fmt.Errorf("%w: %d regions", ErrCorruptFile, hdr.RegionCount)
	}

	dirStart := hdr.RegionDirOffset
	dirEnd := dirStart + uint64(hdr.RegionCount)*dsgRegionSize
	if dirStart < uint64(hdr.HeaderSize) || dirEnd < dirStart || dirEnd > uint64(len(data)) {
		return nil, ErrCorruptFile
	}

	regions := make([]RegionEntry, hdr.RegionCount)
	for i := range regions {
		start := int(dirStart) + i*dsgRegionSize
		r, ok := decodeRegion(data[start : start+dsgRegionSize])
		if !ok {
			return nil, ErrCorruptFile
		}
		regions[i] = r
	}

	for i := range regions {
		r := &regions[i]
		end := r.Offset + r.Size
		if end < r.Offset || end > uint64(len(data)) {
			return nil, fmt.Errorf("%w: region %d out of bounds", ErrCorruptFile, r.ID)
		}
		if r.Used > r.Size {
			return nil, fmt.Errorf("%w: region %d used beyond reserved size", ErrCorruptFile, r.ID)
		}
		if r.Offset < uint64(hdr.HeaderSize) {
			return nil, fmt.Errorf("%w: region %d overlaps header", ErrCorruptFile, r.ID)
		}
		if r.Offset < dirEnd && dirStart < end {
			return nil, fmt.Errorf("%w: region %d overlaps region directory", ErrCorruptFile, r.ID)
		}
		if r.Offset%dsgAlign != 0 {
			return nil, fmt.Errorf("%w: region %d offset not %d-byte aligned", ErrCorruptFile, r.ID, dsgAlign)
		}
	}

	return &File{Data: data, Header: &hdr, Regions: regions}, nil
}

// Close releases file resources and any mmap backing.
func (f *File) Close() error {
	if f == nil {
		return nil
	}
	var err error
	if f.Data != nil && f.mmapped {
		err = unix.Munmap(f.Data)
	}
	f.Data = nil
	f.Header = nil
	f.Regions = nil
	f.mmapped = false
	return err
}

// Region returns the directory entry for id, or nil if the image has no such region.
func (f *File) Region(id RegionID) *RegionEntry {
	for i := range f.Regions {
		if f.Regions[i].ID == id {
			return &f.Regions[i]
		}
	}
	return nil
}

// RegionData returns a zero-copy slice over the written part of region id.
// The caller must not retain this slice after File.Close().
func (f *File) RegionData(id RegionID) []byte {
	if f == nil || f.Data == nil {
		return nil
	}
	r := f.Region(id)
	if r == nil {
		return nil
	}
	return f.Data[int(r.Offset):int(r.Offset+r.Used)]
}

// Words decodes the written part of region id as little-endian words.
func (f *File) Words(id RegionID) []uint32 {
	raw := f.RegionData(id)
	out := make([]uint32, len(raw)/BytesPerWord)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*BytesPerWord:])
	}
	return out
}

// Int32s decodes the written part of region id as signed words.
func (f *File) Int32s(id RegionID) []int32 {
	words := f.Words(id)
	out := make([]int32, len(words))
	for i, w := range words {
		out[i] = int32(w)
	}
	return out
}

// Float32s decodes the written part of region id as IEEE-754 single precision words.
func (f *File) Float32s(id RegionID) []float32 {
	words := f.Words(id)
	out := make([]float32, len(words))
	for i, w := range words {
		out[i] = math.Float32frombits(w)
	}
	return out
}
