package dsg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
)

type regionState uint8

const (
	regionReserved regionState = iota
	regionOpen
	regionClosed
)

type region struct {
	id    RegionID
	label string
	size  int
	data  []byte
	state regionState
}

// RegionInfo describes a reserved region as seen by the Spec.
type RegionInfo struct {
	ID    RegionID
	Label string
	Size  int
	Used  int
}

// Spec builds a DSG image in memory.
//
// Regions must be reserved before they can take write focus. Only one region
// holds the focus at a time, and a region that loses the focus is closed:
// switching back to it is an error. EndSpecification freezes the image; after
// that Bytes and WriteTo produce the final layout.
type Spec struct {
	regions  map[RegionID]*region
	reserved []RegionID
	focused  []RegionID
	focus    *region
	ended    bool

	mu sync.Mutex
}

// NewSpec returns an empty specification.
func NewSpec() *Spec {
	return &Spec{regions: make(map[RegionID]*region)}
}

// ReserveRegion reserves size bytes for region id. A region may only be reserved once.
func (s *Spec) ReserveRegion(id RegionID, size int, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrSpecEnded
	}
	if id >= MaxRegions {
		return fmt.Errorf("%w: %d", ErrRegionOutOfRange, id)
	}
	if size < 0 {
		return fmt.Errorf("dsg: negative size %d for region %d", size, id)
	}
	if _, ok := s.regions[id]; ok {
		return fmt.Errorf("%w: %d", ErrRegionReserved, id)
	}
	// Buffers grow with the writes; a large reservation is mostly zero fill.
	s.regions[id] = &region{id: id, label: label, size: size}
	s.reserved = append(s.reserved, id)
	return nil
}

// SwitchWriteFocus makes region id the target of subsequent writes.
// The previously focused region is closed.
func (s *Spec) SwitchWriteFocus(id RegionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrSpecEnded
	}
	r, ok := s.regions[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrRegionNotReserved, id)
	}
	if s.focus == r {
		return nil
	}
	if r.state == regionClosed {
		return fmt.Errorf("%w: %d", ErrRegionClosed, id)
	}
	if s.focus != nil {
		s.focus.state = regionClosed
	}
	r.state = regionOpen
	s.focus = r
	s.focused = append(s.focused, id)
	return nil
}

// WriteUint32 appends one unsigned word to the focused region.
func (s *Spec) WriteUint32(v uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendWord(v)
}

// WriteInt32 appends one signed word (two's complement) to the focused region.
func (s *Spec) WriteInt32(v int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendWord(uint32(v))
}

// WriteFloat32 appends one IEEE-754 single precision word to the focused region.
func (s *Spec) WriteFloat32(v float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendWord(math.Float32bits(v))
}

// WriteArray appends words in order to the focused region.
func (s *Spec) WriteArray(words []uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkWritable(len(words) * BytesPerWord); err != nil {
		return err
	}
	for _, w := range words {
		s.focus.data = binary.LittleEndian.AppendUint32(s.focus.data, w)
	}
	return nil
}

func (s *Spec) appendWord(v uint32) error {
	if err := s.checkWritable(BytesPerWord); err != nil {
		return err
	}
	s.focus.data = binary.LittleEndian.AppendUint32(s.focus.data, v)
	return nil
}

func (s *Spec) checkWritable(n int) error {
	if s.ended {
		return ErrSpecEnded
	}
	if s.focus == nil {
		return ErrNoWriteFocus
	}
	if len(s.focus.data)+n > s.focus.size {
		return fmt.Errorf("%w: region %d has %d of %d bytes used, writing %d",
			ErrRegionOverflow, s.focus.id, len(s.focus.data), s.focus.size, n)
	}
	return nil
}

// EndSpecification closes the focused region and freezes the image.
func (s *Spec) EndSpecification() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ended {
		return ErrSpecEnded
	}
	if s.focus != nil {
		s.focus.state = regionClosed
		s.focus = nil
	}
	s.ended = true
	return nil
}

// Regions returns the reserved regions in reservation order.
func (s *Spec) Regions() []RegionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RegionInfo, 0, len(s.reserved))
	for _, id := range s.reserved {
		r := s.regions[id]
		out = append(out, RegionInfo{ID: id, Label: r.label, Size: r.size, Used: len(r.data)})
	}
	return out
}

// FocusOrder returns the regions in the order they took write focus.
func (s *Spec) FocusOrder() []RegionID {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]RegionID, len(s.focused))
	copy(out, s.focused)
	return out
}

// RegionData returns a copy of the bytes written to region id so far.
func (s *Spec) RegionData(id RegionID) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.regions[id]
	if !ok {
		return nil, false
	}
	out := make([]byte, len(r.data))
	copy(out, r.data)
	return out, true
}

// Bytes lays the image out and returns it. The specification must be ended.
func (s *Spec) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := s.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo writes the finished image to w.
//
// Layout: header, region payloads in ascending id order (each word aligned and
// zero filled up to its reserved size), then the region directory. Zero fill
// is streamed, so an image is never held in memory at its reserved size.
func (s *Spec) WriteTo(w io.Writer) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ended {
		return 0, ErrSpecNotEnded
	}

	ids := make([]RegionID, 0, len(s.regions))
	for id := range s.regions {
		ids = append(ids, id)
	}
	// Deterministic payload and directory ordering.
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	entries := make([]RegionEntry, 0, len(ids))
	off := uint64(alignUp(dsgHeaderSize, dsgAlign))
	for _, id := range ids {
		r := s.regions[id]
		e := RegionEntry{ID: id, Offset: off, Size: uint64(r.size), Used: uint64(len(r.data))}
		if len(r.data) > 0 {
			e.Flags |= RegionFlagWritten
		}
		entries = append(entries, e)
		off += uint64(alignUp(r.size, dsgAlign))
	}
	dirOffset := off

	var header DSGHeader
	copy(header.Magic[:], MagicDSG)
	header.Major = CurrentMajor
	header.Minor = CurrentMinor
	header.HeaderSize = dsgHeaderSize
	header.RegionCount = uint32(len(entries))
	header.RegionDirOffset = dirOffset
	header.FileSize = dirOffset + uint64(len(entries)*dsgRegionSize)

	head := make([]byte, alignUp(dsgHeaderSize, dsgAlign))
	if !encodeHeader(head[:dsgHeaderSize], header) {
		return 0, fmt.Errorf("dsg: encode header failed")
	}
	dir := make([]byte, len(entries)*dsgRegionSize)
	for i, e := range entries {
		if !encodeRegion(dir[i*dsgRegionSize:(i+1)*dsgRegionSize], e) {
			return 0, fmt.Errorf("dsg: encode region failed")
		}
	}

	out := &imageWriter{w: w}
	out.write(head)
	for _, e := range entries {
		data := s.regions[e.ID].data
		out.write(data)
		out.zeros(alignUp(int(e.Size), dsgAlign) - len(data))
	}
	out.write(dir)
	return out.n, out.err
}

var zeroBlock [64 << 10]byte

// imageWriter counts bytes and keeps the first error.
type imageWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (iw *imageWriter) write(p []byte) {
	if iw.err != nil || len(p) == 0 {
		return
	}
	n, err := iw.w.Write(p)
	iw.n += int64(n)
	iw.err = err
}

func (iw *imageWriter) zeros(n int) {
	for n > 0 && iw.err == nil {
		k := min(n, len(zeroBlock))
		iw.write(zeroBlock[:k])
		n -= k
	}
}

func alignUp(n, align int) int {
	return (n + align - 1) &^ (align - 1)
}
