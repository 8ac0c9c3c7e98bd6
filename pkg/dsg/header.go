package dsg

import "encoding/binary"

type DSGHeader struct {
	Magic           [4]byte
	Major           uint16
	Minor           uint16
	HeaderSize      uint32
	RegionCount     uint32
	RegionDirOffset uint64
	FileSize        uint64
	Flags           uint64
}

func (h *DSGHeader) Valid() bool {
	if string(h.Magic[:]) != MagicDSG {
		return false
	}
	if h.HeaderSize < dsgHeaderSize {
		return false
	}
	return true
}

func (h *DSGHeader) Compatible() bool {
	return h.Major == CurrentMajor
}

// RegionEntry is one record of the region directory.
// Size is the reserved byte count, Used the bytes actually written.
type RegionEntry struct {
	ID     RegionID
	Flags  uint32
	Offset uint64
	Size   uint64
	Used   uint64
}

func (r *RegionEntry) End() uint64 {
	return r.Offset + r.Size
}

func (r *RegionEntry) Written() bool {
	return r.Flags&RegionFlagWritten != 0
}

func encodeHeader(dst []byte, h DSGHeader) bool {
	if len(dst) < dsgHeaderSize {
		return false
	}
	copy(dst[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[4:6], h.Major)
	binary.LittleEndian.PutUint16(dst[6:8], h.Minor)
	binary.LittleEndian.PutUint32(dst[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(dst[12:16], h.RegionCount)
	binary.LittleEndian.PutUint64(dst[16:24], h.RegionDirOffset)
	binary.LittleEndian.PutUint64(dst[24:32], h.FileSize)
	binary.LittleEndian.PutUint64(dst[32:40], h.Flags)
	return true
}

func decodeHeader(src []byte) (DSGHeader, bool) {
	var h DSGHeader
	if len(src) < dsgHeaderSize {
		return h, false
	}
	copy(h.Magic[:], src[0:4])
	h.Major = binary.LittleEndian.Uint16(src[4:6])
	h.Minor = binary.LittleEndian.Uint16(src[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(src[8:12])
	h.RegionCount = binary.LittleEndian.Uint32(src[12:16])
	h.RegionDirOffset = binary.LittleEndian.Uint64(src[16:24])
	h.FileSize = binary.LittleEndian.Uint64(src[24:32])
	h.Flags = binary.LittleEndian.Uint64(src[32:40])
	return h, true
}

func encodeRegion(dst []byte, r RegionEntry) bool {
	if len(dst) < dsgRegionSize {
		return false
	}
	binary.LittleEndian.PutUint32(dst[0:4], uint32(r.ID))
	binary.LittleEndian.PutUint32(dst[4:8], r.Flags)
	binary.LittleEndian.PutUint64(dst[8:16], r.Offset)
	binary.LittleEndian.PutUint64(dst[16:24], r.Size)
	binary.LittleEndian.PutUint64(dst[24:32], r.Used)
	return true
}

func decodeRegion(src []byte) (RegionEntry, bool) {
	var r RegionEntry
	if len(src) < dsgRegionSize {
		return r, false
	}
	r.ID = RegionID(binary.LittleEndian.Uint32(src[0:4]))
	r.Flags = binary.LittleEndian.Uint32(src[4:8])
	r.Offset = binary.LittleEndian.Uint64(src[8:16])
	r.Size = binary.LittleEndian.Uint64(src[16:24])
	r.Used = binary.LittleEndian.Uint64(src[24:32])
	return r, true
}
