// Package recording defines the on-core layout of recorded channels: the
// header a vertex writes into its results region and the firmware's
// per-channel bookkeeping.
package recording

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/samcharles93/lattice/pkg/dsg"
)

const (
	// headerBaseWords holds the channel count.
	headerBaseWords = 1
	// headerChannelWords per channel: space in bytes, then base pointer,
	// write pointer and data-lost flag, which the firmware owns at run time.
	headerChannelWords = 4
)

var (
	ErrShortHeader = errors.New("recording: header too short")
	// ErrChannelSize marks a channel whose byte size does not fit the
	// 32-bit space word.
	ErrChannelSize = errors.New("recording: channel size out of range")
)

// HeaderSize returns the bytes needed for the header of n channels,
// including the firmware's per-channel run state.
func HeaderSize(n int) int {
	return (headerBaseWords + headerChannelWords*n) * dsg.BytesPerWord
}

// HeaderArray returns the header words for channels of the given byte sizes.
func HeaderArray(sizes []int) ([]uint32, error) {
	out := make([]uint32, 0, headerBaseWords+headerChannelWords*len(sizes))
	out = append(out, uint32(len(sizes)))
	for i, size := range sizes {
		if size < 0 || uint64(size) > math.MaxUint32 {
			return nil, fmt.Errorf("%w: channel %d needs %d bytes", ErrChannelSize, i, size)
		}
		out = append(out, uint32(size), 0, 0, 0)
	}
	return out, nil
}

// Channel is one decoded header entry.
type Channel struct {
	Space uint32
	Base  uint32
	Write uint32
	Lost  bool
}

// ParseHeader decodes the header words written by HeaderArray.
func ParseHeader(words []uint32) ([]Channel, error) {
	if len(words) < headerBaseWords {
		return nil, ErrShortHeader
	}
	n := int(words[0])
	if len(words) < headerBaseWords+headerChannelWords*n {
		return nil, fmt.Errorf("%w: %d channels need %d words, have %d",
			ErrShortHeader, n, headerBaseWords+headerChannelWords*n, len(words))
	}
	out := make([]Channel, n)
	for i := range out {
		base := headerBaseWords + i*headerChannelWords
		out[i] = Channel{
			Space: words[base],
			Base:  words[base+1],
			Write: words[base+2],
			Lost:  words[base+3] != 0,
		}
	}
	return out, nil
}

// EncodeFloat32s lays samples out the way the firmware records them:
// consecutive little-endian words, one per timestep.
func EncodeFloat32s(samples []float32) []byte {
	out := make([]byte, 0, len(samples)*dsg.BytesPerWord)
	for _, s := range samples {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(s))
	}
	return out
}
