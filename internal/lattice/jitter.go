package lattice

import (
	"math"
	"math/rand"
	"sync"
)

const (
	// CoresPerChip is the application core count the jitter window is scaled by.
	CoresPerChip = 10
	// MaxOffset bounds the startup delay, in firmware timer ticks.
	MaxOffset = 1500
)

// Jitter spreads cell start times across a chip so neighbouring cores do not
// all transmit on the same tick.
//
// A Jitter owns one seeded random stream. Every offset consumes one or two
// draws from it, so the same seed and the same call order always yield the
// same offsets. Calls are serialised; concurrent callers stay safe but only a
// fixed call order is reproducible.
type Jitter struct {
	mu           sync.Mutex
	rng          *rand.Rand
	coresPerChip int
	maxOffset    int
}

// NewJitter returns a Jitter using the default chip geometry.
func NewJitter(seed int64) *Jitter {
	return NewJitterWith(seed, CoresPerChip, MaxOffset)
}

func NewJitterWith(seed int64, coresPerChip, maxOffset int) *Jitter {
	if coresPerChip <= 0 {
		coresPerChip = CoresPerChip
	}
	if maxOffset <= 0 {
		maxOffset = MaxOffset
	}
	return &Jitter{
		rng:          rand.New(rand.NewSource(seed)),
		coresPerChip: coresPerChip,
		maxOffset:    maxOffset,
	}
}

// GenerateOffset returns the startup delay for the cell on coreSlot:
//
//	ceil((coreSlot - r) / (coresPerChip + 4) * maxOffset)
//
// and, when that exceeds maxOffset, maxOffset - r2/coresPerChip*maxOffset,
// truncated toward zero. The result never exceeds maxOffset. It can be
// negative for core slot 0.
func (j *Jitter) GenerateOffset(coreSlot int) int {
	j.mu.Lock()
	defer j.mu.Unlock()

	maxOff := float64(j.maxOffset)
	r := j.rng.Float64()
	delay := math.Ceil((float64(coreSlot) - r) / float64(j.coresPerChip+4) * maxOff)
	if delay > maxOff {
		delay = maxOff - j.rng.Float64()/float64(j.coresPerChip)*maxOff
	}
	return int(delay)
}
