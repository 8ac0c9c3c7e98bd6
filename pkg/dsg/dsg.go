// Package dsg implements the data-specification image format.
//
// A DSG image is the fixed-layout binary a core's firmware reads at boot. It
// is built region by region through a Spec: regions are reserved with a
// size, filled through a single write focus, and frozen once the
// specification ends. It describes memory layout only and never implies
// what the firmware does with it.
package dsg

// DSG global constants must never change.
const (
	// MagicDSG is the file magic for all DSG images.
	// It is encoded as "DSG\0".
	MagicDSG = "DSG\x00"

	// Current Major Version: Any change indicates a breaking format change.
	CurrentMajor uint16 = 1

	// Current Minor Version: Versions may add new optional region flags.
	CurrentMinor uint16 = 0

	// BytesPerWord is the firmware word size. All values are written as
	// little-endian words.
	BytesPerWord = 4

	// MaxRegions bounds the region identifier space a core can address.
	MaxRegions = 32
)

// RegionID is the numeric region index the firmware looks regions up by.
type RegionID uint32

// Region flags.
const (
	// RegionFlagWritten is set when at least one value was written to the region.
	RegionFlagWritten uint32 = 1 << 0
)

const (
	dsgHeaderSize = 40
	dsgRegionSize = 32
	dsgAlign      = BytesPerWord
)
