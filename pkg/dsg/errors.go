package dsg

import "errors"

var (
	ErrInvalidMagic     = errors.New("invalid DSG magic")
	ErrUnsupportedMajor = errors.New("unsupported DSG major version")
	ErrCorruptFile      = errors.New("corrupt DSG file")

	ErrSpecEnded         = errors.New("dsg: specification already ended")
	ErrSpecNotEnded      = errors.New("dsg: specification not ended")
	ErrNoWriteFocus      = errors.New("dsg: no region has write focus")
	ErrRegionReserved    = errors.New("dsg: region already reserved")
	ErrRegionNotReserved = errors.New("dsg: region not reserved")
	ErrRegionClosed      = errors.New("dsg: region already written and closed")
	ErrRegionOverflow    = errors.New("dsg: write exceeds reserved region size")
	ErrRegionOutOfRange  = errors.New("dsg: region id out of range")
)
