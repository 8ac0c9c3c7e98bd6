package lattice

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks a wiring defect that makes a cell undeployable.
	ErrConfiguration = errors.New("lattice: configuration error")
	// ErrDataMissing marks a recording the transfer service could not fully recover.
	ErrDataMissing = errors.New("lattice: recorded data missing")
	// ErrTimesteps marks a run length the results region cannot hold.
	ErrTimesteps = errors.New("lattice: run length out of range")
	// ErrCellSealed is returned when wiring a cell whose image was already written.
	ErrCellSealed = errors.New("lattice: cell image already generated")
)

// ConfigurationError describes why a cell cannot be deployed.
// Count is the offending number when the defect is a count, otherwise -1.
type ConfigurationError struct {
	Cell   string
	Reason string
	Count  int
}

func (e *ConfigurationError) Error() string {
	if e.Count >= 0 {
		return fmt.Sprintf("lattice: cell %s: %s (got %d)", e.Cell, e.Reason, e.Count)
	}
	return fmt.Sprintf("lattice: cell %s: %s", e.Cell, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return ErrConfiguration
}

func configErr(cell, reason string) error {
	return &ConfigurationError{Cell: cell, Reason: reason, Count: -1}
}

func countErr(cell, reason string, count int) error {
	return &ConfigurationError{Cell: cell, Reason: reason, Count: count}
}
