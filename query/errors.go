package query

import "github.com/pkg/errors"

var (
	// ErrInvalidTimerUnit is returned by DecodeT3412/DecodeT3324 for a unit
	// value outside the documented table.
	ErrInvalidTimerUnit = errors.New("query: invalid timer unit")
	// ErrBadParameter is returned when a line does not match the shape its
	// parser expects.
	ErrBadParameter = errors.New("query: bad parameter")
	// ErrMemoryFailure is returned by ParseHPLMN when SW2 reports a SIM
	// memory error.
	ErrMemoryFailure = errors.New("query: SIM memory failure")
)
