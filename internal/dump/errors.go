package dump

import "errors"

var (
	// ErrPoolIDConversion is returned when the pool id of the context row
	// in context_server2db_pool is not an integer.
	ErrPoolIDConversion = errors.New("could not convert pool id value")

	// ErrUpdateTaskValue is returned when an updateTask row carries a
	// non-numeric context id, success flag or timestamp.
	ErrUpdateTaskValue = errors.New("malformed updateTask row")
)
