package grid

import "errors"

// Error conditions reported by grid loading, lookups and the operators
// built on top of them. Callers test for them with errors.Is.
var (
	ErrFileNotFoundOrInvalid = errors.New("file not found or invalid")
	ErrMissingArg            = errors.New("missing required argument")
	ErrInvalidParameter      = errors.New("invalid parameter value")
	ErrOutsideGrid           = errors.New("point outside of grid")
	ErrGridAtNodata          = errors.New("grid at nodata")
	ErrNoConvergence         = errors.New("inverse grid shift failed to converge")
)
