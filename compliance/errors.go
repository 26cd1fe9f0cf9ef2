package compliance

import "errors"

var (
	// ErrStore wraps every failure reported by a Store. Callers treat the
	// whole operation as failed; no partial results are ever returned.
	ErrStore = errors.New("compliance store failure")

	// ErrUnknownDimension is returned by stores asked to group by a column
	// they do not expose.
	ErrUnknownDimension = errors.New("unknown dimension")
)
