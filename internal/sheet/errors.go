package sheet

import "errors"

var (
	// ErrInvalidLink means the supplied sheet link does not match the
	// expected document-link shape. Always wrapped with a named reason.
	ErrInvalidLink = errors.New("invalid sheet link")

	// ErrUnreachable means both the CSV export and the gviz fallback failed.
	ErrUnreachable = errors.New("sheet unreachable")
)
