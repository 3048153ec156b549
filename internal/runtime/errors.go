package runtime

import (
	"github.com/pkg/errors"

	"github.com/funvibe/jiffle/internal/backend"
)

// Runtime errors. They are returned wrapped with position or name details;
// match them with errors.Is.
var (
	ErrWorldNotSet   = errors.New("world bounds are not set")
	ErrInvalidWorld  = errors.New("invalid world bounds or resolution")
	ErrOutsideBounds = errors.New("position is outside the image bounds")
	ErrInvalidBand   = errors.New("band index out of range")
	ErrUnknownImage  = errors.New("image is not declared by the script")
	ErrImageNotBound = errors.New("image has not been set")
	ErrNotDirect     = errors.New("only direct evaluators can scan the world")
	ErrUndefinedVar  = backend.ErrUndefinedVar
)
