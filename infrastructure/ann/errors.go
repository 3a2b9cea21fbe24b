package ann

import "github.com/vexcore/vexel/internal/apperr"

var (
	errCorrupt        = apperr.ErrCorruptIndex
	errNotInitialized = apperr.ErrNotInitialized
	errDimMismatch    = apperr.ErrDimMismatch
	errMismatch       = apperr.ErrBadRequest
)
