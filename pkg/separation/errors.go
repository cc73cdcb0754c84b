package separation

import "separateclumps/internal/models"

// Errors returned by Process and Params.Validate. Test with errors.Is.
var (
	ErrTypeMismatch         = models.ErrTypeMismatch
	ErrInvalidConfiguration = models.ErrInvalidConfiguration
	ErrTooManyRegions       = models.ErrTooManyRegions
)
