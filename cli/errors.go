package cli

import "errors"

// Validation errors
var (
	ErrRouteNameInvalid = errors.New("route name must be alphanumeric with hyphens, underscores or ':' only")
	ErrScheduleEmpty    = errors.New("schedule cannot be empty")
	ErrConfigInvalid    = errors.New("invalid configuration")
)
