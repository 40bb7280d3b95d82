package query

import svcErr "github.com/oggyb/discovery/internal/errors"

var (
	ErrInvalidOperator          = svcErr.New(svcErr.Validation, "invalid filter operator")
	ErrInvalidField             = svcErr.New(svcErr.Validation, "invalid field")
	ErrTypeMismatch             = svcErr.New(svcErr.Validation, "operator and value type mismatch")
	ErrDuplicateField           = svcErr.New(svcErr.Validation, "field given more than once")
	ErrEmptyFilter              = svcErr.New(svcErr.Validation, "filter_by must not be empty")
	ErrInvalidSortOrder         = svcErr.New(svcErr.Validation, "invalid sort order")
	ErrInvalidSortConfiguration = svcErr.New(svcErr.Validation, "invalid sort configuration")
	ErrMalformed                = svcErr.New(svcErr.Validation, "malformed query document")

	// ErrMissingReference means a location or common_interests clause reached the
	// compiler without the acting user's point or id bound to it.
	ErrMissingReference = svcErr.New(svcErr.Precondition, "clause compiled without a bound reference")
)
