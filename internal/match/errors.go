package match

import svcErr "github.com/oggyb/discovery/internal/errors"

var (
	ErrSelfLike     = svcErr.New(svcErr.Validation, "cannot like yourself")
	ErrSelfRelation = svcErr.New(svcErr.Validation, "cannot target yourself")
	ErrEmptyReason  = svcErr.New(svcErr.Validation, "report reason is required")
	// ErrConflict means the pair already had a match when a new one was due.
	ErrConflict = svcErr.New(svcErr.Conflict, "match already exists for pair")
)
