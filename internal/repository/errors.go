package repository

import (
	"errors"

	"gorm.io/gorm"

	svcErr "github.com/oggyb/discovery/internal/errors"
)

var (
	ErrProfileExists    = svcErr.New(svcErr.Validation, "profile already exists")
	ErrTooManyPictures  = svcErr.New(svcErr.Validation, "a profile holds at most 5 pictures")
	ErrProfileNotFound  = svcErr.New(svcErr.NotFound, "profile not found")
	ErrLikeNotFound     = svcErr.New(svcErr.NotFound, "like not found")
	ErrMatchNotFound    = svcErr.New(svcErr.NotFound, "match not found")
	ErrDuplicateMatch   = svcErr.New(svcErr.Conflict, "match already exists for pair")
	ErrEmptyUpdate      = svcErr.New(svcErr.Validation, "no fields to update")
	ErrInvalidPageLimit = svcErr.New(svcErr.Validation, "limit must be positive")
)

// wrap tags a gorm error with op. Missing rows become NotFound, the rest Store.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return svcErr.Wrap(svcErr.NotFound, op, err)
	}
	return svcErr.Wrap(svcErr.Store, op, err)
}
