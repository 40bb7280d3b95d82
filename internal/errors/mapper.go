// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"gorm.io/gorm"
)

// Map converts domain/repo/infra errors into gRPC-friendly status errors.
// Keeps service layer clean by centralizing error mapping.
//
// Validation and NotFound keep their message because it describes the caller's input.
// Precondition, Conflict and Store collapse into a generic message.
func Map(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request timed out")

	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request was canceled")

	case errors.Is(err, Validation):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, NotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return status.Error(codes.NotFound, "record not found")

	case errors.Is(err, Conflict):
		return status.Error(codes.Aborted, "concurrent update, please retry")

	default:
		return status.Error(codes.Internal, "internal server error")
	}
}

// HTTPStatus returns the HTTP status code matching err's kind.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, Validation):
		return http.StatusBadRequest
	case errors.Is(err, NotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return http.StatusNotFound
	case errors.Is(err, Conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the message that may be shown to the caller.
func PublicMessage(err error) string {
	switch KindOf(err) {
	case Validation:
		return err.Error()
	case NotFound:
		return "record not found"
	case Conflict:
		return "concurrent update, please retry"
	default:
		return "internal server error"
	}
}

// InvalidArgument creates a gRPC InvalidArgument error.
// Use this in service layer for bad input validation.
func InvalidArgument(msg string) error {
	return status.Error(codes.InvalidArgument, msg)
}

// AlreadyExists creates a gRPC AlreadyExists error.
func AlreadyExists(msg string) error {
	return status.Error(codes.AlreadyExists, msg)
}
