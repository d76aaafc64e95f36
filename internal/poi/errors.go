package poi

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Every operation failure wraps exactly one of these. None is fatal: the
// worst outcome is an invalidated snapshot requiring an explicit reload.
var (
	// ErrValidationFailed: local input checks failed before any network call.
	ErrValidationFailed = errors.New("validation failed")
	// ErrWriteRejected: the store declined the write.
	ErrWriteRejected = errors.New("write rejected")
	// ErrNotFound: the target no longer exists.
	ErrNotFound = errors.New("not found")
	// ErrPartialDelete: a multi-step delete partially completed; the snapshot
	// is invalidated and a reload observes the true state.
	ErrPartialDelete = errors.New("partial delete failure")
	// ErrFetchFailed: the store is unreachable or errored on a read.
	ErrFetchFailed = errors.New("fetch failed")
)

func httpError(err error) *fiber.Error {
	switch {
	case errors.Is(err, ErrValidationFailed):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, ErrWriteRejected):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, ErrFetchFailed):
		return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}
