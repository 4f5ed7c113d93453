package services

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// NotFoundError: the referenced entity does not exist.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string { return e.Resource + " not found" }

// ForbiddenError: the caller is not allowed to perform the mutation.
type ForbiddenError struct {
	Reason string
}

func (e ForbiddenError) Error() string { return e.Reason }

// ConflictError: the entity is not in the lifecycle state the operation
// requires.
type ConflictError struct {
	Reason string
}

func (e ConflictError) Error() string { return e.Reason }

// ValidationError: malformed request data or an invalid/illegal move.
type ValidationError struct {
	Reason string
}

func (e ValidationError) Error() string { return e.Reason }

// httpStatus maps a domain error to its response code.
func httpStatus(err error) int {
	var nf NotFoundError
	var fb ForbiddenError
	var cf ConflictError
	var vd ValidationError
	switch {
	case errors.As(err, &nf):
		return fiber.StatusNotFound
	case errors.As(err, &fb):
		return fiber.StatusForbidden
	case errors.As(err, &cf):
		return fiber.StatusConflict
	case errors.As(err, &vd):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// jsonError renders a domain error in the service's standard error body.
// Unexpected errors are masked behind a generic message.
func jsonError(c *fiber.Ctx, err error) error {
	status := httpStatus(err)
	msg := err.Error()
	if status == fiber.StatusInternalServerError {
		msg = "internal error"
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
