package httpapi

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"mediascraper/internal/store"
)

// apiError carries an HTTP status alongside a client-facing message,
// so handlers can return typed errors that the single error-handling
// middleware translates per spec.md §7's taxonomy.
type apiError struct {
	status  int
	message string
}

func (e *apiError) Error() string { return e.message }

func errValidation(msg string) error          { return &apiError{fiber.StatusBadRequest, msg} }
func errUnauthorized(msg string) error        { return &apiError{fiber.StatusUnauthorized, msg} }
func errNotFound(msg string) error            { return &apiError{fiber.StatusNotFound, msg} }
func errConflict(msg string) error            { return &apiError{fiber.StatusConflict, msg} }
func errServiceUnavailable(msg string) error  { return &apiError{fiber.StatusServiceUnavailable, msg} }

// newErrorHandler builds the single error-translation middleware every
// handler error passes through: apiErrors map to their declared
// status, known store sentinels map to 404/409, everything else is
// masked as a 500.
func newErrorHandler(log *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var ae *apiError
		if errors.As(err, &ae) {
			return c.Status(ae.status).JSON(Envelope{Success: false, Error: ae.message})
		}

		if errors.Is(err, store.ErrNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(Envelope{Success: false, Error: "not found"})
		}
		if errors.Is(err, store.ErrConflict) {
			return c.Status(fiber.StatusConflict).JSON(Envelope{Success: false, Error: "conflict"})
		}

		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(Envelope{Success: false, Error: fe.Message})
		}

		if log != nil {
			log.Error("unhandled request error", "path", c.Path(), "error", err)
		}
		return c.Status(fiber.StatusInternalServerError).JSON(Envelope{Success: false, Error: "internal server error"})
	}
}
