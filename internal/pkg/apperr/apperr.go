package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Sentinel errors for the request-boundary taxonomy. Services wrap these with
// %w and controllers translate them into stable status codes exactly once.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrSignatureInvalid    = errors.New("webhook signature invalid")
	ErrIntentNotFound      = errors.New("checkout intent not found")
	ErrNoImageProduced     = errors.New("no image produced")
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNotConfigured       = errors.New("component not configured")
)

// StatusCode maps a taxonomy error to its HTTP status. Unknown errors are
// treated as internal.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return fiber.StatusUnauthorized
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, ErrSignatureInvalid),
		errors.Is(err, ErrIntentNotFound):
		return fiber.StatusBadRequest
	case errors.Is(err, ErrInsufficientCredits):
		return fiber.StatusPaymentRequired
	case errors.Is(err, ErrNoImageProduced):
		return fiber.StatusBadGateway
	case errors.Is(err, ErrUpstreamUnavailable),
		errors.Is(err, ErrNotConfigured):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

// Code returns the machine-readable error identifier used in JSON bodies.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrIntentNotFound):
		return "intent_not_found"
	case errors.Is(err, ErrInsufficientCredits):
		return "insufficient_credits"
	case errors.Is(err, ErrNoImageProduced):
		return "no_image_produced"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "upstream_unavailable"
	case errors.Is(err, ErrNotConfigured):
		return "not_configured"
	default:
		return "internal_server_error"
	}
}

// UserMessage returns the client-safe message for an error. Upstream and
// internal failures stay generic; the detailed cause goes to the logs only.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "login required"
	case errors.Is(err, ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, ErrSignatureInvalid):
		return "webhook signature verification failed"
	case errors.Is(err, ErrIntentNotFound):
		return "checkout session data not found"
	case errors.Is(err, ErrInsufficientCredits):
		return "not enough credits"
	case errors.Is(err, ErrNoImageProduced):
		return "the generator returned no image, please try again"
	case errors.Is(err, ErrUpstreamUnavailable):
		return "service temporarily unavailable, please try again later"
	case errors.Is(err, ErrNotConfigured):
		return "this feature is not configured on the server"
	default:
		return "internal server error"
	}
}
