package controllers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/cardforgehq/cardforge/internal/pkg/apperr"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

// CheckoutRequest is the body of POST /checkout.
type CheckoutRequest struct {
	Package string `json:"package" validate:"required"`
}

// HandleCreateCheckout opens a hosted checkout session for a credit package
// and returns the session id for the client-side redirect.
func (a *API) HandleCreateCheckout(c *fiber.Ctx) error {
	if a.checkout == nil {
		return respondError(c, fmt.Errorf("%w: payments", apperr.ErrNotConfigured))
	}

	var req CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, fmt.Errorf("%w: malformed JSON body", apperr.ErrInvalidRequest))
	}
	if err := validate.Struct(req); err != nil {
		return respondError(c, fmt.Errorf("%w: package is required", apperr.ErrInvalidRequest))
	}

	user := usercontext.Current(c)
	origin := requestOrigin(c, a.publicBaseURL)

	sessionID, err := a.checkout.CreateSession(c.Context(), user.UserID, req.Package, origin)
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{"sessionId": sessionID})
}
