package usercontext

import "github.com/gofiber/fiber/v2"

// Identity represents the resolved user for a request. UserID is the stable
// subject handed to us by the authentication proxy.
type Identity struct {
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsLoggedIn bool   `json:"is_logged_in"`
}

// Set attaches the identity to the request.
func Set(c *fiber.Ctx, id Identity) {
	c.Locals(LocalsKey, id)
}

// Current retrieves the identity from the fiber context.
// Returns an anonymous identity if none is set.
func Current(c *fiber.Ctx) Identity {
	if ctx := c.Locals(LocalsKey); ctx != nil {
		if id, ok := ctx.(Identity); ok {
			return id
		}
	}
	return Identity{IsLoggedIn: false}
}

// IsLoggedIn checks if the current request carries an authenticated user.
func IsLoggedIn(c *fiber.Ctx) bool {
	return Current(c).IsLoggedIn
}

// UserID returns the current user's ID, or empty string if not logged in.
func UserID(c *fiber.Ctx) string {
	return Current(c).UserID
}
