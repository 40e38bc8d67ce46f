package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"

	"github.com/cardforgehq/cardforge/app/models"
	"github.com/cardforgehq/cardforge/app/repository"
	"github.com/cardforgehq/cardforge/internal/pkg/usercontext"
)

// Headers set by the authentication proxy in front of this service. The
// proxy strips any client-supplied copies, so their presence means the
// request passed authentication.
const (
	HeaderAuthUser              = "X-Auth-Request-User"
	HeaderAuthEmail             = "X-Auth-Request-Email"
	HeaderAuthPreferredUsername = "X-Auth-Request-Preferred-Username"
)

// UserContext resolves the identity for every request. An established
// session wins; otherwise the proxy headers establish one, upserting the
// user record the first time an identity is seen.
func UserContext(store *fibersession.Store, users repository.UserRepository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			usercontext.Set(c, usercontext.Identity{IsLoggedIn: false})
			return c.Next()
		}

		if userID, ok := sess.Get(usercontext.KeyUserID).(string); ok && userID != "" {
			name, _ := sess.Get(usercontext.KeyUserName).(string)
			email, _ := sess.Get(usercontext.KeyEmail).(string)
			usercontext.Set(c, usercontext.Identity{
				UserID:     userID,
				Name:       name,
				Email:      email,
				IsLoggedIn: true,
			})
			return c.Next()
		}

		subject := strings.TrimSpace(c.Get(HeaderAuthUser))
		if subject == "" {
			usercontext.Set(c, usercontext.Identity{IsLoggedIn: false})
			return c.Next()
		}

		name := strings.TrimSpace(c.Get(HeaderAuthPreferredUsername))
		email := strings.TrimSpace(c.Get(HeaderAuthEmail))
		if name == "" {
			name = subject
		}

		now := time.Now()
		user := &models.User{
			ID:         subject,
			Name:       name,
			Email:      email,
			LastSeenAt: &now,
		}
		if err := users.Upsert(user); err != nil {
			log.Errorf("[Middleware] user upsert failed for %s: %v", subject, err)
			usercontext.Set(c, usercontext.Identity{IsLoggedIn: false})
			return c.Next()
		}

		sess.Set(usercontext.KeyUserID, subject)
		sess.Set(usercontext.KeyUserName, name)
		sess.Set(usercontext.KeyEmail, email)
		if err := sess.Save(); err != nil {
			log.Warnf("[Middleware] session save failed for %s: %v", subject, err)
		}

		usercontext.Set(c, usercontext.Identity{
			UserID:     subject,
			Name:       name,
			Email:      email,
			IsLoggedIn: true,
		})
		return c.Next()
	}
}
