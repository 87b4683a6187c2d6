package httpapi

import (
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/gofiber/fiber/v2"

	"mediascraper/internal/config"
	"mediascraper/internal/store"
)

const principalLocalsKey = "principal"

// basicAuthMiddleware enforces HTTP Basic authentication against the
// single configured admin credential pair on every route it guards
// (the /api group; /health* and /metrics are served without it). On success it attaches
// the matching User row (looked up by username) to locals for
// GET /api/auth/me to return.
func basicAuthMiddleware(cfg *config.Config, st *store.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		username, password, ok := parseBasicAuth(c.Get(fiber.HeaderAuthorization))
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="mediascraper"`)
			return errUnauthorized("missing or malformed authentication")
		}

		validUser := subtle.ConstantTimeCompare([]byte(username), []byte(cfg.Auth.Username)) == 1
		validPass := subtle.ConstantTimeCompare([]byte(password), []byte(cfg.Auth.Password)) == 1
		if !validUser || !validPass {
			c.Set(fiber.HeaderWWWAuthenticate, `Basic realm="mediascraper"`)
			return errUnauthorized("invalid credentials")
		}

		if user, err := st.GetUserByUsername(c.Context(), username); err == nil {
			c.Locals(principalLocalsKey, user)
		}

		return c.Next()
	}
}

func parseBasicAuth(header string) (username, password string, ok bool) {
	const prefix = "Basic "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(header, prefix))
	if err != nil {
		return "", "", false
	}
	parts := strings.SplitN(string(raw), ":", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
