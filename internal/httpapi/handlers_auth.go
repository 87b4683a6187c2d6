package httpapi

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"

	"mediascraper/internal/model"
	"mediascraper/internal/store"
)

func (s *Server) handleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return errValidation("malformed request body")
	}
	if req.Username == "" || req.Password == "" {
		return errUnauthorized("username and password required")
	}

	user, err := s.store.GetUserByUsername(c.Context(), req.Username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errUnauthorized("invalid username or password")
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return errUnauthorized("invalid username or password")
	}

	return c.JSON(Envelope{Success: true, Data: userResponse(user)})
}

func (s *Server) handleMe(c *fiber.Ctx) error {
	val := c.Locals(principalLocalsKey)
	user, ok := val.(model.User)
	if !ok {
		return errUnauthorized("no authenticated principal")
	}
	return c.JSON(Envelope{Success: true, Data: userResponse(user)})
}

func userResponse(u model.User) UserResponse {
	return UserResponse{ID: u.ID, Username: u.Username, CreatedAt: u.CreatedAt.Format(time.RFC3339)}
}
