package api

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftline/driftline/pkg/session"
)

const (
	// SessionCookie names the cookie carrying the opaque session token.
	SessionCookie = "driftline_session"

	sessionLocal = "session"

	cookieLifetime = 365 * 24 * time.Hour
)

// sessionMiddleware resolves the request's session, minting a token and an
// empty row on first contact, and stashes it in the request locals.
func (s *Server) sessionMiddleware(c *fiber.Ctx) error {
	token := c.Cookies(SessionCookie)
	if token == "" {
		token = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     SessionCookie,
			Value:    token,
			Expires:  time.Now().Add(cookieLifetime),
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	sess, err := s.deps.Sessions.GetOrCreate(c.Context(), token)
	if err != nil {
		s.logger.Error("failed to resolve session",
			zap.String("session_id", token),
			zap.Error(err),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to resolve session"})
	}

	c.Locals(sessionLocal, sess)
	return c.Next()
}

// requestSession returns the session resolved by the middleware.
func requestSession(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(sessionLocal).(*session.Session)
	return sess
}
