package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/school-portal-api/internal/session"
)

// TokenVerifier turns a bearer token into the principal it was issued for.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*session.Principal, error)
}

// Authenticate reads the bearer token, if any, and binds the principal to the
// request. It never rejects: an absent or invalid token simply leaves the
// request anonymous and the route guard decides what that means.
func Authenticate(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c)
		if token == "" {
			return c.Next()
		}

		principal, err := verifier.Verify(c.UserContext(), token)
		if err != nil || principal == nil {
			return c.Next()
		}

		c.Locals(localPrincipal, principal)
		c.Locals(localToken, token)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) string {
	authorization := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	const bearer = "bearer "
	if len(authorization) > len(bearer) && strings.EqualFold(authorization[:len(bearer)], bearer) {
		return strings.TrimSpace(authorization[len(bearer):])
	}

	// EventSource cannot set headers, so the stream accepts the token as a query parameter.
	return strings.TrimSpace(c.Query("access_token"))
}
