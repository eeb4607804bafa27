package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

const (
	localPrincipal = "principal"
	localToken     = "access_token"
	localProfile   = "profile"
)

// PrincipalFrom returns the authenticated principal bound to the request.
func PrincipalFrom(c *fiber.Ctx) *session.Principal {
	if principal, ok := c.Locals(localPrincipal).(*session.Principal); ok {
		return principal
	}
	return nil
}

// TokenFrom returns the raw bearer token the principal was verified from.
func TokenFrom(c *fiber.Ctx) string {
	if token, ok := c.Locals(localToken).(string); ok {
		return token
	}
	return ""
}

// ProfileFrom returns the profile resolved by RouteGuard.
func ProfileFrom(c *fiber.Ctx) models.Profile {
	if profile, ok := c.Locals(localProfile).(models.Profile); ok {
		return profile
	}
	return nil
}

// WithPrincipal binds principal to the request. It is exported for handler tests.
func WithPrincipal(c *fiber.Ctx, principal *session.Principal) {
	c.Locals(localPrincipal, principal)
}

// WithProfile binds profile to the request. It is exported for handler tests.
func WithProfile(c *fiber.Ctx, profile models.Profile) {
	c.Locals(localProfile, profile)
}

// RequirePrincipal only asks for a signed-in identity, without looking at the
// profile. Sign-out must keep working for identities whose access was revoked.
func RequirePrincipal() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if PrincipalFrom(c) == nil {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", fiber.Map{
				"redirect": access.LoginLocation(c.OriginalURL()),
			})
		}
		return c.Next()
	}
}
