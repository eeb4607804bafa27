package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
	"github.com/noah-isme/school-portal-api/internal/session"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// GuardConfig configures RouteGuard.
type GuardConfig struct {
	Profiles session.ProfileFetcher
	// Timeout bounds the profile lookup. A lookup that runs out answers
	// "wait", never "login".
	Timeout time.Duration
	// RetryAfter is advertised to clients told to wait.
	RetryAfter time.Duration
}

// RouteGuard resolves the caller's session and applies the guard decision for
// role. An empty role admits any signed-in identity with a profile.
func RouteGuard(cfg GuardConfig, role models.Role) fiber.Handler {
	retryAfter := cfg.RetryAfter
	if retryAfter <= 0 {
		retryAfter = time.Second
	}
	roleLabel := role.String()
	if roleLabel == "" {
		roleLabel = "any"
	}

	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		snapshot := session.Resolve(ctx, PrincipalFrom(c), cfg.Profiles)
		outcome := access.Decide(snapshot, role, c.OriginalURL())
		observability.GuardDecisions().WithLabelValues(roleLabel, string(outcome.Decision)).Inc()

		switch outcome.Decision {
		case access.DecisionAllow:
			c.Locals(localProfile, snapshot.Profile)
			return c.Next()
		case access.DecisionWait:
			c.Set(fiber.HeaderRetryAfter, formatSeconds(retryAfter))
			return utils.Fail(c, fiber.StatusServiceUnavailable, "session is still loading", fiber.Map{
				"decision": outcome.Decision,
			})
		case access.DecisionUnavailable:
			return utils.Fail(c, fiber.StatusServiceUnavailable, "profile service unavailable", fiber.Map{
				"decision": outcome.Decision,
			})
		case access.DecisionLogin:
			c.Set(fiber.HeaderLocation, outcome.Location)
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", fiber.Map{
				"decision": outcome.Decision,
				"redirect": outcome.Location,
			})
		default:
			c.Set(fiber.HeaderLocation, outcome.Location)
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{
				"decision": outcome.Decision,
				"redirect": outcome.Location,
			})
		}
	}
}

func formatSeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second) / time.Second)
	if seconds < 1 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}

// ResolveProfile binds the caller's profile when one resolves, and never
// rejects. Public routes use it to tailor their answer to the audience.
func ResolveProfile(cfg GuardConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal := PrincipalFrom(c)
		if principal == nil {
			return c.Next()
		}

		ctx := c.UserContext()
		if cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
			defer cancel()
		}

		snapshot := session.Resolve(ctx, principal, cfg.Profiles)
		if snapshot.State() == session.StateAuthenticated && snapshot.Profile != nil {
			c.Locals(localProfile, snapshot.Profile)
		}
		return c.Next()
	}
}
