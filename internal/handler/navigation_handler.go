package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/observability"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/session"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// NavigationHandler evaluates the route guard for page paths and serves the
// role layout shells.
type NavigationHandler struct {
	auth           service.AuthService
	profiles       session.ProfileFetcher
	profileTimeout time.Duration
	logger         zerolog.Logger
}

// NewNavigationHandler constructs the handler.
func NewNavigationHandler(auth service.AuthService, profiles session.ProfileFetcher, profileTimeout time.Duration, logger zerolog.Logger) *NavigationHandler {
	return &NavigationHandler{
		auth:           auth,
		profiles:       profiles,
		profileTimeout: profileTimeout,
		logger:         logger.With().Str("component", "navigation_handler").Logger(),
	}
}

// Register wires GET /navigation.
func (h *NavigationHandler) Register(router fiber.Router) {
	router.Get("/navigation", h.navigate)
}

// RegisterShell wires the shell routes. Sign-out only needs a principal so a
// revoked profile can still leave.
func (h *NavigationHandler) RegisterShell(router fiber.Router) {
	router.Get("", h.shell)
	router.Post("/sign-out", middleware.RequirePrincipal(), h.signOut)
}

func (h *NavigationHandler) navigate(c *fiber.Ctx) error {
	path := c.Query("path", access.HomePath)
	role, gated := access.RoleForPath(path)

	var snapshot session.Snapshot
	if gated {
		snapshot = h.resolve(c)
	}
	outcome := access.Navigate(snapshot, path)

	label := role.String()
	if !gated {
		label = "public"
	}
	observability.GuardDecisions().WithLabelValues(label, string(outcome.Decision)).Inc()

	return utils.SendSuccess(c, "navigation resolved", dto.NavigationResponse{
		Path:     path,
		Decision: outcome.Decision,
		Location: outcome.Location,
		Role:     role,
	})
}

// shell re-checks the guard for the caller's own role before handing out the
// menu, using the same fail-closed rule.
func (h *NavigationHandler) shell(c *fiber.Ctx) error {
	snapshot := h.resolve(c)

	profile := snapshot.Profile
	if profile == nil {
		outcome := access.Decide(snapshot, "", c.OriginalURL())
		return h.blocked(c, outcome)
	}

	outcome := access.CheckShell(snapshot, profile.Role())
	if !outcome.Allowed() {
		return h.blocked(c, outcome)
	}

	shell, err := access.ShellFor(profile.Role())
	if err != nil {
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	}
	return utils.SendSuccess(c, "shell resolved", dto.ShellResponse{Shell: shell, Profile: profile})
}

// signOut logs any provider error and always points the client at login.
func (h *NavigationHandler) signOut(c *fiber.Ctx) error {
	if err := h.auth.SignOut(c.UserContext(), middleware.PrincipalFrom(c)); err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("sign-out failed; leaving the shell anyway")
	}
	return utils.SendSuccess(c, "signed out", dto.SignOutResponse{Redirect: access.LoginPath})
}

func (h *NavigationHandler) blocked(c *fiber.Ctx, outcome access.Outcome) error {
	switch outcome.Decision {
	case access.DecisionWait, access.DecisionUnavailable:
		return utils.Fail(c, fiber.StatusServiceUnavailable, "session is not ready", fiber.Map{"decision": outcome.Decision})
	case access.DecisionLogin:
		return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", fiber.Map{
			"decision": outcome.Decision,
			"redirect": outcome.Location,
		})
	default:
		return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", fiber.Map{
			"decision": outcome.Decision,
			"redirect": outcome.Location,
		})
	}
}

func (h *NavigationHandler) resolve(c *fiber.Ctx) session.Snapshot {
	ctx := c.UserContext()
	if h.profileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.profileTimeout)
		defer cancel()
	}
	return session.Resolve(ctx, middleware.PrincipalFrom(c), h.profiles)
}
