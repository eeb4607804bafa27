package handler

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/session"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// AuthHandler exposes sign-in, registration and session endpoints.
type AuthHandler struct {
	auth           service.AuthService
	profiles       session.ProfileFetcher
	validator      *validator.Validate
	profileTimeout time.Duration
	logger         zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(auth service.AuthService, profiles session.ProfileFetcher, validate *validator.Validate, profileTimeout time.Duration, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:           auth,
		profiles:       profiles,
		validator:      validate,
		profileTimeout: profileTimeout,
		logger:         logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires the auth routes. limiter guards the credential endpoints.
func (h *AuthHandler) Register(router fiber.Router, limiter fiber.Handler) {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	router.Post("/sign-in", limiter, h.signIn)
	router.Post("/student/sign-in", limiter, h.signInStudent)
	router.Post("/register", limiter, h.register)
	router.Post("/sign-out", middleware.RequirePrincipal(), h.signOut)
	router.Get("/session", h.session)
}

func (h *AuthHandler) signIn(c *fiber.Ctx) error {
	var payload dto.SignInRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	issued, err := h.auth.SignIn(c.UserContext(), payload)
	return h.respondIssued(c, issued, err, fiber.StatusOK)
}

func (h *AuthHandler) signInStudent(c *fiber.Ctx) error {
	var payload dto.StudentSignInRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	issued, err := h.auth.SignInStudent(c.UserContext(), payload)
	return h.respondIssued(c, issued, err, fiber.StatusOK)
}

func (h *AuthHandler) register(c *fiber.Ctx) error {
	var payload dto.RegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}
	if err := h.validator.Struct(payload); err != nil {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	}

	issued, err := h.auth.Register(c.UserContext(), payload)
	return h.respondIssued(c, issued, err, fiber.StatusCreated)
}

func (h *AuthHandler) signOut(c *fiber.Ctx) error {
	if err := h.auth.SignOut(c.UserContext(), middleware.PrincipalFrom(c)); err != nil {
		return internalError(c, h.logger, err, "failed to sign out")
	}
	return utils.SendSuccess(c, "signed out", dto.SignOutResponse{Redirect: access.LoginPath})
}

// session reports the caller's snapshot. It never fails for anonymous callers.
func (h *AuthHandler) session(c *fiber.Ctx) error {
	snapshot := h.resolve(c)
	return utils.SendSuccess(c, "session resolved", dto.NewSessionResponse(snapshot))
}

func (h *AuthHandler) resolve(c *fiber.Ctx) session.Snapshot {
	ctx := c.UserContext()
	if h.profileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.profileTimeout)
		defer cancel()
	}
	return session.Resolve(ctx, middleware.PrincipalFrom(c), h.profiles)
}

func (h *AuthHandler) respondIssued(c *fiber.Ctx, issued service.IssuedSession, err error, status int) error {
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		case errors.Is(err, service.ErrIdentityExists):
			return utils.SendError(c, fiber.StatusConflict, err.Error())
		case isValidationError(err):
			return utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
		default:
			return internalError(c, h.logger, err, "failed to sign in")
		}
	}

	ctx := c.UserContext()
	if h.profileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.profileTimeout)
		defer cancel()
	}
	snapshot := session.Resolve(ctx, issued.Principal, h.profiles)

	requestLogger(h.logger, c).Info().Str("identity_id", issued.Principal.ID).Msg("identity signed in")
	return utils.SendSuccessWithStatus(c, status, "signed in", dto.TokenResponse{
		AccessToken: issued.Token,
		TokenType:   "Bearer",
		ExpiresAt:   issued.Principal.ExpiresAt,
		Session:     dto.NewSessionResponse(snapshot),
	})
}
