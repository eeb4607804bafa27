package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// NotificationHandler exposes banner management and the active banner feed.
type NotificationHandler struct {
	service  service.NotificationService
	pageSize int
	logger   zerolog.Logger
}

// NewNotificationHandler constructs the handler.
func NewNotificationHandler(service service.NotificationService, pageSize int, logger zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{
		service:  service,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "notification_handler").Logger(),
	}
}

// Register attaches the admin banner routes.
func (h *NotificationHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

// RegisterPublic attaches the active banner feed. Signed-in callers also see
// the banners addressed to their role.
func (h *NotificationHandler) RegisterPublic(router fiber.Router) {
	router.Get("", h.active)
}

func (h *NotificationHandler) list(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize, "audience", "priority", "state")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list notifications")
	}
	return utils.OK(c, response.Items, "notifications retrieved", response.Pagination)
}

func (h *NotificationHandler) active(c *fiber.Ctx) error {
	var role models.Role
	if profile := middleware.ProfileFrom(c); profile != nil {
		role = profile.Role()
	}

	items, err := h.service.Active(c.UserContext(), role)
	if err != nil {
		return internalError(c, h.logger, err, "failed to load notifications")
	}
	return utils.SendSuccess(c, "notifications retrieved", items)
}

func (h *NotificationHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	notification, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to fetch notification")
	}
	return utils.SendSuccess(c, "notification retrieved", notification)
}

func (h *NotificationHandler) create(c *fiber.Ctx) error {
	var payload dto.NotificationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	notification, err := h.service.Create(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to create notification")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "notification created", notification)
}

func (h *NotificationHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.NotificationRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	notification, err := h.service.Update(c.UserContext(), id, payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to update notification")
	}
	return utils.SendSuccess(c, "notification updated", notification)
}

func (h *NotificationHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to delete notification")
	}
	return utils.SendSuccess(c, "notification deleted", fiber.Map{"id": id})
}

func (h *NotificationHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	if errors.Is(err, service.ErrNotificationNotFound) {
		return utils.SendError(c, fiber.StatusNotFound, "notification not found")
	}
	return internalError(c, h.logger, err, message)
}
