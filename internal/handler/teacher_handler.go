package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// TeacherHandler wires the teacher management endpoints.
type TeacherHandler struct {
	service  service.TeacherService
	pageSize int
	logger   zerolog.Logger
}

// NewTeacherHandler constructs the handler.
func NewTeacherHandler(service service.TeacherService, pageSize int, logger zerolog.Logger) *TeacherHandler {
	return &TeacherHandler{
		service:  service,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "teacher_handler").Logger(),
	}
}

// Register attaches teacher routes to the router group.
func (h *TeacherHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *TeacherHandler) list(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize, "subject", "class_name", "section")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list teachers")
	}
	return utils.OK(c, response.Items, "teachers retrieved", response.Pagination)
}

func (h *TeacherHandler) get(c *fiber.Ctx) error {
	teacher, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to fetch teacher")
	}
	return utils.SendSuccess(c, "teacher retrieved", teacher)
}

func (h *TeacherHandler) create(c *fiber.Ctx) error {
	var payload dto.TeacherCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	teacher, err := h.service.Create(c.UserContext(), payload, optionalFile(c, "photo"), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to create teacher")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "teacher created", teacher)
}

func (h *TeacherHandler) update(c *fiber.Ctx) error {
	var payload dto.TeacherUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	teacher, err := h.service.Update(c.UserContext(), c.Params("id"), payload, optionalFile(c, "photo"), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to update teacher")
	}
	return utils.SendSuccess(c, "teacher updated", teacher)
}

func (h *TeacherHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to delete teacher")
	}
	return utils.SendSuccess(c, "teacher deleted", fiber.Map{"id": id})
}

func (h *TeacherHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, service.ErrTeacherNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "teacher not found")
	case errors.Is(err, service.ErrIdentityExists):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		return internalError(c, h.logger, err, message)
	}
}
