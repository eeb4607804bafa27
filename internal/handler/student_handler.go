package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// StudentHandler wires the student management endpoints shared by admins and
// data-entry staff.
type StudentHandler struct {
	service  service.StudentService
	pageSize int
	logger   zerolog.Logger
}

// NewStudentHandler constructs the handler.
func NewStudentHandler(service service.StudentService, pageSize int, logger zerolog.Logger) *StudentHandler {
	return &StudentHandler{
		service:  service,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "student_handler").Logger(),
	}
}

// Register attaches student routes to the router group. Create and update
// accept JSON or a multipart form with an optional "photo" file.
func (h *StudentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *StudentHandler) list(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize, "class_name", "section", "gender")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list students")
	}
	return utils.OK(c, response.Items, "students retrieved", response.Pagination)
}

func (h *StudentHandler) get(c *fiber.Ctx) error {
	student, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to fetch student")
	}
	return utils.SendSuccess(c, "student retrieved", student)
}

func (h *StudentHandler) create(c *fiber.Ctx) error {
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Create(c.UserContext(), payload, optionalFile(c, "photo"), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to create student")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "student created", student)
}

func (h *StudentHandler) update(c *fiber.Ctx) error {
	var payload dto.StudentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	student, err := h.service.Update(c.UserContext(), c.Params("id"), payload, optionalFile(c, "photo"), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to update student")
	}
	return utils.SendSuccess(c, "student updated", student)
}

func (h *StudentHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to delete student")
	}
	return utils.SendSuccess(c, "student deleted", fiber.Map{"id": id})
}

func (h *StudentHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrStudentRollTaken), errors.Is(err, service.ErrStudentRollLocked):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		return internalError(c, h.logger, err, message)
	}
}
