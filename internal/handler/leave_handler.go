package handler

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// LeaveHandler serves the leave workflow for every role.
type LeaveHandler struct {
	service service.LeaveService
	logger  zerolog.Logger
}

// NewLeaveHandler constructs the handler.
func NewLeaveHandler(service service.LeaveService, logger zerolog.Logger) *LeaveHandler {
	return &LeaveHandler{
		service: service,
		logger:  logger.With().Str("component", "leave_handler").Logger(),
	}
}

// RegisterStudent wires filing and the student's own history.
func (h *LeaveHandler) RegisterStudent(router fiber.Router) {
	router.Get("", h.listOwn)
	router.Post("", h.create)
}

// RegisterTeacher wires the class queue, the teacher decision and the
// teacher's own requests.
func (h *LeaveHandler) RegisterTeacher(router fiber.Router) {
	router.Get("", h.listClass)
	router.Get("/mine", h.listOwn)
	router.Post("", h.create)
	router.Post("/:id/decision", h.teacherDecide)
}

// RegisterAdmin wires the full list and the final decision.
func (h *LeaveHandler) RegisterAdmin(router fiber.Router) {
	router.Get("", h.listAll)
	router.Post("/:id/decision", h.adminDecide)
}

func (h *LeaveHandler) create(c *fiber.Ctx) error {
	var payload dto.LeaveCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	request, err := h.service.Create(c.UserContext(), payload, middleware.ProfileFrom(c))
	if err != nil {
		return h.fail(c, err, "failed to file leave request")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "leave request filed", request)
}

func (h *LeaveHandler) listOwn(c *fiber.Ctx) error {
	requests, err := h.service.ListOwn(c.UserContext(), actorFromContext(c).ID)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list leave requests")
	}
	return utils.SendSuccess(c, "leave requests retrieved", requests)
}

func (h *LeaveHandler) listClass(c *fiber.Ctx) error {
	teacher, ok := middleware.ProfileFrom(c).(models.TeacherProfile)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	requests, err := h.service.ListForClass(c.UserContext(), teacher, statusQuery(c))
	if err != nil {
		return internalError(c, h.logger, err, "failed to list leave requests")
	}
	return utils.SendSuccess(c, "leave requests retrieved", requests)
}

func (h *LeaveHandler) listAll(c *fiber.Ctx) error {
	requests, err := h.service.ListAll(c.UserContext(), statusQuery(c))
	if err != nil {
		return internalError(c, h.logger, err, "failed to list leave requests")
	}
	return utils.SendSuccess(c, "leave requests retrieved", requests)
}

func (h *LeaveHandler) teacherDecide(c *fiber.Ctx) error {
	teacher, ok := middleware.ProfileFrom(c).(models.TeacherProfile)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}
	id, payload, err := h.decision(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	request, err := h.service.TeacherDecide(c.UserContext(), id, payload, teacher)
	if err != nil {
		return h.fail(c, err, "failed to record decision")
	}
	return utils.SendSuccess(c, "decision recorded", request)
}

func (h *LeaveHandler) adminDecide(c *fiber.Ctx) error {
	id, payload, err := h.decision(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	request, err := h.service.AdminDecide(c.UserContext(), id, payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to record decision")
	}
	return utils.SendSuccess(c, "decision recorded", request)
}

func (h *LeaveHandler) decision(c *fiber.Ctx) (uint, dto.LeaveDecisionRequest, error) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return 0, dto.LeaveDecisionRequest{}, err
	}
	var payload dto.LeaveDecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return 0, dto.LeaveDecisionRequest{}, errors.New("invalid payload")
	}
	return id, payload, nil
}

func (h *LeaveHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, service.ErrLeaveNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "leave request not found")
	case errors.Is(err, models.ErrInvalidLeaveTransition):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrLeaveRange):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrLeaveRequester):
		return utils.SendError(c, fiber.StatusForbidden, err.Error())
	default:
		return internalError(c, h.logger, err, message)
	}
}

func statusQuery(c *fiber.Ctx) models.LeaveStatus {
	return models.LeaveStatus(strings.ToLower(strings.TrimSpace(c.Query("status"))))
}
