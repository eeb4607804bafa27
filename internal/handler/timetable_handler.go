package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// TimetableHandler serves the timetable editor and the read-only views.
type TimetableHandler struct {
	service service.TimetableService
	logger  zerolog.Logger
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(service service.TimetableService, logger zerolog.Logger) *TimetableHandler {
	return &TimetableHandler{
		service: service,
		logger:  logger.With().Str("component", "timetable_handler").Logger(),
	}
}

// Register wires the admin editor. Every write replaces the whole class
// document and answers with the re-rendered timetable.
func (h *TimetableHandler) Register(router fiber.Router) {
	router.Get("", h.listPage)
	router.Get("/:class", h.editor)
	router.Put("/:class", h.replace)
	router.Post("/:class/slots", h.addSlot)
	router.Delete("/:class/slots/:slot", h.removeSlot)
	router.Put("/:class/cells", h.assignCell)
	router.Delete("/:class/cells/:day/:slot", h.clearCell)
}

// RegisterReadOnly wires the views without any edit affordance.
func (h *TimetableHandler) RegisterReadOnly(router fiber.Router) {
	router.Get("", h.listPage)
	router.Get("/:class", h.view)
}

func (h *TimetableHandler) listPage(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}

	response, err := h.service.ListPage(c.UserContext(), page)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list timetables")
	}
	return utils.OK(c, response.Items, "timetables retrieved", response.Pagination)
}

func (h *TimetableHandler) editor(c *fiber.Ctx) error {
	return h.get(c, true)
}

func (h *TimetableHandler) view(c *fiber.Ctx) error {
	return h.get(c, false)
}

func (h *TimetableHandler) get(c *fiber.Ctx, editable bool) error {
	timetable, err := h.service.Get(c.UserContext(), pathParam(c, "class"), editable)
	if err != nil {
		return h.fail(c, err, "failed to load timetable")
	}
	return utils.SendSuccess(c, "timetable retrieved", timetable)
}

func (h *TimetableHandler) replace(c *fiber.Ctx) error {
	timetable, err := h.service.Replace(c.UserContext(), pathParam(c, "class"), c.Body(), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to save timetable")
	}
	return utils.SendSuccess(c, "timetable saved", timetable)
}

func (h *TimetableHandler) addSlot(c *fiber.Ctx) error {
	var payload dto.SlotRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	timetable, err := h.service.AddSlot(c.UserContext(), pathParam(c, "class"), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to add slot")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "slot added", timetable)
}

func (h *TimetableHandler) removeSlot(c *fiber.Ctx) error {
	timetable, err := h.service.RemoveSlot(c.UserContext(), pathParam(c, "class"), pathParam(c, "slot"), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to remove slot")
	}
	return utils.SendSuccess(c, "slot removed", timetable)
}

func (h *TimetableHandler) assignCell(c *fiber.Ctx) error {
	var payload dto.CellRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	timetable, err := h.service.AssignCell(c.UserContext(), pathParam(c, "class"), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to assign cell")
	}
	return utils.SendSuccess(c, "cell assigned", timetable)
}

func (h *TimetableHandler) clearCell(c *fiber.Ctx) error {
	timetable, err := h.service.ClearCell(c.UserContext(), pathParam(c, "class"), pathParam(c, "day"), pathParam(c, "slot"), actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to clear cell")
	}
	return utils.SendSuccess(c, "cell cleared", timetable)
}

func (h *TimetableHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, models.ErrBreakSlot):
		return utils.SendError(c, fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, models.ErrUnknownSlot), errors.Is(err, models.ErrUnknownDay), errors.Is(err, service.ErrCellEmpty):
		return utils.SendError(c, fiber.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrDuplicateSlot):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTimetable):
		return utils.Fail(c, fiber.StatusBadRequest, "invalid timetable document", fiber.Map{"error": err.Error()})
	case errors.Is(err, service.ErrClassRequired), errors.Is(err, service.ErrInvalidSlotTime):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	default:
		return internalError(c, h.logger, err, message)
	}
}
