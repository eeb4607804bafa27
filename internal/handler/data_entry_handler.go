package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// DataEntryHandler wires the data-entry admin management endpoints.
type DataEntryHandler struct {
	service  service.DataEntryService
	pageSize int
	logger   zerolog.Logger
}

// NewDataEntryHandler constructs the handler.
func NewDataEntryHandler(service service.DataEntryService, pageSize int, logger zerolog.Logger) *DataEntryHandler {
	return &DataEntryHandler{
		service:  service,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "data_entry_handler").Logger(),
	}
}

// Register attaches data-entry admin routes to the router group.
func (h *DataEntryHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
}

func (h *DataEntryHandler) list(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize, "email")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list data-entry admins")
	}
	return utils.OK(c, response.Items, "data-entry admins retrieved", response.Pagination)
}

func (h *DataEntryHandler) get(c *fiber.Ctx) error {
	admin, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to fetch data-entry admin")
	}
	return utils.SendSuccess(c, "data-entry admin retrieved", admin)
}

func (h *DataEntryHandler) create(c *fiber.Ctx) error {
	var payload dto.DataEntryCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	admin, err := h.service.Create(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to create data-entry admin")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "data-entry admin created", admin)
}

func (h *DataEntryHandler) update(c *fiber.Ctx) error {
	var payload dto.DataEntryUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	admin, err := h.service.Update(c.UserContext(), c.Params("id"), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to update data-entry admin")
	}
	return utils.SendSuccess(c, "data-entry admin updated", admin)
}

func (h *DataEntryHandler) delete(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := h.service.Delete(c.UserContext(), id, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to delete data-entry admin")
	}
	return utils.SendSuccess(c, "data-entry admin deleted", fiber.Map{"id": id})
}

func (h *DataEntryHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, service.ErrDataEntryNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "data-entry admin not found")
	case errors.Is(err, service.ErrIdentityExists):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		return internalError(c, h.logger, err, message)
	}
}
