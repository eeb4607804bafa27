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

// FeeHandler exposes fee structures, payments and receipts.
type FeeHandler struct {
	service  service.FeeService
	pageSize int
	logger   zerolog.Logger
}

// NewFeeHandler constructs the handler.
func NewFeeHandler(service service.FeeService, pageSize int, logger zerolog.Logger) *FeeHandler {
	return &FeeHandler{
		service:  service,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "fee_handler").Logger(),
	}
}

// Register wires the full admin fee surface.
func (h *FeeHandler) Register(router fiber.Router) {
	router.Post("/structures", h.createStructure)
	router.Put("/structures/:id", h.updateStructure)
	router.Delete("/structures/:id", h.deleteStructure)
	h.RegisterDesk(router)
}

// RegisterDesk wires the payment desk used by admins and data-entry staff.
func (h *FeeHandler) RegisterDesk(router fiber.Router) {
	router.Get("/structures", h.listStructures)
	router.Get("/payments", h.listPayments)
	router.Post("/payments", h.recordPayment)
	router.Get("/payments/:id/receipt", h.receiptByPayment)
	router.Get("/receipts/:number", h.receiptByNumber)
	router.Get("/students/:roll/history", h.history)
	router.Get("/students/:roll/summary", h.summary)
}

// RegisterStudent wires the signed-in student's own fee views.
func (h *FeeHandler) RegisterStudent(router fiber.Router) {
	router.Get("/history", h.ownHistory)
	router.Get("/summary", h.ownSummary)
	router.Get("/payments/:id/receipt", h.ownReceipt)
}

func (h *FeeHandler) listStructures(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	items, meta, err := h.service.ListStructures(c.UserContext(), c.Query("class_name"), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list fee structures")
	}
	return utils.OK(c, items, "fee structures retrieved", meta)
}

func (h *FeeHandler) createStructure(c *fiber.Ctx) error {
	var payload dto.FeeStructureRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	structure, err := h.service.CreateStructure(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to create fee structure")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "fee structure created", structure)
}

func (h *FeeHandler) updateStructure(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.FeeStructureRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	structure, err := h.service.UpdateStructure(c.UserContext(), id, payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to update fee structure")
	}
	return utils.SendSuccess(c, "fee structure updated", structure)
}

func (h *FeeHandler) deleteStructure(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteStructure(c.UserContext(), id, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to delete fee structure")
	}
	return utils.SendSuccess(c, "fee structure deleted", fiber.Map{"id": id})
}

func (h *FeeHandler) listPayments(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize, "class_name", "status", "method")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.ListPayments(c.UserContext(), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list payments")
	}
	return utils.OK(c, response.Items, "payments retrieved", response.Pagination)
}

func (h *FeeHandler) recordPayment(c *fiber.Ctx) error {
	var payload dto.PaymentRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	payment, err := h.service.RecordPayment(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to record payment")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "payment recorded", payment)
}

func (h *FeeHandler) receiptByPayment(c *fiber.Ctx) error {
	receipt, err := h.service.ReceiptByPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return h.fail(c, err, "failed to load receipt")
	}
	return utils.SendSuccess(c, "receipt retrieved", receipt)
}

func (h *FeeHandler) receiptByNumber(c *fiber.Ctx) error {
	receipt, err := h.service.ReceiptByNumber(c.UserContext(), c.Params("number"))
	if err != nil {
		return h.fail(c, err, "failed to load receipt")
	}
	return utils.SendSuccess(c, "receipt retrieved", receipt)
}

func (h *FeeHandler) history(c *fiber.Ctx) error {
	history, err := h.service.History(c.UserContext(), c.Params("roll"))
	if err != nil {
		return h.fail(c, err, "failed to load payment history")
	}
	return utils.SendSuccess(c, "payment history retrieved", history)
}

func (h *FeeHandler) summary(c *fiber.Ctx) error {
	summary, err := h.service.Summary(c.UserContext(), c.Params("roll"))
	if err != nil {
		return h.fail(c, err, "failed to load fee summary")
	}
	return utils.SendSuccess(c, "fee summary retrieved", summary)
}

func (h *FeeHandler) ownHistory(c *fiber.Ctx) error {
	student, ok := middleware.ProfileFrom(c).(models.StudentProfile)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	history, err := h.service.History(c.UserContext(), student.RollNumber)
	if err != nil {
		return h.fail(c, err, "failed to load payment history")
	}
	return utils.SendSuccess(c, "payment history retrieved", history)
}

func (h *FeeHandler) ownSummary(c *fiber.Ctx) error {
	student, ok := middleware.ProfileFrom(c).(models.StudentProfile)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	summary, err := h.service.Summary(c.UserContext(), student.RollNumber)
	if err != nil {
		return h.fail(c, err, "failed to load fee summary")
	}
	return utils.SendSuccess(c, "fee summary retrieved", summary)
}

// ownReceipt hides receipts of other students behind a 404.
func (h *FeeHandler) ownReceipt(c *fiber.Ctx) error {
	student, ok := middleware.ProfileFrom(c).(models.StudentProfile)
	if !ok {
		return utils.SendError(c, fiber.StatusForbidden, "insufficient permissions")
	}

	receipt, err := h.service.ReceiptByPayment(c.UserContext(), c.Params("id"))
	if err == nil && receipt.Payment.RollNumber != student.RollNumber {
		err = service.ErrPaymentNotFound
	}
	if err != nil {
		return h.fail(c, err, "failed to load receipt")
	}
	return utils.SendSuccess(c, "receipt retrieved", receipt)
}

func (h *FeeHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, service.ErrFeeStructureNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "fee structure not found")
	case errors.Is(err, service.ErrPaymentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "payment not found")
	case errors.Is(err, service.ErrStudentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "student not found")
	case errors.Is(err, service.ErrReceiptTaken):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	default:
		return internalError(c, h.logger, err, message)
	}
}
