package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

var (
	// ErrFeeStructureNotFound indicates the fee head does not exist.
	ErrFeeStructureNotFound = errors.New("fee structure not found")
	// ErrPaymentNotFound indicates no payment matches the id or receipt number.
	ErrPaymentNotFound = errors.New("payment not found")
	// ErrReceiptTaken indicates the operator supplied a receipt number already in use.
	ErrReceiptTaken = errors.New("receipt number already in use")
)

const receiptPrefix = "REC-"

// FeeService manages fee heads and records immutable payments.
type FeeService interface {
	ListStructures(ctx context.Context, className string, query dto.ListQuery) ([]dto.FeeStructureResponse, dto.PaginationMeta, error)
	CreateStructure(ctx context.Context, req dto.FeeStructureRequest, actor Actor) (dto.FeeStructureResponse, error)
	UpdateStructure(ctx context.Context, id uint, req dto.FeeStructureRequest, actor Actor) (dto.FeeStructureResponse, error)
	DeleteStructure(ctx context.Context, id uint, actor Actor) error

	RecordPayment(ctx context.Context, req dto.PaymentRequest, actor Actor) (dto.PaymentResponse, error)
	ListPayments(ctx context.Context, query dto.ListQuery) (dto.PaymentListResponse, error)
	History(ctx context.Context, rollNumber string) (dto.PaymentHistoryResponse, error)
	Summary(ctx context.Context, rollNumber string) (dto.FeeSummary, error)
	ReceiptByPayment(ctx context.Context, paymentID string) (dto.ReceiptResponse, error)
	ReceiptByNumber(ctx context.Context, receiptNumber string) (dto.ReceiptResponse, error)
}

type feeService struct {
	repo      repository.FeeRepository
	students  repository.StudentRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	now       func() time.Time
}

// NewFeeService constructs the fee service.
func NewFeeService(repo repository.FeeRepository, students repository.StudentRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) FeeService {
	return &feeService{
		repo:      repo,
		students:  students,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "fee_service").Logger(),
		now:       time.Now,
	}
}

func (s *feeService) ListStructures(ctx context.Context, className string, query dto.ListQuery) ([]dto.FeeStructureResponse, dto.PaginationMeta, error) {
	structures, err := s.repo.ListStructures(ctx, className)
	if err != nil {
		return nil, dto.PaginationMeta{}, err
	}

	page, meta := listPage(structures, query,
		func(f models.FeeStructure) []string { return []string{f.Title, f.ClassName} },
		func(f models.FeeStructure) map[string]string { return map[string]string{"class_name": f.ClassName} },
	)

	items := make([]dto.FeeStructureResponse, 0, len(page))
	for _, structure := range page {
		items = append(items, dto.NewFeeStructureResponse(structure))
	}
	return items, meta, nil
}

func (s *feeService) CreateStructure(ctx context.Context, req dto.FeeStructureRequest, actor Actor) (dto.FeeStructureResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.FeeStructureResponse{}, err
	}

	structure := models.FeeStructure{}
	applyFeeStructure(&structure, req)
	if err := s.repo.CreateStructure(ctx, &structure); err != nil {
		return dto.FeeStructureResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "fee_structure.create",
		EntityType: "fee_structure",
		EntityID:   uintID(structure.ID),
		Metadata:   map[string]interface{}{"class_name": structure.ClassName, "amount": structure.Amount},
	})
	return dto.NewFeeStructureResponse(structure), nil
}

func (s *feeService) UpdateStructure(ctx context.Context, id uint, req dto.FeeStructureRequest, actor Actor) (dto.FeeStructureResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.FeeStructureResponse{}, err
	}

	structure, err := s.repo.GetStructure(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return dto.FeeStructureResponse{}, ErrFeeStructureNotFound
		}
		return dto.FeeStructureResponse{}, err
	}
	applyFeeStructure(&structure, req)
	if err := s.repo.UpdateStructure(ctx, &structure); err != nil {
		return dto.FeeStructureResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "fee_structure.update",
		EntityType: "fee_structure",
		EntityID:   uintID(id),
	})
	return dto.NewFeeStructureResponse(structure), nil
}

func (s *feeService) DeleteStructure(ctx context.Context, id uint, actor Actor) error {
	if err := s.repo.DeleteStructure(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrFeeStructureNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "fee_structure.delete",
		EntityType: "fee_structure",
		EntityID:   uintID(id),
	})
	return nil
}

// RecordPayment stores a payment. There is no edit path afterwards.
func (s *feeService) RecordPayment(ctx context.Context, req dto.PaymentRequest, actor Actor) (dto.PaymentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.PaymentResponse{}, err
	}

	student, err := s.students.GetByRollNumber(ctx, strings.TrimSpace(req.RollNumber))
	if err != nil {
		if isNotFound(err) {
			return dto.PaymentResponse{}, ErrStudentNotFound
		}
		return dto.PaymentResponse{}, err
	}

	receipt, err := s.receiptNumber(ctx, strings.TrimSpace(req.ReceiptNumber))
	if err != nil {
		return dto.PaymentResponse{}, err
	}

	status := strings.ToLower(strings.TrimSpace(req.Status))
	if status == "" {
		status = models.PaymentStatusPaid
	}
	method := strings.ToLower(strings.TrimSpace(req.Method))
	if method == "" {
		method = "cash"
	}
	paidAt := s.now().UTC()
	if req.PaidAt != nil && !req.PaidAt.IsZero() {
		paidAt = req.PaidAt.UTC()
	}

	payment := models.FeePayment{
		ID:            uuid.NewString(),
		StudentID:     student.ID,
		RollNumber:    student.RollNumber,
		StudentName:   student.Name,
		ClassName:     student.ClassName,
		Amount:        req.Amount,
		Method:        method,
		Status:        status,
		ReceiptNumber: receipt,
		Remarks:       strings.TrimSpace(req.Remarks),
		RecordedBy:    actor.ID,
		PaidAt:        paidAt,
	}
	if err := s.repo.CreatePayment(ctx, &payment); err != nil {
		return dto.PaymentResponse{}, err
	}

	observability.FeePayments().WithLabelValues(status).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "fee_payment.create",
		EntityType: "fee_payment",
		EntityID:   payment.ID,
		Metadata: map[string]interface{}{
			"roll_number":    payment.RollNumber,
			"amount":         payment.Amount,
			"status":         payment.Status,
			"receipt_number": payment.ReceiptNumber,
		},
	})
	return dto.NewPaymentResponse(payment), nil
}

func (s *feeService) ListPayments(ctx context.Context, query dto.ListQuery) (dto.PaymentListResponse, error) {
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return dto.PaymentListResponse{}, err
	}

	page, meta := listPage(payments, query,
		func(p models.FeePayment) []string { return []string{p.StudentName, p.RollNumber, p.ReceiptNumber} },
		func(p models.FeePayment) map[string]string {
			return map[string]string{"class_name": p.ClassName, "status": p.Status, "method": p.Method}
		},
	)

	items := make([]dto.PaymentResponse, 0, len(page))
	for _, payment := range page {
		items = append(items, dto.NewPaymentResponse(payment))
	}
	return dto.PaymentListResponse{Items: items, Pagination: meta}, nil
}

// History returns every payment of the student, newest first.
func (s *feeService) History(ctx context.Context, rollNumber string) (dto.PaymentHistoryResponse, error) {
	rollNumber = strings.TrimSpace(rollNumber)
	payments, err := s.repo.ListPaymentsByRoll(ctx, rollNumber)
	if err != nil {
		return dto.PaymentHistoryResponse{}, err
	}

	items := make([]dto.PaymentResponse, 0, len(payments))
	for _, payment := range payments {
		items = append(items, dto.NewPaymentResponse(payment))
	}
	return dto.PaymentHistoryResponse{RollNumber: rollNumber, Items: items}, nil
}

// Summary derives total, paid and due from the current records. Only paid
// payments count toward paid.
func (s *feeService) Summary(ctx context.Context, rollNumber string) (dto.FeeSummary, error) {
	student, err := s.students.GetByRollNumber(ctx, strings.TrimSpace(rollNumber))
	if err != nil {
		if isNotFound(err) {
			return dto.FeeSummary{}, ErrStudentNotFound
		}
		return dto.FeeSummary{}, err
	}
	return s.summarize(ctx, student.RollNumber, student.ClassName)
}

func (s *feeService) ReceiptByPayment(ctx context.Context, paymentID string) (dto.ReceiptResponse, error) {
	payment, err := s.repo.GetPayment(ctx, strings.TrimSpace(paymentID))
	if err != nil {
		if isNotFound(err) {
			return dto.ReceiptResponse{}, ErrPaymentNotFound
		}
		return dto.ReceiptResponse{}, err
	}
	return s.receipt(ctx, payment)
}

// ReceiptByNumber matches the receipt number exactly.
func (s *feeService) ReceiptByNumber(ctx context.Context, receiptNumber string) (dto.ReceiptResponse, error) {
	payment, err := s.repo.GetPaymentByReceipt(ctx, receiptNumber)
	if err != nil {
		if isNotFound(err) {
			return dto.ReceiptResponse{}, ErrPaymentNotFound
		}
		return dto.ReceiptResponse{}, err
	}
	return s.receipt(ctx, payment)
}

func (s *feeService) receipt(ctx context.Context, payment models.FeePayment) (dto.ReceiptResponse, error) {
	summary, err := s.summarize(ctx, payment.RollNumber, payment.ClassName)
	if err != nil {
		return dto.ReceiptResponse{}, err
	}
	return dto.ReceiptResponse{Payment: dto.NewPaymentResponse(payment), Summary: summary}, nil
}

func (s *feeService) summarize(ctx context.Context, rollNumber, className string) (dto.FeeSummary, error) {
	summary := dto.FeeSummary{RollNumber: rollNumber, ClassName: className, Structures: []dto.FeeStructureResponse{}}

	structures, err := s.repo.ListStructures(ctx, className)
	if err != nil {
		return dto.FeeSummary{}, err
	}
	for _, structure := range structures {
		summary.Total += structure.Amount
		summary.Structures = append(summary.Structures, dto.NewFeeStructureResponse(structure))
	}

	payments, err := s.repo.ListPaymentsByRoll(ctx, rollNumber)
	if err != nil {
		return dto.FeeSummary{}, err
	}
	for _, payment := range payments {
		if payment.Status == models.PaymentStatusPaid {
			summary.Paid += payment.Amount
		}
	}

	summary.Due = summary.Total - summary.Paid
	return summary, nil
}

// receiptNumber keeps an operator supplied number or generates REC-<millis>,
// stepping forward until the number is free.
func (s *feeService) receiptNumber(ctx context.Context, supplied string) (string, error) {
	if supplied != "" {
		taken, err := s.receiptTaken(ctx, supplied)
		if err != nil {
			return "", err
		}
		if taken {
			return "", ErrReceiptTaken
		}
		return supplied, nil
	}

	millis := s.now().UnixMilli()
	for attempt := 0; attempt < 5; attempt++ {
		candidate := fmt.Sprintf("%s%d", receiptPrefix, millis+int64(attempt))
		taken, err := s.receiptTaken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("could not allocate a receipt number")
}

func (s *feeService) receiptTaken(ctx context.Context, number string) (bool, error) {
	_, err := s.repo.GetPaymentByReceipt(ctx, number)
	if err == nil {
		return true, nil
	}
	if isNotFound(err) {
		return false, nil
	}
	return false, err
}

func applyFeeStructure(structure *models.FeeStructure, req dto.FeeStructureRequest) {
	structure.ClassName = strings.TrimSpace(req.ClassName)
	structure.Title = strings.TrimSpace(req.Title)
	structure.Amount = req.Amount
	structure.DueDate = strings.TrimSpace(req.DueDate)
}
