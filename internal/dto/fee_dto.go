package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// FeeStructureRequest creates or edits a fee head.
type FeeStructureRequest struct {
	ClassName string `json:"class_name" validate:"required,max=64"`
	Title     string `json:"title" validate:"required,max=255"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	DueDate   string `json:"due_date" validate:"omitempty,datetime=2006-01-02"`
}

// FeeStructureResponse is one fee head.
type FeeStructureResponse struct {
	ID        uint   `json:"id"`
	ClassName string `json:"class_name"`
	Title     string `json:"title"`
	Amount    int64  `json:"amount"`
	DueDate   string `json:"due_date,omitempty"`
}

// PaymentRequest records a payment. ReceiptNumber is generated when blank.
type PaymentRequest struct {
	RollNumber    string     `json:"roll_number" validate:"required"`
	Amount        int64      `json:"amount" validate:"required,gt=0"`
	Method        string     `json:"method" validate:"omitempty,oneof=cash card bank_transfer upi cheque online"`
	Status        string     `json:"status" validate:"omitempty,oneof=paid pending failed"`
	ReceiptNumber string     `json:"receipt_number" validate:"omitempty,max=64"`
	Remarks       string     `json:"remarks" validate:"omitempty,max=1000"`
	PaidAt        *time.Time `json:"paid_at"`
}

// PaymentResponse is one recorded payment.
type PaymentResponse struct {
	ID            string    `json:"id"`
	StudentID     string    `json:"student_id"`
	RollNumber    string    `json:"roll_number"`
	StudentName   string    `json:"student_name"`
	ClassName     string    `json:"class_name"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	Status        string    `json:"status"`
	ReceiptNumber string    `json:"receipt_number"`
	Remarks       string    `json:"remarks,omitempty"`
	RecordedBy    string    `json:"recorded_by,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
}

// FeeSummary is derived on every read: due = total - paid.
type FeeSummary struct {
	RollNumber string                 `json:"roll_number"`
	ClassName  string                 `json:"class_name"`
	Structures []FeeStructureResponse `json:"structures"`
	Total      int64                  `json:"total"`
	Paid       int64                  `json:"paid"`
	Due        int64                  `json:"due"`
}

// ReceiptResponse is everything a printed receipt shows.
type ReceiptResponse struct {
	Payment PaymentResponse `json:"payment"`
	Summary FeeSummary      `json:"summary"`
}

// PaymentHistoryResponse lists a student's payments newest first.
type PaymentHistoryResponse struct {
	RollNumber string            `json:"roll_number"`
	Items      []PaymentResponse `json:"items"`
}

// PaymentListResponse is one page of payments.
type PaymentListResponse struct {
	Items      []PaymentResponse `json:"items"`
	Pagination PaginationMeta    `json:"pagination"`
}

// NewFeeStructureResponse converts a fee head.
func NewFeeStructureResponse(model models.FeeStructure) FeeStructureResponse {
	return FeeStructureResponse{
		ID:        model.ID,
		ClassName: model.ClassName,
		Title:     model.Title,
		Amount:    model.Amount,
		DueDate:   model.DueDate,
	}
}

// NewPaymentResponse converts a payment.
func NewPaymentResponse(model models.FeePayment) PaymentResponse {
	return PaymentResponse{
		ID:            model.ID,
		StudentID:     model.StudentID,
		RollNumber:    model.RollNumber,
		StudentName:   model.StudentName,
		ClassName:     model.ClassName,
		Amount:        model.Amount,
		Method:        model.Method,
		Status:        model.Status,
		ReceiptNumber: model.ReceiptNumber,
		Remarks:       model.Remarks,
		RecordedBy:    model.RecordedBy,
		PaidAt:        model.PaidAt,
	}
}
