package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// FeeRepository stores fee structures and payments. Payments are insert-only.
type FeeRepository interface {
	ListStructures(ctx context.Context, className string) ([]models.FeeStructure, error)
	GetStructure(ctx context.Context, id uint) (models.FeeStructure, error)
	CreateStructure(ctx context.Context, structure *models.FeeStructure) error
	UpdateStructure(ctx context.Context, structure *models.FeeStructure) error
	DeleteStructure(ctx context.Context, id uint) error

	CreatePayment(ctx context.Context, payment *models.FeePayment) error
	GetPayment(ctx context.Context, id string) (models.FeePayment, error)
	GetPaymentByReceipt(ctx context.Context, receiptNumber string) (models.FeePayment, error)
	ListPaymentsByRoll(ctx context.Context, rollNumber string) ([]models.FeePayment, error)
	ListPayments(ctx context.Context) ([]models.FeePayment, error)
}

type feeRepository struct {
	db *gorm.DB
}

// NewFeeRepository constructs the fee repository.
func NewFeeRepository(db *gorm.DB) FeeRepository {
	return &feeRepository{db: db}
}

// ListStructures returns the fee heads of one class, or of every class when
// className is empty.
func (r *feeRepository) ListStructures(ctx context.Context, className string) ([]models.FeeStructure, error) {
	query := r.db.WithContext(ctx).Model(&models.FeeStructure{})
	if className = strings.TrimSpace(className); className != "" {
		query = query.Where("class_name = ?", className)
	}

	var structures []models.FeeStructure
	err := query.Order("class_name ASC").Order("title ASC").Find(&structures).Error
	return structures, err
}

func (r *feeRepository) GetStructure(ctx context.Context, id uint) (models.FeeStructure, error) {
	var structure models.FeeStructure
	err := r.db.WithContext(ctx).First(&structure, id).Error
	return structure, err
}

func (r *feeRepository) CreateStructure(ctx context.Context, structure *models.FeeStructure) error {
	return r.db.WithContext(ctx).Create(structure).Error
}

func (r *feeRepository) UpdateStructure(ctx context.Context, structure *models.FeeStructure) error {
	return r.db.WithContext(ctx).Save(structure).Error
}

func (r *feeRepository) DeleteStructure(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.FeeStructure{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *feeRepository) CreatePayment(ctx context.Context, payment *models.FeePayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *feeRepository) GetPayment(ctx context.Context, id string) (models.FeePayment, error) {
	var payment models.FeePayment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	return payment, err
}

// GetPaymentByReceipt matches the receipt number exactly.
func (r *feeRepository) GetPaymentByReceipt(ctx context.Context, receiptNumber string) (models.FeePayment, error) {
	var payment models.FeePayment
	err := r.db.WithContext(ctx).Where("receipt_number = ?", receiptNumber).First(&payment).Error
	return payment, err
}

// ListPaymentsByRoll returns a student's payment history, newest first.
func (r *feeRepository) ListPaymentsByRoll(ctx context.Context, rollNumber string) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).
		Where("roll_number = ?", rollNumber).
		Order("paid_at DESC").
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

func (r *feeRepository) ListPayments(ctx context.Context) ([]models.FeePayment, error) {
	var payments []models.FeePayment
	err := r.db.WithContext(ctx).Order("paid_at DESC").Order("created_at DESC").Find(&payments).Error
	return payments, err
}
