package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// StudentRepository manages student records.
type StudentRepository interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	GetByID(ctx context.Context, id string) (models.Student, error)
	GetByRollNumber(ctx context.Context, rollNumber string) (models.Student, error)
	GetByIdentity(ctx context.Context, identityID string) (models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	Delete(ctx context.Context, id string) error
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a GORM backed student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

// ListAll returns every student ordered by name, then roll number.
func (r *studentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).Order("name ASC").Order("roll_number ASC").Find(&students).Error
	return students, err
}

func (r *studentRepository) GetByID(ctx context.Context, id string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&student).Error
	return student, err
}

func (r *studentRepository) GetByRollNumber(ctx context.Context, rollNumber string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Where("roll_number = ?", strings.TrimSpace(rollNumber)).First(&student).Error
	return student, err
}

func (r *studentRepository) GetByIdentity(ctx context.Context, identityID string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).Where("identity_id = ?", identityID).First(&student).Error
	return student, err
}

func (r *studentRepository) Create(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Create(student).Error
}

func (r *studentRepository) Update(ctx context.Context, student *models.Student) error {
	return r.db.WithContext(ctx).Save(student).Error
}

func (r *studentRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Student{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
