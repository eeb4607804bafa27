package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// StaffRecord is implemented by the profile documents of login-capable staff.
type StaffRecord interface {
	models.Teacher | models.DataEntryAdmin
}

// StaffRepository manages one collection of staff profile documents keyed by
// identity id.
type StaffRepository[T StaffRecord] interface {
	ListAll(ctx context.Context) ([]T, error)
	GetByID(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, record *T) error
	Update(ctx context.Context, record *T) error
	Delete(ctx context.Context, id string) error
}

// TeacherRepository stores teacher profile documents.
type TeacherRepository = StaffRepository[models.Teacher]

// DataEntryRepository stores data-entry operator profile documents.
type DataEntryRepository = StaffRepository[models.DataEntryAdmin]

type staffRepository[T StaffRecord] struct {
	db *gorm.DB
}

// NewTeacherRepository constructs the teacher repository.
func NewTeacherRepository(db *gorm.DB) TeacherRepository {
	return &staffRepository[models.Teacher]{db: db}
}

// NewDataEntryRepository constructs the data-entry operator repository.
func NewDataEntryRepository(db *gorm.DB) DataEntryRepository {
	return &staffRepository[models.DataEntryAdmin]{db: db}
}

func (r *staffRepository[T]) ListAll(ctx context.Context) ([]T, error) {
	var records []T
	err := r.db.WithContext(ctx).Order("name ASC").Find(&records).Error
	return records, err
}

func (r *staffRepository[T]) GetByID(ctx context.Context, id string) (T, error) {
	var record T
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	return record, err
}

func (r *staffRepository[T]) Create(ctx context.Context, record *T) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *staffRepository[T]) Update(ctx context.Context, record *T) error {
	return r.db.WithContext(ctx).Save(record).Error
}

func (r *staffRepository[T]) Delete(ctx context.Context, id string) error {
	var record T
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&record)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
