package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// TimetableRepository stores one whole timetable document per class.
type TimetableRepository interface {
	Get(ctx context.Context, className string) (models.Timetable, error)
	List(ctx context.Context) ([]models.Timetable, error)
	ListPage(ctx context.Context, page, pageSize int) ([]models.Timetable, int64, error)
	Replace(ctx context.Context, timetable *models.Timetable) error
}

type timetableRepository struct {
	db *gorm.DB
}

// NewTimetableRepository constructs the timetable repository.
func NewTimetableRepository(db *gorm.DB) TimetableRepository {
	return &timetableRepository{db: db}
}

func (r *timetableRepository) Get(ctx context.Context, className string) (models.Timetable, error) {
	var timetable models.Timetable
	err := r.db.WithContext(ctx).Where("class_name = ?", className).First(&timetable).Error
	return timetable, err
}

func (r *timetableRepository) List(ctx context.Context) ([]models.Timetable, error) {
	var timetables []models.Timetable
	err := r.db.WithContext(ctx).Order("class_name ASC").Find(&timetables).Error
	return timetables, err
}

// ListPage returns classes ordered by name, pageSize at a time.
func (r *timetableRepository) ListPage(ctx context.Context, page, pageSize int) ([]models.Timetable, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Timetable{})

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if pageSize > 0 {
		if page <= 0 {
			page = 1
		}
		query = query.Offset((page - 1) * pageSize).Limit(pageSize)
	}

	var timetables []models.Timetable
	if err := query.Order("class_name ASC").Find(&timetables).Error; err != nil {
		return nil, 0, err
	}
	return timetables, total, nil
}

// Replace overwrites the whole document for the class. Concurrent writers
// clobber each other; the last one wins.
func (r *timetableRepository) Replace(ctx context.Context, timetable *models.Timetable) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "class_name"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_by", "updated_at"}),
	}).Create(timetable).Error
}
