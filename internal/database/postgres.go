package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// ConnectPostgres establishes a connection to the PostgreSQL database using the provided DSN.
func ConnectPostgres(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn must not be empty")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every portal table.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Identity{},
		&models.UserProfile{},
		&models.Student{},
		&models.Teacher{},
		&models.DataEntryAdmin{},
		&models.Notification{},
		&models.Album{},
		&models.Photo{},
		&models.UploadRecord{},
		&models.FeeStructure{},
		&models.FeePayment{},
		&models.Timetable{},
		&models.LeaveRequest{},
		&models.ActivityLog{},
	)
}
