package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/database"
	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

type portalFixture struct {
	db       *gorm.DB
	hub      RealtimeHub
	profiles ProfileDirectory
	auth     AuthService
	activity *memoryActivityRepo
	recorder ActivityService
	validate *validator.Validate
	students repository.StudentRepository
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newPortalFixture(t *testing.T) *portalFixture {
	t.Helper()
	db := setupServiceDB(t)
	hub := NewRealtimeHub(nil, nil, "", testLogger())
	profiles := NewProfileDirectory(repository.NewUserProfileRepository(db), hub, testLogger())
	students := repository.NewStudentRepository(db)
	auth := NewAuthService(repository.NewIdentityRepository(db), students, profiles, nil, hub, AuthConfig{
		Secret:        "test-secret",
		Issuer:        "school-portal-test",
		StudentDomain: "students.test",
		HashCost:      bcrypt.MinCost,
	}, testLogger())
	activity := &memoryActivityRepo{}

	return &portalFixture{
		db:       db,
		hub:      hub,
		profiles: profiles,
		auth:     auth,
		activity: activity,
		recorder: NewActivityService(activity, testLogger()),
		validate: validator.New(),
		students: students,
	}
}

func (f *portalFixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var total int64
	require.NoError(t, f.db.Model(model).Count(&total).Error)
	return total
}

func (f *portalFixture) seedStudent(t *testing.T, student models.Student) models.Student {
	t.Helper()
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	require.NoError(t, f.students.Create(context.Background(), &student))
	return student
}

// flakyProfiles fails Save or Delete on demand and otherwise delegates.
type flakyProfiles struct {
	ProfileDirectory
	saveErr   error
	deleteErr error
	deletes   int
}

func (f *flakyProfiles) Save(ctx context.Context, record models.UserProfile) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.ProfileDirectory.Save(ctx, record)
}

func (f *flakyProfiles) Delete(ctx context.Context, id string) error {
	f.deletes++
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.ProfileDirectory.Delete(ctx, id)
}

var errStoreDown = errors.New("document store unavailable")

// flakyAuth fails DeleteUser on demand and otherwise delegates.
type flakyAuth struct {
	AuthService
	deleteErr error
}

func (f *flakyAuth) DeleteUser(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.AuthService.DeleteUser(ctx, id)
}

// flakyTeachers fails Delete on demand and otherwise delegates.
type flakyTeachers struct {
	repository.TeacherRepository
	deleteErr error
}

func (f *flakyTeachers) Delete(ctx context.Context, id string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.TeacherRepository.Delete(ctx, id)
}

// recordingUploads hands out fixed assets and remembers what was discarded.
type recordingUploads struct {
	discarded []string
}

func (r *recordingUploads) UploadImage(_ context.Context, file *multipart.FileHeader, subfolder, _ string) (dto.PhotoUploadResponse, error) {
	id := subfolder + "/" + file.Filename
	return dto.PhotoUploadResponse{AssetID: id, URL: "https://cdn.test/" + id, Persisted: true}, nil
}

func (r *recordingUploads) Discard(_ context.Context, assetID string) {
	r.discarded = append(r.discarded, assetID)
}
