package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

var (
	// ErrStudentNotFound indicates the student record does not exist.
	ErrStudentNotFound = errors.New("student not found")
	// ErrStudentRollTaken indicates another student already holds the roll number.
	ErrStudentRollTaken = errors.New("roll number already in use")
	// ErrStudentRollLocked indicates a registered student's roll number cannot change.
	ErrStudentRollLocked = errors.New("roll number of a registered student cannot change")
)

// StudentService manages student records used by admins and data-entry staff.
type StudentService interface {
	List(ctx context.Context, query dto.ListQuery) (dto.StudentListResponse, error)
	Get(ctx context.Context, id string) (dto.StudentResponse, error)
	Create(ctx context.Context, req dto.StudentRequest, photo *multipart.FileHeader, actor Actor) (dto.StudentResponse, error)
	Update(ctx context.Context, id string, req dto.StudentRequest, photo *multipart.FileHeader, actor Actor) (dto.StudentResponse, error)
	Delete(ctx context.Context, id string, actor Actor) error
}

type studentService struct {
	repo      repository.StudentRepository
	accounts  staffAccounts
	uploads   UploadService
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewStudentService constructs the student service.
func NewStudentService(repo repository.StudentRepository, auth AuthService, profiles ProfileDirectory, uploads UploadService, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) StudentService {
	componentLogger := logger.With().Str("component", "student_service").Logger()
	return &studentService{
		repo:      repo,
		accounts:  staffAccounts{auth: auth, profiles: profiles, logger: componentLogger},
		uploads:   uploads,
		validator: validate,
		activity:  activity,
		logger:    componentLogger,
	}
}

func (s *studentService) List(ctx context.Context, query dto.ListQuery) (dto.StudentListResponse, error) {
	students, err := s.repo.ListAll(ctx)
	if err != nil {
		return dto.StudentListResponse{}, err
	}

	page, meta := listPage(students, query,
		func(st models.Student) []string { return []string{st.Name, st.RollNumber, st.ParentName} },
		func(st models.Student) map[string]string {
			return map[string]string{"class_name": st.ClassName, "section": st.Section, "gender": st.Gender}
		},
	)

	items := make([]dto.StudentResponse, 0, len(page))
	for _, student := range page {
		items = append(items, dto.NewStudentResponse(student))
	}
	return dto.StudentListResponse{Items: items, Pagination: meta}, nil
}

func (s *studentService) Get(ctx context.Context, id string) (dto.StudentResponse, error) {
	student, err := s.load(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	return dto.NewStudentResponse(student), nil
}

func (s *studentService) Create(ctx context.Context, req dto.StudentRequest, photo *multipart.FileHeader, actor Actor) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student := models.Student{ID: uuid.NewString()}
	applyStudentRequest(&student, req)

	if err := s.ensureRollAvailable(ctx, student.RollNumber, ""); err != nil {
		return dto.StudentResponse{}, err
	}

	upload, usePhoto, err := storePhoto(ctx, s.uploads, photo, "students", actor.ID)
	if err != nil {
		return dto.StudentResponse{}, err
	}
	if usePhoto {
		student.PhotoURL = upload.URL
		student.PhotoID = upload.AssetID
	}

	if err := s.repo.Create(ctx, &student); err != nil {
		if usePhoto {
			s.uploads.Discard(ctx, student.PhotoID)
		}
		return dto.StudentResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "student.create",
		EntityType: "student",
		EntityID:   student.ID,
		Metadata:   map[string]interface{}{"roll_number": student.RollNumber, "class_name": student.ClassName},
	})

	resp := dto.NewStudentResponse(student)
	resp.Photo = upload
	return resp, nil
}

func (s *studentService) Update(ctx context.Context, id string, req dto.StudentRequest, photo *multipart.FileHeader, actor Actor) (dto.StudentResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.StudentResponse{}, err
	}

	student, err := s.load(ctx, id)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	roll := strings.TrimSpace(req.RollNumber)
	if roll != student.RollNumber {
		if student.IdentityID != nil {
			return dto.StudentResponse{}, ErrStudentRollLocked
		}
		if err := s.ensureRollAvailable(ctx, roll, student.ID); err != nil {
			return dto.StudentResponse{}, err
		}
	}

	upload, usePhoto, err := storePhoto(ctx, s.uploads, photo, "students", actor.ID)
	if err != nil {
		return dto.StudentResponse{}, err
	}

	previousPhoto := student.PhotoID
	applyStudentRequest(&student, req)
	if usePhoto {
		student.PhotoURL = upload.URL
		student.PhotoID = upload.AssetID
	}

	if err := s.repo.Update(ctx, &student); err != nil {
		if usePhoto {
			s.uploads.Discard(ctx, student.PhotoID)
		}
		return dto.StudentResponse{}, err
	}
	if student.IdentityID != nil {
		if err := s.accounts.profiles.Save(ctx, studentAccessRecord(student, *student.IdentityID)); err != nil {
			return dto.StudentResponse{}, err
		}
	}
	if usePhoto && previousPhoto != "" && previousPhoto != student.PhotoID {
		s.uploads.Discard(ctx, previousPhoto)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "student.update",
		EntityType: "student",
		EntityID:   student.ID,
	})

	resp := dto.NewStudentResponse(student)
	resp.Photo = upload
	return resp, nil
}

// Delete removes the student record and, for registered students, the access
// record and identity as well.
func (s *studentService) Delete(ctx context.Context, id string, actor Actor) error {
	student, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	recordGone := false
	deleteRecord := func() error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		recordGone = true
		return nil
	}

	if student.IdentityID != nil {
		err = s.accounts.remove(ctx, "student.delete", *student.IdentityID, deleteRecord)
	} else if err = deleteRecord(); isNotFound(err) {
		err = ErrStudentNotFound
	}

	if recordGone && student.PhotoID != "" && s.uploads != nil {
		s.uploads.Discard(ctx, student.PhotoID)
	}
	if err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "student.delete",
		EntityType: "student",
		EntityID:   id,
		Metadata:   map[string]interface{}{"roll_number": student.RollNumber},
	})
	return nil
}

func (s *studentService) ensureRollAvailable(ctx context.Context, roll, selfID string) error {
	existing, err := s.repo.GetByRollNumber(ctx, roll)
	if err == nil && existing.ID != selfID {
		return ErrStudentRollTaken
	}
	if err != nil && !isNotFound(err) {
		return err
	}
	return nil
}

func (s *studentService) load(ctx context.Context, id string) (models.Student, error) {
	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Student{}, ErrStudentNotFound
		}
		return models.Student{}, err
	}
	return student, nil
}

func applyStudentRequest(student *models.Student, req dto.StudentRequest) {
	student.Name = strings.TrimSpace(req.Name)
	student.RollNumber = strings.TrimSpace(req.RollNumber)
	student.ClassName = strings.TrimSpace(req.ClassName)
	student.Section = strings.TrimSpace(req.Section)
	student.DateOfBirth = strings.TrimSpace(req.DateOfBirth)
	student.Gender = strings.ToLower(strings.TrimSpace(req.Gender))
	student.ParentName = strings.TrimSpace(req.ParentName)
	student.Phone = strings.TrimSpace(req.Phone)
	student.Address = strings.TrimSpace(req.Address)
}
