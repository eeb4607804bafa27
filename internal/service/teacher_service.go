package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

// ErrTeacherNotFound indicates the teacher profile does not exist.
var ErrTeacherNotFound = errors.New("teacher not found")

// TeacherService manages teacher accounts and profiles.
type TeacherService interface {
	List(ctx context.Context, query dto.ListQuery) (dto.TeacherListResponse, error)
	Get(ctx context.Context, id string) (dto.TeacherResponse, error)
	Create(ctx context.Context, req dto.TeacherCreateRequest, photo *multipart.FileHeader, actor Actor) (dto.TeacherResponse, error)
	Update(ctx context.Context, id string, req dto.TeacherUpdateRequest, photo *multipart.FileHeader, actor Actor) (dto.TeacherResponse, error)
	Delete(ctx context.Context, id string, actor Actor) error
}

type teacherService struct {
	repo      repository.TeacherRepository
	accounts  staffAccounts
	uploads   UploadService
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewTeacherService constructs the teacher service.
func NewTeacherService(repo repository.TeacherRepository, auth AuthService, profiles ProfileDirectory, uploads UploadService, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) TeacherService {
	componentLogger := logger.With().Str("component", "teacher_service").Logger()
	return &teacherService{
		repo:      repo,
		accounts:  staffAccounts{auth: auth, profiles: profiles, logger: componentLogger},
		uploads:   uploads,
		validator: validate,
		activity:  activity,
		logger:    componentLogger,
	}
}

func (s *teacherService) List(ctx context.Context, query dto.ListQuery) (dto.TeacherListResponse, error) {
	teachers, err := s.repo.ListAll(ctx)
	if err != nil {
		return dto.TeacherListResponse{}, err
	}

	page, meta := listPage(teachers, query,
		func(t models.Teacher) []string { return []string{t.Name, t.Email, t.Subject} },
		func(t models.Teacher) map[string]string {
			return map[string]string{"subject": t.Subject, "class_name": t.ClassName, "section": t.Section}
		},
	)

	items := make([]dto.TeacherResponse, 0, len(page))
	for _, teacher := range page {
		items = append(items, dto.NewTeacherResponse(teacher))
	}
	return dto.TeacherListResponse{Items: items, Pagination: meta}, nil
}

func (s *teacherService) Get(ctx context.Context, id string) (dto.TeacherResponse, error) {
	teacher, err := s.load(ctx, id)
	if err != nil {
		return dto.TeacherResponse{}, err
	}
	return dto.NewTeacherResponse(teacher), nil
}

func (s *teacherService) Create(ctx context.Context, req dto.TeacherCreateRequest, photo *multipart.FileHeader, actor Actor) (dto.TeacherResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TeacherResponse{}, err
	}

	upload, usePhoto, err := storePhoto(ctx, s.uploads, photo, "teachers", actor.ID)
	if err != nil {
		return dto.TeacherResponse{}, err
	}

	teacher := models.Teacher{
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:         strings.TrimSpace(req.Phone),
		Subject:       strings.TrimSpace(req.Subject),
		Qualification: strings.TrimSpace(req.Qualification),
		ClassName:     strings.TrimSpace(req.ClassName),
		Section:       strings.TrimSpace(req.Section),
	}
	if usePhoto {
		teacher.PhotoURL = upload.URL
		teacher.PhotoID = upload.AssetID
	}

	stored := false
	id, err := s.accounts.provision(ctx, "teacher.create", teacher.Email, req.Password,
		func(id string) error {
			teacher.ID = id
			if err := s.repo.Create(ctx, &teacher); err != nil {
				return err
			}
			stored = true
			return nil
		},
		func(id string) models.UserProfile { return teacherAccessRecord(teacher) },
	)
	if err != nil {
		if usePhoto && !stored {
			s.uploads.Discard(ctx, teacher.PhotoID)
		}
		return dto.TeacherResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "teacher.create",
		EntityType: "teacher",
		EntityID:   id,
		Metadata:   map[string]interface{}{"email": teacher.Email, "subject": teacher.Subject},
	})

	resp := dto.NewTeacherResponse(teacher)
	resp.Photo = upload
	return resp, nil
}

func (s *teacherService) Update(ctx context.Context, id string, req dto.TeacherUpdateRequest, photo *multipart.FileHeader, actor Actor) (dto.TeacherResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TeacherResponse{}, err
	}

	teacher, err := s.load(ctx, id)
	if err != nil {
		return dto.TeacherResponse{}, err
	}

	upload, usePhoto, err := storePhoto(ctx, s.uploads, photo, "teachers", actor.ID)
	if err != nil {
		return dto.TeacherResponse{}, err
	}

	previousPhoto := teacher.PhotoID
	teacher.Name = strings.TrimSpace(req.Name)
	teacher.Phone = strings.TrimSpace(req.Phone)
	teacher.Subject = strings.TrimSpace(req.Subject)
	teacher.Qualification = strings.TrimSpace(req.Qualification)
	teacher.ClassName = strings.TrimSpace(req.ClassName)
	teacher.Section = strings.TrimSpace(req.Section)
	if usePhoto {
		teacher.PhotoURL = upload.URL
		teacher.PhotoID = upload.AssetID
	}

	if err := s.repo.Update(ctx, &teacher); err != nil {
		if usePhoto {
			s.uploads.Discard(ctx, teacher.PhotoID)
		}
		return dto.TeacherResponse{}, err
	}
	if err := s.accounts.profiles.Save(ctx, teacherAccessRecord(teacher)); err != nil {
		return dto.TeacherResponse{}, err
	}
	if usePhoto && previousPhoto != "" && previousPhoto != teacher.PhotoID {
		s.uploads.Discard(ctx, previousPhoto)
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "teacher.update",
		EntityType: "teacher",
		EntityID:   id,
	})

	resp := dto.NewTeacherResponse(teacher)
	resp.Photo = upload
	return resp, nil
}

func (s *teacherService) Delete(ctx context.Context, id string, actor Actor) error {
	teacher, err := s.load(ctx, id)
	if err != nil {
		return err
	}

	documentGone := false
	err = s.accounts.remove(ctx, "teacher.delete", id, func() error {
		if err := s.repo.Delete(ctx, id); err != nil {
			return err
		}
		documentGone = true
		return nil
	})
	if documentGone && teacher.PhotoID != "" && s.uploads != nil {
		s.uploads.Discard(ctx, teacher.PhotoID)
	}
	if err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "teacher.delete",
		EntityType: "teacher",
		EntityID:   id,
	})
	return nil
}

func (s *teacherService) load(ctx context.Context, id string) (models.Teacher, error) {
	teacher, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Teacher{}, ErrTeacherNotFound
		}
		return models.Teacher{}, err
	}
	return teacher, nil
}

func teacherAccessRecord(teacher models.Teacher) models.UserProfile {
	return models.UserProfile{
		ID:          teacher.ID,
		Role:        models.RoleTeacher.String(),
		DisplayName: teacher.Name,
		Email:       teacher.Email,
		ClassName:   teacher.ClassName,
		Section:     teacher.Section,
		Subject:     teacher.Subject,
	}
}
