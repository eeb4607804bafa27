package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

// ErrDataEntryNotFound indicates the operator profile does not exist.
var ErrDataEntryNotFound = errors.New("data entry admin not found")

// DataEntryService manages data-entry operator accounts.
type DataEntryService interface {
	List(ctx context.Context, query dto.ListQuery) (dto.DataEntryListResponse, error)
	Get(ctx context.Context, id string) (dto.DataEntryResponse, error)
	Create(ctx context.Context, req dto.DataEntryCreateRequest, actor Actor) (dto.DataEntryResponse, error)
	Update(ctx context.Context, id string, req dto.DataEntryUpdateRequest, actor Actor) (dto.DataEntryResponse, error)
	Delete(ctx context.Context, id string, actor Actor) error
}

type dataEntryService struct {
	repo      repository.DataEntryRepository
	accounts  staffAccounts
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewDataEntryService constructs the operator service.
func NewDataEntryService(repo repository.DataEntryRepository, auth AuthService, profiles ProfileDirectory, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) DataEntryService {
	componentLogger := logger.With().Str("component", "data_entry_service").Logger()
	return &dataEntryService{
		repo:      repo,
		accounts:  staffAccounts{auth: auth, profiles: profiles, logger: componentLogger},
		validator: validate,
		activity:  activity,
		logger:    componentLogger,
	}
}

func (s *dataEntryService) List(ctx context.Context, query dto.ListQuery) (dto.DataEntryListResponse, error) {
	admins, err := s.repo.ListAll(ctx)
	if err != nil {
		return dto.DataEntryListResponse{}, err
	}

	page, meta := listPage(admins, query,
		func(a models.DataEntryAdmin) []string { return []string{a.Name, a.Email, a.Phone} },
		func(a models.DataEntryAdmin) map[string]string { return map[string]string{"email": a.Email} },
	)

	items := make([]dto.DataEntryResponse, 0, len(page))
	for _, admin := range page {
		items = append(items, dto.NewDataEntryResponse(admin))
	}
	return dto.DataEntryListResponse{Items: items, Pagination: meta}, nil
}

func (s *dataEntryService) Get(ctx context.Context, id string) (dto.DataEntryResponse, error) {
	admin, err := s.load(ctx, id)
	if err != nil {
		return dto.DataEntryResponse{}, err
	}
	return dto.NewDataEntryResponse(admin), nil
}

func (s *dataEntryService) Create(ctx context.Context, req dto.DataEntryCreateRequest, actor Actor) (dto.DataEntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DataEntryResponse{}, err
	}

	admin := models.DataEntryAdmin{
		Name:  strings.TrimSpace(req.Name),
		Email: strings.ToLower(strings.TrimSpace(req.Email)),
		Phone: strings.TrimSpace(req.Phone),
	}

	id, err := s.accounts.provision(ctx, "data_entry.create", admin.Email, req.Password,
		func(id string) error {
			admin.ID = id
			return s.repo.Create(ctx, &admin)
		},
		func(id string) models.UserProfile { return dataEntryAccessRecord(admin) },
	)
	if err != nil {
		return dto.DataEntryResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "data_entry.create",
		EntityType: "data_entry_admin",
		EntityID:   id,
		Metadata:   map[string]interface{}{"email": admin.Email},
	})
	return dto.NewDataEntryResponse(admin), nil
}

func (s *dataEntryService) Update(ctx context.Context, id string, req dto.DataEntryUpdateRequest, actor Actor) (dto.DataEntryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.DataEntryResponse{}, err
	}

	admin, err := s.load(ctx, id)
	if err != nil {
		return dto.DataEntryResponse{}, err
	}

	admin.Name = strings.TrimSpace(req.Name)
	admin.Phone = strings.TrimSpace(req.Phone)
	if err := s.repo.Update(ctx, &admin); err != nil {
		return dto.DataEntryResponse{}, err
	}
	if err := s.accounts.profiles.Save(ctx, dataEntryAccessRecord(admin)); err != nil {
		return dto.DataEntryResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "data_entry.update",
		EntityType: "data_entry_admin",
		EntityID:   id,
	})
	return dto.NewDataEntryResponse(admin), nil
}

func (s *dataEntryService) Delete(ctx context.Context, id string, actor Actor) error {
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	err := s.accounts.remove(ctx, "data_entry.delete", id, func() error {
		return s.repo.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "data_entry.delete",
		EntityType: "data_entry_admin",
		EntityID:   id,
	})
	return nil
}

func (s *dataEntryService) load(ctx context.Context, id string) (models.DataEntryAdmin, error) {
	admin, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.DataEntryAdmin{}, ErrDataEntryNotFound
		}
		return models.DataEntryAdmin{}, err
	}
	return admin, nil
}

func dataEntryAccessRecord(admin models.DataEntryAdmin) models.UserProfile {
	return models.UserProfile{
		ID:          admin.ID,
		Role:        models.RoleDataEntry.String(),
		DisplayName: admin.Name,
		Email:       admin.Email,
	}
}
