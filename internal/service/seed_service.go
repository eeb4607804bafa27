package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService provisions the first administrator. Every other account is
// created from inside the admin shell.
type SeedService interface {
	EnsureAdmin(ctx context.Context, req dto.SeedAdminRequest) (dto.SeedAdminResponse, error)
	SeedAdmin(ctx context.Context, token string, req dto.SeedAdminRequest) (dto.SeedAdminResponse, error)
}

type seedService struct {
	identities repository.IdentityRepository
	accounts   staffAccounts
	validator  *validator.Validate
	enabled    bool
	token      string
	logger     zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(identities repository.IdentityRepository, auth AuthService, profiles ProfileDirectory, validate *validator.Validate, enabled bool, token string, logger zerolog.Logger) SeedService {
	logger = logger.With().Str("component", "seed_service").Logger()
	return &seedService{
		identities: identities,
		accounts:   staffAccounts{auth: auth, profiles: profiles, logger: logger},
		validator:  validate,
		enabled:    enabled,
		token:      token,
		logger:     logger,
	}
}

// EnsureAdmin creates the administrator unless an identity with that email
// already exists.
func (s *seedService) EnsureAdmin(ctx context.Context, req dto.SeedAdminRequest) (dto.SeedAdminResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SeedAdminResponse{}, err
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	existing, err := s.identities.GetByIdentifier(ctx, email)
	if err == nil {
		return dto.SeedAdminResponse{ID: existing.ID}, nil
	}
	if !isNotFound(err) {
		return dto.SeedAdminResponse{}, err
	}

	name := strings.TrimSpace(req.Name)
	id, err := s.accounts.provision(ctx, "seed.admin", email, req.Password,
		func(string) error { return nil },
		func(id string) models.UserProfile {
			return models.UserProfile{ID: id, Role: models.RoleAdmin.String(), DisplayName: name, Email: email}
		})
	if err != nil {
		return dto.SeedAdminResponse{}, err
	}

	s.logger.Info().Str("identity_id", id).Str("email", email).Msg("administrator seeded")
	return dto.SeedAdminResponse{ID: id, Created: true}, nil
}

func (s *seedService) SeedAdmin(ctx context.Context, token string, req dto.SeedAdminRequest) (dto.SeedAdminResponse, error) {
	if !s.enabled {
		return dto.SeedAdminResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.SeedAdminResponse{}, ErrSeedUnauthorized
	}
	return s.EnsureAdmin(ctx, req)
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
