package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/session"
)

var (
	// ErrInvalidCredentials hides whether the identifier or the secret was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrIdentityExists indicates the identifier is already taken.
	ErrIdentityExists = errors.New("an account already exists for this identifier")
	// ErrInvalidToken indicates a malformed, expired or orphaned token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrTokenRevoked indicates the session was signed out.
	ErrTokenRevoked = errors.New("token revoked")
)

// AuthConfig configures token issuance and student surrogate identifiers.
type AuthConfig struct {
	Secret        string
	Issuer        string
	TTL           time.Duration
	StudentDomain string
	HashCost      int
}

// IssuedSession is a freshly signed access token.
type IssuedSession struct {
	Token     string
	Principal *session.Principal
}

// AuthService is the identity provider: credentials, tokens and identity
// lifecycle.
type AuthService interface {
	SignIn(ctx context.Context, req dto.SignInRequest) (IssuedSession, error)
	SignInStudent(ctx context.Context, req dto.StudentSignInRequest) (IssuedSession, error)
	Register(ctx context.Context, req dto.RegisterRequest) (IssuedSession, error)
	SignOut(ctx context.Context, principal *session.Principal) error
	Verify(ctx context.Context, token string) (*session.Principal, error)
	// CreateUser provisions another identity without touching the caller's session.
	CreateUser(ctx context.Context, identifier, password string) (models.Identity, error)
	DeleteUser(ctx context.Context, id string) error
	StudentIdentifier(rollNumber string) string
}

type tokenClaims struct {
	Identifier string `json:"idf"`
	jwt.RegisteredClaims
}

type authService struct {
	identities repository.IdentityRepository
	students   repository.StudentRepository
	profiles   ProfileDirectory
	denylist   tokenDenylist
	hub        RealtimeHub
	cfg        AuthConfig
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewAuthService constructs the identity provider. redisClient and hub may be nil.
func NewAuthService(identities repository.IdentityRepository, students repository.StudentRepository, profiles ProfileDirectory, redisClient *redis.Client, hub RealtimeHub, cfg AuthConfig, logger zerolog.Logger) AuthService {
	if cfg.TTL <= 0 {
		cfg.TTL = 12 * time.Hour
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.StudentDomain == "" {
		cfg.StudentDomain = "students.portal.local"
	}

	var denylist tokenDenylist = newMemoryDenylist()
	if redisClient != nil {
		denylist = &redisDenylist{client: redisClient, prefix: "portal:revoked:"}
	}

	return &authService{
		identities: identities,
		students:   students,
		profiles:   profiles,
		denylist:   denylist,
		hub:        hub,
		cfg:        cfg,
		logger:     logger.With().Str("component", "auth_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/school-portal-api/internal/service/auth"),
		now:        time.Now,
	}
}

func (s *authService) SignIn(ctx context.Context, req dto.SignInRequest) (IssuedSession, error) {
	ctx, span := s.tracer.Start(ctx, "auth.sign_in")
	defer span.End()

	identity, err := s.identities.GetByIdentifier(ctx, req.Email)
	if err != nil {
		if isNotFound(err) {
			span.SetStatus(codes.Error, "unknown identifier")
			return IssuedSession{}, ErrInvalidCredentials
		}
		span.RecordError(err)
		return IssuedSession{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(req.Password)); err != nil {
		span.SetStatus(codes.Error, "password mismatch")
		return IssuedSession{}, ErrInvalidCredentials
	}

	return s.issue(ctx, identity)
}

// SignInStudent authenticates with roll number and date of birth. The
// surrogate identity is provisioned on first use.
func (s *authService) SignInStudent(ctx context.Context, req dto.StudentSignInRequest) (IssuedSession, error) {
	ctx, span := s.tracer.Start(ctx, "auth.sign_in_student")
	defer span.End()

	student, err := s.matchStudent(ctx, req.RollNumber, req.DateOfBirth)
	if err != nil {
		span.SetStatus(codes.Error, "student mismatch")
		return IssuedSession{}, err
	}

	identity, err := s.identities.GetByIdentifier(ctx, s.StudentIdentifier(student.RollNumber))
	if err != nil {
		if !isNotFound(err) {
			span.RecordError(err)
			return IssuedSession{}, err
		}
		identity, err = s.createIdentity(ctx, s.StudentIdentifier(student.RollNumber), uuid.NewString(), true)
		if err != nil {
			span.RecordError(err)
			return IssuedSession{}, err
		}
	}

	if err := s.linkStudent(ctx, student, identity.ID); err != nil {
		span.RecordError(err)
		return IssuedSession{}, err
	}

	return s.issue(ctx, identity)
}

// Register lets a student set a password on the surrogate identity so they can
// also use the regular sign-in form. An identity left provisional by an earlier
// date-of-birth sign-in takes the password; one with a chosen password is
// ErrIdentityExists.
func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (IssuedSession, error) {
	ctx, span := s.tracer.Start(ctx, "auth.register")
	defer span.End()

	student, err := s.matchStudent(ctx, req.RollNumber, req.DateOfBirth)
	if err != nil {
		return IssuedSession{}, err
	}

	identifier := s.StudentIdentifier(student.RollNumber)
	identity, err := s.identities.GetByIdentifier(ctx, identifier)
	switch {
	case err == nil && identity.Provisional:
		err = s.choosePassword(ctx, &identity, req.Password)
	case err == nil:
		err = ErrIdentityExists
	case isNotFound(err):
		identity, err = s.CreateUser(ctx, identifier, req.Password)
	}
	if err != nil {
		span.RecordError(err)
		return IssuedSession{}, err
	}

	if err := s.linkStudent(ctx, student, identity.ID); err != nil {
		span.RecordError(err)
		return IssuedSession{}, err
	}

	return s.issue(ctx, identity)
}

func (s *authService) SignOut(ctx context.Context, principal *session.Principal) error {
	if principal == nil {
		return nil
	}

	ttl := time.Until(principal.ExpiresAt)
	if ttl > 0 && principal.TokenID != "" {
		if err := s.denylist.Revoke(ctx, principal.TokenID, ttl); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}

	s.announceRevocation(ctx, principal.ID, principal.TokenID)
	s.logger.Info().Str("identity_id", principal.ID).Msg("identity signed out")
	return nil
}

func (s *authService) Verify(ctx context.Context, token string) (*session.Principal, error) {
	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}

	revoked, err := s.denylist.Revoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if revoked {
		return nil, ErrTokenRevoked
	}

	if _, err := s.identities.GetByID(ctx, claims.Subject); err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	principal := &session.Principal{
		ID:         claims.Subject,
		Identifier: claims.Identifier,
		TokenID:    claims.ID,
	}
	if claims.ExpiresAt != nil {
		principal.ExpiresAt = claims.ExpiresAt.Time
	}
	return principal, nil
}

func (s *authService) CreateUser(ctx context.Context, identifier, password string) (models.Identity, error) {
	return s.createIdentity(ctx, identifier, password, false)
}

func (s *authService) choosePassword(ctx context.Context, identity *models.Identity, password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return err
	}
	if err := s.identities.SetPassword(ctx, identity.ID, string(hash)); err != nil {
		return err
	}
	identity.PasswordHash = string(hash)
	identity.Provisional = false
	return nil
}

func (s *authService) createIdentity(ctx context.Context, identifier, password string, provisional bool) (models.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.create_user")
	defer span.End()

	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return models.Identity{}, fmt.Errorf("identifier and password are required")
	}

	if _, err := s.identities.GetByIdentifier(ctx, identifier); err == nil {
		return models.Identity{}, ErrIdentityExists
	} else if !isNotFound(err) {
		return models.Identity{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.HashCost)
	if err != nil {
		return models.Identity{}, err
	}

	identity := models.Identity{
		ID:           uuid.NewString(),
		Identifier:   identifier,
		PasswordHash: string(hash),
		Provisional:  provisional,
	}
	if err := s.identities.Create(ctx, &identity); err != nil {
		span.RecordError(err)
		return models.Identity{}, err
	}

	span.SetAttributes(attribute.String("identity.id", identity.ID))
	return identity, nil
}

// DeleteUser removes the identity and ends every open session of it.
func (s *authService) DeleteUser(ctx context.Context, id string) error {
	if err := s.identities.Delete(ctx, id); err != nil {
		return err
	}
	s.announceRevocation(ctx, id, "")
	return nil
}

func (s *authService) StudentIdentifier(rollNumber string) string {
	return strings.ToLower(strings.TrimSpace(rollNumber)) + "@" + s.cfg.StudentDomain
}

func (s *authService) matchStudent(ctx context.Context, rollNumber, dateOfBirth string) (models.Student, error) {
	student, err := s.students.GetByRollNumber(ctx, rollNumber)
	if err != nil {
		if isNotFound(err) {
			return models.Student{}, ErrInvalidCredentials
		}
		return models.Student{}, err
	}
	if student.DateOfBirth != strings.TrimSpace(dateOfBirth) {
		return models.Student{}, ErrInvalidCredentials
	}
	return student, nil
}

func (s *authService) linkStudent(ctx context.Context, student models.Student, identityID string) error {
	if student.IdentityID == nil || *student.IdentityID != identityID {
		student.IdentityID = &identityID
		if err := s.students.Update(ctx, &student); err != nil {
			return err
		}
	}

	if _, err := s.profiles.FetchProfile(ctx, identityID); err == nil {
		return nil
	}
	return s.profiles.Save(ctx, studentAccessRecord(student, identityID))
}

func (s *authService) issue(ctx context.Context, identity models.Identity) (IssuedSession, error) {
	now := s.now()
	expires := now.Add(s.cfg.TTL)
	claims := tokenClaims{
		Identifier: identity.Identifier,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   identity.ID,
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return IssuedSession{}, err
	}

	if err := s.identities.TouchSignIn(ctx, identity.ID, now); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to record sign-in time")
	}

	return IssuedSession{
		Token: signed,
		Principal: &session.Principal{
			ID:         identity.ID,
			Identifier: identity.Identifier,
			TokenID:    claims.ID,
			ExpiresAt:  expires,
		},
	}, nil
}

func (s *authService) announceRevocation(ctx context.Context, identityID, tokenID string) {
	if s.hub == nil {
		return
	}
	payload := map[string]string{"identity_id": identityID, "token_id": tokenID}
	if err := s.hub.Publish(ctx, EventIdentityRevoked, []string{UserAudience(identityID)}, payload); err != nil {
		s.logger.Warn().Err(err).Str("identity_id", identityID).Msg("failed to announce revocation")
	}
}

func studentAccessRecord(student models.Student, identityID string) models.UserProfile {
	return models.UserProfile{
		ID:          identityID,
		Role:        models.RoleStudent.String(),
		DisplayName: student.Name,
		ClassName:   student.ClassName,
		Section:     student.Section,
		RollNumber:  student.RollNumber,
	}
}

type tokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, ttl time.Duration) error
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

type redisDenylist struct {
	client *redis.Client
	prefix string
}

func (d *redisDenylist) Revoke(ctx context.Context, tokenID string, ttl time.Duration) error {
	return d.client.Set(ctx, d.prefix+tokenID, "1", ttl).Err()
}

func (d *redisDenylist) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.prefix+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type memoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

func newMemoryDenylist() *memoryDenylist {
	return &memoryDenylist{entries: make(map[string]time.Time)}
}

func (d *memoryDenylist) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := time.Now()
	for id, until := range d.entries {
		if now.After(until) {
			delete(d.entries, id)
		}
	}
	d.entries[tokenID] = now.Add(ttl)
	return nil
}

func (d *memoryDenylist) Revoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.entries[tokenID]
	return ok && time.Now().Before(until), nil
}
