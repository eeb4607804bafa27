package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

// ErrNotificationNotFound indicates the banner does not exist.
var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService manages banners and pushes them to connected clients.
type NotificationService interface {
	List(ctx context.Context, query dto.ListQuery) (dto.NotificationListResponse, error)
	Get(ctx context.Context, id uint) (dto.NotificationResponse, error)
	Create(ctx context.Context, req dto.NotificationRequest, actor Actor) (dto.NotificationResponse, error)
	Update(ctx context.Context, id uint, req dto.NotificationRequest, actor Actor) (dto.NotificationResponse, error)
	Delete(ctx context.Context, id uint, actor Actor) error
	// Active returns the banners visible to role; an empty role means anonymous.
	Active(ctx context.Context, role models.Role) ([]dto.NotificationResponse, error)
}

type notificationService struct {
	repo      repository.NotificationRepository
	hub       RealtimeHub
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	tracer    trace.Tracer
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewNotificationService constructs the banner service. hub may be nil.
func NewNotificationService(repo repository.NotificationRepository, hub RealtimeHub, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) NotificationService {
	return &notificationService{
		repo:      repo,
		hub:       hub,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "notification_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/school-portal-api/internal/service/notification"),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

func (s *notificationService) List(ctx context.Context, query dto.ListQuery) (dto.NotificationListResponse, error) {
	notifications, err := s.repo.ListAll(ctx)
	if err != nil {
		return dto.NotificationListResponse{}, err
	}

	now := s.now()
	page, meta := listPage(notifications, query,
		func(n models.Notification) []string { return []string{n.Title, n.Message} },
		func(n models.Notification) map[string]string {
			state := "inactive"
			if n.VisibleAt(now) {
				state = "active"
			}
			return map[string]string{"audience": n.Audience, "priority": n.Priority, "state": state}
		},
	)

	return dto.NotificationListResponse{Items: dto.NewNotificationResponseSlice(page), Pagination: meta}, nil
}

func (s *notificationService) Get(ctx context.Context, id uint) (dto.NotificationResponse, error) {
	notification, err := s.load(ctx, id)
	if err != nil {
		return dto.NotificationResponse{}, err
	}
	return dto.NewNotificationResponse(notification), nil
}

func (s *notificationService) Create(ctx context.Context, req dto.NotificationRequest, actor Actor) (dto.NotificationResponse, error) {
	ctx, span := s.tracer.Start(ctx, "notification.create")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		span.SetStatus(codes.Error, "validation failed")
		return dto.NotificationResponse{}, err
	}

	notification := models.Notification{CreatedBy: actor.ID, Active: true}
	s.apply(&notification, req)

	if err := s.repo.Create(ctx, &notification); err != nil {
		span.RecordError(err)
		return dto.NotificationResponse{}, err
	}
	span.SetAttributes(attribute.Int("notification.id", int(notification.ID)), attribute.String("notification.audience", notification.Audience))

	resp := dto.NewNotificationResponse(notification)
	s.push(ctx, notification, resp)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "notification.create",
		EntityType: "notification",
		EntityID:   uintID(notification.ID),
		Metadata:   map[string]interface{}{"audience": notification.Audience},
	})
	return resp, nil
}

func (s *notificationService) Update(ctx context.Context, id uint, req dto.NotificationRequest, actor Actor) (dto.NotificationResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.NotificationResponse{}, err
	}

	notification, err := s.load(ctx, id)
	if err != nil {
		return dto.NotificationResponse{}, err
	}
	s.apply(&notification, req)

	if err := s.repo.Update(ctx, &notification); err != nil {
		return dto.NotificationResponse{}, err
	}

	resp := dto.NewNotificationResponse(notification)
	s.push(ctx, notification, resp)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "notification.update",
		EntityType: "notification",
		EntityID:   uintID(id),
	})
	return resp, nil
}

func (s *notificationService) Delete(ctx context.Context, id uint, actor Actor) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrNotificationNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "notification.delete",
		EntityType: "notification",
		EntityID:   uintID(id),
	})
	return nil
}

func (s *notificationService) Active(ctx context.Context, role models.Role) ([]dto.NotificationResponse, error) {
	audiences := []string{models.NotificationAudienceAll}
	if role.Valid() {
		audiences = append(audiences, role.String())
	}

	notifications, err := s.repo.ListActive(ctx, audiences, s.now())
	if err != nil {
		return nil, err
	}
	return dto.NewNotificationResponseSlice(notifications), nil
}

func (s *notificationService) apply(notification *models.Notification, req dto.NotificationRequest) {
	notification.Title = strings.TrimSpace(s.sanitizer.Sanitize(req.Title))
	notification.Message = strings.TrimSpace(s.sanitizer.Sanitize(req.Message))

	notification.Audience = strings.ToLower(strings.TrimSpace(req.Audience))
	if notification.Audience == "" {
		notification.Audience = models.NotificationAudienceAll
	}
	notification.Priority = strings.ToLower(strings.TrimSpace(req.Priority))
	if notification.Priority == "" {
		notification.Priority = "normal"
	}
	if req.Active != nil {
		notification.Active = *req.Active
	}
	notification.ExpiresAt = req.ExpiresAt
}

// push announces a banner that is visible right now to its audience.
func (s *notificationService) push(ctx context.Context, notification models.Notification, resp dto.NotificationResponse) {
	if s.hub == nil || !notification.VisibleAt(s.now()) {
		return
	}

	audience := AudienceAll
	if role, err := models.ParseRole(notification.Audience); err == nil {
		audience = RoleAudience(role)
	}
	if err := s.hub.Publish(ctx, EventNotification, []string{audience}, resp); err != nil {
		s.logger.Warn().Err(err).Uint("notification_id", notification.ID).Msg("failed to push notification")
	}
}

func (s *notificationService) load(ctx context.Context, id uint) (models.Notification, error) {
	notification, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.Notification{}, ErrNotificationNotFound
		}
		return models.Notification{}, err
	}
	return notification, nil
}
