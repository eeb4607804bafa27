package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

const (
	analyticsCacheKey = "portal:analytics:overview"
	collectionWindow  = 7
)

// AdminAnalyticsService aggregates the administrator overview.
type AdminAnalyticsService interface {
	GetSummary(ctx context.Context) (dto.AdminAnalyticsResponse, error)
}

type adminAnalyticsService struct {
	repo     repository.AdminAnalyticsRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
	now      func() time.Time
}

// NewAdminAnalyticsService constructs the analytics service. cache may be nil.
func NewAdminAnalyticsService(repo repository.AdminAnalyticsRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) AdminAnalyticsService {
	return &adminAnalyticsService{
		repo:     repo,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "admin_analytics_service").Logger(),
		now:      time.Now,
	}
}

func (s *adminAnalyticsService) GetSummary(ctx context.Context) (dto.AdminAnalyticsResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/school-portal-api/internal/service/admin_analytics")
	ctx, span := tracer.Start(ctx, "analytics.aggregate")
	span.SetAttributes(attribute.String("analytics.cache_key", analyticsCacheKey))
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, analyticsCacheKey).Result()
		if err == nil {
			var response dto.AdminAnalyticsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read analytics cache")
			span.RecordError(err)
		}
	}

	summary, err := s.aggregate(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "aggregate_failed")
		return dto.AdminAnalyticsResponse{}, err
	}
	span.SetAttributes(attribute.Int64("analytics.students", summary.Students))

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(summary)
		if err == nil {
			if err := s.cache.Set(ctx, analyticsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store analytics cache")
				span.RecordError(err)
			}
		}
	}

	return summary, nil
}

func (s *adminAnalyticsService) aggregate(ctx context.Context) (dto.AdminAnalyticsResponse, error) {
	now := s.now().UTC()
	summary := dto.AdminAnalyticsResponse{
		StudentsByClass: map[string]int64{},
		LeaveByStatus: map[string]int64{
			string(models.LeaveStatusPendingTeacher): 0,
			string(models.LeaveStatusPendingAdmin):   0,
			string(models.LeaveStatusApproved):       0,
			string(models.LeaveStatusRejected):       0,
		},
		GeneratedAt: now,
	}

	classes, err := s.repo.CountStudentsByClass(ctx)
	if err != nil {
		return dto.AdminAnalyticsResponse{}, err
	}
	for _, row := range classes {
		summary.StudentsByClass[row.Label] = row.Total
		summary.Students += row.Total
	}

	if summary.Teachers, err = s.repo.CountTeachers(ctx); err != nil {
		return dto.AdminAnalyticsResponse{}, err
	}
	if summary.DataEntryAdmins, err = s.repo.CountDataEntryAdmins(ctx); err != nil {
		return dto.AdminAnalyticsResponse{}, err
	}

	leave, err := s.repo.CountLeaveByStatus(ctx)
	if err != nil {
		return dto.AdminAnalyticsResponse{}, err
	}
	for _, row := range leave {
		summary.LeaveByStatus[row.Label] = row.Total
	}

	if summary.FeesCollected, err = s.repo.SumPayments(ctx); err != nil {
		return dto.AdminAnalyticsResponse{}, err
	}

	firstDay := startOfDay(now).AddDate(0, 0, -(collectionWindow - 1))
	payments, err := s.repo.ListPaymentsSince(ctx, firstDay)
	if err != nil {
		return dto.AdminAnalyticsResponse{}, err
	}
	summary.DailyCollection = dailyCollection(firstDay, payments)

	return summary, nil
}

// dailyCollection buckets payments per UTC day, including empty days.
func dailyCollection(firstDay time.Time, payments []models.FeePayment) []dto.DailyCollection {
	days := make([]dto.DailyCollection, collectionWindow)
	for i := range days {
		days[i].Day = firstDay.AddDate(0, 0, i)
	}
	for _, payment := range payments {
		index := int(startOfDay(payment.PaidAt.UTC()).Sub(firstDay) / (24 * time.Hour))
		if index < 0 || index >= collectionWindow {
			continue
		}
		days[index].Amount += payment.Amount
		days[index].Payments++
	}
	return days
}

func startOfDay(t time.Time) time.Time {
	utc := t.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}
