package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
)

const recentLeaveLimit = 5

// StudentDashboardService assembles the student home view: today's row of the
// class timetable, the fee summary and the student's leave requests.
type StudentDashboardService interface {
	GetDashboard(ctx context.Context, student models.StudentProfile) (dto.StudentDashboardResponse, error)
}

type studentDashboardService struct {
	timetables TimetableService
	fees       FeeService
	leave      LeaveService
	cache      *redis.Client
	cacheTTL   time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewStudentDashboardService builds the dashboard aggregator. Only the
// timetable is cached; fees and leave are read fresh on every call.
func NewStudentDashboardService(timetables TimetableService, fees FeeService, leave LeaveService, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) StudentDashboardService {
	return &studentDashboardService{
		timetables: timetables,
		fees:       fees,
		leave:      leave,
		cache:      cache,
		cacheTTL:   ttl,
		logger:     logger.With().Str("component", "student_dashboard_service").Logger(),
		now:        time.Now,
	}
}

func (s *studentDashboardService) GetDashboard(ctx context.Context, student models.StudentProfile) (dto.StudentDashboardResponse, error) {
	now := s.now()
	response := dto.StudentDashboardResponse{
		Profile:     student,
		Day:         now.Weekday().String(),
		Slots:       []models.TimeSlot{},
		GeneratedAt: now.UTC(),
	}

	if strings.TrimSpace(student.ClassName) != "" {
		timetable, err := s.timetable(ctx, student.ClassName)
		if err != nil {
			return dto.StudentDashboardResponse{}, err
		}
		response.Slots = timetable.Grid.Slots
		for i := range timetable.Grid.Rows {
			if timetable.Grid.Rows[i].Day == response.Day {
				row := timetable.Grid.Rows[i]
				response.Today = &row
				break
			}
		}
	}

	fees, err := s.fees.Summary(ctx, student.RollNumber)
	switch {
	case err == nil:
		response.Fees = fees
	case errors.Is(err, ErrStudentNotFound):
		response.Fees = dto.FeeSummary{RollNumber: student.RollNumber, ClassName: student.ClassName, Structures: []dto.FeeStructureResponse{}}
	default:
		return dto.StudentDashboardResponse{}, err
	}

	requests, err := s.leave.ListOwn(ctx, student.ID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	response.Leave = summarizeLeave(requests)

	return response, nil
}

func (s *studentDashboardService) timetable(ctx context.Context, className string) (dto.TimetableResponse, error) {
	cacheKey := fmt.Sprintf("portal:dashboard:timetable:%s", strings.ToLower(className))

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var response dto.TimetableResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				s.logger.Debug().Str("class_name", className).Msg("dashboard timetable cache hit")
				return response, nil
			}
		} else if err != redis.Nil {
			s.logger.Warn().Err(err).Msg("failed to read dashboard cache")
		}
	}

	response, err := s.timetables.Get(ctx, className, false)
	if err != nil {
		return dto.TimetableResponse{}, err
	}

	if s.cache != nil && s.cacheTTL > 0 {
		payload, err := json.Marshal(response)
		if err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store dashboard cache")
			}
		}
	}

	return response, nil
}

// summarizeLeave counts requests by outcome. Requests come newest first.
func summarizeLeave(requests []dto.LeaveResponse) dto.LeaveSummary {
	summary := dto.LeaveSummary{Recent: make([]dto.LeaveResponse, 0, min(recentLeaveLimit, len(requests)))}
	for i, request := range requests {
		switch request.Status {
		case models.LeaveStatusApproved:
			summary.Approved++
		case models.LeaveStatusRejected:
			summary.Rejected++
		default:
			summary.Pending++
		}
		if i < recentLeaveLimit {
			summary.Recent = append(summary.Recent, request)
		}
	}
	return summary
}
