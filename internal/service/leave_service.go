package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/observability"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

var (
	// ErrLeaveNotFound indicates the leave request does not exist.
	ErrLeaveNotFound = errors.New("leave request not found")
	// ErrLeaveRange indicates the leave ends before it starts.
	ErrLeaveRange = errors.New("leave must not end before it starts")
	// ErrLeaveRequester indicates the profile cannot file leave requests.
	ErrLeaveRequester = errors.New("only students and teachers can file leave requests")
)

// LeaveService runs the two-step leave approval chain.
type LeaveService interface {
	Create(ctx context.Context, req dto.LeaveCreateRequest, requester models.Profile) (dto.LeaveResponse, error)
	ListOwn(ctx context.Context, requesterID string) ([]dto.LeaveResponse, error)
	ListForClass(ctx context.Context, teacher models.TeacherProfile, status models.LeaveStatus) ([]dto.LeaveResponse, error)
	ListAll(ctx context.Context, status models.LeaveStatus) ([]dto.LeaveResponse, error)
	TeacherDecide(ctx context.Context, id uint, req dto.LeaveDecisionRequest, teacher models.TeacherProfile) (dto.LeaveResponse, error)
	AdminDecide(ctx context.Context, id uint, req dto.LeaveDecisionRequest, admin Actor) (dto.LeaveResponse, error)
}

type leaveService struct {
	repo      repository.LeaveRepository
	hub       RealtimeHub
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	sanitizer *bluemonday.Policy
	now       func() time.Time
}

// NewLeaveService constructs the leave service. hub may be nil.
func NewLeaveService(repo repository.LeaveRepository, hub RealtimeHub, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) LeaveService {
	return &leaveService{
		repo:      repo,
		hub:       hub,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "leave_service").Logger(),
		sanitizer: bluemonday.StrictPolicy(),
		now:       time.Now,
	}
}

// Create files a request. Every request starts at pending_teacher.
func (s *leaveService) Create(ctx context.Context, req dto.LeaveCreateRequest, requester models.Profile) (dto.LeaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LeaveResponse{}, err
	}
	if req.ToDate < req.FromDate {
		return dto.LeaveResponse{}, ErrLeaveRange
	}

	request := models.LeaveRequest{
		FromDate: req.FromDate,
		ToDate:   req.ToDate,
		Type:     strings.ToLower(strings.TrimSpace(req.Type)),
		Reason:   strings.TrimSpace(s.sanitizer.Sanitize(req.Reason)),
		Status:   models.LeaveStatusPendingTeacher,
	}

	switch p := requester.(type) {
	case models.StudentProfile:
		request.ClassName = p.ClassName
		request.Section = p.Section
	case models.TeacherProfile:
		request.ClassName = p.ClassName
		request.Section = p.Section
	default:
		return dto.LeaveResponse{}, ErrLeaveRequester
	}
	base := requester.Base()
	request.RequesterID = base.ID
	request.RequesterName = base.DisplayName
	request.RequesterRole = requester.Role().String()

	if err := s.repo.Create(ctx, &request); err != nil {
		return dto.LeaveResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      ActorFromProfile(requester),
		Action:     "leave.create",
		EntityType: "leave_request",
		EntityID:   uintID(request.ID),
		Metadata:   map[string]interface{}{"from": request.FromDate, "to": request.ToDate},
	})

	resp := dto.NewLeaveResponse(request)
	s.announce(ctx, resp)
	return resp, nil
}

func (s *leaveService) ListOwn(ctx context.Context, requesterID string) ([]dto.LeaveResponse, error) {
	requests, err := s.repo.List(ctx, repository.LeaveFilter{RequesterID: requesterID})
	if err != nil {
		return nil, err
	}
	return dto.NewLeaveResponseSlice(requests), nil
}

// ListForClass returns the requests of the teacher's class, excluding the
// teacher's own.
func (s *leaveService) ListForClass(ctx context.Context, teacher models.TeacherProfile, status models.LeaveStatus) ([]dto.LeaveResponse, error) {
	if strings.TrimSpace(teacher.ClassName) == "" {
		return []dto.LeaveResponse{}, nil
	}

	requests, err := s.repo.List(ctx, repository.LeaveFilter{ClassName: teacher.ClassName, Status: status})
	if err != nil {
		return nil, err
	}

	visible := make([]models.LeaveRequest, 0, len(requests))
	for _, request := range requests {
		if ownsRequest(teacher, request) {
			visible = append(visible, request)
		}
	}
	return dto.NewLeaveResponseSlice(visible), nil
}

func (s *leaveService) ListAll(ctx context.Context, status models.LeaveStatus) ([]dto.LeaveResponse, error) {
	requests, err := s.repo.List(ctx, repository.LeaveFilter{Status: status})
	if err != nil {
		return nil, err
	}
	return dto.NewLeaveResponseSlice(requests), nil
}

// TeacherDecide acts on a pending_teacher request of the teacher's own class.
func (s *leaveService) TeacherDecide(ctx context.Context, id uint, req dto.LeaveDecisionRequest, teacher models.TeacherProfile) (dto.LeaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LeaveResponse{}, err
	}

	request, err := s.load(ctx, id)
	if err != nil {
		return dto.LeaveResponse{}, err
	}
	if !ownsRequest(teacher, request) {
		return dto.LeaveResponse{}, ErrForbidden
	}

	return s.transition(ctx, request, models.RoleTeacher, *req.Approve, func(r *models.LeaveRequest, at time.Time) {
		r.TeacherID = teacher.ID
		r.TeacherRemark = strings.TrimSpace(s.sanitizer.Sanitize(req.Remark))
		r.TeacherDecidedAt = &at
	}, ActorFromProfile(teacher))
}

// AdminDecide acts on a pending_admin request.
func (s *leaveService) AdminDecide(ctx context.Context, id uint, req dto.LeaveDecisionRequest, admin Actor) (dto.LeaveResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.LeaveResponse{}, err
	}

	request, err := s.load(ctx, id)
	if err != nil {
		return dto.LeaveResponse{}, err
	}
	if request.RequesterID == admin.ID {
		return dto.LeaveResponse{}, ErrForbidden
	}

	return s.transition(ctx, request, models.RoleAdmin, *req.Approve, func(r *models.LeaveRequest, at time.Time) {
		r.AdminID = admin.ID
		r.AdminRemark = strings.TrimSpace(s.sanitizer.Sanitize(req.Remark))
		r.AdminDecidedAt = &at
	}, admin)
}

// transition moves the request forward only when the stored status still
// matches the one the decision was made on.
func (s *leaveService) transition(ctx context.Context, request models.LeaveRequest, role models.Role, approve bool, stamp func(*models.LeaveRequest, time.Time), actor Actor) (dto.LeaveResponse, error) {
	from := request.Status
	next, err := from.Next(role, approve)
	if err != nil {
		return dto.LeaveResponse{}, err
	}

	request.Status = next
	stamp(&request, s.now().UTC())
	if err := s.repo.Transition(ctx, &request, from); err != nil {
		return dto.LeaveResponse{}, err
	}

	observability.LeaveTransitions().WithLabelValues(string(from), string(next)).Inc()
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "leave.decide",
		EntityType: "leave_request",
		EntityID:   uintID(request.ID),
		Metadata:   map[string]interface{}{"from": string(from), "to": string(next)},
	})

	stored, err := s.load(ctx, request.ID)
	if err != nil {
		return dto.LeaveResponse{}, err
	}
	resp := dto.NewLeaveResponse(stored)
	s.announce(ctx, resp)
	return resp, nil
}

func (s *leaveService) announce(ctx context.Context, resp dto.LeaveResponse) {
	if s.hub == nil {
		return
	}
	if err := s.hub.Publish(ctx, EventLeaveUpdated, []string{UserAudience(resp.RequesterID)}, resp); err != nil {
		s.logger.Warn().Err(err).Uint("leave_id", resp.ID).Msg("failed to push leave update")
	}
}

func (s *leaveService) load(ctx context.Context, id uint) (models.LeaveRequest, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return models.LeaveRequest{}, ErrLeaveNotFound
		}
		return models.LeaveRequest{}, err
	}
	return request, nil
}

// ownsRequest reports whether the teacher may see and decide the request: it
// must come from the teacher's class and section and not from the teacher.
// A teacher without a class owns nothing. The class comparison is exact, as in
// the class filter of the leave listing.
func ownsRequest(teacher models.TeacherProfile, request models.LeaveRequest) bool {
	if strings.TrimSpace(teacher.ClassName) == "" || request.RequesterID == teacher.ID {
		return false
	}
	return request.ClassName == teacher.ClassName && sameSection(teacher.Section, request.Section)
}

// sameSection treats a teacher without a section as covering the whole class.
func sameSection(teacherSection, requestSection string) bool {
	if strings.TrimSpace(teacherSection) == "" {
		return true
	}
	return strings.EqualFold(teacherSection, requestSection)
}
