package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
)

type mockLeaveService struct {
	decideErr     error
	createErr     error
	lastRequester models.Profile
	lastTeacher   models.TeacherProfile
	lastAdmin     service.Actor
	lastStatus    models.LeaveStatus
	lastDecision  dto.LeaveDecisionRequest
}

func (m *mockLeaveService) Create(_ context.Context, req dto.LeaveCreateRequest, requester models.Profile) (dto.LeaveResponse, error) {
	m.lastRequester = requester
	if m.createErr != nil {
		return dto.LeaveResponse{}, m.createErr
	}
	return dto.LeaveResponse{ID: 1, RequesterID: requester.Base().ID, FromDate: req.FromDate, ToDate: req.ToDate, Status: models.LeaveStatusPendingTeacher}, nil
}

func (m *mockLeaveService) ListOwn(_ context.Context, requesterID string) ([]dto.LeaveResponse, error) {
	return []dto.LeaveResponse{{ID: 1, RequesterID: requesterID}}, nil
}

func (m *mockLeaveService) ListForClass(_ context.Context, teacher models.TeacherProfile, status models.LeaveStatus) ([]dto.LeaveResponse, error) {
	m.lastTeacher = teacher
	m.lastStatus = status
	return []dto.LeaveResponse{}, nil
}

func (m *mockLeaveService) ListAll(_ context.Context, status models.LeaveStatus) ([]dto.LeaveResponse, error) {
	m.lastStatus = status
	return []dto.LeaveResponse{}, nil
}

func (m *mockLeaveService) TeacherDecide(_ context.Context, id uint, req dto.LeaveDecisionRequest, teacher models.TeacherProfile) (dto.LeaveResponse, error) {
	m.lastTeacher = teacher
	m.lastDecision = req
	if m.decideErr != nil {
		return dto.LeaveResponse{}, m.decideErr
	}
	return dto.LeaveResponse{ID: id, Status: models.LeaveStatusPendingAdmin}, nil
}

func (m *mockLeaveService) AdminDecide(_ context.Context, id uint, req dto.LeaveDecisionRequest, admin service.Actor) (dto.LeaveResponse, error) {
	m.lastAdmin = admin
	m.lastDecision = req
	if m.decideErr != nil {
		return dto.LeaveResponse{}, m.decideErr
	}
	return dto.LeaveResponse{ID: id, Status: models.LeaveStatusApproved}, nil
}

func newLeaveApp(svc service.LeaveService, profile models.Profile) *fiber.App {
	app := fiber.New()
	h := handler.NewLeaveHandler(svc, testLogger())
	h.RegisterStudent(app.Group("/student/leave-requests", asProfile(profile)))
	h.RegisterTeacher(app.Group("/teacher/leave-requests", asProfile(profile)))
	h.RegisterAdmin(app.Group("/admin/leave-requests", asProfile(profile)))
	return app
}

func TestLeaveHandler_StudentFilesRequest(t *testing.T) {
	svc := &mockLeaveService{}
	app := newLeaveApp(svc, studentProfile())

	status, body := perform(t, app, jsonRequest(t, http.MethodPost, "/student/leave-requests", dto.LeaveCreateRequest{
		FromDate: "2024-03-01", ToDate: "2024-03-02", Type: "sick", Reason: "fever",
	}))

	require.Equal(t, fiber.StatusCreated, status)
	require.True(t, body.Success)
	require.Equal(t, "student-1", svc.lastRequester.Base().ID)

	var created dto.LeaveResponse
	require.NoError(t, json.Unmarshal(body.Data, &created))
	require.Equal(t, models.LeaveStatusPendingTeacher, created.Status)
}

func TestLeaveHandler_TeacherQueueUsesOwnClass(t *testing.T) {
	svc := &mockLeaveService{}
	app := newLeaveApp(svc, teacherProfile())

	status, _ := perform(t, app, jsonRequest(t, http.MethodGet, "/teacher/leave-requests?status=Pending_Teacher", nil))

	require.Equal(t, fiber.StatusOK, status)
	require.Equal(t, "7", svc.lastTeacher.ClassName)
	require.Equal(t, models.LeaveStatusPendingTeacher, svc.lastStatus)
}

func TestLeaveHandler_TeacherRoutesRejectOtherProfiles(t *testing.T) {
	app := newLeaveApp(&mockLeaveService{}, studentProfile())

	status, body := perform(t, app, jsonRequest(t, http.MethodPost, "/teacher/leave-requests/3/decision", fiber.Map{"approve": true}))

	require.Equal(t, fiber.StatusForbidden, status)
	require.False(t, body.Success)
}

func TestLeaveHandler_DecisionErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "stale transition", err: fmt.Errorf("decide: %w", models.ErrInvalidLeaveTransition), status: fiber.StatusConflict},
		{name: "missing", err: service.ErrLeaveNotFound, status: fiber.StatusNotFound},
		{name: "other class", err: service.ErrForbidden, status: fiber.StatusForbidden},
		{name: "store down", err: fmt.Errorf("connection reset"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := newLeaveApp(&mockLeaveService{decideErr: tc.err}, teacherProfile())

			status, body := perform(t, app, jsonRequest(t, http.MethodPost, "/teacher/leave-requests/3/decision", fiber.Map{"approve": false, "remark": "no"}))

			require.Equal(t, tc.status, status)
			require.False(t, body.Success)
		})
	}
}

func TestLeaveHandler_AdminDecisionCarriesActor(t *testing.T) {
	svc := &mockLeaveService{}
	app := newLeaveApp(svc, adminProfile())

	status, body := perform(t, app, jsonRequest(t, http.MethodPost, "/admin/leave-requests/9/decision", fiber.Map{"approve": true}))

	require.Equal(t, fiber.StatusOK, status)
	require.True(t, body.Success)
	require.Equal(t, "admin-1", svc.lastAdmin.ID)
	require.Equal(t, models.RoleAdmin, svc.lastAdmin.Role)
	require.NotNil(t, svc.lastDecision.Approve)
	require.True(t, *svc.lastDecision.Approve)
}

func TestLeaveHandler_RejectsInvalidIdentifier(t *testing.T) {
	app := newLeaveApp(&mockLeaveService{}, adminProfile())

	status, _ := perform(t, app, jsonRequest(t, http.MethodPost, "/admin/leave-requests/0/decision", fiber.Map{"approve": true}))

	require.Equal(t, fiber.StatusBadRequest, status)
}
