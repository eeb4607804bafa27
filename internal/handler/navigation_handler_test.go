package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/handler"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/session"
)

type stubAuth struct {
	service.AuthService
	signOutErr error
	signedOut  []string
}

func (s *stubAuth) SignOut(_ context.Context, principal *session.Principal) error {
	s.signedOut = append(s.signedOut, principal.ID)
	return s.signOutErr
}

type stubProfiles map[string]models.Profile

func (s stubProfiles) FetchProfile(_ context.Context, identityID string) (models.Profile, error) {
	profile, ok := s[identityID]
	if !ok {
		return nil, session.ErrProfileNotFound
	}
	return profile, nil
}

// signedInAs attaches a principal without a profile; the handler resolves
// the profile itself.
func signedInAs(identityID string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if identityID != "" {
			middleware.WithPrincipal(c, &session.Principal{ID: identityID})
		}
		return c.Next()
	}
}

func newNavigationApp(auth service.AuthService, profiles stubProfiles, identityID string) *fiber.App {
	app := fiber.New()
	h := handler.NewNavigationHandler(auth, profiles, 0, testLogger())
	api := app.Group("/api/v1", signedInAs(identityID))
	h.Register(api)
	h.RegisterShell(api.Group("/shell"))
	return app
}

func navigate(t *testing.T, app *fiber.App, path string) dto.NavigationResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/navigation?path="+path, nil)
	status, body := perform(t, app, req)
	require.Equal(t, http.StatusOK, status)

	var outcome dto.NavigationResponse
	require.NoError(t, json.Unmarshal(body.Data, &outcome))
	return outcome
}

func TestNavigationRendersPublicPages(t *testing.T) {
	app := newNavigationApp(&stubAuth{}, stubProfiles{}, "")

	outcome := navigate(t, app, "/gallery")
	require.Equal(t, access.DecisionAllow, outcome.Decision)
	require.Empty(t, outcome.Location)
}

func TestNavigationSendsAnonymousVisitorsToLogin(t *testing.T) {
	app := newNavigationApp(&stubAuth{}, stubProfiles{}, "")

	outcome := navigate(t, app, "/admin/students")
	require.Equal(t, access.DecisionLogin, outcome.Decision)
	require.Equal(t, "/login?from=%2Fadmin%2Fstudents", outcome.Location)
	require.Equal(t, models.RoleAdmin, outcome.Role)
}

func TestNavigationSendsWrongRoleHome(t *testing.T) {
	profiles := stubProfiles{"student-1": studentProfile()}
	app := newNavigationApp(&stubAuth{}, profiles, "student-1")

	outcome := navigate(t, app, "/teacher")
	require.Equal(t, access.DecisionHome, outcome.Decision)
	require.Equal(t, access.HomePath, outcome.Location)

	outcome = navigate(t, app, "/student/fees")
	require.Equal(t, access.DecisionAllow, outcome.Decision)
}

func TestNavigationRedirectsUnknownPathsHome(t *testing.T) {
	app := newNavigationApp(&stubAuth{}, stubProfiles{}, "")

	outcome := navigate(t, app, "/nowhere")
	require.Equal(t, access.DecisionHome, outcome.Decision)
	require.Equal(t, access.HomePath, outcome.Location)
}

func TestShellReturnsTheCallersMenu(t *testing.T) {
	profiles := stubProfiles{"admin-1": adminProfile()}
	app := newNavigationApp(&stubAuth{}, profiles, "admin-1")

	status, body := perform(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil))
	require.Equal(t, http.StatusOK, status)

	var payload struct {
		Shell access.Shell `json:"shell"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &payload))
	require.Equal(t, models.RoleAdmin, payload.Shell.Role)
	require.Equal(t, "/admin", payload.Shell.HomePath)
	require.NotEmpty(t, payload.Shell.Menu)
}

func TestShellRequiresASession(t *testing.T) {
	app := newNavigationApp(&stubAuth{}, stubProfiles{}, "")

	status, body := perform(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil))
	require.Equal(t, http.StatusUnauthorized, status)
	require.False(t, body.Success)
}

func TestShellBlocksAccountsWithoutProfile(t *testing.T) {
	app := newNavigationApp(&stubAuth{}, stubProfiles{}, "ghost")

	status, _ := perform(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil))
	require.Equal(t, http.StatusServiceUnavailable, status)
}

func TestSignOutAlwaysRedirectsToLogin(t *testing.T) {
	auth := &stubAuth{signOutErr: errors.New("provider down")}
	app := newNavigationApp(auth, stubProfiles{}, "teacher-1")

	status, body := perform(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/shell/sign-out", nil))
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, []string{"teacher-1"}, auth.signedOut)

	var payload dto.SignOutResponse
	require.NoError(t, json.Unmarshal(body.Data, &payload))
	require.Equal(t, access.LoginPath, payload.Redirect)
}

func TestSignOutWithoutSessionIsRejected(t *testing.T) {
	auth := &stubAuth{}
	app := newNavigationApp(auth, stubProfiles{}, "")

	status, _ := perform(t, app, httptest.NewRequest(http.MethodPost, "/api/v1/shell/sign-out", nil))
	require.Equal(t, http.StatusUnauthorized, status)
	require.Empty(t, auth.signedOut)
}
