package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Details json.RawMessage `json:"details"`
}

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

// asProfile binds profile to every request, the way RouteGuard does once it
// admits the caller.
func asProfile(profile models.Profile) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if profile != nil {
			middleware.WithPrincipal(c, &session.Principal{ID: profile.Base().ID})
			middleware.WithProfile(c, profile)
		}
		return c.Next()
	}
}

func jsonRequest(t *testing.T, method, target string, payload interface{}) *http.Request {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeResponse(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
}

func perform(t *testing.T, app *fiber.App, req *http.Request) (int, envelope) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	var body envelope
	decodeResponse(t, resp, &body)
	return resp.StatusCode, body
}

func teacherProfile() models.TeacherProfile {
	return models.TeacherProfile{
		ProfileBase: models.ProfileBase{ID: "teacher-1", DisplayName: "Ms. Rao"},
		ClassName:   "7",
		Section:     "A",
	}
}

func studentProfile() models.StudentProfile {
	return models.StudentProfile{
		ProfileBase: models.ProfileBase{ID: "student-1", DisplayName: "Sam"},
		RollNumber:  "R-1",
		ClassName:   "7",
		Section:     "A",
	}
}

func adminProfile() models.AdminProfile {
	return models.AdminProfile{ProfileBase: models.ProfileBase{ID: "admin-1", DisplayName: "Head"}}
}
