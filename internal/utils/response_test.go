package utils_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

func respond(t *testing.T, handler fiber.Handler) (int, map[string]json.RawMessage) {
	t.Helper()
	app := fiber.New()
	app.Get("/", handler)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func TestEnvelopeShapes(t *testing.T) {
	cases := []struct {
		name    string
		handler fiber.Handler
		status  int
		success string
		message string
		keys    []string
	}{
		{
			name: "list with pagination",
			handler: func(c *fiber.Ctx) error {
				return utils.OK(c, []string{"7 A"}, "", dto.PaginationMeta{Page: 2, PageSize: 1, TotalItems: 3, TotalPages: 3})
			},
			status: fiber.StatusOK, success: "true", message: `"success"`,
			keys: []string{"success", "message", "data", "meta"},
		},
		{
			name: "created",
			handler: func(c *fiber.Ctx) error {
				return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "slot added", fiber.Map{"label": "P1"})
			},
			status: fiber.StatusCreated, success: "true", message: `"slot added"`,
			keys: []string{"success", "message", "data"},
		},
		{
			name:    "plain success without data",
			handler: func(c *fiber.Ctx) error { return utils.SendSuccess(c, "", nil) },
			status:  fiber.StatusOK, success: "true", message: `"success"`,
			keys: []string{"success", "message"},
		},
		{
			name: "validation failure",
			handler: func(c *fiber.Ctx) error {
				return utils.Fail(c, fiber.StatusBadRequest, "validation failed", []fiber.Map{{"field": "RollNumber", "rule": "required"}})
			},
			status: fiber.StatusBadRequest, success: "false", message: `"validation failed"`,
			keys: []string{"success", "message", "details"},
		},
		{
			name:    "error with default message",
			handler: func(c *fiber.Ctx) error { return utils.SendError(c, fiber.StatusForbidden, "") },
			status:  fiber.StatusForbidden, success: "false", message: `"error"`,
			keys: []string{"success", "message"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, body := respond(t, tc.handler)
			require.Equal(t, tc.status, status)
			require.JSONEq(t, tc.success, string(body["success"]))
			require.JSONEq(t, tc.message, string(body["message"]))

			keys := make([]string, 0, len(body))
			for key := range body {
				keys = append(keys, key)
			}
			require.ElementsMatch(t, tc.keys, keys)
		})
	}
}

func TestEnvelopeCarriesPaginationAndDetails(t *testing.T) {
	_, body := respond(t, func(c *fiber.Ctx) error {
		return utils.OK(c, []string{}, "students", dto.PaginationMeta{Page: 2, PageSize: 10, TotalItems: 11, TotalPages: 2})
	})
	var meta dto.PaginationMeta
	require.NoError(t, json.Unmarshal(body["meta"], &meta))
	require.Equal(t, dto.PaginationMeta{Page: 2, PageSize: 10, TotalItems: 11, TotalPages: 2}, meta)
	require.JSONEq(t, `[]`, string(body["data"]))

	_, body = respond(t, func(c *fiber.Ctx) error {
		return utils.Fail(c, fiber.StatusBadRequest, "validation failed", []fiber.Map{
			{"field": "RollNumber", "rule": "required"},
			{"field": "DateOfBirth", "rule": "datetime"},
		})
	})
	require.JSONEq(t, `[{"field":"RollNumber","rule":"required"},{"field":"DateOfBirth","rule":"datetime"}]`, string(body["details"]))
}
