package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/handler"
)

const envelopeSchema = `{
  "type": "object",
  "required": ["success", "message"],
  "additionalProperties": false,
  "properties": {
    "success": {"type": "boolean"},
    "message": {"type": "string", "minLength": 1},
    "data": {},
    "meta": {"type": "object"},
    "details": {}
  },
  "if": {"properties": {"success": {"const": false}}},
  "then": {"not": {"required": ["data"]}}
}`

func requireEnvelope(t *testing.T, schema *jsonschema.Schema, app *fiber.App, req *http.Request) int {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var doc interface{}
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.NoError(t, schema.Validate(doc), string(raw))
	return resp.StatusCode
}

func TestResponsesFollowTheEnvelope(t *testing.T) {
	schema, err := jsonschema.CompileString("envelope.json", envelopeSchema)
	require.NoError(t, err)

	timetables := newTimetableApp(&mockTimetableService{})
	fees := newFeeApp(&stubFeeService{}, studentProfile())
	navigation := newNavigationApp(&stubAuth{}, stubProfiles{}, "")

	stream := fiber.New()
	handler.NewStreamHandler(nil, stubProfiles{}, 0, 0, testLogger()).Register(stream)

	cases := []struct {
		name   string
		app    *fiber.App
		req    *http.Request
		status int
	}{
		{"paginated list", timetables, httptest.NewRequest(http.MethodGet, "/public/timetables", nil), http.StatusOK},
		{"created", timetables, jsonRequest(t, http.MethodPost, "/admin/timetables/7%20A/slots", dto.SlotRequest{Label: "P1", Start: "09:00", End: "09:45"}), http.StatusCreated},
		{"not found", fees, httptest.NewRequest(http.MethodGet, "/student/fees/payments/nope/receipt", nil), http.StatusNotFound},
		{"unauthenticated shell", navigation, httptest.NewRequest(http.MethodGet, "/api/v1/shell", nil), http.StatusUnauthorized},
		{"anonymous stream", stream, httptest.NewRequest(http.MethodGet, "/stream", nil), http.StatusUnauthorized},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.status, requireEnvelope(t, schema, tc.app, tc.req))
		})
	}
}
