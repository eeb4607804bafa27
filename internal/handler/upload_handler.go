package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// UploadHandler stores standalone photos, for forms that upload before they
// submit.
type UploadHandler struct {
	service service.UploadService
	logger  zerolog.Logger
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(service service.UploadService, logger zerolog.Logger) *UploadHandler {
	return &UploadHandler{
		service: service,
		logger:  logger.With().Str("component", "upload_handler").Logger(),
	}
}

// Register wires upload routes.
func (h *UploadHandler) Register(router fiber.Router) {
	router.Post("", h.upload)
}

var uploadFolders = map[string]struct{}{
	"students": {},
	"teachers": {},
	"gallery":  {},
}

func (h *UploadHandler) upload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	folder := strings.ToLower(strings.TrimSpace(c.FormValue("folder", "gallery")))
	if _, ok := uploadFolders[folder]; !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "unknown upload folder")
	}

	result, err := h.service.UploadImage(c.UserContext(), file, folder, actorFromContext(c).ID)
	if err != nil {
		if handled, resp := respondCommonError(c, err); handled {
			return resp
		}
		return internalError(c, h.logger, err, "upload failed")
	}

	if !result.Persisted {
		return utils.SendSuccess(c, "upload not persisted", result)
	}
	return utils.SendSuccess(c, "upload successful", result)
}
