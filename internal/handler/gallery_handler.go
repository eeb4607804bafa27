package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

// GalleryHandler exposes album management and the public gallery.
type GalleryHandler struct {
	service  service.GalleryService
	pageSize int
	logger   zerolog.Logger
}

// NewGalleryHandler constructs a gallery handler.
func NewGalleryHandler(service service.GalleryService, pageSize int, logger zerolog.Logger) *GalleryHandler {
	return &GalleryHandler{
		service:  service,
		pageSize: pageSize,
		logger:   logger.With().Str("component", "gallery_handler").Logger(),
	}
}

// Register wires the admin album routes.
func (h *GalleryHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/photos", h.addPhoto)
	router.Delete("/:id/photos/:photoId", h.removePhoto)
}

// RegisterPublic wires the read-only gallery.
func (h *GalleryHandler) RegisterPublic(router fiber.Router) {
	router.Get("", h.list)
	router.Get("/:id", h.get)
}

func (h *GalleryHandler) list(c *fiber.Ctx) error {
	query, err := listQueryFromContext(c, h.pageSize)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.service.List(c.UserContext(), query)
	if err != nil {
		return internalError(c, h.logger, err, "failed to list albums")
	}
	return utils.OK(c, result.Items, "albums retrieved", result.Pagination)
}

func (h *GalleryHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	album, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.fail(c, err, "failed to fetch album")
	}
	return utils.SendSuccess(c, "album retrieved", album)
}

func (h *GalleryHandler) create(c *fiber.Ctx) error {
	var payload dto.AlbumRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	album, err := h.service.Create(c.UserContext(), payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to create album")
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "album created", album)
}

func (h *GalleryHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AlbumRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	album, err := h.service.Update(c.UserContext(), id, payload, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to update album")
	}
	return utils.SendSuccess(c, "album updated", album)
}

func (h *GalleryHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), id, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to delete album")
	}
	return utils.SendSuccess(c, "album deleted", fiber.Map{"id": id})
}

// addPhoto answers 201 when the photo was stored and 200 with a preview when
// the asset host was unavailable.
func (h *GalleryHandler) addPhoto(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	result, err := h.service.AddPhoto(c.UserContext(), id, c.FormValue("caption"), file, actorFromContext(c))
	if err != nil {
		return h.fail(c, err, "failed to add photo")
	}
	if result.Photo == nil {
		return utils.SendSuccess(c, "photo not persisted", result)
	}
	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "photo added", result)
}

func (h *GalleryHandler) removePhoto(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	photoID, err := parseUintParam(c, "photoId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.RemovePhoto(c.UserContext(), id, photoID, actorFromContext(c)); err != nil {
		return h.fail(c, err, "failed to remove photo")
	}
	return utils.SendSuccess(c, "photo removed", fiber.Map{"id": photoID})
}

func (h *GalleryHandler) fail(c *fiber.Ctx, err error, message string) error {
	if handled, resp := respondCommonError(c, err); handled {
		return resp
	}
	switch {
	case errors.Is(err, service.ErrAlbumNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "album not found")
	case errors.Is(err, service.ErrPhotoNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "photo not found")
	default:
		return internalError(c, h.logger, err, message)
	}
}
