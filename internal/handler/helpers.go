package handler

import (
	"errors"
	"mime/multipart"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/service"
	"github.com/noah-isme/school-portal-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseUintParam(c *fiber.Ctx, name string) (uint, error) {
	value := c.Params(name)
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil || parsed == 0 {
		return 0, errors.New("invalid identifier")
	}
	return uint(parsed), nil
}

// listQueryFromContext reads page, page_size, search and the given equality
// filters from the query string.
func listQueryFromContext(c *fiber.Ctx, defaultPageSize int, filterKeys ...string) (dto.ListQuery, error) {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return dto.ListQuery{}, errors.New("invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return dto.ListQuery{}, errors.New("invalid page size")
	}
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	filters := make(map[string]string, len(filterKeys))
	for _, key := range filterKeys {
		if value := strings.TrimSpace(c.Query(key)); value != "" {
			filters[key] = value
		}
	}

	return dto.ListQuery{
		Search:   strings.TrimSpace(c.Query("search")),
		Filters:  filters,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// optionalFile returns the uploaded file under key, or nil when the request
// carries none.
func optionalFile(c *fiber.Ctx, key string) *multipart.FileHeader {
	file, err := c.FormFile(key)
	if err != nil {
		return nil
	}
	return file
}

func actorFromContext(c *fiber.Ctx) service.Actor {
	return service.ActorFromProfile(middleware.ProfileFrom(c))
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := middleware.LoggerFor(base, c)
	return &logger
}

func isValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	return errors.As(err, &validationErrors)
}

// validationDetails lists the failing fields of a validator error.
func validationDetails(err error) []fiber.Map {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}
	details := make([]fiber.Map, 0, len(validationErrors))
	for _, fieldErr := range validationErrors {
		details = append(details, fiber.Map{
			"field": fieldErr.Field(),
			"rule":  fieldErr.Tag(),
		})
	}
	return details
}

// respondCommonError translates errors shared by every mutation. It returns
// false when err is not one of them.
func respondCommonError(c *fiber.Ctx, err error) (bool, error) {
	var provisioning *service.ProvisioningError
	var partial *service.PartialDeleteError

	switch {
	case isValidationError(err):
		return true, utils.Fail(c, fiber.StatusBadRequest, "validation failed", validationDetails(err))
	case errors.Is(err, service.ErrForbidden):
		return true, utils.SendError(c, fiber.StatusForbidden, err.Error())
	case errors.As(err, &provisioning):
		return true, utils.Fail(c, fiber.StatusBadGateway, "account created without its profile", fiber.Map{
			"identity_id": provisioning.IdentityID,
			"identifier":  provisioning.Identifier,
			"error":       provisioning.Err.Error(),
		})
	case errors.As(err, &partial):
		return true, utils.Fail(c, fiber.StatusBadGateway, "removal partially applied", fiber.Map{
			"id":        partial.ID,
			"deleted":   partial.Deleted,
			"remaining": partial.Remaining,
			"error":     partial.Err.Error(),
		})
	case errors.Is(err, service.ErrUploadTooLarge):
		return true, utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, service.ErrUploadTypeNotAllowed), errors.Is(err, service.ErrUploadMissing):
		return true, utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return false, nil
}

func internalError(c *fiber.Ctx, logger zerolog.Logger, err error, message string) error {
	requestLogger(logger, c).Error().Err(err).Msg(message)
	return utils.SendError(c, fiber.StatusInternalServerError, message)
}

// pathParam returns the decoded route parameter. Class names and slot labels
// may contain spaces.
func pathParam(c *fiber.Ctx, name string) string {
	raw := c.Params(name)
	if decoded, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(decoded)
	}
	return strings.TrimSpace(raw)
}
