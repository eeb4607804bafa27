package service

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

var (
	// ErrForbidden indicates the actor may not perform the operation on this record.
	ErrForbidden = errors.New("operation not permitted")
	// ErrPartialFailure marks a two-step staff operation that stopped half way.
	ErrPartialFailure = errors.New("operation partially applied")
)

// Actor is the signed-in caller of a service operation.
type Actor struct {
	ID   string
	Role models.Role
	Name string
}

// ActorFromProfile derives the actor from a resolved profile.
func ActorFromProfile(profile models.Profile) Actor {
	if profile == nil {
		return Actor{}
	}
	base := profile.Base()
	return Actor{ID: base.ID, Role: profile.Role(), Name: base.DisplayName}
}

// ProvisioningError reports an identity created without its profile document.
// The identity is left in place for the operator to clean up.
type ProvisioningError struct {
	IdentityID string
	Identifier string
	Err        error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("identity %s (%s) was created but its profile could not be written: %v", e.IdentityID, e.Identifier, e.Err)
}

func (e *ProvisioningError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// PartialDeleteError reports a staff removal where some records were deleted
// and Remaining were not.
type PartialDeleteError struct {
	ID        string
	Deleted   []string
	Remaining []string
	Err       error
}

func (e *PartialDeleteError) Error() string {
	return fmt.Sprintf("removal of %s stopped after deleting %s; still present: %s: %v",
		e.ID, strings.Join(e.Deleted, ", "), strings.Join(e.Remaining, ", "), e.Err)
}

func (e *PartialDeleteError) Unwrap() []error {
	return []error{ErrPartialFailure, e.Err}
}

// listPage applies substring search, equality filters and slice pagination to
// records already ordered by their natural key.
func listPage[T any](records []T, query dto.ListQuery, text func(T) []string, fields func(T) map[string]string) ([]T, dto.PaginationMeta) {
	search := strings.ToLower(strings.TrimSpace(query.Search))

	filtered := make([]T, 0, len(records))
	for _, record := range records {
		if search != "" && !matchesSearch(text(record), search) {
			continue
		}
		if !matchesFilters(fields(record), query.Filters) {
			continue
		}
		filtered = append(filtered, record)
	}

	page, size := normalizePage(query.Page, query.PageSize)
	meta := dto.PaginationMeta{
		Page:       page,
		PageSize:   size,
		TotalItems: int64(len(filtered)),
		TotalPages: int(math.Ceil(float64(len(filtered)) / float64(size))),
	}
	if meta.TotalPages == 0 {
		meta.TotalPages = 1
	}

	start := (page - 1) * size
	if start >= len(filtered) {
		return []T{}, meta
	}
	end := start + size
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[start:end], meta
}

func matchesSearch(values []string, needle string) bool {
	for _, value := range values {
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

func matchesFilters(values map[string]string, filters map[string]string) bool {
	for key, want := range filters {
		want = strings.TrimSpace(want)
		if want == "" {
			continue
		}
		got, ok := values[key]
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	return true
}

func normalizePage(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func uintID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
