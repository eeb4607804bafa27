package models

import (
	"fmt"
	"strings"
)

// Role is the unit of access control in the portal.
type Role string

const (
	RoleAdmin     Role = "admin"
	RoleTeacher   Role = "teacher"
	RoleDataEntry Role = "data_entry"
	RoleStudent   Role = "student"
)

// ErrUnknownRole is returned when a stored role string does not map to a Role.
var ErrUnknownRole = fmt.Errorf("unknown role")

// AllRoles lists every role in menu order.
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleDataEntry, RoleStudent}
}

// ParseRole normalises a raw role value. The data-entry role accepts the
// hyphenated path spelling as well.
func ParseRole(raw string) (Role, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	switch normalized {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleTeacher):
		return RoleTeacher, nil
	case string(RoleDataEntry), "data-entry", "dataentry":
		return RoleDataEntry, nil
	case string(RoleStudent):
		return RoleStudent, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, raw)
	}
}

func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the four portal roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleDataEntry, RoleStudent:
		return true
	default:
		return false
	}
}

// RoleVisitor dispatches on a role. Implementations must handle every role,
// so adding a role breaks the build until each visitor covers it.
type RoleVisitor[T any] interface {
	Admin() T
	Teacher() T
	DataEntry() T
	Student() T
}

// VisitRole calls the visitor method matching r.
func VisitRole[T any](r Role, v RoleVisitor[T]) (T, error) {
	switch r {
	case RoleAdmin:
		return v.Admin(), nil
	case RoleTeacher:
		return v.Teacher(), nil
	case RoleDataEntry:
		return v.DataEntry(), nil
	case RoleStudent:
		return v.Student(), nil
	}

	var zero T
	return zero, fmt.Errorf("%w: %q", ErrUnknownRole, string(r))
}
