package models

import (
	"errors"
	"fmt"
	"time"
)

// LeaveStatus is the approval state of a leave request.
type LeaveStatus string

const (
	LeaveStatusPendingTeacher LeaveStatus = "pending_teacher"
	LeaveStatusPendingAdmin   LeaveStatus = "pending_admin"
	LeaveStatusApproved       LeaveStatus = "approved"
	LeaveStatusRejected       LeaveStatus = "rejected"
)

// ErrInvalidLeaveTransition is returned for any move the workflow forbids.
var ErrInvalidLeaveTransition = errors.New("invalid leave transition")

// Terminal reports whether no further transition is possible.
func (s LeaveStatus) Terminal() bool {
	return s == LeaveStatusApproved || s == LeaveStatusRejected
}

// Next returns the status reached when the given role decides on a request
// currently in s. Teachers act only on pending_teacher, admins only on
// pending_admin.
func (s LeaveStatus) Next(actor Role, approve bool) (LeaveStatus, error) {
	switch {
	case s == LeaveStatusPendingTeacher && actor == RoleTeacher:
		if approve {
			return LeaveStatusPendingAdmin, nil
		}
		return LeaveStatusRejected, nil
	case s == LeaveStatusPendingAdmin && actor == RoleAdmin:
		if approve {
			return LeaveStatusApproved, nil
		}
		return LeaveStatusRejected, nil
	default:
		return s, fmt.Errorf("%w: %s cannot act on %s", ErrInvalidLeaveTransition, actor, s)
	}
}

// LeaveRequest is one application for leave. Status only moves forward.
type LeaveRequest struct {
	ID               uint        `gorm:"primaryKey" json:"id"`
	RequesterID      string      `gorm:"size:64;not null;index" json:"requester_id"`
	RequesterName    string      `gorm:"size:255" json:"requester_name"`
	RequesterRole    string      `gorm:"size:32;not null" json:"requester_role"`
	ClassName        string      `gorm:"size:64;index" json:"class_name"`
	Section          string      `gorm:"size:16" json:"section"`
	FromDate         string      `gorm:"size:10;not null" json:"from_date"`
	ToDate           string      `gorm:"size:10;not null" json:"to_date"`
	Type             string      `gorm:"size:40;not null" json:"type"`
	Reason           string      `gorm:"type:text" json:"reason"`
	Status           LeaveStatus `gorm:"size:20;not null;index" json:"status"`
	TeacherRemark    string      `gorm:"type:text" json:"teacher_remark"`
	TeacherID        string      `gorm:"size:64" json:"teacher_id"`
	TeacherDecidedAt *time.Time  `json:"teacher_decided_at"`
	AdminRemark      string      `gorm:"type:text" json:"admin_remark"`
	AdminID          string      `gorm:"size:64" json:"admin_id"`
	AdminDecidedAt   *time.Time  `json:"admin_decided_at"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}
