package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Weekdays lists the school days rendered in every timetable grid.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

var (
	// ErrDuplicateSlot indicates two slots share a label within one class.
	ErrDuplicateSlot = errors.New("slot label already exists")
	// ErrBreakSlot indicates an attempt to assign or clear a break slot.
	ErrBreakSlot = errors.New("break slots cannot hold assignments")
	// ErrUnknownSlot indicates a cell references a slot that is not defined.
	ErrUnknownSlot = errors.New("slot not defined for class")
	// ErrUnknownDay indicates a cell references a day outside Weekdays.
	ErrUnknownDay = errors.New("unknown day")
)

// TimeSlot is a labelled interval shared across all days of a class.
type TimeSlot struct {
	Label   string `json:"label"`
	Start   string `json:"start"`
	End     string `json:"end"`
	IsBreak bool   `json:"is_break"`
}

// SlotAssignment is the content of a single (day, slot) cell.
type SlotAssignment struct {
	Subject string `json:"subject"`
	Teacher string `json:"teacher"`
}

// TimetableDocument is stored and replaced as a whole.
type TimetableDocument struct {
	Slots    []TimeSlot                           `json:"slots"`
	Schedule map[string]map[string]SlotAssignment `json:"schedule"`
}

// Timetable is the per-class record. ClassName is the document key.
type Timetable struct {
	ClassName string                                `gorm:"primaryKey;size:64" json:"class_name"`
	Document  datatypes.JSONType[TimetableDocument] `gorm:"type:json" json:"document"`
	UpdatedBy string                                `gorm:"size:64" json:"updated_by"`
	CreatedAt time.Time                             `json:"created_at"`
	UpdatedAt time.Time                             `json:"updated_at"`
}

// Slot returns the slot with the given label.
func (d TimetableDocument) Slot(label string) (TimeSlot, bool) {
	for _, slot := range d.Slots {
		if slot.Label == label {
			return slot, true
		}
	}
	return TimeSlot{}, false
}

// Clone returns a deep copy so edits never alias a stored document.
func (d TimetableDocument) Clone() TimetableDocument {
	out := TimetableDocument{
		Slots:    append([]TimeSlot(nil), d.Slots...),
		Schedule: make(map[string]map[string]SlotAssignment, len(d.Schedule)),
	}
	for day, cells := range d.Schedule {
		copied := make(map[string]SlotAssignment, len(cells))
		for label, assignment := range cells {
			copied[label] = assignment
		}
		out.Schedule[day] = copied
	}
	return out
}

// Validate enforces unique labels, known days and slots, and empty break cells.
func (d TimetableDocument) Validate() error {
	seen := make(map[string]struct{}, len(d.Slots))
	for _, slot := range d.Slots {
		label := strings.TrimSpace(slot.Label)
		if label == "" {
			return fmt.Errorf("slot label is required")
		}
		if _, ok := seen[label]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicateSlot, label)
		}
		seen[label] = struct{}{}
	}

	for day, cells := range d.Schedule {
		if !IsWeekday(day) {
			return fmt.Errorf("%w: %s", ErrUnknownDay, day)
		}
		for label := range cells {
			slot, ok := d.Slot(label)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUnknownSlot, label)
			}
			if slot.IsBreak {
				return fmt.Errorf("%w: %s/%s", ErrBreakSlot, day, label)
			}
		}
	}

	return nil
}

// IsWeekday reports whether day is one of Weekdays.
func IsWeekday(day string) bool {
	for _, candidate := range Weekdays {
		if candidate == day {
			return true
		}
	}
	return false
}
