package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// BreakMarker is what every break cell displays.
const BreakMarker = "BREAK"

// Cell states of a rendered grid.
const (
	CellEmpty    = "empty"
	CellAssigned = "assigned"
	CellBreak    = "break"
)

// SlotRequest appends a time slot.
type SlotRequest struct {
	Label   string `json:"label" validate:"required,max=64"`
	Start   string `json:"start" validate:"required,datetime=15:04"`
	End     string `json:"end" validate:"required,datetime=15:04"`
	IsBreak bool   `json:"is_break"`
}

// CellRequest assigns a (day, slot) cell.
type CellRequest struct {
	Day     string `json:"day" validate:"required"`
	Slot    string `json:"slot" validate:"required"`
	Subject string `json:"subject" validate:"required,max=128"`
	Teacher string `json:"teacher" validate:"omitempty,max=255"`
}

// TimetableResponse is a class timetable with its rendered grid.
type TimetableResponse struct {
	ClassName string                   `json:"class_name"`
	Exists    bool                     `json:"exists"`
	Document  models.TimetableDocument `json:"document"`
	Grid      TimetableGrid            `json:"grid"`
	UpdatedBy string                   `json:"updated_by,omitempty"`
	UpdatedAt *time.Time               `json:"updated_at,omitempty"`
}

// TimetableGrid is the day by slot rendering.
type TimetableGrid struct {
	Slots []models.TimeSlot `json:"slots"`
	Rows  []TimetableRow    `json:"rows"`
}

// TimetableRow is one weekday.
type TimetableRow struct {
	Day   string          `json:"day"`
	Cells []TimetableCell `json:"cells"`
}

// TimetableCell is one rendered (day, slot) position.
type TimetableCell struct {
	Slot     string `json:"slot"`
	State    string `json:"state"`
	Subject  string `json:"subject,omitempty"`
	Teacher  string `json:"teacher,omitempty"`
	Display  string `json:"display"`
	Editable bool   `json:"editable"`
}

// TimetablePageResponse is one page of class timetables.
type TimetablePageResponse struct {
	Items      []TimetableResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}

// RenderGrid lays the document out Monday to Saturday. A break slot always
// shows BreakMarker, whatever the schedule holds under its label.
func RenderGrid(doc models.TimetableDocument, editable bool) TimetableGrid {
	grid := TimetableGrid{
		Slots: append([]models.TimeSlot{}, doc.Slots...),
		Rows:  make([]TimetableRow, 0, len(models.Weekdays)),
	}

	for _, day := range models.Weekdays {
		row := TimetableRow{Day: day, Cells: make([]TimetableCell, 0, len(doc.Slots))}
		cells := doc.Schedule[day]
		for _, slot := range doc.Slots {
			cell := TimetableCell{Slot: slot.Label}
			if slot.IsBreak {
				cell.State = CellBreak
				cell.Display = BreakMarker
				row.Cells = append(row.Cells, cell)
				continue
			}

			cell.Editable = editable
			if assignment, ok := cells[slot.Label]; ok {
				cell.State = CellAssigned
				cell.Subject = assignment.Subject
				cell.Teacher = assignment.Teacher
				cell.Display = assignment.Subject
				if assignment.Teacher != "" {
					cell.Display += " (" + assignment.Teacher + ")"
				}
			} else {
				cell.State = CellEmpty
			}
			row.Cells = append(row.Cells, cell)
		}
		grid.Rows = append(grid.Rows, row)
	}

	return grid
}

// NewTimetableResponse renders a stored timetable. A zero record renders as an
// empty timetable for className.
func NewTimetableResponse(className string, record *models.Timetable, editable bool) TimetableResponse {
	resp := TimetableResponse{ClassName: className}
	doc := models.TimetableDocument{}
	if record != nil {
		doc = record.Document.Data()
		resp.Exists = true
		resp.UpdatedBy = record.UpdatedBy
		updated := record.UpdatedAt
		resp.UpdatedAt = &updated
	}
	if doc.Slots == nil {
		doc.Slots = []models.TimeSlot{}
	}
	if doc.Schedule == nil {
		doc.Schedule = map[string]map[string]models.SlotAssignment{}
	}
	resp.Document = doc
	resp.Grid = RenderGrid(doc, editable)
	return resp
}
