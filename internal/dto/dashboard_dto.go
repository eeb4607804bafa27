package dto

import (
	"time"

	"github.com/noah-isme/school-portal-api/internal/models"
)

// AdminAnalyticsResponse is the administrator overview.
type AdminAnalyticsResponse struct {
	Students        int64             `json:"students"`
	StudentsByClass map[string]int64  `json:"students_by_class"`
	Teachers        int64             `json:"teachers"`
	DataEntryAdmins int64             `json:"data_entry_admins"`
	LeaveByStatus   map[string]int64  `json:"leave_by_status"`
	FeesCollected   int64             `json:"fees_collected"`
	DailyCollection []DailyCollection `json:"daily_collection"`
	GeneratedAt     time.Time         `json:"generated_at"`
	CacheHit        bool              `json:"cache_hit"`
}

// DailyCollection is the amount recorded on one day.
type DailyCollection struct {
	Day      time.Time `json:"day"`
	Amount   int64     `json:"amount"`
	Payments int64     `json:"payments"`
}

// LeaveSummary counts a requester's leave requests.
type LeaveSummary struct {
	Pending  int             `json:"pending"`
	Approved int             `json:"approved"`
	Rejected int             `json:"rejected"`
	Recent   []LeaveResponse `json:"recent"`
}

// StudentDashboardResponse is the student home view.
type StudentDashboardResponse struct {
	Profile     models.StudentProfile `json:"profile"`
	Day         string                `json:"day"`
	Slots       []models.TimeSlot     `json:"slots"`
	Today       *TimetableRow         `json:"today,omitempty"`
	Fees        FeeSummary            `json:"fees"`
	Leave       LeaveSummary          `json:"leave"`
	GeneratedAt time.Time             `json:"generated_at"`
}
