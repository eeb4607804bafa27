package access

import (
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

// MenuItem is one navigation entry of a layout shell.
type MenuItem struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Shell is the navigation frame rendered around a role's screens.
type Shell struct {
	Role     models.Role `json:"role"`
	Title    string      `json:"title"`
	HomePath string      `json:"home_path"`
	Menu     []MenuItem  `json:"menu"`
}

// ShellFor returns the layout shell of role.
func ShellFor(role models.Role) (Shell, error) {
	return models.VisitRole[Shell](role, shellVisitor{})
}

// CheckShell re-runs the guard for a shell on mount.
func CheckShell(snapshot session.Snapshot, role models.Role) Outcome {
	shell, err := ShellFor(role)
	if err != nil {
		return Outcome{Decision: DecisionHome, Location: HomePath}
	}
	return Decide(snapshot, role, shell.HomePath)
}

type shellVisitor struct{}

func (shellVisitor) Admin() Shell {
	return Shell{
		Role:     models.RoleAdmin,
		Title:    "Admin Dashboard",
		HomePath: "/admin",
		Menu: []MenuItem{
			{Label: "Dashboard", Path: "/admin"},
			{Label: "Students", Path: "/admin/students"},
			{Label: "Teachers", Path: "/admin/teachers"},
			{Label: "Data Entry Admins", Path: "/admin/data-entry-admins"},
			{Label: "Notifications", Path: "/admin/notifications"},
			{Label: "Gallery", Path: "/admin/gallery"},
			{Label: "Fees", Path: "/admin/fees"},
			{Label: "Timetable", Path: "/admin/timetable"},
			{Label: "Leave Requests", Path: "/admin/leave-requests"},
			{Label: "Activity", Path: "/admin/activities"},
		},
	}
}

func (shellVisitor) Teacher() Shell {
	return Shell{
		Role:     models.RoleTeacher,
		Title:    "Teacher Dashboard",
		HomePath: "/teacher",
		Menu: []MenuItem{
			{Label: "Dashboard", Path: "/teacher"},
			{Label: "Timetable", Path: "/teacher/timetable"},
			{Label: "Leave Requests", Path: "/teacher/leave-requests"},
			{Label: "Apply Leave", Path: "/teacher/apply-leave"},
		},
	}
}

func (shellVisitor) DataEntry() Shell {
	return Shell{
		Role:     models.RoleDataEntry,
		Title:    "Data Entry",
		HomePath: "/data-entry",
		Menu: []MenuItem{
			{Label: "Dashboard", Path: "/data-entry"},
			{Label: "Students", Path: "/data-entry/students"},
			{Label: "Fees", Path: "/data-entry/fees"},
		},
	}
}

func (shellVisitor) Student() Shell {
	return Shell{
		Role:     models.RoleStudent,
		Title:    "Student Portal",
		HomePath: "/student",
		Menu: []MenuItem{
			{Label: "Dashboard", Path: "/student"},
			{Label: "Timetable", Path: "/student/timetable"},
			{Label: "Fees", Path: "/student/fees"},
			{Label: "Leave", Path: "/student/leave"},
		},
	}
}
