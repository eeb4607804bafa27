package access_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/access"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/session"
)

func principal() *session.Principal {
	return &session.Principal{ID: "uid-1", Identifier: "teacher@school.test"}
}

func teacherProfile() models.Profile {
	return models.TeacherProfile{ProfileBase: models.ProfileBase{ID: "uid-1"}, ClassName: "5"}
}

func TestDecideWaitsWhileLoadingRegardlessOfSession(t *testing.T) {
	snapshots := []session.Snapshot{
		{Loading: true},
		{Loading: true, Principal: principal()},
		{Loading: true, Principal: principal(), Profile: teacherProfile()},
		{Loading: true, Principal: principal(), Err: errors.New("boom")},
	}
	for _, role := range append(models.AllRoles(), "") {
		for _, snapshot := range snapshots {
			outcome := access.Decide(snapshot, role, "/admin/students")
			require.Equal(t, access.DecisionWait, outcome.Decision)
			require.Empty(t, outcome.Location)
		}
	}
}

func TestDecideRedirectsAnonymousToLoginWithReturnPath(t *testing.T) {
	for _, role := range models.AllRoles() {
		outcome := access.Decide(session.Snapshot{}, role, "/teacher/leave-requests")
		require.Equal(t, access.DecisionLogin, outcome.Decision)
		require.Equal(t, "/login?from=%2Fteacher%2Fleave-requests", outcome.Location)
	}
}

func TestDecideBlocksWhenProfileMissing(t *testing.T) {
	snapshot := session.Snapshot{Principal: principal()}
	for _, role := range append(models.AllRoles(), "") {
		outcome := access.Decide(snapshot, role, "/admin")
		require.Equal(t, access.DecisionWait, outcome.Decision)
		require.False(t, outcome.Allowed())
	}
}

func TestDecideSurfacesProfileServiceErrors(t *testing.T) {
	snapshot := session.Snapshot{Principal: principal(), Err: errors.New("connection refused")}
	outcome := access.Decide(snapshot, models.RoleAdmin, "/admin")
	require.Equal(t, access.DecisionUnavailable, outcome.Decision)
}

func TestDecideRoleMismatchRedirectsHomeNotLogin(t *testing.T) {
	snapshot := session.Snapshot{Principal: principal(), Profile: teacherProfile()}
	for _, role := range []models.Role{models.RoleAdmin, models.RoleDataEntry, models.RoleStudent} {
		outcome := access.Decide(snapshot, role, "/x")
		require.Equal(t, access.DecisionHome, outcome.Decision)
		require.Equal(t, access.HomePath, outcome.Location)
	}
}

func TestDecideAllowsMatchingRoleAndAnyRole(t *testing.T) {
	snapshot := session.Snapshot{Principal: principal(), Profile: teacherProfile()}
	require.True(t, access.Decide(snapshot, models.RoleTeacher, "/teacher").Allowed())
	require.True(t, access.Decide(snapshot, "", "/teacher").Allowed())
}

func TestNavigate(t *testing.T) {
	authenticated := session.Snapshot{Principal: principal(), Profile: teacherProfile()}

	cases := []struct {
		name     string
		snapshot session.Snapshot
		path     string
		decision access.Decision
		location string
	}{
		{"public page", session.Snapshot{}, "/gallery", access.DecisionAllow, ""},
		{"public page while loading", session.Snapshot{Loading: true}, "/about", access.DecisionAllow, ""},
		{"unknown path", authenticated, "/nowhere", access.DecisionHome, "/"},
		{"own subtree", authenticated, "/teacher/timetable", access.DecisionAllow, ""},
		{"other subtree", authenticated, "/data-entry/students", access.DecisionHome, "/"},
		{"anonymous subtree", session.Snapshot{}, "/student/fees", access.DecisionLogin, "/login?from=%2Fstudent%2Ffees"},
		{"prefix lookalike", authenticated, "/teachers", access.DecisionHome, "/"},
		{"public page with query", session.Snapshot{}, "/gallery?album=3", access.DecisionAllow, ""},
		{"anonymous subtree root with query", session.Snapshot{}, "/admin?tab=1", access.DecisionLogin, "/login?from=%2Fadmin%3Ftab%3D1"},
		{"anonymous subtree with fragment", session.Snapshot{}, "/admin#x", access.DecisionLogin, "/login?from=%2Fadmin%23x"},
		{"anonymous nested path with query", session.Snapshot{}, "/admin/students?page=2", access.DecisionLogin, "/login?from=%2Fadmin%2Fstudents%3Fpage%3D2"},
		{"own subtree with query", authenticated, "/teacher?view=week", access.DecisionAllow, ""},
		{"bare query", session.Snapshot{}, "?x=1", access.DecisionAllow, ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			outcome := access.Navigate(tc.snapshot, tc.path)
			require.Equal(t, tc.decision, outcome.Decision)
			require.Equal(t, tc.location, outcome.Location)
		})
	}
}
