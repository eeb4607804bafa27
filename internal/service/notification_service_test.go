package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

func newNotificationFixture(t *testing.T) (NotificationService, *portalFixture) {
	t.Helper()
	f := newPortalFixture(t)
	return NewNotificationService(repository.NewNotificationRepository(f.db), f.hub, f.validate, f.recorder, testLogger()), f
}

func TestNotificationServiceSanitizesAndDefaults(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	created, err := svc.Create(context.Background(), dto.NotificationRequest{
		Title:   "<script>alert(1)</script>Exam week",
		Message: "Bring <b>pencils</b>",
	}, adminActor)
	require.NoError(t, err)
	require.Equal(t, "Exam week", created.Title)
	require.Equal(t, "Bring pencils", created.Message)
	require.Equal(t, models.NotificationAudienceAll, created.Audience)
	require.Equal(t, "normal", created.Priority)
	require.True(t, created.Active)
	require.Equal(t, adminActor.ID, created.CreatedBy)

	_, err = svc.Create(context.Background(), dto.NotificationRequest{Title: "Hi", Message: "x", Audience: "parents"}, adminActor)
	require.Error(t, err)
}

func TestNotificationServiceActiveByAudience(t *testing.T) {
	svc, _ := newNotificationFixture(t)
	ctx := context.Background()
	inactive := false
	past := time.Now().Add(-time.Hour)

	for _, req := range []dto.NotificationRequest{
		{Title: "Everyone", Message: "m"},
		{Title: "Teachers", Message: "m", Audience: "teacher"},
		{Title: "Students", Message: "m", Audience: "student"},
		{Title: "Hidden", Message: "m", Active: &inactive},
		{Title: "Expired", Message: "m", ExpiresAt: &past},
	} {
		_, err := svc.Create(ctx, req, adminActor)
		require.NoError(t, err)
	}

	titles := func(items []dto.NotificationResponse) []string {
		out := make([]string, 0, len(items))
		for _, item := range items {
			out = append(out, item.Title)
		}
		return out
	}

	anonymous, err := svc.Active(ctx, "")
	require.NoError(t, err)
	require.Equal(t, []string{"Everyone"}, titles(anonymous))

	teacher, err := svc.Active(ctx, models.RoleTeacher)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Everyone", "Teachers"}, titles(teacher))

	all, err := svc.List(ctx, dto.ListQuery{Page: 1, PageSize: 20, Filters: map[string]string{"state": "inactive"}})
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"Hidden", "Expired"}, titles(all.Items))
}

func TestNotificationServicePushesVisibleBanners(t *testing.T) {
	svc, f := newNotificationFixture(t)
	ctx := context.Background()

	teachers, cancelTeachers := f.hub.Subscribe(AudienceAll, RoleAudience(models.RoleTeacher))
	defer cancelTeachers()
	students, cancelStudents := f.hub.Subscribe(AudienceAll, RoleAudience(models.RoleStudent))
	defer cancelStudents()

	_, err := svc.Create(ctx, dto.NotificationRequest{Title: "Staff meeting", Message: "m", Audience: "teacher"}, adminActor)
	require.NoError(t, err)
	require.Equal(t, EventNotification, receiveEvent(t, teachers).Kind)
	requireNoEvent(t, students)

	inactive := false
	_, err = svc.Create(ctx, dto.NotificationRequest{Title: "Draft", Message: "m", Active: &inactive}, adminActor)
	require.NoError(t, err)
	requireNoEvent(t, teachers)
	requireNoEvent(t, students)
}

func TestNotificationServiceNotFound(t *testing.T) {
	svc, _ := newNotificationFixture(t)

	_, err := svc.Get(context.Background(), 42)
	require.ErrorIs(t, err, ErrNotificationNotFound)
	require.ErrorIs(t, svc.Delete(context.Background(), 42, adminActor), ErrNotificationNotFound)
}
