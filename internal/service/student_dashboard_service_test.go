package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

type dashboardFixture struct {
	svc        *studentDashboardService
	timetables TimetableService
	fees       FeeService
	leave      LeaveService
}

func newDashboardFixture(t *testing.T, cache *redis.Client) dashboardFixture {
	t.Helper()
	f := newPortalFixture(t)
	timetables := NewTimetableService(repository.NewTimetableRepository(f.db), f.validate, f.recorder, 4, testLogger())
	fees := NewFeeService(repository.NewFeeRepository(f.db), f.students, f.validate, f.recorder, testLogger())
	leave := NewLeaveService(repository.NewLeaveRepository(f.db), f.hub, f.validate, f.recorder, testLogger())

	svc := NewStudentDashboardService(timetables, fees, leave, cache, time.Minute, testLogger()).(*studentDashboardService)
	// 2026-03-09 is a Monday.
	svc.now = func() time.Time { return time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC) }

	f.seedStudent(t, models.Student{ID: leaveStudent.ID, Name: "Sam", RollNumber: leaveStudent.RollNumber, ClassName: leaveStudent.ClassName, DateOfBirth: "2012-05-01"})
	return dashboardFixture{svc: svc, timetables: timetables, fees: fees, leave: leave}
}

func (d dashboardFixture) assign(t *testing.T, subject string) {
	t.Helper()
	_, err := d.timetables.AssignCell(context.Background(), leaveStudent.ClassName, dto.CellRequest{Day: "Monday", Slot: "P1", Subject: subject}, adminActor)
	require.NoError(t, err)
}

func TestDashboardShowsTodayFeesAndLeave(t *testing.T) {
	d := newDashboardFixture(t, nil)
	ctx := context.Background()

	_, err := d.timetables.AddSlot(ctx, leaveStudent.ClassName, dto.SlotRequest{Label: "P1", Start: "09:00", End: "09:45"}, adminActor)
	require.NoError(t, err)
	d.assign(t, "Maths")

	_, err = d.fees.CreateStructure(ctx, dto.FeeStructureRequest{ClassName: leaveStudent.ClassName, Title: "Term", Amount: 1000}, adminActor)
	require.NoError(t, err)
	_, err = d.fees.RecordPayment(ctx, dto.PaymentRequest{RollNumber: leaveStudent.RollNumber, Amount: 400, Status: models.PaymentStatusPaid}, adminActor)
	require.NoError(t, err)

	fileLeave(t, d.leave, leaveStudent)

	dashboard, err := d.svc.GetDashboard(ctx, leaveStudent)
	require.NoError(t, err)
	require.Equal(t, "Monday", dashboard.Day)
	require.Len(t, dashboard.Slots, 1)
	require.NotNil(t, dashboard.Today)
	require.Equal(t, "Monday", dashboard.Today.Day)
	require.Equal(t, "Maths", dashboard.Today.Cells[0].Subject)
	require.False(t, dashboard.Today.Cells[0].Editable)

	require.EqualValues(t, 600, dashboard.Fees.Due)
	require.Equal(t, 1, dashboard.Leave.Pending)
	require.Len(t, dashboard.Leave.Recent, 1)
}

func TestDashboardWithoutClassOrPayments(t *testing.T) {
	d := newDashboardFixture(t, nil)

	stranger := models.StudentProfile{ProfileBase: models.ProfileBase{ID: "u-new"}, RollNumber: "R-404"}
	dashboard, err := d.svc.GetDashboard(context.Background(), stranger)
	require.NoError(t, err)
	require.Nil(t, dashboard.Today)
	require.Empty(t, dashboard.Slots)
	require.Equal(t, "R-404", dashboard.Fees.RollNumber)
	require.Zero(t, dashboard.Fees.Due)
	require.Empty(t, dashboard.Leave.Recent)
}

func TestDashboardCachesOnlyTheTimetable(t *testing.T) {
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	d := newDashboardFixture(t, client)
	ctx := context.Background()

	_, err = d.timetables.AddSlot(ctx, leaveStudent.ClassName, dto.SlotRequest{Label: "P1", Start: "09:00", End: "09:45"}, adminActor)
	require.NoError(t, err)
	d.assign(t, "Maths")
	_, err = d.fees.CreateStructure(ctx, dto.FeeStructureRequest{ClassName: leaveStudent.ClassName, Title: "Term", Amount: 1000}, adminActor)
	require.NoError(t, err)

	first, err := d.svc.GetDashboard(ctx, leaveStudent)
	require.NoError(t, err)
	require.EqualValues(t, 1000, first.Fees.Due)

	d.assign(t, "Science")
	_, err = d.fees.RecordPayment(ctx, dto.PaymentRequest{RollNumber: leaveStudent.RollNumber, Amount: 250, Status: models.PaymentStatusPaid}, adminActor)
	require.NoError(t, err)

	second, err := d.svc.GetDashboard(ctx, leaveStudent)
	require.NoError(t, err)
	require.Equal(t, "Maths", second.Today.Cells[0].Subject)
	require.EqualValues(t, 750, second.Fees.Due)

	server.FastForward(2 * time.Minute)

	third, err := d.svc.GetDashboard(ctx, leaveStudent)
	require.NoError(t, err)
	require.Equal(t, "Science", third.Today.Cells[0].Subject)
}
