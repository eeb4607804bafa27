package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/school-portal-api/internal/models"
)

func TestTimetableRepositoryReplaceOverwritesWholeDocument(t *testing.T) {
	db := setupPortalTestDB(t, &models.Timetable{})
	repo := NewTimetableRepository(db)
	ctx := context.Background()

	first := models.Timetable{
		ClassName: "5A",
		Document: datatypes.NewJSONType(models.TimetableDocument{
			Slots: []models.TimeSlot{{Label: "P1"}, {Label: "P2"}},
			Schedule: map[string]map[string]models.SlotAssignment{
				"Monday": {"P1": {Subject: "Math"}, "P2": {Subject: "Art"}},
			},
		}),
		UpdatedBy: "admin-1",
	}
	require.NoError(t, repo.Replace(ctx, &first))

	second := models.Timetable{
		ClassName: "5A",
		Document: datatypes.NewJSONType(models.TimetableDocument{
			Slots:    []models.TimeSlot{{Label: "P1"}, {Label: "P2"}},
			Schedule: map[string]map[string]models.SlotAssignment{"Monday": {"P1": {Subject: "Math"}}},
		}),
		UpdatedBy: "admin-2",
	}
	require.NoError(t, repo.Replace(ctx, &second))

	stored, err := repo.Get(ctx, "5A")
	require.NoError(t, err)
	require.Equal(t, "admin-2", stored.UpdatedBy)
	monday := stored.Document.Data().Schedule["Monday"]
	require.Equal(t, "Math", monday["P1"].Subject)
	_, hasP2 := monday["P2"]
	require.False(t, hasP2, "replace must not merge the previous document")

	var count int64
	require.NoError(t, db.Model(&models.Timetable{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestTimetableRepositoryListPageOrdersByClass(t *testing.T) {
	db := setupPortalTestDB(t, &models.Timetable{})
	repo := NewTimetableRepository(db)
	ctx := context.Background()

	for _, class := range []string{"9", "1", "5", "3", "7"} {
		record := models.Timetable{ClassName: class, Document: datatypes.NewJSONType(models.TimetableDocument{})}
		require.NoError(t, repo.Replace(ctx, &record))
	}

	page, total, err := repo.ListPage(ctx, 2, 4)
	require.NoError(t, err)
	require.Equal(t, int64(5), total)
	require.Len(t, page, 1)
	require.Equal(t, "9", page[0].ClassName)
}

func TestLeaveRepositoryTransitionRequiresExpectedStatus(t *testing.T) {
	db := setupPortalTestDB(t, &models.LeaveRequest{})
	repo := NewLeaveRepository(db)
	ctx := context.Background()

	request := models.LeaveRequest{RequesterID: "s-1", RequesterRole: "student", FromDate: "2026-01-05", ToDate: "2026-01-06", Type: "sick", Status: models.LeaveStatusPendingTeacher}
	require.NoError(t, repo.Create(ctx, &request))

	request.Status = models.LeaveStatusPendingAdmin
	request.TeacherRemark = "ok"
	require.NoError(t, repo.Transition(ctx, &request, models.LeaveStatusPendingTeacher))

	request.Status = models.LeaveStatusRejected
	err := repo.Transition(ctx, &request, models.LeaveStatusPendingTeacher)
	require.ErrorIs(t, err, models.ErrInvalidLeaveTransition)

	stored, err := repo.GetByID(ctx, request.ID)
	require.NoError(t, err)
	require.Equal(t, models.LeaveStatusPendingAdmin, stored.Status)
	require.Equal(t, "ok", stored.TeacherRemark)
}

func TestFeeRepositoryHistoryNewestFirstAndExactReceipt(t *testing.T) {
	db := setupPortalTestDB(t, &models.FeePayment{})
	repo := NewFeeRepository(db)
	ctx := context.Background()

	now := time.Now()
	older := models.FeePayment{ID: "p-1", StudentID: "s-1", RollNumber: "R1", ClassName: "5", Amount: 100, Status: models.PaymentStatusPaid, ReceiptNumber: "REC-1", PaidAt: now.Add(-time.Hour)}
	newer := models.FeePayment{ID: "p-2", StudentID: "s-1", RollNumber: "R1", ClassName: "5", Amount: 200, Status: models.PaymentStatusPaid, ReceiptNumber: "REC-10", PaidAt: now}
	require.NoError(t, repo.CreatePayment(ctx, &older))
	require.NoError(t, repo.CreatePayment(ctx, &newer))

	history, err := repo.ListPaymentsByRoll(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, "p-2", history[0].ID)

	found, err := repo.GetPaymentByReceipt(ctx, "REC-1")
	require.NoError(t, err)
	require.Equal(t, "p-1", found.ID)

	_, err = repo.GetPaymentByReceipt(ctx, "rec-1")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestNotificationRepositoryListActiveHonoursExpiryAndAudience(t *testing.T) {
	db := setupPortalTestDB(t, &models.Notification{})
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	require.NoError(t, repo.Create(ctx, &models.Notification{Title: "Holiday", Message: "closed", Audience: "all", Active: true, ExpiresAt: &future}))
	require.NoError(t, repo.Create(ctx, &models.Notification{Title: "Old", Message: "gone", Audience: "all", Active: true, ExpiresAt: &past}))
	require.NoError(t, repo.Create(ctx, &models.Notification{Title: "Staff meeting", Message: "3pm", Audience: "teacher", Active: true}))
	hidden := models.Notification{Title: "Draft", Message: "later", Audience: "all", Active: true}
	require.NoError(t, repo.Create(ctx, &hidden))
	hidden.Active = false
	require.NoError(t, repo.Update(ctx, &hidden))

	public, err := repo.ListActive(ctx, []string{"all"}, now)
	require.NoError(t, err)
	require.Len(t, public, 1)
	require.Equal(t, "Holiday", public[0].Title)

	teacher, err := repo.ListActive(ctx, []string{"all", "teacher"}, now)
	require.NoError(t, err)
	require.Len(t, teacher, 2)
}

func TestStaffRepositoryDeleteReportsMissingRecord(t *testing.T) {
	db := setupPortalTestDB(t, &models.Teacher{})
	repo := NewTeacherRepository(db)
	ctx := context.Background()

	teacher := models.Teacher{ID: "t-1", Name: "Ms. Rao", Email: "rao@school.test"}
	require.NoError(t, repo.Create(ctx, &teacher))
	require.NoError(t, repo.Delete(ctx, "t-1"))
	require.ErrorIs(t, repo.Delete(ctx, "t-1"), gorm.ErrRecordNotFound)
}

func TestGalleryRepositoryDeleteAlbumRemovesPhotos(t *testing.T) {
	db := setupPortalTestDB(t, &models.Album{}, &models.Photo{})
	repo := NewGalleryRepository(db)
	ctx := context.Background()

	album := models.Album{Title: "Sports Day"}
	require.NoError(t, repo.CreateAlbum(ctx, &album))
	require.NoError(t, repo.AddPhoto(ctx, &models.Photo{AlbumID: album.ID, URL: "https://cdn.test/a.jpg"}))

	loaded, err := repo.GetAlbum(ctx, album.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Photos, 1)

	require.NoError(t, repo.DeleteAlbum(ctx, album.ID))
	var photos int64
	require.NoError(t, db.Model(&models.Photo{}).Count(&photos).Error)
	require.Zero(t, photos)
}

func TestUploadRepositoryFindByChecksum(t *testing.T) {
	db := setupPortalTestDB(t, &models.UploadRecord{})
	repo := NewUploadRepository(db)
	ctx := context.Background()

	record := models.UploadRecord{UserID: "u-1", FileName: "photo.png", URL: "https://cdn.test/photo.png", MimeType: "image/png", SizeBytes: 2048, Checksum: "abc123"}
	require.NoError(t, repo.Create(ctx, &record))
	require.NotZero(t, record.ID)

	found, err := repo.FindByChecksum(ctx, "u-1", "abc123")
	require.NoError(t, err)
	require.Equal(t, "photo.png", found.FileName)

	_, err = repo.FindByChecksum(ctx, "u-2", "abc123")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func setupPortalTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models...))
	return db
}
