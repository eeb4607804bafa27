package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
	"github.com/noah-isme/school-portal-api/internal/session"
)

var adminActor = Actor{ID: "u-admin", Role: models.RoleAdmin, Name: "Head"}

func newTeacherRequest(email string) dto.TeacherCreateRequest {
	return dto.TeacherCreateRequest{
		Name:            "Ana Lopez",
		Email:           email,
		Password:        "secret1",
		ConfirmPassword: "secret1",
		Subject:         "Math",
		ClassName:       "7",
		Section:         "A",
	}
}

func TestTeacherCreateKeysProfileByIdentity(t *testing.T) {
	f := newPortalFixture(t)
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, f.profiles, nil, f.validate, f.recorder, testLogger())

	created, err := svc.Create(context.Background(), newTeacherRequest("Ana@School.test"), nil, adminActor)
	require.NoError(t, err)
	require.Equal(t, "ana@school.test", created.Email)

	identity, err := repository.NewIdentityRepository(f.db).GetByIdentifier(context.Background(), "ana@school.test")
	require.NoError(t, err)
	require.Equal(t, identity.ID, created.ID)

	profile, err := f.profiles.FetchProfile(context.Background(), created.ID)
	require.NoError(t, err)
	teacher, ok := profile.(models.TeacherProfile)
	require.True(t, ok)
	require.Equal(t, "7", teacher.ClassName)
	require.Equal(t, []string{"teacher.create"}, f.activity.actions())
}

func TestTeacherCreateRejectsMismatchedConfirmation(t *testing.T) {
	f := newPortalFixture(t)
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, f.profiles, nil, f.validate, f.recorder, testLogger())

	req := newTeacherRequest("ana@school.test")
	req.ConfirmPassword = "other"
	_, err := svc.Create(context.Background(), req, nil, adminActor)
	require.Error(t, err)
	require.Zero(t, f.count(t, &models.Identity{}))
}

func TestTeacherCreateThenDeleteLeavesNothing(t *testing.T) {
	f := newPortalFixture(t)
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, f.profiles, nil, f.validate, f.recorder, testLogger())

	created, err := svc.Create(context.Background(), newTeacherRequest("ana@school.test"), nil, adminActor)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID, adminActor))
	require.Zero(t, f.count(t, &models.Teacher{}))
	require.Zero(t, f.count(t, &models.UserProfile{}))
	require.Zero(t, f.count(t, &models.Identity{}))

	require.ErrorIs(t, svc.Delete(context.Background(), created.ID, adminActor), ErrTeacherNotFound)
}

func TestTeacherDeleteFailsClosedWhenAccessRevocationFails(t *testing.T) {
	f := newPortalFixture(t)
	flaky := &flakyProfiles{ProfileDirectory: f.profiles}
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, flaky, nil, f.validate, f.recorder, testLogger())

	created, err := svc.Create(context.Background(), newTeacherRequest("ana@school.test"), nil, adminActor)
	require.NoError(t, err)

	flaky.deleteErr = errStoreDown
	err = svc.Delete(context.Background(), created.ID, adminActor)
	require.ErrorIs(t, err, errStoreDown)
	require.NotErrorIs(t, err, ErrPartialFailure)
	require.EqualValues(t, 1, f.count(t, &models.Teacher{}))
	require.EqualValues(t, 1, f.count(t, &models.UserProfile{}))
	require.EqualValues(t, 1, f.count(t, &models.Identity{}))

	flaky.deleteErr = nil
	require.NoError(t, svc.Delete(context.Background(), created.ID, adminActor))
	require.Zero(t, f.count(t, &models.Teacher{}))
	require.Zero(t, f.count(t, &models.UserProfile{}))
	require.Zero(t, f.count(t, &models.Identity{}))
}

func TestTeacherDeleteRetryFinishesAfterPartialFailure(t *testing.T) {
	cases := map[string]struct {
		breakStep func(auth *flakyAuth, teachers *flakyTeachers)
		deleted   []string
		remaining []string
	}{
		"identity": {
			breakStep: func(auth *flakyAuth, _ *flakyTeachers) { auth.deleteErr = errStoreDown },
			deleted:   []string{"access record"},
			remaining: []string{"identity", "profile"},
		},
		"profile document": {
			breakStep: func(_ *flakyAuth, teachers *flakyTeachers) { teachers.deleteErr = errStoreDown },
			deleted:   []string{"access record", "identity"},
			remaining: []string{"profile"},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			f := newPortalFixture(t)
			auth := &flakyAuth{AuthService: f.auth}
			teachers := &flakyTeachers{TeacherRepository: repository.NewTeacherRepository(f.db)}
			svc := NewTeacherService(teachers, auth, f.profiles, nil, f.validate, f.recorder, testLogger())

			created, err := svc.Create(context.Background(), newTeacherRequest("ana@school.test"), nil, adminActor)
			require.NoError(t, err)

			tc.breakStep(auth, teachers)
			err = svc.Delete(context.Background(), created.ID, adminActor)
			require.ErrorIs(t, err, ErrPartialFailure)
			require.ErrorIs(t, err, errStoreDown)

			var partial *PartialDeleteError
			require.True(t, errors.As(err, &partial))
			require.Equal(t, tc.deleted, partial.Deleted)
			require.Equal(t, tc.remaining, partial.Remaining)

			_, err = f.profiles.FetchProfile(context.Background(), created.ID)
			require.ErrorIs(t, err, session.ErrProfileNotFound)
			require.EqualValues(t, 1, f.count(t, &models.Teacher{}))
			require.NotContains(t, f.activity.actions(), "teacher.delete")

			auth.deleteErr = nil
			teachers.deleteErr = nil
			require.NoError(t, svc.Delete(context.Background(), created.ID, adminActor))
			require.Zero(t, f.count(t, &models.Teacher{}))
			require.Zero(t, f.count(t, &models.UserProfile{}))
			require.Zero(t, f.count(t, &models.Identity{}))
			require.Contains(t, f.activity.actions(), "teacher.delete")

			require.ErrorIs(t, svc.Delete(context.Background(), created.ID, adminActor), ErrTeacherNotFound)
		})
	}
}

func TestTeacherDeleteLeavesOtherAccountsAlone(t *testing.T) {
	f := newPortalFixture(t)
	teachers := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, f.profiles, nil, f.validate, f.recorder, testLogger())
	operators := NewDataEntryService(repository.NewDataEntryRepository(f.db), f.auth, f.profiles, f.validate, f.recorder, testLogger())

	operator, err := operators.Create(context.Background(), dto.DataEntryCreateRequest{
		Name:            "Dee",
		Email:           "dee@school.test",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}, adminActor)
	require.NoError(t, err)

	require.ErrorIs(t, teachers.Delete(context.Background(), operator.ID, adminActor), ErrTeacherNotFound)
	require.EqualValues(t, 1, f.count(t, &models.UserProfile{}))
	require.EqualValues(t, 1, f.count(t, &models.Identity{}))
}

func TestTeacherPhotoFollowsTheDocument(t *testing.T) {
	f := newPortalFixture(t)
	uploads := &recordingUploads{}
	flaky := &flakyProfiles{ProfileDirectory: f.profiles}
	teachers := &flakyTeachers{TeacherRepository: repository.NewTeacherRepository(f.db)}
	svc := NewTeacherService(teachers, f.auth, flaky, uploads, f.validate, f.recorder, testLogger())
	ctx := context.Background()

	created, err := svc.Create(ctx, newTeacherRequest("ana@school.test"), buildFileHeader(t, "ana.png", pngHeader), adminActor)
	require.NoError(t, err)
	require.Equal(t, "teachers/ana.png", created.Photo.AssetID)

	_, err = svc.Create(ctx, newTeacherRequest("ana@school.test"), buildFileHeader(t, "dup.png", pngHeader), adminActor)
	require.ErrorIs(t, err, ErrIdentityExists)
	require.Equal(t, []string{"teachers/dup.png"}, uploads.discarded)

	flaky.saveErr = errStoreDown
	_, err = svc.Create(ctx, newTeacherRequest("ben@school.test"), buildFileHeader(t, "ben.png", pngHeader), adminActor)
	require.ErrorIs(t, err, ErrPartialFailure)
	require.Equal(t, []string{"teachers/dup.png"}, uploads.discarded)
	flaky.saveErr = nil

	teachers.deleteErr = errStoreDown
	require.ErrorIs(t, svc.Delete(ctx, created.ID, adminActor), ErrPartialFailure)
	require.Equal(t, []string{"teachers/dup.png"}, uploads.discarded)

	teachers.deleteErr = nil
	require.NoError(t, svc.Delete(ctx, created.ID, adminActor))
	require.Equal(t, []string{"teachers/dup.png", "teachers/ana.png"}, uploads.discarded)
}

func TestTeacherCreateReportsOrphanedIdentity(t *testing.T) {
	f := newPortalFixture(t)
	flaky := &flakyProfiles{ProfileDirectory: f.profiles, saveErr: errStoreDown}
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, flaky, nil, f.validate, f.recorder, testLogger())

	_, err := svc.Create(context.Background(), newTeacherRequest("ana@school.test"), nil, adminActor)
	require.ErrorIs(t, err, ErrPartialFailure)

	var provisioning *ProvisioningError
	require.True(t, errors.As(err, &provisioning))
	require.Equal(t, "ana@school.test", provisioning.Identifier)
	require.NotEmpty(t, provisioning.IdentityID)
	require.EqualValues(t, 1, f.count(t, &models.Identity{}))
}

func TestTeacherUpdateKeepsIdentityAndRefreshesAccess(t *testing.T) {
	f := newPortalFixture(t)
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, f.profiles, nil, f.validate, f.recorder, testLogger())

	created, err := svc.Create(context.Background(), newTeacherRequest("ana@school.test"), nil, adminActor)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, dto.TeacherUpdateRequest{
		Name:      "Ana Maria Lopez",
		Subject:   "Physics",
		ClassName: "8",
	}, nil, adminActor)
	require.NoError(t, err)
	require.Equal(t, "ana@school.test", updated.Email)
	require.Equal(t, "Physics", updated.Subject)

	profile, err := f.profiles.FetchProfile(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, "8", profile.(models.TeacherProfile).ClassName)
	require.Equal(t, "Ana Maria Lopez", profile.Base().DisplayName)
}

func TestTeacherListSearchAndFilter(t *testing.T) {
	f := newPortalFixture(t)
	svc := NewTeacherService(repository.NewTeacherRepository(f.db), f.auth, f.profiles, nil, f.validate, f.recorder, testLogger())

	for _, req := range []dto.TeacherCreateRequest{
		{Name: "Ana", Email: "ana@school.test", Password: "secret1", ConfirmPassword: "secret1", Subject: "Math"},
		{Name: "Ben", Email: "ben@school.test", Password: "secret1", ConfirmPassword: "secret1", Subject: "Art"},
		{Name: "Cara", Email: "cara@school.test", Password: "secret1", ConfirmPassword: "secret1", Subject: "Math"},
	} {
		_, err := svc.Create(context.Background(), req, nil, adminActor)
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), dto.ListQuery{Filters: map[string]string{"subject": "math"}, PageSize: 1, Page: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "Cara", list.Items[0].Name)
	require.EqualValues(t, 2, list.Pagination.TotalItems)
	require.Equal(t, 2, list.Pagination.TotalPages)

	list, err = svc.List(context.Background(), dto.ListQuery{Search: "BEN"})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
}

func TestDataEntryLifecycle(t *testing.T) {
	f := newPortalFixture(t)
	svc := NewDataEntryService(repository.NewDataEntryRepository(f.db), f.auth, f.profiles, f.validate, f.recorder, testLogger())

	created, err := svc.Create(context.Background(), dto.DataEntryCreateRequest{
		Name:            "Dee",
		Email:           "dee@school.test",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	}, adminActor)
	require.NoError(t, err)

	profile, err := f.profiles.FetchProfile(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, models.RoleDataEntry, profile.Role())

	updated, err := svc.Update(context.Background(), created.ID, dto.DataEntryUpdateRequest{Name: "Dee Ray"}, adminActor)
	require.NoError(t, err)
	require.Equal(t, "Dee Ray", updated.Name)

	require.NoError(t, svc.Delete(context.Background(), created.ID, adminActor))
	require.Zero(t, f.count(t, &models.DataEntryAdmin{}))
	require.Zero(t, f.count(t, &models.Identity{}))
	require.Equal(t, []string{"data_entry.create", "data_entry.update", "data_entry.delete"}, f.activity.actions())
}
