package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-portal-api/internal/dto"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/repository"
)

type countingTimetableRepo struct {
	repository.TimetableRepository
	writes int
}

func (c *countingTimetableRepo) Replace(ctx context.Context, timetable *models.Timetable) error {
	c.writes++
	return c.TimetableRepository.Replace(ctx, timetable)
}

func newTimetableFixture(t *testing.T) (TimetableService, *countingTimetableRepo) {
	t.Helper()
	f := newPortalFixture(t)
	repo := &countingTimetableRepo{TimetableRepository: repository.NewTimetableRepository(f.db)}
	return NewTimetableService(repo, f.validate, f.recorder, 4, testLogger()), repo
}

func TestTimetableEmptyOnFirstSelection(t *testing.T) {
	svc, repo := newTimetableFixture(t)

	resp, err := svc.Get(context.Background(), "7A", true)
	require.NoError(t, err)
	require.False(t, resp.Exists)
	require.Empty(t, resp.Document.Slots)
	require.Len(t, resp.Grid.Rows, len(models.Weekdays))
	require.Zero(t, repo.writes)
}

func TestTimetableBreakCellRejectedWithoutWrite(t *testing.T) {
	svc, repo := newTimetableFixture(t)
	ctx := context.Background()

	_, err := svc.AddSlot(ctx, "7A", dto.SlotRequest{Label: "10:00-10:15", Start: "10:00", End: "10:15", IsBreak: true}, adminActor)
	require.NoError(t, err)
	writes := repo.writes

	_, err = svc.AssignCell(ctx, "7A", dto.CellRequest{Day: "Monday", Slot: "10:00-10:15", Subject: "Math"}, adminActor)
	require.ErrorIs(t, err, models.ErrBreakSlot)
	_, err = svc.ClearCell(ctx, "7A", "Monday", "10:00-10:15", adminActor)
	require.ErrorIs(t, err, models.ErrBreakSlot)
	require.Equal(t, writes, repo.writes)

	resp, err := svc.Get(ctx, "7A", true)
	require.NoError(t, err)
	cell := resp.Grid.Rows[0].Cells[0]
	require.Equal(t, dto.CellBreak, cell.State)
	require.Equal(t, dto.BreakMarker, cell.Display)
	require.False(t, cell.Editable)
}

func TestTimetableSaveAndReloadRendersExactly(t *testing.T) {
	svc, _ := newTimetableFixture(t)
	ctx := context.Background()

	payload := []byte(`{
		"slots": [
			{"label": "P1", "start": "09:00", "end": "09:45"},
			{"label": "P2", "start": "09:45", "end": "10:30"}
		],
		"schedule": {"Monday": {"P1": {"subject": "Math"}}}
	}`)
	_, err := svc.Replace(ctx, "7A", payload, adminActor)
	require.NoError(t, err)

	resp, err := svc.Get(ctx, "7A", false)
	require.NoError(t, err)
	require.True(t, resp.Exists)

	monday := resp.Grid.Rows[0]
	require.Equal(t, "Monday", monday.Day)
	require.Equal(t, dto.CellAssigned, monday.Cells[0].State)
	require.Equal(t, "Math", monday.Cells[0].Subject)
	require.Equal(t, dto.CellEmpty, monday.Cells[1].State)
	require.Empty(t, monday.Cells[1].Subject)
	require.False(t, monday.Cells[0].Editable)
}

func TestTimetableReplaceDoesNotMerge(t *testing.T) {
	svc, _ := newTimetableFixture(t)
	ctx := context.Background()

	_, err := svc.AddSlot(ctx, "7A", dto.SlotRequest{Label: "P1", Start: "09:00", End: "09:45"}, adminActor)
	require.NoError(t, err)
	_, err = svc.AssignCell(ctx, "7A", dto.CellRequest{Day: "Tuesday", Slot: "P1", Subject: "Art"}, adminActor)
	require.NoError(t, err)

	resp, err := svc.Replace(ctx, "7A", []byte(`{"slots":[{"label":"P9","start":"12:00","end":"12:45"}],"schedule":{}}`), adminActor)
	require.NoError(t, err)
	require.Len(t, resp.Document.Slots, 1)
	require.Equal(t, "P9", resp.Document.Slots[0].Label)
	require.Empty(t, resp.Document.Schedule)
}

func TestTimetableReplaceValidation(t *testing.T) {
	svc, repo := newTimetableFixture(t)
	ctx := context.Background()

	cases := map[string]string{
		"not json":        `{`,
		"bad time":        `{"slots":[{"label":"P1","start":"9am","end":"10:00"}],"schedule":{}}`,
		"sunday":          `{"slots":[{"label":"P1","start":"09:00","end":"10:00"}],"schedule":{"Sunday":{"P1":{"subject":"PE"}}}}`,
		"extra field":     `{"slots":[],"schedule":{},"owner":"x"}`,
		"break with data": `{"slots":[{"label":"B","start":"10:00","end":"10:15","is_break":true}],"schedule":{"Monday":{"B":{"subject":"Art"}}}}`,
		"duplicate label": `{"slots":[{"label":"P1","start":"09:00","end":"10:00"},{"label":"P1","start":"10:00","end":"11:00"}],"schedule":{}}`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Replace(ctx, "7A", []byte(payload), adminActor)
			require.Error(t, err)
		})
	}
	require.Zero(t, repo.writes)
}

func TestTimetableSlotEditing(t *testing.T) {
	svc, _ := newTimetableFixture(t)
	ctx := context.Background()

	_, err := svc.AddSlot(ctx, "7A", dto.SlotRequest{Label: "P1", Start: "09:00", End: "09:45"}, adminActor)
	require.NoError(t, err)
	_, err = svc.AddSlot(ctx, "7A", dto.SlotRequest{Label: "P1", Start: "10:00", End: "10:45"}, adminActor)
	require.ErrorIs(t, err, models.ErrDuplicateSlot)
	_, err = svc.AddSlot(ctx, "7A", dto.SlotRequest{Label: "P2", Start: "10:00", End: "09:00"}, adminActor)
	require.ErrorIs(t, err, ErrInvalidSlotTime)

	_, err = svc.AssignCell(ctx, "7A", dto.CellRequest{Day: "Friday", Slot: "P1", Subject: "Music", Teacher: "Ben"}, adminActor)
	require.NoError(t, err)
	_, err = svc.AssignCell(ctx, "7A", dto.CellRequest{Day: "Friday", Slot: "P7", Subject: "Music"}, adminActor)
	require.ErrorIs(t, err, models.ErrUnknownSlot)

	resp, err := svc.ClearCell(ctx, "7A", "Friday", "P1", adminActor)
	require.NoError(t, err)
	require.Empty(t, resp.Document.Schedule)
	_, err = svc.ClearCell(ctx, "7A", "Friday", "P1", adminActor)
	require.ErrorIs(t, err, ErrCellEmpty)

	_, err = svc.AssignCell(ctx, "7A", dto.CellRequest{Day: "Friday", Slot: "P1", Subject: "Music"}, adminActor)
	require.NoError(t, err)
	resp, err = svc.RemoveSlot(ctx, "7A", "P1", adminActor)
	require.NoError(t, err)
	require.Empty(t, resp.Document.Slots)
	require.Empty(t, resp.Document.Schedule)
}

func TestTimetableListPageFourClasses(t *testing.T) {
	svc, _ := newTimetableFixture(t)
	ctx := context.Background()

	for _, class := range []string{"1A", "2A", "3A", "4A", "5A", "6A"} {
		_, err := svc.Replace(ctx, class, []byte(`{"slots":[],"schedule":{}}`), adminActor)
		require.NoError(t, err)
	}

	page, err := svc.ListPage(ctx, 2)
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.Equal(t, "5A", page.Items[0].ClassName)
	require.Equal(t, 2, page.Pagination.TotalPages)
	require.EqualValues(t, 6, page.Pagination.TotalItems)
}
