package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/attempt"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/Freeeeeet/lesson_scheduler/internal/service/servicetest"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var monday = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(day, hour, minute int) time.Time {
	return monday.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func rng(day, fromHour, toHour int) model.TimeRange {
	return model.TimeRange{Start: at(day, fromHour, 0), End: at(day, toHour, 0)}
}

func strPtr(s string) *string { return &s }

func existing(id string, teacherID int64, room *string, r model.TimeRange) model.Lesson {
	return model.Lesson{
		ID:        uuid.MustParse(id),
		Title:     "Lesson " + id[len(id)-1:],
		TimeRange: r,
		TeacherID: teacherID,
		ClassID:   10,
		Room:      room,
		Status:    model.LessonStatusScheduled,
	}
}

const (
	idL1 = "00000000-0000-0000-0000-000000000001"
	idL3 = "00000000-0000-0000-0000-000000000003"
	idL4 = "00000000-0000-0000-0000-000000000004"
)

type fixture struct {
	svc    *LessonService
	store  *servicetest.LessonStore
	audit  *servicetest.AttemptLog
	locker *lock.MemoryLocker
}

func newFixture(lessons ...model.Lesson) *fixture {
	store := servicetest.NewLessonStore(lessons...)
	audit := &servicetest.AttemptLog{}
	locker := lock.NewMemoryLocker()
	svc := NewLessonService(store, attempt.NewMemoryStore(time.Hour), locker, audit, time.Minute, zap.NewNop())
	return &fixture{svc: svc, store: store, audit: audit, locker: locker}
}

func input(teacherID int64, r model.TimeRange) LessonInput {
	return LessonInput{Title: "Algebra", TimeRange: r, TeacherID: teacherID, ClassID: 10}
}

func TestProposeMoveCommitsWithoutConflicts(t *testing.T) {
	l1 := existing(idL1, 1, nil, rng(0, 10, 11))
	f := newFixture(l1)
	ctx := context.Background()

	a, err := f.svc.ProposeMove(ctx, l1.ID, rng(0, 14, 15))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, a.State)
	assert.Empty(t, a.Conflicts)

	stored, ok := f.store.Lesson(l1.ID)
	require.True(t, ok)
	assert.Equal(t, rng(0, 14, 15), stored.TimeRange)
	assert.Equal(t, []model.AttemptState{model.AttemptCommitted}, f.audit.States())
}

func TestProposeMoveAwaitsOverride(t *testing.T) {
	l1 := existing(idL1, 1, nil, rng(0, 10, 11))
	l3 := existing(idL3, 1, nil, rng(0, 14, 15))
	f := newFixture(l1, l3)
	ctx := context.Background()

	a, err := f.svc.ProposeMove(ctx, l1.ID, rng(0, 14, 15))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptAwaitingOverride, a.State)
	require.Len(t, a.Conflicts, 1)
	assert.Equal(t, l3.ID, a.Conflicts[0].ID)

	stored, _ := f.store.Lesson(l1.ID)
	assert.Equal(t, rng(0, 10, 11), stored.TimeRange, "nothing is written before override")

	_, err = f.svc.Commit(ctx, a.ID)
	var conflictErr *model.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Len(t, conflictErr.Conflicts, 1)
	assert.Equal(t, l3.ID, conflictErr.Conflicts[0].ID)

	committed, err := f.svc.ConfirmOverride(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, committed.State)

	stored, _ = f.store.Lesson(l1.ID)
	assert.Equal(t, rng(0, 14, 15), stored.TimeRange)

	again, err := f.svc.Commit(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, again.State)

	_, err = f.svc.Cancel(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrAttemptClosed)
}

func TestConfirmOverrideReportsNewConflicts(t *testing.T) {
	l1 := existing(idL1, 1, nil, rng(0, 10, 11))
	l3 := existing(idL3, 1, nil, rng(0, 14, 15))
	f := newFixture(l1, l3)
	ctx := context.Background()

	a, err := f.svc.ProposeMove(ctx, l1.ID, rng(0, 14, 15))
	require.NoError(t, err)
	require.Equal(t, model.AttemptAwaitingOverride, a.State)

	l4 := existing(idL4, 1, nil, model.TimeRange{Start: at(0, 14, 30), End: at(0, 15, 30)})
	f.store.Put(l4)

	pending, err := f.svc.ConfirmOverride(ctx, a.ID)
	var concErr *model.ConcurrencyError
	require.ErrorAs(t, err, &concErr)
	require.Len(t, concErr.NewConflicts, 1)
	assert.Equal(t, l4.ID, concErr.NewConflicts[0].ID)
	assert.Equal(t, model.AttemptAwaitingOverride, pending.State)
	assert.Len(t, pending.Conflicts, 2)

	stored, _ := f.store.Lesson(l1.ID)
	assert.Equal(t, rng(0, 10, 11), stored.TimeRange)

	committed, err := f.svc.ConfirmOverride(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, committed.State)
}

func TestConfirmOverrideKeepsConcurrentEdit(t *testing.T) {
	l1 := existing(idL1, 1, nil, rng(0, 10, 11))
	l1.UpdatedAt = at(-1, 12, 0)
	l3 := existing(idL3, 1, nil, rng(0, 14, 15))
	f := newFixture(l1, l3)
	ctx := context.Background()

	edit := input(1, rng(0, 14, 15))
	edit.Title = "Geometry"
	a, err := f.svc.ProposeUpdate(ctx, l1.ID, edit)
	require.NoError(t, err)
	require.Equal(t, model.AttemptAwaitingOverride, a.State)

	concurrent := l1
	concurrent.Title = "Edited elsewhere"
	concurrent.UpdatedAt = at(-1, 13, 0)
	f.store.Put(concurrent)

	_, err = f.svc.ConfirmOverride(ctx, a.ID)
	require.ErrorIs(t, err, model.ErrLessonModified)

	stored, _ := f.store.Lesson(l1.ID)
	assert.Equal(t, "Edited elsewhere", stored.Title)
	assert.Equal(t, rng(0, 10, 11), stored.TimeRange)

	retry, err := f.svc.ProposeUpdate(ctx, l1.ID, edit)
	require.NoError(t, err)
	committed, err := f.svc.ConfirmOverride(ctx, retry.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, committed.State)

	stored, _ = f.store.Lesson(l1.ID)
	assert.Equal(t, "Geometry", stored.Title)
	assert.Equal(t, rng(0, 14, 15), stored.TimeRange)
}

func TestProposeCreate(t *testing.T) {
	tests := []struct {
		name      string
		existing  []model.Lesson
		in        LessonInput
		wantState model.AttemptState
		wantIDs   []string
	}{
		{
			name:      "empty calendar",
			in:        input(1, rng(0, 9, 10)),
			wantState: model.AttemptCommitted,
		},
		{
			name:      "teacher double booked",
			existing:  []model.Lesson{existing(idL1, 1, nil, rng(0, 9, 10))},
			in:        input(1, model.TimeRange{Start: at(0, 9, 30), End: at(0, 10, 30)}),
			wantState: model.AttemptAwaitingOverride,
			wantIDs:   []string{idL1},
		},
		{
			name:      "room shared with another teacher",
			existing:  []model.Lesson{existing(idL1, 2, strPtr("A1"), rng(0, 9, 10))},
			in:        LessonInput{Title: "Physics", TimeRange: rng(0, 9, 10), TeacherID: 1, ClassID: 11, Room: strPtr(" A1 ")},
			wantState: model.AttemptAwaitingOverride,
			wantIDs:   []string{idL1},
		},
		{
			name:      "touching lessons",
			existing:  []model.Lesson{existing(idL1, 1, strPtr("A1"), rng(0, 9, 10))},
			in:        LessonInput{Title: "Physics", TimeRange: rng(0, 10, 11), TeacherID: 1, ClassID: 11, Room: strPtr("A1")},
			wantState: model.AttemptCommitted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.existing...)

			a, err := f.svc.ProposeCreate(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantState, a.State)

			ids := make([]string, 0, len(a.Conflicts))
			for _, c := range a.Conflicts {
				ids = append(ids, c.ID.String())
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}

			_, written := f.store.Lesson(a.Changes[0].Lesson.ID)
			assert.Equal(t, tt.wantState == model.AttemptCommitted, written)
		})
	}
}

func TestValidationRejectsBeforeCheck(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svc.ProposeCreate(ctx, input(1, model.TimeRange{Start: at(0, 10, 0), End: at(0, 9, 0)}))
	assert.Nil(t, a)
	var rangeErr *model.InvalidRangeError
	assert.ErrorAs(t, err, &rangeErr)
	assert.True(t, model.IsValidation(err))

	_, err = f.svc.ProposeCreate(ctx, LessonInput{Title: " ", TimeRange: rng(0, 9, 10), TeacherID: 1, ClassID: 1})
	assert.True(t, model.IsValidation(err))

	assert.Zero(t, f.store.Queries)
	assert.Zero(t, f.store.Len())
	assert.Equal(t, []model.AttemptState{model.AttemptRejected, model.AttemptRejected}, f.audit.States())
}

func TestProposeMoveErrors(t *testing.T) {
	cancelled := existing(idL1, 1, nil, rng(0, 10, 11))
	cancelled.Status = model.LessonStatusCancelled
	f := newFixture(cancelled)
	ctx := context.Background()

	_, err := f.svc.ProposeMove(ctx, uuid.New(), rng(0, 14, 15))
	assert.True(t, model.IsNotFound(err))

	_, err = f.svc.ProposeMove(ctx, cancelled.ID, rng(0, 14, 15))
	assert.ErrorIs(t, err, model.ErrLessonCancelled)

	_, err = f.svc.ProposeCancel(ctx, cancelled.ID)
	assert.ErrorIs(t, err, model.ErrLessonCancelled)
}

func TestProposeMoveLocked(t *testing.T) {
	l1 := existing(idL1, 1, nil, rng(0, 10, 11))
	f := newFixture(l1)
	ctx := context.Background()

	ok, err := f.locker.Lock(ctx, "teacher:1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, err = f.svc.ProposeMove(ctx, l1.ID, rng(0, 14, 15))
	assert.ErrorIs(t, err, lock.ErrLocked)
	assert.True(t, IsLocked(err))

	stored, _ := f.store.Lesson(l1.ID)
	assert.Equal(t, rng(0, 10, 11), stored.TimeRange)
}

func TestCommitFailureLeavesNothingWritten(t *testing.T) {
	f := newFixture()
	dbErr := errors.New("connection refused")
	f.store.FailCommit = dbErr

	_, err := f.svc.ProposeCreate(context.Background(), input(1, rng(0, 9, 10)))
	assert.ErrorIs(t, err, dbErr)
	assert.Zero(t, f.store.Len())
}

func TestProposeCancel(t *testing.T) {
	l1 := existing(idL1, 1, nil, rng(0, 10, 11))
	f := newFixture(l1)
	ctx := context.Background()

	a, err := f.svc.ProposeCancel(ctx, l1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, a.State)

	stored, _ := f.store.Lesson(l1.ID)
	assert.Equal(t, model.LessonStatusCancelled, stored.Status)

	// отменённый урок больше не конфликтует
	conflicts, err := f.svc.CheckConflicts(ctx, model.ConflictQuery{ProposedRange: rng(0, 10, 11), TeacherID: 1})
	require.NoError(t, err)
	assert.Empty(t, conflicts)
}

func weeklyRule(t *testing.T, count int) model.RecurrenceRule {
	t.Helper()
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday, time.Wednesday}, model.EndAfter(count))
	require.NoError(t, err)
	return rule
}

func TestSeriesLifecycle(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	a, err := f.svc.ProposeCreateSeries(ctx, input(1, rng(0, 10, 11)), weeklyRule(t, 4))
	require.NoError(t, err)
	require.Equal(t, model.AttemptCommitted, a.State)
	require.Len(t, a.Changes, 4)
	assert.Empty(t, a.Warnings)
	assert.Equal(t, 4, f.store.Len())

	groupID := a.Changes[0].Lesson.ID
	for _, c := range a.Changes {
		require.NotNil(t, c.Lesson.RecurrenceGroupID)
		assert.Equal(t, groupID, *c.Lesson.RecurrenceGroupID)
	}

	moved, err := f.svc.ProposeMoveSeries(ctx, groupID, time.Hour, at(7, 0, 0))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptCommitted, moved.State)
	require.Len(t, moved.Changes, 2)

	view, err := f.svc.Calendar(ctx, schedule.CalendarWindow{Mode: schedule.ViewWeek, Anchor: at(9, 12, 0), WeekStart: time.Monday}, model.LessonFilter{})
	require.NoError(t, err)
	require.Len(t, view.Lessons, 2)
	assert.Equal(t, rng(7, 11, 12), view.Lessons[0].TimeRange)
	assert.Equal(t, rng(9, 11, 12), view.Lessons[1].TimeRange)

	cancelled, err := f.svc.ProposeCancelSeries(ctx, groupID, monday)
	require.NoError(t, err)
	assert.Len(t, cancelled.Changes, 4)

	view, err = f.svc.Calendar(ctx, schedule.CalendarWindow{Mode: schedule.ViewMonth, Anchor: monday}, model.LessonFilter{})
	require.NoError(t, err)
	assert.Empty(t, view.Lessons)

	_, err = f.svc.ProposeCancelSeries(ctx, groupID, monday)
	assert.True(t, model.IsNotFound(err))

	_, err = f.svc.ProposeMoveSeries(ctx, groupID, 0, monday)
	assert.True(t, model.IsValidation(err))
}

func TestSeriesConflictAndAbandon(t *testing.T) {
	wednesday := existing(idL3, 1, nil, model.TimeRange{Start: at(2, 10, 30), End: at(2, 11, 30)})
	f := newFixture(wednesday)
	ctx := context.Background()

	a, err := f.svc.ProposeCreateSeries(ctx, input(1, rng(0, 10, 11)), weeklyRule(t, 4))
	require.NoError(t, err)
	assert.Equal(t, model.AttemptAwaitingOverride, a.State)
	require.Len(t, a.Conflicts, 1)
	assert.Equal(t, wednesday.ID, a.Conflicts[0].ID)
	assert.Equal(t, 1, f.store.Len())

	abandoned, err := f.svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AttemptRejected, abandoned.State)

	_, err = f.svc.ConfirmOverride(ctx, a.ID)
	assert.ErrorIs(t, err, model.ErrAttemptClosed)
	assert.Equal(t, 1, f.store.Len())

	_, err = f.svc.GetAttempt(ctx, uuid.New())
	assert.True(t, model.IsNotFound(err))
}

func TestSeriesWarnings(t *testing.T) {
	f := newFixture()

	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Tuesday}, model.EndNever())
	require.NoError(t, err)

	exp, err := f.svc.PreviewSeries(input(1, rng(0, 10, 11)), rule)
	require.NoError(t, err)
	assert.True(t, exp.AnchorShifted)
	assert.True(t, exp.Capped)
	assert.Equal(t, at(1, 10, 0), exp.Lessons[0].TimeRange.Start)

	a, err := f.svc.ProposeCreateSeries(context.Background(), input(1, rng(0, 10, 11)), rule)
	require.NoError(t, err)
	assert.Len(t, a.Warnings, 2)
	assert.Equal(t, len(a.Changes), f.store.Len())
}
