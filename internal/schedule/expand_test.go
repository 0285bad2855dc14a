package schedule

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func anchorLesson(t *testing.T, start time.Time, d time.Duration) model.Lesson {
	t.Helper()
	tr, err := model.NewTimeRange(start, start.Add(d))
	require.NoError(t, err)
	room := "A1"
	return model.Lesson{
		ID:        uuid.MustParse("6f1c2a9e-0d55-4c5a-9a47-1d2f0e5b8c01"),
		Title:     "Math",
		TimeRange: tr,
		TeacherID: 1,
		ClassID:   7,
		Room:      &room,
		Status:    model.LessonStatusScheduled,
	}
}

func starts(lessons []model.Lesson) []time.Time {
	out := make([]time.Time, 0, len(lessons))
	for _, l := range lessons {
		out = append(out, l.TimeRange.Start)
	}
	return out
}

func TestExpandWeeklyMonWedFri(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), 90*time.Minute)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday, time.Wednesday, time.Friday}, model.EndAfter(6))
	require.NoError(t, err)

	lessons, err := Expand(anchor, rule)
	require.NoError(t, err)

	want := []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 12, 9, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, want, starts(lessons))

	for i, l := range lessons {
		assert.Equal(t, 90*time.Minute, l.TimeRange.Duration())
		require.NotNil(t, l.RecurrenceGroupID)
		assert.Equal(t, anchor.ID, *l.RecurrenceGroupID)
		assert.Equal(t, i == 0, l.IsRecurring)
		assert.Equal(t, i == 0, l.Recurrence != nil)
		assert.Equal(t, "A1", l.RoomName())
	}
	assert.Equal(t, anchor.ID, lessons[0].ID)
}

func TestExpandWeeklyInterval(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	rule, err := model.NewWeeklyRule(2, []time.Weekday{time.Monday}, model.EndAfter(3))
	require.NoError(t, err)

	lessons, err := Expand(anchor, rule)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 29, 9, 0, 0, 0, time.UTC),
	}, starts(lessons))
}

func TestExpandWeeklyEndDateInclusive(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday}, model.EndOn(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	exp, err := ExpandWithReport(anchor, rule)
	require.NoError(t, err)
	assert.Len(t, exp.Lessons, 3)
	assert.False(t, exp.Capped)
	assert.False(t, exp.AnchorShifted)
}

func TestExpandAnchorNotInWeekdays(t *testing.T) {
	// 2 января 2024 - вторник
	anchor := anchorLesson(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC), time.Hour)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday, time.Wednesday}, model.EndAfter(3))
	require.NoError(t, err)

	exp, err := ExpandWithReport(anchor, rule)
	require.NoError(t, err)
	assert.True(t, exp.AnchorShifted)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC),
	}, starts(exp.Lessons))
	assert.Equal(t, anchor.ID, exp.Lessons[0].ID)
	assert.True(t, exp.Lessons[0].IsRecurring)
}

func TestExpandMonthlyClampsToLastDay(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC), 45*time.Minute)
	rule, err := model.NewMonthlyRule(1, model.EndAfter(4))
	require.NoError(t, err)

	lessons, err := Expand(anchor, rule)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 31, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 30, 10, 0, 0, 0, time.UTC),
	}, starts(lessons))
}

func TestExpandMonthlyInterval(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), time.Hour)
	rule, err := model.NewMonthlyRule(3, model.EndOn(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	lessons, err := Expand(anchor, rule)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 4, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC),
		time.Date(2024, 10, 15, 10, 0, 0, 0, time.UTC),
	}, starts(lessons))
}

func TestExpandNeverIsBounded(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	everyDay := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}

	tests := []struct {
		name     string
		weekdays []time.Weekday
	}{
		{name: "every day hits instance cap", weekdays: everyDay},
		{name: "once a week hits horizon", weekdays: []time.Weekday{time.Monday}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, err := model.NewWeeklyRule(1, tt.weekdays, model.EndNever())
			require.NoError(t, err)

			exp, err := ExpandWithReport(anchor, rule)
			require.NoError(t, err)
			assert.True(t, exp.Capped)
			assert.LessOrEqual(t, len(exp.Lessons), MaxInstances)

			last := exp.Lessons[len(exp.Lessons)-1].TimeRange.Start
			assert.True(t, last.Before(anchor.TimeRange.Start.AddDate(MaxHorizonYears, 0, 0)))
		})
	}
}

func TestExpandCountAboveCap(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	everyDay := []time.Weekday{time.Sunday, time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday}
	rule, err := model.NewWeeklyRule(1, everyDay, model.EndAfter(1000))
	require.NoError(t, err)

	exp, err := ExpandWithReport(anchor, rule)
	require.NoError(t, err)
	assert.Len(t, exp.Lessons, MaxInstances)
	assert.True(t, exp.Capped)
}

func TestExpandIsDeterministic(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), time.Hour)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday, time.Thursday}, model.EndAfter(10))
	require.NoError(t, err)

	first, err := Expand(anchor, rule)
	require.NoError(t, err)
	second, err := Expand(anchor, rule)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExpandWithoutAnchorID(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), time.Hour)
	anchor.ID = uuid.Nil
	rule, err := model.NewMonthlyRule(1, model.EndAfter(2))
	require.NoError(t, err)

	first, err := Expand(anchor, rule)
	require.NoError(t, err)
	second, err := Expand(anchor, rule)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestExpandKeepsExistingGroup(t *testing.T) {
	anchor := anchorLesson(t, time.Date(2024, 3, 4, 14, 0, 0, 0, time.UTC), time.Hour)
	group := uuid.MustParse("0b7e7f0a-1b7a-4c55-8f0e-3d9d62f2aa10")
	anchor.RecurrenceGroupID = &group
	rule, err := model.NewMonthlyRule(1, model.EndAfter(2))
	require.NoError(t, err)

	lessons, err := Expand(anchor, rule)
	require.NoError(t, err)
	for _, l := range lessons {
		assert.Equal(t, group, *l.RecurrenceGroupID)
	}
	assert.Equal(t, InstanceID(group, lessons[1].TimeRange.Start), lessons[1].ID)
}

func TestExpandValidation(t *testing.T) {
	valid := anchorLesson(t, time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC), time.Hour)
	okRule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday}, model.EndAfter(2))
	require.NoError(t, err)

	t.Run("zero rule", func(t *testing.T) {
		_, err := Expand(valid, model.RecurrenceRule{})
		var recErr *model.InvalidRecurrenceError
		assert.ErrorAs(t, err, &recErr)
	})

	t.Run("inverted anchor range", func(t *testing.T) {
		bad := valid
		bad.TimeRange = model.TimeRange{Start: valid.TimeRange.End, End: valid.TimeRange.Start}
		_, err := Expand(bad, okRule)
		var rangeErr *model.InvalidRangeError
		assert.ErrorAs(t, err, &rangeErr)
	})

	t.Run("end date before anchor", func(t *testing.T) {
		rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday}, model.EndOn(time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC)))
		require.NoError(t, err)
		_, err = Expand(valid, rule)
		var recErr *model.InvalidRecurrenceError
		assert.ErrorAs(t, err, &recErr)
	})
}

func TestExpandKeepsSubSecondAnchor(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 500, time.UTC)
	anchor := anchorLesson(t, start, time.Hour)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday}, model.EndAfter(2))
	require.NoError(t, err)

	exp, err := ExpandWithReport(anchor, rule)
	require.NoError(t, err)

	require.Len(t, exp.Lessons, 2)
	assert.False(t, exp.AnchorShifted)
	assert.True(t, exp.Lessons[0].TimeRange.Start.Equal(start))
	assert.Equal(t, anchor.ID, exp.Lessons[0].ID)
	assert.True(t, exp.Lessons[1].TimeRange.Start.Equal(start.AddDate(0, 0, 7)))
	assert.Equal(t, time.Hour, exp.Lessons[1].TimeRange.Duration())
}

func TestExpandKeepsLocalTimeAcrossDST(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// переход на летнее время 31.03.2024
	anchor := anchorLesson(t, time.Date(2024, 3, 25, 9, 0, 0, 0, berlin), 45*time.Minute)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday}, model.EndAfter(2))
	require.NoError(t, err)

	lessons, err := Expand(anchor, rule)
	require.NoError(t, err)
	require.Len(t, lessons, 2)

	second := lessons[1].TimeRange.Start.In(berlin)
	assert.True(t, second.Equal(time.Date(2024, 4, 1, 9, 0, 0, 0, berlin)))
	assert.Equal(t, 9, second.Hour())
	_, offset := second.Zone()
	assert.Equal(t, 2*60*60, offset)
	assert.Equal(t, 45*time.Minute, lessons[1].TimeRange.Duration())
}
