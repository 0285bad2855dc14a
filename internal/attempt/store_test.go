package attempt

import (
	"context"
	"testing"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleAttempt(t *testing.T) *model.Attempt {
	t.Helper()
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule, err := model.NewWeeklyRule(1, []time.Weekday{time.Monday}, model.EndAfter(4))
	require.NoError(t, err)
	room := "A1"
	group := uuid.New()

	lesson := model.Lesson{
		ID:                uuid.New(),
		Title:             "Physics",
		TimeRange:         model.TimeRange{Start: start, End: start.Add(time.Hour)},
		TeacherID:         3,
		ClassID:           9,
		Room:              &room,
		Status:            model.LessonStatusScheduled,
		RecurrenceGroupID: &group,
		IsRecurring:       true,
		Recurrence:        &rule,
	}
	return &model.Attempt{
		ID:        uuid.New(),
		Operation: model.OperationCreateSeries,
		State:     model.AttemptAwaitingOverride,
		Changes:   []model.Change{{Kind: model.ChangeInsert, Lesson: lesson}},
		Conflicts: []model.Lesson{},
		CreatedAt: start,
		UpdatedAt: start,
	}
}

func TestStores(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	stores := map[string]Store{
		"memory": NewMemoryStore(time.Hour),
		"redis":  NewRedisStore(client, time.Hour),
	}
	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a := sampleAttempt(t)

			missing, err := store.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Nil(t, missing)

			require.NoError(t, store.Save(ctx, a))

			got, err := store.Get(ctx, a.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, a.State, got.State)
			require.Len(t, got.Changes, 1)
			assert.Equal(t, a.Changes[0].Lesson.ID, got.Changes[0].Lesson.ID)
			assert.Equal(t, "A1", got.Changes[0].Lesson.RoomName())
			require.NotNil(t, got.Changes[0].Lesson.Recurrence)
			assert.Equal(t, model.FrequencyWeekly, got.Changes[0].Lesson.Recurrence.Frequency())
			assert.Equal(t, 4, got.Changes[0].Lesson.Recurrence.End().Count())
		})
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	a := sampleAttempt(t)
	require.NoError(t, store.Save(context.Background(), a))

	now = now.Add(2 * time.Minute)
	got, err := store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisStoreExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	store := NewRedisStore(client, time.Minute)

	a := sampleAttempt(t)
	require.NoError(t, store.Save(context.Background(), a))
	mr.FastForward(2 * time.Minute)

	got, err := store.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
