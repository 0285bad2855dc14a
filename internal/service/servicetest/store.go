// Package servicetest содержит хранилище уроков в памяти для тестов сервиса и контроллеров.
package servicetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/google/uuid"
)

// LessonStore повторяет семантику repository.LessonRepository в памяти
type LessonStore struct {
	mu      sync.Mutex
	lessons map[uuid.UUID]model.Lesson

	// Queries - число вызовов QueryLessons
	Queries int
	// FailCommit, если задана, возвращается из WithTx до применения изменений
	FailCommit error
}

func NewLessonStore(lessons ...model.Lesson) *LessonStore {
	s := &LessonStore{lessons: make(map[uuid.UUID]model.Lesson)}
	for _, l := range lessons {
		s.lessons[l.ID] = l
	}
	return s
}

// Put добавляет урок напрямую, минуя протокол изменения
func (s *LessonStore) Put(l model.Lesson) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lessons[l.ID] = l
}

// Lesson возвращает урок по id
func (s *LessonStore) Lesson(id uuid.UUID) (model.Lesson, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	return l, ok
}

// Len возвращает число сохранённых уроков
func (s *LessonStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lessons)
}

func (s *LessonStore) QueryLessons(_ context.Context, rng model.TimeRange, filter model.LessonFilter) ([]model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Queries++

	out := make([]model.Lesson, 0)
	for _, l := range s.lessons {
		if !l.TimeRange.Overlaps(rng) {
			continue
		}
		if filter.TeacherID != nil && l.TeacherID != *filter.TeacherID {
			continue
		}
		if filter.ClassID != nil && l.ClassID != *filter.ClassID {
			continue
		}
		if !filter.IncludeCancelled && !l.IsActive() {
			continue
		}
		out = append(out, l)
	}
	schedule.SortLessons(out)
	return out, nil
}

func (s *LessonStore) GetByID(_ context.Context, id uuid.UUID) (*model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lessons[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (s *LessonStore) GetByGroupID(_ context.Context, groupID uuid.UUID) ([]model.Lesson, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Lesson, 0)
	for _, l := range s.lessons {
		if l.InGroup(groupID) {
			out = append(out, l)
		}
	}
	schedule.SortLessons(out)
	return out, nil
}

// WithTx применяет изменения к копии и подменяет состояние только при успехе
func (s *LessonStore) WithTx(ctx context.Context, fn func(w repository.LessonWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailCommit != nil {
		return s.FailCommit
	}

	draft := make(map[uuid.UUID]model.Lesson, len(s.lessons))
	for id, l := range s.lessons {
		draft[id] = l
	}
	if err := fn(&writer{lessons: draft}); err != nil {
		return err
	}
	s.lessons = draft
	return nil
}

type writer struct {
	lessons map[uuid.UUID]model.Lesson
}

func (w *writer) InsertLesson(_ context.Context, l *model.Lesson) error {
	now := time.Now()
	l.CreatedAt, l.UpdatedAt = now, now
	w.lessons[l.ID] = *l
	return nil
}

func (w *writer) UpdateLesson(_ context.Context, l *model.Lesson, seen time.Time) error {
	cur, err := w.current(l.ID, seen)
	if err != nil {
		return err
	}
	l.UpdatedAt = time.Now()
	cur.Title, cur.Description = l.Title, l.Description
	cur.TimeRange = l.TimeRange
	cur.TeacherID, cur.ClassID, cur.Room = l.TeacherID, l.ClassID, l.Room
	cur.UpdatedAt = l.UpdatedAt
	w.lessons[l.ID] = cur
	return nil
}

func (w *writer) UpdateLessonRange(_ context.Context, id uuid.UUID, rng model.TimeRange, seen time.Time) error {
	cur, err := w.current(id, seen)
	if err != nil {
		return err
	}
	cur.TimeRange = rng
	cur.UpdatedAt = time.Now()
	w.lessons[id] = cur
	return nil
}

func (w *writer) current(id uuid.UUID, seen time.Time) (model.Lesson, error) {
	cur, ok := w.lessons[id]
	switch {
	case !ok:
		return model.Lesson{}, model.LessonNotFound(id)
	case !cur.IsActive():
		return model.Lesson{}, fmt.Errorf("lesson %s: %w", id, model.ErrLessonCancelled)
	case !seen.IsZero() && !cur.UpdatedAt.Equal(seen):
		return model.Lesson{}, fmt.Errorf("lesson %s: %w", id, model.ErrLessonModified)
	}
	return cur, nil
}

func (w *writer) CancelLesson(_ context.Context, id uuid.UUID) error {
	cur, ok := w.lessons[id]
	if !ok {
		return model.LessonNotFound(id)
	}
	cur.Status = model.LessonStatusCancelled
	cur.UpdatedAt = time.Now()
	w.lessons[id] = cur
	return nil
}

// AttemptLog запоминает записанные попытки
type AttemptLog struct {
	mu      sync.Mutex
	Records []model.Attempt
}

func (l *AttemptLog) Record(_ context.Context, a *model.Attempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Records = append(l.Records, *a)
	return nil
}

// States возвращает состояния записанных попыток по порядку
func (l *AttemptLog) States() []model.AttemptState {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]model.AttemptState, 0, len(l.Records))
	for _, r := range l.Records {
		out = append(out, r.State)
	}
	return out
}
