package schedule

import (
	"bytes"
	"sort"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

// FindConflicts возвращает активные уроки из candidates, которые пересекаются с
// предлагаемым интервалом и делят с ним учителя или аудиторию.
// Результат отсортирован по началу, затем по id. candidates не изменяется.
func FindConflicts(query model.ConflictQuery, candidates []model.Lesson) []model.Lesson {
	room := model.NormalizeRoom(query.Room)

	conflicts := make([]model.Lesson, 0)
	for _, lesson := range candidates {
		if !lesson.IsActive() {
			continue
		}
		if query.ExcludeLessonID != nil && lesson.ID == *query.ExcludeLessonID {
			continue
		}
		if !lesson.TimeRange.Overlaps(query.ProposedRange) {
			continue
		}

		sameTeacher := lesson.TeacherID == query.TeacherID
		lessonRoom := model.NormalizeRoom(lesson.Room)
		sameRoom := room != nil && lessonRoom != nil && *lessonRoom == *room
		if !sameTeacher && !sameRoom {
			continue
		}

		conflicts = append(conflicts, lesson)
	}

	SortLessons(conflicts)
	return conflicts
}

// SortLessons сортирует уроки по началу, при равенстве - по id
func SortLessons(lessons []model.Lesson) {
	sort.SliceStable(lessons, func(i, j int) bool {
		a, b := lessons[i], lessons[j]
		if !a.TimeRange.Start.Equal(b.TimeRange.Start) {
			return a.TimeRange.Start.Before(b.TimeRange.Start)
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

// MergeConflicts объединяет несколько списков конфликтов без дублей
func MergeConflicts(lists ...[]model.Lesson) []model.Lesson {
	seen := make(map[uuid.UUID]bool)
	merged := make([]model.Lesson, 0)
	for _, list := range lists {
		for _, l := range list {
			if seen[l.ID] {
				continue
			}
			seen[l.ID] = true
			merged = append(merged, l)
		}
	}
	SortLessons(merged)
	return merged
}
