package formatting

import "github.com/Freeeeeet/lesson_scheduler/internal/model"

// LessonStatusDisplay представляет отображение статуса урока
type LessonStatusDisplay struct {
	Emoji string
	Text  string
}

// GetLessonStatusDisplay возвращает emoji и текст для статуса урока
func GetLessonStatusDisplay(status model.LessonStatus) LessonStatusDisplay {
	displays := map[model.LessonStatus]LessonStatusDisplay{
		model.LessonStatusScheduled:  {"🟢", "Запланирован"},
		model.LessonStatusInProgress: {"🔵", "Идёт"},
		model.LessonStatusCompleted:  {"⚪", "Проведён"},
		model.LessonStatusCancelled:  {"❌", "Отменён"},
	}

	if display, ok := displays[status]; ok {
		return display
	}
	return LessonStatusDisplay{"❓", string(status)}
}
