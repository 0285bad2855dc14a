package formatting

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
)

// WindowTitle возвращает заголовок окна календаря
func WindowTitle(w schedule.CalendarWindow) string {
	rng := w.Range()
	switch w.Mode {
	case schedule.ViewDay:
		return fmt.Sprintf("%s %s", GetWeekdayShortName(rng.Start.Weekday()), FormatDate(rng.Start))
	case schedule.ViewMonth:
		return fmt.Sprintf("%s %d", GetMonthName(rng.Start.Month()), rng.Start.Year())
	default:
		last := rng.End.AddDate(0, 0, -1)
		return fmt.Sprintf("%s - %s", rng.Start.Format("02.01"), FormatDate(last))
	}
}

// FormatLesson форматирует урок одной строкой
func FormatLesson(l model.Lesson, loc *time.Location) string {
	start := l.TimeRange.Start.In(loc)
	end := l.TimeRange.End.In(loc)
	display := GetLessonStatusDisplay(l.Status)

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s %s", display.Emoji, FormatTimeRange(start, end), l.Title)
	if room := l.RoomName(); room != "" {
		fmt.Fprintf(&sb, " (ауд. %s)", room)
	}
	if l.RecurrenceGroupID != nil {
		sb.WriteString(" 🔁")
	}
	fmt.Fprintf(&sb, "\n    id: %s", l.ID)
	return sb.String()
}

// FormatCalendar форматирует уроки окна, сгруппированные по дням
func FormatCalendar(w schedule.CalendarWindow, lessons []model.Lesson, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🗓 %s\n", WindowTitle(w))

	if len(lessons) == 0 {
		sb.WriteString("\nУроков нет")
		return sb.String()
	}

	var day time.Time
	for _, l := range lessons {
		start := l.TimeRange.Start.In(loc)
		d := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		if !d.Equal(day) {
			day = d
			fmt.Fprintf(&sb, "\n📅 %s, %s\n", GetWeekdayShortName(d.Weekday()), FormatDate(d))
		}
		sb.WriteString(FormatLesson(l, loc))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatAttempt описывает результат попытки изменения
func FormatAttempt(a *model.Attempt, loc *time.Location) string {
	var sb strings.Builder

	switch a.State {
	case model.AttemptCommitted:
		sb.WriteString("✅ Изменения применены")
		if len(a.Conflicts) > 0 {
			fmt.Fprintf(&sb, " (пересечений: %d)", len(a.Conflicts))
		}
		if len(a.Changes) == 1 && a.Changes[0].Kind != model.ChangeCancel {
			fmt.Fprintf(&sb, "\n🕐 %s", FormatDateTime(a.Changes[0].Lesson.TimeRange.Start.In(loc)))
		}
	case model.AttemptAwaitingOverride:
		fmt.Fprintf(&sb, "⚠️ Найдены пересечения (%d):\n", len(a.Conflicts))
		for _, c := range a.Conflicts {
			sb.WriteString("\n")
			fmt.Fprintf(&sb, "%s, ", FormatDate(c.TimeRange.Start.In(loc)))
			sb.WriteString(FormatLesson(c, loc))
		}
		sb.WriteString("\n\nПрименить перенос всё равно?")
	case model.AttemptRejected:
		sb.WriteString("❌ Изменение отменено")
	default:
		fmt.Fprintf(&sb, "Состояние: %s", a.State)
	}

	for _, w := range a.Warnings {
		fmt.Fprintf(&sb, "\n⚠️ %s", w)
	}
	return sb.String()
}
