package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
)

type ViewMode string

const (
	ViewDay   ViewMode = "day"
	ViewWeek  ViewMode = "week"
	ViewMonth ViewMode = "month"
)

// ParseViewMode разбирает режим календаря, пустая строка - неделя
func ParseViewMode(s string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(s))) {
	case ViewDay:
		return ViewDay, nil
	case ViewWeek, "":
		return ViewWeek, nil
	case ViewMonth:
		return ViewMonth, nil
	default:
		return "", fmt.Errorf("unknown view mode %q", s)
	}
}

// ParseWeekday разбирает английское название дня недели, пустая строка - понедельник
func ParseWeekday(s string) (time.Weekday, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sunday", "sun":
		return time.Sunday, nil
	case "monday", "mon", "":
		return time.Monday, nil
	case "tuesday", "tue":
		return time.Tuesday, nil
	case "wednesday", "wed":
		return time.Wednesday, nil
	case "thursday", "thu":
		return time.Thursday, nil
	case "friday", "fri":
		return time.Friday, nil
	case "saturday", "sat":
		return time.Saturday, nil
	default:
		return time.Monday, fmt.Errorf("unknown weekday %q", s)
	}
}

// CalendarWindow - режим просмотра и опорная дата. Диапазон всегда вычисляется.
type CalendarWindow struct {
	Mode      ViewMode
	Anchor    time.Time
	WeekStart time.Weekday
}

// NewWindow создаёт окно календаря
func NewWindow(mode ViewMode, anchor time.Time, weekStart time.Weekday) (CalendarWindow, error) {
	parsed, err := ParseViewMode(string(mode))
	if err != nil {
		return CalendarWindow{}, err
	}
	return CalendarWindow{Mode: parsed, Anchor: anchor, WeekStart: weekStart}, nil
}

// Range возвращает полуоткрытый диапазон окна
func (w CalendarWindow) Range() model.TimeRange {
	switch w.Mode {
	case ViewMonth:
		return monthRange(w.Anchor)
	case ViewDay:
		return dayRange(w.Anchor)
	default:
		return weekRange(w.Anchor, w.WeekStart)
	}
}

// Prev сдвигает окно на один период назад
func (w CalendarWindow) Prev() CalendarWindow {
	return w.step(-1)
}

// Next сдвигает окно на один период вперёд
func (w CalendarWindow) Next() CalendarWindow {
	return w.step(1)
}

// Today возвращает окно того же режима, содержащее now
func (w CalendarWindow) Today(now time.Time) CalendarWindow {
	w.Anchor = now.In(w.Anchor.Location())
	return w
}

func (w CalendarWindow) step(n int) CalendarWindow {
	switch w.Mode {
	case ViewMonth:
		w.Anchor = addMonthsClamped(w.Anchor, n)
	case ViewDay:
		w.Anchor = w.Anchor.AddDate(0, 0, n)
	default:
		w.Anchor = w.Anchor.AddDate(0, 0, 7*n)
	}
	return w
}

// Resolve переводит режим и опорную дату в диапазон [rangeStart, rangeEnd)
func Resolve(mode ViewMode, anchor time.Time, weekStart time.Weekday) (model.TimeRange, error) {
	w, err := NewWindow(mode, anchor, weekStart)
	if err != nil {
		return model.TimeRange{}, err
	}
	return w.Range(), nil
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func dayRange(anchor time.Time) model.TimeRange {
	start := midnight(anchor)
	return model.TimeRange{Start: start, End: start.AddDate(0, 0, 1)}
}

func weekRange(anchor time.Time, weekStart time.Weekday) model.TimeRange {
	offset := (int(anchor.Weekday()) - int(weekStart) + 7) % 7
	start := midnight(anchor).AddDate(0, 0, -offset)
	return model.TimeRange{Start: start, End: start.AddDate(0, 0, 7)}
}

func monthRange(anchor time.Time) model.TimeRange {
	start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	return model.TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// addMonthsClamped сдвигает дату на n месяцев, прижимая день к концу месяца (31.01 -> 29.02)
func addMonthsClamped(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month()+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	lastDay := time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
