package keyboard

import (
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
)

// CalendarNavigation строит клавиатуру календаря: назад / сегодня / вперёд и переключение режима
func CalendarNavigation(w schedule.CalendarWindow, teacherID int64, now time.Time) *models.InlineKeyboardMarkup {
	data := func(win schedule.CalendarWindow) string {
		return CalendarData{Mode: win.Mode, Date: win.Anchor, TeacherID: teacherID}.Encode()
	}
	withMode := func(mode schedule.ViewMode) string {
		return CalendarData{Mode: mode, Date: w.Anchor, TeacherID: teacherID}.Encode()
	}

	// окно уже содержит сегодняшний день - кнопка ничего не делает
	today := data(w.Today(now))
	if w.Range().Contains(now) {
		today = Noop
	}

	return NewBuilder().
		Row(
			Button("◀️", data(w.Prev())),
			Button("📍 Сегодня", today),
			Button("▶️", data(w.Next())),
		).
		Row(
			Button(modeLabel(w.Mode, schedule.ViewDay, "День"), withMode(schedule.ViewDay)),
			Button(modeLabel(w.Mode, schedule.ViewWeek, "Неделя"), withMode(schedule.ViewWeek)),
			Button(modeLabel(w.Mode, schedule.ViewMonth, "Месяц"), withMode(schedule.ViewMonth)),
		).
		Build()
}

// OverrideKeyboard предлагает подтвердить перенос несмотря на конфликты или отказаться
func OverrideKeyboard(attemptID uuid.UUID) *models.InlineKeyboardMarkup {
	return NewBuilder().
		Row(
			Button("✅ Всё равно применить", PrefixConfirm+attemptID.String()),
			Button("❌ Отменить", PrefixAbandon+attemptID.String()),
		).
		Build()
}

func modeLabel(current, mode schedule.ViewMode, label string) string {
	if current == mode {
		return "• " + label + " •"
	}
	return label
}
