package handlers

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// HandleDay обрабатывает команду /day [teacherID]
func (h *Handlers) HandleDay(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleCalendarCommand(ctx, b, update, schedule.ViewDay)
}

// HandleWeek обрабатывает команду /week [teacherID]
func (h *Handlers) HandleWeek(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleCalendarCommand(ctx, b, update, schedule.ViewWeek)
}

// HandleMonth обрабатывает команду /month [teacherID]
func (h *Handlers) HandleMonth(ctx context.Context, b *bot.Bot, update *models.Update) {
	h.handleCalendarCommand(ctx, b, update, schedule.ViewMonth)
}

func (h *Handlers) handleCalendarCommand(ctx context.Context, b *bot.Bot, update *models.Update, mode schedule.ViewMode) {
	if update.Message == nil {
		return
	}

	teacherID, err := parseTeacherArg(commandArgs(update.Message.Text))
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Формат: /" + string(mode) + " [id учителя]",
		})
		return
	}

	data := keyboard.CalendarData{Mode: mode, Date: h.now().In(h.loc), TeacherID: teacherID}
	h.ShowCalendar(ctx, b, update.Message.Chat.ID, 0, data)
}

// ShowCalendar отправляет окно календаря; при messageID != 0 редактирует существующее сообщение
func (h *Handlers) ShowCalendar(ctx context.Context, b *bot.Bot, chatID int64, messageID int, data keyboard.CalendarData) {
	window := schedule.CalendarWindow{Mode: data.Mode, Anchor: data.Date, WeekStart: h.weekStart}

	filter := model.LessonFilter{}
	if data.TeacherID != 0 {
		filter.TeacherID = &data.TeacherID
	}

	view, err := h.lessons.Calendar(ctx, window, filter)
	if err != nil {
		h.logger.Error("Failed to load calendar",
			zap.String("mode", string(data.Mode)),
			zap.Time("anchor", data.Date),
			zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: chatID,
			Text:   ErrorMessage(err),
		})
		return
	}

	text := formatting.FormatCalendar(window, view.Lessons, h.loc)
	markup := keyboard.CalendarNavigation(window, data.TeacherID, h.now())

	if messageID != 0 {
		b.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      chatID,
			MessageID:   messageID,
			Text:        text,
			ReplyMarkup: markup,
		})
		return
	}

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        text,
		ReplyMarkup: markup,
	})
}
