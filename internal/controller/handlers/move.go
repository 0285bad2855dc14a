package handlers

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HandleMove обрабатывает команду /move <lessonID> <YYYY-MM-DD HH:MM>.
// Без аргументов запускает пошаговый диалог.
func (h *Handlers) HandleMove(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}

	args := commandArgs(update.Message.Text)
	if len(args) == 0 {
		h.stateManager.SetState(update.Message.From.ID, state.StateMoveLessonID)
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "✏️ Отправьте id урока, который нужно перенести\n\n/cancel - отменить",
		})
		return
	}

	lessonID, start, err := parseMoveArgs(args, h.loc)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Формат: /move <id урока> <ГГГГ-ММ-ДД ЧЧ:ММ>",
		})
		return
	}

	h.proposeMove(ctx, b, update.Message.Chat.ID, lessonID, start)
}

func (h *Handlers) handleMoveLessonID(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID

	lessonID, err := uuid.Parse(update.Message.Text)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Это не похоже на id урока. Попробуйте ещё раз или /cancel",
		})
		return
	}

	if _, err := h.lessons.GetLesson(ctx, lessonID); err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   ErrorMessage(err),
		})
		return
	}

	h.stateManager.SetData(telegramID, state.KeyLessonID, lessonID.String())
	h.stateManager.SetState(telegramID, state.StateMoveNewTime)

	b.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: update.Message.Chat.ID,
		Text:   "🕐 Отправьте новое время начала в формате ГГГГ-ММ-ДД ЧЧ:ММ",
	})
}

func (h *Handlers) handleMoveNewTime(ctx context.Context, b *bot.Bot, update *models.Update) {
	telegramID := update.Message.From.ID

	start, err := parseStart(update.Message.Text, h.loc)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Формат времени: ГГГГ-ММ-ДД ЧЧ:ММ. Попробуйте ещё раз или /cancel",
		})
		return
	}

	raw, _ := h.stateManager.GetData(telegramID, state.KeyLessonID)
	h.stateManager.ClearState(telegramID)

	lessonID, err := uuid.Parse(raw)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: update.Message.Chat.ID,
			Text:   "❌ Диалог устарел, начните заново: /move",
		})
		return
	}

	h.proposeMove(ctx, b, update.Message.Chat.ID, lessonID, start)
}

// proposeMove переносит урок на start, сохраняя длительность
func (h *Handlers) proposeMove(ctx context.Context, b *bot.Bot, chatID int64, lessonID uuid.UUID, start time.Time) {
	lesson, err := h.lessons.GetLesson(ctx, lessonID)
	if err != nil {
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: ErrorMessage(err)})
		return
	}

	newRange := model.TimeRange{Start: start, End: start.Add(lesson.TimeRange.Duration())}
	a, err := h.lessons.ProposeMove(ctx, lessonID, newRange)
	if err != nil {
		h.logger.Info("Move rejected",
			zap.String("lesson_id", lessonID.String()),
			zap.Error(err))
		b.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: ErrorMessage(err)})
		return
	}

	params := &bot.SendMessageParams{
		ChatID: chatID,
		Text:   formatting.FormatAttempt(a, h.loc),
	}
	if a.State == model.AttemptAwaitingOverride {
		params.ReplyMarkup = keyboard.OverrideKeyboard(a.ID)
	}

	b.SendMessage(ctx, params)
}
