package callbacks

import (
	"context"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/formatting"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/keyboard"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

// CalendarRenderer перерисовывает окно календаря в сообщении
type CalendarRenderer func(ctx context.Context, b *bot.Bot, chatID int64, messageID int, data keyboard.CalendarData)

// Handler маршрутизирует нажатия на inline кнопки
type Handler struct {
	lessons      *service.LessonService
	showCalendar CalendarRenderer
	loc          *time.Location
	logger       *zap.Logger
}

func NewHandler(
	lessons *service.LessonService,
	showCalendar CalendarRenderer,
	loc *time.Location,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		lessons:      lessons,
		showCalendar: showCalendar,
		loc:          loc,
		logger:       logger,
	}
}

// HandleCallbackQuery - единая точка входа для callback query
func (h *Handler) HandleCallbackQuery(ctx context.Context, b *bot.Bot, update *models.Update) {
	callback := update.CallbackQuery
	if callback == nil {
		return
	}

	data := callback.Data
	h.logger.Debug("Callback received",
		zap.Int64("telegram_id", callback.From.ID),
		zap.String("data", data))

	switch {
	case data == keyboard.Noop:
		AnswerCallback(ctx, b, callback.ID, "")
	case strings.HasPrefix(data, keyboard.PrefixCalendar):
		h.handleCalendar(ctx, b, callback)
	case strings.HasPrefix(data, keyboard.PrefixConfirm):
		h.handleOverride(ctx, b, callback, keyboard.PrefixConfirm)
	case strings.HasPrefix(data, keyboard.PrefixAbandon):
		h.handleOverride(ctx, b, callback, keyboard.PrefixAbandon)
	default:
		h.logger.Warn("Unknown callback", zap.String("data", data))
		AnswerCallback(ctx, b, callback.ID, "❌ Неизвестная команда")
	}
}

func (h *Handler) handleCalendar(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery) {
	msg := GetMessageFromCallback(callback)
	if msg == nil {
		AnswerCallback(ctx, b, callback.ID, "❌ Ошибка")
		return
	}

	data, err := keyboard.ParseCalendarData(callback.Data, h.loc)
	if err != nil {
		h.logger.Warn("Bad calendar callback", zap.String("data", callback.Data), zap.Error(err))
		AnswerCallback(ctx, b, callback.ID, "❌ Ошибка")
		return
	}

	h.showCalendar(ctx, b, msg.Chat.ID, msg.ID, data)
	AnswerCallback(ctx, b, callback.ID, "")
}

// handleOverride подтверждает или отменяет попытку, ждущую override
func (h *Handler) handleOverride(ctx context.Context, b *bot.Bot, callback *models.CallbackQuery, prefix string) {
	msg := GetMessageFromCallback(callback)
	if msg == nil {
		AnswerCallback(ctx, b, callback.ID, "❌ Ошибка")
		return
	}

	attemptID, err := keyboard.ParseAttemptID(callback.Data, prefix)
	if err != nil {
		AnswerCallback(ctx, b, callback.ID, "❌ Ошибка")
		return
	}

	var a *model.Attempt
	if prefix == keyboard.PrefixConfirm {
		a, err = h.lessons.ConfirmOverride(ctx, attemptID)
	} else {
		a, err = h.lessons.Cancel(ctx, attemptID)
	}

	if err != nil && a == nil {
		h.logger.Info("Override action failed",
			zap.String("attempt_id", attemptID.String()),
			zap.Error(err))
		AnswerCallbackAlert(ctx, b, callback.ID, handlers.ErrorMessage(err))
		return
	}

	text := formatting.FormatAttempt(a, h.loc)
	markup := keyboard.Empty()
	if a.State == model.AttemptAwaitingOverride {
		// появились новые пересечения: показываем обновлённый список и те же кнопки
		markup = keyboard.OverrideKeyboard(a.ID)
	}

	b.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:      msg.Chat.ID,
		MessageID:   msg.ID,
		Text:        text,
		ReplyMarkup: markup,
	})

	if err != nil {
		AnswerCallbackAlert(ctx, b, callback.ID, handlers.ErrorMessage(err))
		return
	}
	AnswerCallback(ctx, b, callback.ID, "")
}
