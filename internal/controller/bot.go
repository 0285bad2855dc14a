package controller

import (
	"context"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/callbacks"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/handlers"
	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type BotController struct {
	bot             *bot.Bot
	handlers        *handlers.Handlers
	callbackHandler *callbacks.Handler
	logger          *zap.Logger
}

func NewBotController(
	botInstance *bot.Bot,
	lessonService *service.LessonService,
	loc *time.Location,
	weekStart time.Weekday,
	logger *zap.Logger,
) *BotController {
	// Менеджер состояний для пошаговых диалогов
	stateManager := state.NewManager()

	cmdHandlers := handlers.NewHandlers(
		lessonService,
		stateManager,
		loc,
		weekStart,
		logger,
	)

	callbackHandler := callbacks.NewHandler(
		lessonService,
		cmdHandlers.ShowCalendar,
		loc,
		logger,
	)

	return &BotController{
		bot:             botInstance,
		handlers:        cmdHandlers,
		callbackHandler: callbackHandler,
		logger:          logger,
	}
}

// RegisterHandlers регистрирует все обработчики команд
func (c *BotController) RegisterHandlers(ctx context.Context) error {
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, c.handlers.HandleStart)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/help", bot.MatchTypeExact, c.handlers.HandleHelp)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/cancel", bot.MatchTypeExact, c.handlers.HandleCancel)

	// Календарь: команды принимают необязательный id учителя
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/day", bot.MatchTypePrefix, c.handlers.HandleDay)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/week", bot.MatchTypePrefix, c.handlers.HandleWeek)
	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/month", bot.MatchTypePrefix, c.handlers.HandleMonth)

	c.bot.RegisterHandler(bot.HandlerTypeMessageText, "/move", bot.MatchTypePrefix, c.handlers.HandleMove)

	// Обработчик нажатий на inline кнопки
	c.bot.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, c.callbackHandler.HandleCallbackQuery)

	return c.setCommands(ctx)
}

// HandleDefault получает сообщения, не подошедшие ни одной команде (продолжение диалогов)
func (c *BotController) HandleDefault(ctx context.Context, b *bot.Bot, update *models.Update) {
	c.handlers.HandleTextMessage(ctx, b, update)
}

// setCommands устанавливает список команд в меню бота
func (c *BotController) setCommands(ctx context.Context) error {
	commands := []models.BotCommand{
		{Command: "day", Description: "📅 Уроки на день"},
		{Command: "week", Description: "🗓 Уроки на неделю"},
		{Command: "month", Description: "📆 Уроки на месяц"},
		{Command: "move", Description: "✏️ Перенести урок"},
		{Command: "cancel", Description: "❌ Прервать диалог"},
		{Command: "help", Description: "❓ Справка по командам"},
	}

	_, err := c.bot.SetMyCommands(ctx, &bot.SetMyCommandsParams{
		Commands: commands,
	})

	if err != nil {
		c.logger.Error("Failed to set bot commands", zap.Error(err))
		return err
	}

	c.logger.Info("✅ Bot commands menu set")
	return nil
}

// Start запускает бота
func (c *BotController) Start(ctx context.Context) error {
	c.logger.Info("Starting bot...")
	c.bot.Start(ctx)
	return nil
}
