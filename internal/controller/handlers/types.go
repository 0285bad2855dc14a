package handlers

import (
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/controller/state"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все зависимости для обработки команд
type Handlers struct {
	lessons      *service.LessonService
	stateManager *state.Manager
	loc          *time.Location
	weekStart    time.Weekday
	logger       *zap.Logger
	now          func() time.Time
}

// NewHandlers создаёт новый обработчик команд
func NewHandlers(
	lessons *service.LessonService,
	stateManager *state.Manager,
	loc *time.Location,
	weekStart time.Weekday,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		lessons:      lessons,
		stateManager: stateManager,
		loc:          loc,
		weekStart:    weekStart,
		logger:       logger,
		now:          time.Now,
	}
}
