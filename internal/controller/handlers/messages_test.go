package handlers

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&model.InvalidRangeError{}, "❌ Некорректные данные"},
		{model.LessonNotFound(uuid.Nil), "❌ Не найдено"},
		{&model.ConcurrencyError{}, "⚠️ Пока вы подтверждали"},
		{&model.ConflictError{}, "⚠️ Есть пересечения"},
		{model.ErrAttemptClosed, "ℹ️ Этот запрос уже завершён"},
		{fmt.Errorf("move: %w", model.ErrLessonCancelled), "❌ Урок отменён"},
		{fmt.Errorf("commit move: %w", model.ErrLessonModified), "⚠️ Урок успели изменить"},
		{fmt.Errorf("lock teacher:1: %w", lock.ErrLocked), "⏳"},
		{errors.New("connection reset"), "❌ Произошла ошибка"},
	}

	for _, tt := range tests {
		assert.Contains(t, ErrorMessage(tt.err), tt.want)
	}
}
