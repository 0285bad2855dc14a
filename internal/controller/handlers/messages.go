package handlers

import (
	"errors"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
)

// ErrorMessage переводит ошибку сервиса в сообщение для пользователя
func ErrorMessage(err error) string {
	var (
		conflictErr *model.ConflictError
		concErr     *model.ConcurrencyError
	)

	switch {
	case model.IsValidation(err):
		return "❌ Некорректные данные: " + err.Error()
	case model.IsNotFound(err):
		return "❌ Не найдено. Возможно, урок удалён или запрос устарел"
	case errors.As(err, &concErr):
		return "⚠️ Пока вы подтверждали, появились новые пересечения. Проверьте их и подтвердите ещё раз"
	case errors.As(err, &conflictErr):
		return "⚠️ Есть пересечения, требуется подтверждение"
	case errors.Is(err, model.ErrAttemptClosed):
		return "ℹ️ Этот запрос уже завершён"
	case errors.Is(err, model.ErrLessonCancelled):
		return "❌ Урок отменён и не может быть изменён"
	case errors.Is(err, model.ErrLessonModified):
		return "⚠️ Урок успели изменить. Повторите перенос"
	case service.IsLocked(err):
		return "⏳ Расписание сейчас изменяется, попробуйте через несколько секунд"
	default:
		return "❌ Произошла ошибка. Попробуйте позже"
	}
}

const helpText = "📚 Справка по командам:\n\n" +
	"/day [id учителя] - Уроки на день\n" +
	"/week [id учителя] - Уроки на неделю\n" +
	"/month [id учителя] - Уроки на месяц\n" +
	"/move <id урока> <ГГГГ-ММ-ДД ЧЧ:ММ> - Перенести урок\n" +
	"/move - Перенести урок по шагам\n" +
	"/cancel - Прервать текущий диалог\n" +
	"/help - Показать эту справку"
