package state

// UserState - шаг диалога, в котором находится пользователь
type UserState string

const (
	StateNone UserState = "" // Нет активного диалога

	// Диалог переноса урока: /move без аргументов
	StateMoveLessonID UserState = "move_lesson_id"
	StateMoveNewTime  UserState = "move_new_time"
)

// Ключи временных данных диалога
const (
	KeyLessonID = "lesson_id"
)

// UserData - состояние и временные данные пользователя
type UserData struct {
	State UserState
	Data  map[string]string
}
