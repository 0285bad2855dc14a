package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrAttemptClosed возвращается при попытке продолжить уже завершённую попытку изменения
var ErrAttemptClosed = errors.New("mutation attempt is already closed")

// ErrLessonCancelled - урок уже отменён и не может быть изменён
var ErrLessonCancelled = errors.New("lesson is cancelled")

// ErrLessonModified - урок изменили после того, как попытка была предложена
var ErrLessonModified = errors.New("lesson was modified after the change was proposed")

// ValidationError - входные данные операции некорректны
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// InvalidRangeError - начало интервала не раньше его конца
type InvalidRangeError struct {
	Start time.Time
	End   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid time range: start %s is not before end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// InvalidRecurrenceError - правило повторения не прошло валидацию
type InvalidRecurrenceError struct {
	Reason string
}

func (e *InvalidRecurrenceError) Error() string {
	return "invalid recurrence rule: " + e.Reason
}

// ConflictError несёт упорядоченный список конфликтующих уроков.
// Возвращается при коммите без подтверждения override.
type ConflictError struct {
	Conflicts []Lesson
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("lesson conflicts with %d existing lesson(s): %s", len(e.Conflicts), lessonIDs(e.Conflicts))
}

// ConcurrencyError - повторная проверка перед коммитом нашла конфликты,
// которых не было, когда запрашивался override
type ConcurrencyError struct {
	NewConflicts []Lesson
}

func (e *ConcurrencyError) Error() string {
	return fmt.Sprintf("new conflicts appeared before commit: %s", lessonIDs(e.NewConflicts))
}

// NotFoundError - объект с указанным id отсутствует
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// IsNotFound проверяет, является ли ошибка NotFoundError
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsValidation проверяет, исправима ли ошибка локально вызывающей стороной
func IsValidation(err error) bool {
	var rangeErr *InvalidRangeError
	var recErr *InvalidRecurrenceError
	var valErr *ValidationError
	return errors.As(err, &rangeErr) || errors.As(err, &recErr) || errors.As(err, &valErr)
}

func lessonIDs(lessons []Lesson) string {
	ids := make([]string, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID.String())
	}
	return strings.Join(ids, ", ")
}

// LessonNotFound создаёт NotFoundError для урока
func LessonNotFound(id uuid.UUID) *NotFoundError {
	return &NotFoundError{Kind: "lesson", ID: id.String()}
}
