package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type LessonStatus string

const (
	LessonStatusScheduled  LessonStatus = "scheduled"
	LessonStatusInProgress LessonStatus = "in_progress"
	LessonStatusCompleted  LessonStatus = "completed"
	LessonStatusCancelled  LessonStatus = "cancelled"
)

// Valid проверяет, что статус известен
func (s LessonStatus) Valid() bool {
	switch s {
	case LessonStatusScheduled, LessonStatusInProgress, LessonStatusCompleted, LessonStatusCancelled:
		return true
	}
	return false
}

// Lesson - одно занятие в расписании
type Lesson struct {
	ID                uuid.UUID       `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	TimeRange         TimeRange       `json:"time_range"`
	TeacherID         int64           `json:"teacher_id"`
	ClassID           int64           `json:"class_id"`
	Room              *string         `json:"room,omitempty"` // nil - конфликт по аудитории невозможен
	Status            LessonStatus    `json:"status"`
	RecurrenceGroupID *uuid.UUID      `json:"recurrence_group_id,omitempty"`
	IsRecurring       bool            `json:"is_recurring"` // только у якорного урока серии
	Recurrence        *RecurrenceRule `json:"recurrence,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsActive - урок участвует в проверке конфликтов (не отменён)
func (l *Lesson) IsActive() bool {
	return l.Status != LessonStatusCancelled
}

// InGroup проверяет принадлежность урока серии
func (l *Lesson) InGroup(groupID uuid.UUID) bool {
	return l.RecurrenceGroupID != nil && *l.RecurrenceGroupID == groupID
}

// RoomName возвращает аудиторию или пустую строку
func (l *Lesson) RoomName() string {
	if l.Room == nil {
		return ""
	}
	return *l.Room
}

// NormalizeRoom обрезает пробелы; пустая аудитория становится nil
func NormalizeRoom(room *string) *string {
	if room == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*room)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// LessonFilter сужает выборку уроков
type LessonFilter struct {
	ClassID          *int64
	TeacherID        *int64
	IncludeCancelled bool
}

// ConflictQuery - предлагаемый интервал для проверки на конфликты
type ConflictQuery struct {
	ProposedRange   TimeRange
	TeacherID       int64
	Room            *string
	ExcludeLessonID *uuid.UUID
}
