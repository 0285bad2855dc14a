package httpapi

import (
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/google/uuid"
)

type LessonRequest struct {
	Title       string                    `json:"title" validate:"required,max=200"`
	Description string                    `json:"description" validate:"max=2000"`
	Start       time.Time                 `json:"start" validate:"required"`
	End         time.Time                 `json:"end" validate:"required"`
	TeacherID   int64                     `json:"teacher_id" validate:"required,gt=0"`
	ClassID     int64                     `json:"class_id" validate:"required,gt=0"`
	Room        *string                   `json:"room,omitempty" validate:"omitempty,max=64"`
	Recurrence  *model.RecurrenceRuleJSON `json:"recurrence,omitempty"`
}

func (req LessonRequest) input() service.LessonInput {
	return service.LessonInput{
		Title:       req.Title,
		Description: req.Description,
		TimeRange:   model.TimeRange{Start: req.Start, End: req.End},
		TeacherID:   req.TeacherID,
		ClassID:     req.ClassID,
		Room:        req.Room,
	}
}

type MoveRequest struct {
	Start time.Time `json:"start" validate:"required"`
	End   time.Time `json:"end" validate:"required"`
}

type SeriesMoveRequest struct {
	ShiftMinutes int       `json:"shift_minutes" validate:"required"`
	From         time.Time `json:"from"`
}

type SeriesCancelRequest struct {
	From time.Time `json:"from"`
}

type ConflictCheckRequest struct {
	Start           time.Time  `json:"start" validate:"required"`
	End             time.Time  `json:"end" validate:"required"`
	TeacherID       int64      `json:"teacher_id" validate:"required,gt=0"`
	Room            *string    `json:"room,omitempty"`
	ExcludeLessonID *uuid.UUID `json:"exclude_lesson_id,omitempty"`
}

type AttemptResponse struct {
	Response
	Attempt *model.Attempt `json:"attempt"`
}

type LessonResponse struct {
	Response
	Lesson *model.Lesson `json:"lesson"`
}

type ConflictsResponse struct {
	Response
	Conflicts []model.Lesson `json:"conflicts"`
}

type PreviewResponse struct {
	Response
	Lessons       []model.Lesson `json:"lessons"`
	AnchorShifted bool           `json:"anchor_shifted"`
	Capped        bool           `json:"capped"`
}

type CalendarResponse struct {
	Response
	View       string         `json:"view"`
	Date       string         `json:"date"`
	Prev       string         `json:"prev"`
	Next       string         `json:"next"`
	RangeStart time.Time      `json:"range_start"`
	RangeEnd   time.Time      `json:"range_end"`
	Lessons    []model.Lesson `json:"lessons"`
}
