package model

import (
	"time"

	"github.com/google/uuid"
)

// AttemptState - состояние попытки изменения расписания
type AttemptState string

const (
	AttemptProposed         AttemptState = "proposed"
	AttemptChecked          AttemptState = "checked"
	AttemptCommitted        AttemptState = "committed"
	AttemptRejected         AttemptState = "rejected"
	AttemptAwaitingOverride AttemptState = "awaiting_override"
)

type Operation string

const (
	OperationCreate       Operation = "create"
	OperationCreateSeries Operation = "create_series"
	OperationUpdate       Operation = "update"
	OperationMove         Operation = "move"
	OperationCancel       Operation = "cancel"
	OperationMoveSeries   Operation = "move_series"
	OperationCancelSeries Operation = "cancel_series"
)

type ChangeKind string

const (
	ChangeInsert ChangeKind = "insert"
	ChangeUpdate ChangeKind = "update"
	ChangeMove   ChangeKind = "move"
	ChangeCancel ChangeKind = "cancel"
)

// Change - одно изменение урока внутри попытки
type Change struct {
	Kind     ChangeKind `json:"kind"`
	Lesson   Lesson     `json:"lesson"`             // состояние урока после коммита
	Previous *Lesson    `json:"previous,omitempty"` // состояние до изменения, для update/move/cancel
}

// NeedsCheck - может ли изменение создать конфликт (отмена не может)
func (c Change) NeedsCheck() bool {
	return c.Kind != ChangeCancel
}

// SeenAt - updated_at урока на момент предложения изменения
func (c Change) SeenAt() time.Time {
	if c.Previous == nil {
		return time.Time{}
	}
	return c.Previous.UpdatedAt
}

// Attempt - один проход протокола проверка -> коммит
type Attempt struct {
	ID        uuid.UUID    `json:"id"`
	Operation Operation    `json:"operation"`
	State     AttemptState `json:"state"`
	Changes   []Change     `json:"changes"`
	Conflicts []Lesson     `json:"conflicts"`
	Warnings  []string     `json:"warnings,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// LessonIDs возвращает id всех уроков, которые меняет попытка
func (a *Attempt) LessonIDs() map[uuid.UUID]bool {
	ids := make(map[uuid.UUID]bool, len(a.Changes))
	for _, c := range a.Changes {
		ids[c.Lesson.ID] = true
	}
	return ids
}
