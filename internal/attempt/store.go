package attempt

import (
	"context"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
)

// Store хранит незавершённые попытки изменения между proposeX и confirmOverride.
// Get возвращает nil, nil если попытка не найдена или истекла.
type Store interface {
	Save(ctx context.Context, a *model.Attempt) error
	Get(ctx context.Context, id uuid.UUID) (*model.Attempt, error)
}
