package repository

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepository ведёт журнал попыток изменения расписания
type AttemptRepository struct {
	*base.Repository
}

func NewAttemptRepository(pool *pgxpool.Pool) *AttemptRepository {
	return &AttemptRepository{Repository: base.NewRepository(pool)}
}

// Record сохраняет текущее состояние попытки (upsert по id)
func (r *AttemptRepository) Record(ctx context.Context, a *model.Attempt) error {
	lessonIDs := make([]string, 0, len(a.Changes))
	for _, c := range a.Changes {
		lessonIDs = append(lessonIDs, c.Lesson.ID.String())
	}
	conflictIDs := make([]string, 0, len(a.Conflicts))
	for _, c := range a.Conflicts {
		conflictIDs = append(conflictIDs, c.ID.String())
	}
	warnings := a.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	query := `
		INSERT INTO lesson_mutation_attempts (id, operation, state, lesson_ids, conflict_ids, warnings, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET state = EXCLUDED.state,
			conflict_ids = EXCLUDED.conflict_ids,
			warnings = EXCLUDED.warnings,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.ExecAffected(ctx, query,
		a.ID,
		a.Operation,
		a.State,
		lessonIDs,
		conflictIDs,
		warnings,
		a.Reason,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("record mutation attempt: %w", err)
	}

	return nil
}
