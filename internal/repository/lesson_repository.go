package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository/base"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const lessonColumns = `id, title, description, start_time, end_time, teacher_id, class_id, room,
	status, recurrence_group_id, is_recurring, recurrence_rule, created_at, updated_at`

// LessonWriter - операции записи, доступные только на шаге коммита
type LessonWriter interface {
	InsertLesson(ctx context.Context, lesson *model.Lesson) error
	// seen - updated_at урока на момент предложения; нулевое значение отключает проверку
	UpdateLesson(ctx context.Context, lesson *model.Lesson, seen time.Time) error
	UpdateLessonRange(ctx context.Context, id uuid.UUID, rng model.TimeRange, seen time.Time) error
	CancelLesson(ctx context.Context, id uuid.UUID) error
}

// LessonRepository управляет уроками в базе данных
type LessonRepository struct {
	*base.Repository
}

// NewLessonRepository создаёт новый репозиторий
func NewLessonRepository(pool *pgxpool.Pool) *LessonRepository {
	return &LessonRepository{Repository: base.NewRepository(pool)}
}

// QueryLessons возвращает уроки, пересекающиеся с диапазоном [rng.Start, rng.End)
func (r *LessonRepository) QueryLessons(ctx context.Context, rng model.TimeRange, filter model.LessonFilter) ([]model.Lesson, error) {
	conds := []string{"start_time < $2", "end_time > $1"}
	args := []any{rng.Start, rng.End}

	if filter.TeacherID != nil {
		args = append(args, *filter.TeacherID)
		conds = append(conds, fmt.Sprintf("teacher_id = $%d", len(args)))
	}
	if filter.ClassID != nil {
		args = append(args, *filter.ClassID)
		conds = append(conds, fmt.Sprintf("class_id = $%d", len(args)))
	}
	if !filter.IncludeCancelled {
		conds = append(conds, "status <> 'cancelled'")
	}

	query := `SELECT ` + lessonColumns + `
		FROM lessons
		WHERE ` + strings.Join(conds, " AND ") + `
		ORDER BY start_time, id`

	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query lessons: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows)
}

// GetByID получает урок по ID
func (r *LessonRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	query := `SELECT ` + lessonColumns + ` FROM lessons WHERE id = $1`

	lesson, err := scanLesson(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lesson by id: %w", err)
	}

	return lesson, nil
}

// GetByGroupID получает все уроки серии в порядке начала
func (r *LessonRepository) GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]model.Lesson, error) {
	query := `SELECT ` + lessonColumns + `
		FROM lessons
		WHERE recurrence_group_id = $1
		ORDER BY start_time, id`

	rows, err := r.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("get lessons by group_id: %w", err)
	}
	defer rows.Close()

	return collectLessons(rows)
}

// WithTx выполняет fn в одной транзакции: либо применяются все изменения, либо ни одно
func (r *LessonRepository) WithTx(ctx context.Context, fn func(w LessonWriter) error) error {
	return r.InTx(ctx, func(tx pgx.Tx) error {
		return fn(&lessonTx{tx: tx})
	})
}

// AdvanceStatuses переводит уроки в in_progress / completed по текущему времени.
// Отменённые уроки не трогаются.
func (r *LessonRepository) AdvanceStatuses(ctx context.Context, now time.Time) (started, completed int64, err error) {
	completed, err = r.ExecAffected(ctx, `
		UPDATE lessons
		SET status = 'completed'
		WHERE status IN ('scheduled', 'in_progress') AND end_time <= $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("complete lessons: %w", err)
	}

	started, err = r.ExecAffected(ctx, `
		UPDATE lessons
		SET status = 'in_progress'
		WHERE status = 'scheduled' AND start_time <= $1 AND end_time > $1
	`, now)
	if err != nil {
		return 0, 0, fmt.Errorf("start lessons: %w", err)
	}

	return started, completed, nil
}

type lessonTx struct {
	tx pgx.Tx
}

// InsertLesson создаёт новый урок
func (t *lessonTx) InsertLesson(ctx context.Context, lesson *model.Lesson) error {
	rule, err := encodeRule(lesson.Recurrence)
	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}

	query := `
		INSERT INTO lessons (id, title, description, start_time, end_time, teacher_id, class_id, room,
			status, recurrence_group_id, is_recurring, recurrence_rule)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`

	err = t.tx.QueryRow(
		ctx, query,
		lesson.ID,
		lesson.Title,
		lesson.Description,
		lesson.TimeRange.Start,
		lesson.TimeRange.End,
		lesson.TeacherID,
		lesson.ClassID,
		lesson.Room,
		lesson.Status,
		lesson.RecurrenceGroupID,
		lesson.IsRecurring,
		rule,
	).Scan(&lesson.CreatedAt, &lesson.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert lesson: %w", err)
	}

	return nil
}

// UpdateLesson обновляет редактируемые поля урока
func (t *lessonTx) UpdateLesson(ctx context.Context, lesson *model.Lesson, seen time.Time) error {
	query := `
		UPDATE lessons
		SET title = $2, description = $3, start_time = $4, end_time = $5,
			teacher_id = $6, class_id = $7, room = $8, updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
			AND ($9::timestamptz IS NULL OR updated_at = $9)
		RETURNING updated_at
	`

	err := t.tx.QueryRow(
		ctx, query,
		lesson.ID,
		lesson.Title,
		lesson.Description,
		lesson.TimeRange.Start,
		lesson.TimeRange.End,
		lesson.TeacherID,
		lesson.ClassID,
		lesson.Room,
		seenParam(seen),
	).Scan(&lesson.UpdatedAt)

	if err != nil {
		if base.IsNotFound(err) {
			return t.staleError(ctx, lesson.ID)
		}
		return fmt.Errorf("update lesson: %w", err)
	}

	return nil
}

// UpdateLessonRange переносит урок на новое время
func (t *lessonTx) UpdateLessonRange(ctx context.Context, id uuid.UUID, rng model.TimeRange, seen time.Time) error {
	query := `
		UPDATE lessons
		SET start_time = $2, end_time = $3, updated_at = NOW()
		WHERE id = $1 AND status <> 'cancelled'
			AND ($4::timestamptz IS NULL OR updated_at = $4)
	`

	tag, err := t.tx.Exec(ctx, query, id, rng.Start, rng.End, seenParam(seen))
	if err != nil {
		return fmt.Errorf("update lesson range: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return t.staleError(ctx, id)
	}

	return nil
}

// staleError объясняет, почему UPDATE не затронул ни одной строки
func (t *lessonTx) staleError(ctx context.Context, id uuid.UUID) error {
	var status model.LessonStatus
	err := t.tx.QueryRow(ctx, `SELECT status FROM lessons WHERE id = $1`, id).Scan(&status)
	if err != nil {
		if base.IsNotFound(err) {
			return model.LessonNotFound(id)
		}
		return fmt.Errorf("check lesson %s: %w", id, err)
	}
	if status == model.LessonStatusCancelled {
		return fmt.Errorf("lesson %s: %w", id, model.ErrLessonCancelled)
	}
	return fmt.Errorf("lesson %s: %w", id, model.ErrLessonModified)
}

func seenParam(seen time.Time) any {
	if seen.IsZero() {
		return nil
	}
	return seen
}

// CancelLesson мягко отменяет урок
func (t *lessonTx) CancelLesson(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE lessons
		SET status = 'cancelled', updated_at = NOW()
		WHERE id = $1
	`

	tag, err := t.tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("cancel lesson: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.LessonNotFound(id)
	}

	return nil
}

func scanLesson(row pgx.Row) (*model.Lesson, error) {
	var (
		lesson model.Lesson
		rule   []byte
	)
	err := row.Scan(
		&lesson.ID,
		&lesson.Title,
		&lesson.Description,
		&lesson.TimeRange.Start,
		&lesson.TimeRange.End,
		&lesson.TeacherID,
		&lesson.ClassID,
		&lesson.Room,
		&lesson.Status,
		&lesson.RecurrenceGroupID,
		&lesson.IsRecurring,
		&rule,
		&lesson.CreatedAt,
		&lesson.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if !lesson.Status.Valid() {
		return nil, fmt.Errorf("lesson %s has unknown status %q", lesson.ID, lesson.Status)
	}

	if len(rule) > 0 {
		var rr model.RecurrenceRule
		if err := json.Unmarshal(rule, &rr); err != nil {
			return nil, fmt.Errorf("decode recurrence rule of lesson %s: %w", lesson.ID, err)
		}
		lesson.Recurrence = &rr
	}

	return &lesson, nil
}

func collectLessons(rows pgx.Rows) ([]model.Lesson, error) {
	lessons := make([]model.Lesson, 0)
	for rows.Next() {
		lesson, err := scanLesson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lesson: %w", err)
		}
		lessons = append(lessons, *lesson)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lessons: %w", err)
	}
	return lessons, nil
}

func encodeRule(rule *model.RecurrenceRule) (any, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("encode recurrence rule: %w", err)
	}
	return string(data), nil
}
