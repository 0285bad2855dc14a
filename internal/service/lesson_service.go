package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/attempt"
	"github.com/Freeeeeet/lesson_scheduler/internal/lock"
	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/repository"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LessonStore - хранилище уроков, с которым работает сервис
type LessonStore interface {
	QueryLessons(ctx context.Context, rng model.TimeRange, filter model.LessonFilter) ([]model.Lesson, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Lesson, error)
	GetByGroupID(ctx context.Context, groupID uuid.UUID) ([]model.Lesson, error)
	WithTx(ctx context.Context, fn func(w repository.LessonWriter) error) error
}

// AttemptLog - журнал завершённых и ожидающих попыток
type AttemptLog interface {
	Record(ctx context.Context, a *model.Attempt) error
}

// LessonInput - редактируемые поля урока
type LessonInput struct {
	Title       string
	Description string
	TimeRange   model.TimeRange
	TeacherID   int64
	ClassID     int64
	Room        *string
}

func (in LessonInput) validate() error {
	if err := in.TimeRange.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(in.Title) == "" {
		return &model.ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if in.TeacherID <= 0 {
		return &model.ValidationError{Field: "teacher_id", Reason: "must be positive"}
	}
	if in.ClassID <= 0 {
		return &model.ValidationError{Field: "class_id", Reason: "must be positive"}
	}
	return nil
}

// CalendarView - окно календаря и уроки в нём
type CalendarView struct {
	Window  schedule.CalendarWindow
	Range   model.TimeRange
	Lessons []model.Lesson
}

type LessonService struct {
	store    LessonStore
	attempts attempt.Store
	locker   lock.Locker
	audit    AttemptLog
	logger   *zap.Logger
	lockTTL  time.Duration
	now      func() time.Time
}

func NewLessonService(
	store LessonStore,
	attempts attempt.Store,
	locker lock.Locker,
	audit AttemptLog,
	lockTTL time.Duration,
	logger *zap.Logger,
) *LessonService {
	return &LessonService{
		store:    store,
		attempts: attempts,
		locker:   locker,
		audit:    audit,
		logger:   logger,
		lockTTL:  lockTTL,
		now:      time.Now,
	}
}

// ProposeCreate предлагает создание одиночного урока
func (s *LessonService) ProposeCreate(ctx context.Context, in LessonInput) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationCreate)
	if err := in.validate(); err != nil {
		return nil, s.reject(ctx, a, err)
	}

	lesson := s.newLesson(in)
	a.Changes = []model.Change{{Kind: model.ChangeInsert, Lesson: lesson}}

	return s.checkAndCommit(ctx, a)
}

// ProposeCreateSeries разворачивает правило и предлагает создание всех уроков серии
func (s *LessonService) ProposeCreateSeries(ctx context.Context, in LessonInput, rule model.RecurrenceRule) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationCreateSeries)
	if err := in.validate(); err != nil {
		return nil, s.reject(ctx, a, err)
	}

	exp, err := schedule.ExpandWithReport(s.newLesson(in), rule)
	if err != nil {
		return nil, s.reject(ctx, a, err)
	}

	a.Warnings = expansionWarnings(exp)
	a.Changes = make([]model.Change, 0, len(exp.Lessons))
	for _, l := range exp.Lessons {
		a.Changes = append(a.Changes, model.Change{Kind: model.ChangeInsert, Lesson: l})
	}

	return s.checkAndCommit(ctx, a)
}

// PreviewSeries разворачивает правило без записи и проверки конфликтов
func (s *LessonService) PreviewSeries(in LessonInput, rule model.RecurrenceRule) (schedule.Expansion, error) {
	if err := in.validate(); err != nil {
		return schedule.Expansion{}, err
	}
	return schedule.ExpandWithReport(s.newLesson(in), rule)
}

// ProposeUpdate предлагает изменение полей одного урока (в том числе экземпляра серии)
func (s *LessonService) ProposeUpdate(ctx context.Context, id uuid.UUID, in LessonInput) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationUpdate)
	if err := in.validate(); err != nil {
		return nil, s.reject(ctx, a, err)
	}

	current, err := s.activeLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	updated := *current
	updated.Title = strings.TrimSpace(in.Title)
	updated.Description = in.Description
	updated.TimeRange = in.TimeRange
	updated.TeacherID = in.TeacherID
	updated.ClassID = in.ClassID
	updated.Room = model.NormalizeRoom(in.Room)
	a.Changes = []model.Change{{Kind: model.ChangeUpdate, Lesson: updated, Previous: current}}

	return s.checkAndCommit(ctx, a)
}

// ProposeMove предлагает перенос одного урока на новый интервал
func (s *LessonService) ProposeMove(ctx context.Context, id uuid.UUID, newRange model.TimeRange) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationMove)
	if err := newRange.Validate(); err != nil {
		return nil, s.reject(ctx, a, err)
	}

	current, err := s.activeLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	moved := *current
	moved.TimeRange = newRange
	a.Changes = []model.Change{{Kind: model.ChangeMove, Lesson: moved, Previous: current}}

	return s.checkAndCommit(ctx, a)
}

// ProposeCancel отменяет один урок. Отмена никогда не конфликтует.
func (s *LessonService) ProposeCancel(ctx context.Context, id uuid.UUID) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationCancel)

	current, err := s.activeLesson(ctx, id)
	if err != nil {
		return nil, err
	}

	cancelled := *current
	cancelled.Status = model.LessonStatusCancelled
	a.Changes = []model.Change{{Kind: model.ChangeCancel, Lesson: cancelled, Previous: current}}

	return s.checkAndCommit(ctx, a)
}

// ProposeMoveSeries сдвигает на shift все активные уроки серии, начинающиеся не раньше from
func (s *LessonService) ProposeMoveSeries(ctx context.Context, groupID uuid.UUID, shift time.Duration, from time.Time) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationMoveSeries)
	if shift == 0 {
		return nil, s.reject(ctx, a, &model.ValidationError{Field: "shift", Reason: "must not be zero"})
	}

	instances, err := s.seriesFrom(ctx, groupID, from)
	if err != nil {
		return nil, err
	}

	a.Changes = make([]model.Change, 0, len(instances))
	for i := range instances {
		prev := instances[i]
		moved := prev
		moved.TimeRange = prev.TimeRange.Shift(shift)
		a.Changes = append(a.Changes, model.Change{Kind: model.ChangeMove, Lesson: moved, Previous: &prev})
	}

	return s.checkAndCommit(ctx, a)
}

// ProposeCancelSeries отменяет все активные уроки серии, начинающиеся не раньше from
func (s *LessonService) ProposeCancelSeries(ctx context.Context, groupID uuid.UUID, from time.Time) (*model.Attempt, error) {
	a := s.newAttempt(model.OperationCancelSeries)

	instances, err := s.seriesFrom(ctx, groupID, from)
	if err != nil {
		return nil, err
	}

	a.Changes = make([]model.Change, 0, len(instances))
	for i := range instances {
		prev := instances[i]
		cancelled := prev
		cancelled.Status = model.LessonStatusCancelled
		a.Changes = append(a.Changes, model.Change{Kind: model.ChangeCancel, Lesson: cancelled, Previous: &prev})
	}

	return s.checkAndCommit(ctx, a)
}

// Commit применяет попытку без подтверждения override.
// Для попытки с конфликтами возвращает *model.ConflictError.
func (s *LessonService) Commit(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	switch a.State {
	case model.AttemptCommitted:
		return a, nil
	case model.AttemptRejected:
		return a, model.ErrAttemptClosed
	case model.AttemptAwaitingOverride:
		return a, &model.ConflictError{Conflicts: a.Conflicts}
	default:
		return s.checkAndCommit(ctx, a)
	}
}

// ConfirmOverride применяет попытку несмотря на показанные конфликты.
// Перед коммитом проверка повторяется; если появились новые конфликты,
// попытка остаётся в awaiting_override и возвращается *model.ConcurrencyError.
func (s *LessonService) ConfirmOverride(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	switch a.State {
	case model.AttemptCommitted:
		return a, nil
	case model.AttemptRejected:
		return a, model.ErrAttemptClosed
	}

	release, err := lock.AcquireAll(ctx, s.locker, lockKeys(a), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("confirm override: %w", err)
	}
	defer release(context.WithoutCancel(ctx))

	conflicts, err := s.check(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("recheck conflicts: %w", err)
	}

	shown := make(map[uuid.UUID]bool, len(a.Conflicts))
	for _, c := range a.Conflicts {
		shown[c.ID] = true
	}
	fresh := make([]model.Lesson, 0)
	for _, c := range conflicts {
		if !shown[c.ID] {
			fresh = append(fresh, c)
		}
	}

	if len(fresh) > 0 {
		a.State = model.AttemptAwaitingOverride
		a.Conflicts = conflicts
		a.UpdatedAt = s.now()
		if err := s.attempts.Save(ctx, a); err != nil {
			return nil, fmt.Errorf("save attempt: %w", err)
		}
		s.record(ctx, a)

		s.logger.Warn("New conflicts appeared before override commit",
			zap.String("attempt_id", a.ID.String()),
			zap.Int("new_conflicts", len(fresh)),
		)
		return a, &model.ConcurrencyError{NewConflicts: fresh}
	}

	a.Conflicts = conflicts
	if err := s.commit(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Cancel отказывается от попытки; изменения не применяются
func (s *LessonService) Cancel(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return nil, err
	}

	switch a.State {
	case model.AttemptCommitted:
		return a, model.ErrAttemptClosed
	case model.AttemptRejected:
		return a, nil
	}

	a.State = model.AttemptRejected
	a.Reason = "abandoned by caller"
	a.UpdatedAt = s.now()

	if err := s.attempts.Save(ctx, a); err != nil {
		return nil, fmt.Errorf("save attempt: %w", err)
	}
	s.record(ctx, a)

	s.logger.Info("Mutation attempt abandoned", zap.String("attempt_id", a.ID.String()))
	return a, nil
}

// GetAttempt возвращает попытку, пока она не истекла в хранилище
func (s *LessonService) GetAttempt(ctx context.Context, attemptID uuid.UUID) (*model.Attempt, error) {
	a, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("get attempt: %w", err)
	}
	if a == nil {
		return nil, &model.NotFoundError{Kind: "attempt", ID: attemptID.String()}
	}
	return a, nil
}

// GetLesson возвращает урок по id
func (s *LessonService) GetLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get lesson: %w", err)
	}
	if lesson == nil {
		return nil, model.LessonNotFound(id)
	}
	return lesson, nil
}

// Calendar возвращает уроки в окне календаря
func (s *LessonService) Calendar(ctx context.Context, window schedule.CalendarWindow, filter model.LessonFilter) (*CalendarView, error) {
	rng := window.Range()
	lessons, err := s.store.QueryLessons(ctx, rng, filter)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}
	return &CalendarView{Window: window, Range: rng, Lessons: lessons}, nil
}

// CheckConflicts проверяет интервал без создания попытки
func (s *LessonService) CheckConflicts(ctx context.Context, query model.ConflictQuery) ([]model.Lesson, error) {
	if err := query.ProposedRange.Validate(); err != nil {
		return nil, err
	}
	candidates, err := s.store.QueryLessons(ctx, query.ProposedRange, model.LessonFilter{})
	if err != nil {
		return nil, fmt.Errorf("query candidates: %w", err)
	}
	return schedule.FindConflicts(query, candidates), nil
}

// checkAndCommit выполняет переход proposed -> checked -> committed | awaiting_override
// под блокировкой учителей и аудиторий попытки
func (s *LessonService) checkAndCommit(ctx context.Context, a *model.Attempt) (*model.Attempt, error) {
	release, err := lock.AcquireAll(ctx, s.locker, lockKeys(a), s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", a.Operation, err)
	}
	defer release(context.WithoutCancel(ctx))

	conflicts, err := s.check(ctx, a)
	if err != nil {
		return nil, fmt.Errorf("check conflicts: %w", err)
	}
	a.State = model.AttemptChecked
	a.Conflicts = conflicts

	if len(conflicts) > 0 {
		a.State = model.AttemptAwaitingOverride
		a.UpdatedAt = s.now()
		if err := s.attempts.Save(ctx, a); err != nil {
			return nil, fmt.Errorf("save attempt: %w", err)
		}
		s.record(ctx, a)

		s.logger.Info("Mutation awaits override",
			zap.String("attempt_id", a.ID.String()),
			zap.String("operation", string(a.Operation)),
			zap.Int("conflicts", len(conflicts)),
		)
		return a, nil
	}

	if err := s.commit(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// check ищет конфликты для всех изменений попытки одним запросом к хранилищу.
// Уроки, которые сами меняются в этой попытке, конфликтами не считаются.
func (s *LessonService) check(ctx context.Context, a *model.Attempt) ([]model.Lesson, error) {
	var (
		bounds  model.TimeRange
		checked int
	)
	for _, c := range a.Changes {
		if !c.NeedsCheck() {
			continue
		}
		r := c.Lesson.TimeRange
		if checked == 0 || r.Start.Before(bounds.Start) {
			bounds.Start = r.Start
		}
		if checked == 0 || r.End.After(bounds.End) {
			bounds.End = r.End
		}
		checked++
	}
	if checked == 0 {
		return []model.Lesson{}, nil
	}

	candidates, err := s.store.QueryLessons(ctx, bounds, model.LessonFilter{})
	if err != nil {
		return nil, err
	}

	own := a.LessonIDs()
	others := make([]model.Lesson, 0, len(candidates))
	for _, l := range candidates {
		if !own[l.ID] {
			others = append(others, l)
		}
	}

	lists := make([][]model.Lesson, 0, checked)
	for _, c := range a.Changes {
		if !c.NeedsCheck() {
			continue
		}
		lists = append(lists, schedule.FindConflicts(model.ConflictQuery{
			ProposedRange: c.Lesson.TimeRange,
			TeacherID:     c.Lesson.TeacherID,
			Room:          c.Lesson.Room,
		}, others))
	}

	return schedule.MergeConflicts(lists...), nil
}

// commit применяет все изменения попытки в одной транзакции
func (s *LessonService) commit(ctx context.Context, a *model.Attempt) error {
	err := s.store.WithTx(ctx, func(w repository.LessonWriter) error {
		for i := range a.Changes {
			c := &a.Changes[i]
			var err error
			switch c.Kind {
			case model.ChangeInsert:
				err = w.InsertLesson(ctx, &c.Lesson)
			case model.ChangeUpdate:
				err = w.UpdateLesson(ctx, &c.Lesson, c.SeenAt())
			case model.ChangeMove:
				err = w.UpdateLessonRange(ctx, c.Lesson.ID, c.Lesson.TimeRange, c.SeenAt())
			case model.ChangeCancel:
				err = w.CancelLesson(ctx, c.Lesson.ID)
			default:
				err = fmt.Errorf("unknown change kind %q", c.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("commit %s: %w", a.Operation, err)
	}

	a.State = model.AttemptCommitted
	a.UpdatedAt = s.now()

	if err := s.attempts.Save(ctx, a); err != nil {
		s.logger.Warn("Failed to store committed attempt", zap.String("attempt_id", a.ID.String()), zap.Error(err))
	}
	s.record(ctx, a)

	s.logger.Info("Mutation committed",
		zap.String("attempt_id", a.ID.String()),
		zap.String("operation", string(a.Operation)),
		zap.Int("lessons", len(a.Changes)),
		zap.Int("overridden_conflicts", len(a.Conflicts)),
	)
	return nil
}

func (s *LessonService) reject(ctx context.Context, a *model.Attempt, cause error) error {
	a.State = model.AttemptRejected
	a.Reason = cause.Error()
	a.UpdatedAt = s.now()
	s.record(ctx, a)

	s.logger.Info("Mutation rejected",
		zap.String("operation", string(a.Operation)),
		zap.Error(cause),
	)
	return cause
}

// record пишет попытку в журнал; ошибка журнала не ломает операцию
func (s *LessonService) record(ctx context.Context, a *model.Attempt) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Record(ctx, a); err != nil {
		s.logger.Error("Failed to record mutation attempt",
			zap.String("attempt_id", a.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *LessonService) activeLesson(ctx context.Context, id uuid.UUID) (*model.Lesson, error) {
	lesson, err := s.GetLesson(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lesson.IsActive() {
		return nil, fmt.Errorf("lesson %s: %w", id, model.ErrLessonCancelled)
	}
	return lesson, nil
}

func (s *LessonService) seriesFrom(ctx context.Context, groupID uuid.UUID, from time.Time) ([]model.Lesson, error) {
	all, err := s.store.GetByGroupID(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("get series: %w", err)
	}

	instances := make([]model.Lesson, 0, len(all))
	for _, l := range all {
		if !l.IsActive() || l.TimeRange.Start.Before(from) {
			continue
		}
		instances = append(instances, l)
	}
	if len(instances) == 0 {
		return nil, &model.NotFoundError{Kind: "series", ID: groupID.String()}
	}
	schedule.SortLessons(instances)
	return instances, nil
}

func (s *LessonService) newAttempt(op model.Operation) *model.Attempt {
	now := s.now()
	return &model.Attempt{
		ID:        uuid.New(),
		Operation: op,
		State:     model.AttemptProposed,
		Conflicts: []model.Lesson{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *LessonService) newLesson(in LessonInput) model.Lesson {
	return model.Lesson{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		TimeRange:   in.TimeRange,
		TeacherID:   in.TeacherID,
		ClassID:     in.ClassID,
		Room:        model.NormalizeRoom(in.Room),
		Status:      model.LessonStatusScheduled,
	}
}

// lockKeys возвращает ключи блокировки для учителей и аудиторий, затронутых попыткой,
// включая прежние значения для переносов и правок
func lockKeys(a *model.Attempt) []string {
	keys := make([]string, 0, 2*len(a.Changes))
	add := func(l *model.Lesson) {
		keys = append(keys, "teacher:"+strconv.FormatInt(l.TeacherID, 10))
		if room := model.NormalizeRoom(l.Room); room != nil {
			keys = append(keys, "room:"+*room)
		}
	}
	for i := range a.Changes {
		add(&a.Changes[i].Lesson)
		if a.Changes[i].Previous != nil {
			add(a.Changes[i].Previous)
		}
	}
	return keys
}

func expansionWarnings(exp schedule.Expansion) []string {
	warnings := make([]string, 0, 2)
	if exp.AnchorShifted && len(exp.Lessons) > 0 {
		warnings = append(warnings, fmt.Sprintf("anchor weekday is not part of the rule, series starts on %s",
			exp.Lessons[0].TimeRange.Start.Format("2006-01-02")))
	}
	if exp.Capped {
		warnings = append(warnings, fmt.Sprintf("series limited to %d lessons by the %d-year horizon or instance cap",
			len(exp.Lessons), schedule.MaxHorizonYears))
	}
	return warnings
}

// IsLocked проверяет, что операция не выполнена из-за занятой блокировки
func IsLocked(err error) bool {
	return errors.Is(err, lock.ErrLocked)
}
