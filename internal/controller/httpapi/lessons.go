package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-chi/render"
	"go.uber.org/zap"
)

func (h *Handler) createLesson(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.createLesson"
	log := h.log(r, op)

	var req LessonRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	var (
		a   *model.Attempt
		err error
	)
	if req.Recurrence != nil {
		rule, ruleErr := req.Recurrence.ToRule()
		if ruleErr != nil {
			serviceError(w, r, log, ruleErr)
			return
		}
		a, err = h.lessons.ProposeCreateSeries(r.Context(), req.input(), rule)
	} else {
		a, err = h.lessons.ProposeCreate(r.Context(), req.input())
	}
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	log.Info("Lesson creation proposed",
		zap.String("attempt_id", a.ID.String()),
		zap.String("state", string(a.State)),
	)
	renderAttempt(w, r, a)
}

func (h *Handler) getLesson(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.getLesson"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	lesson, err := h.lessons.GetLesson(r.Context(), id)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	render.JSON(w, r, LessonResponse{Lesson: lesson})
}

func (h *Handler) updateLesson(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.updateLesson"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req LessonRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.Recurrence != nil {
		badRequest(w, r, "recurrence cannot be changed on an existing lesson, use series operations")
		return
	}

	a, err := h.lessons.ProposeUpdate(r.Context(), id, req.input())
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	log.Info("Lesson update proposed", zap.String("attempt_id", a.ID.String()), zap.String("state", string(a.State)))
	renderAttempt(w, r, a)
}

func (h *Handler) moveLesson(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.moveLesson"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	var req MoveRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	a, err := h.lessons.ProposeMove(r.Context(), id, model.TimeRange{Start: req.Start, End: req.End})
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	log.Info("Lesson move proposed", zap.String("attempt_id", a.ID.String()), zap.String("state", string(a.State)))
	renderAttempt(w, r, a)
}

func (h *Handler) cancelLesson(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.cancelLesson"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.lessons.ProposeCancel(r.Context(), id)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	log.Info("Lesson cancelled", zap.String("lesson_id", id.String()))
	renderAttempt(w, r, a)
}

func (h *Handler) moveSeries(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.moveSeries"
	log := h.log(r, op)

	groupID, ok := pathUUID(w, r, "groupID")
	if !ok {
		return
	}

	var req SeriesMoveRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	shift := time.Duration(req.ShiftMinutes) * time.Minute
	a, err := h.lessons.ProposeMoveSeries(r.Context(), groupID, shift, req.From)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	log.Info("Series move proposed",
		zap.String("group_id", groupID.String()),
		zap.String("attempt_id", a.ID.String()),
		zap.Int("lessons", len(a.Changes)),
	)
	renderAttempt(w, r, a)
}

func (h *Handler) cancelSeries(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.cancelSeries"
	log := h.log(r, op)

	groupID, ok := pathUUID(w, r, "groupID")
	if !ok {
		return
	}

	var req SeriesCancelRequest
	if r.ContentLength != 0 && !h.decode(w, r, log, &req) {
		return
	}

	a, err := h.lessons.ProposeCancelSeries(r.Context(), groupID, req.From)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	log.Info("Series cancelled", zap.String("group_id", groupID.String()), zap.Int("lessons", len(a.Changes)))
	renderAttempt(w, r, a)
}
