package httpapi

import (
	"net/http"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/go-chi/render"
)

func (h *Handler) checkConflicts(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.checkConflicts"
	log := h.log(r, op)

	var req ConflictCheckRequest
	if !h.decode(w, r, log, &req) {
		return
	}

	conflicts, err := h.lessons.CheckConflicts(r.Context(), model.ConflictQuery{
		ProposedRange:   model.TimeRange{Start: req.Start, End: req.End},
		TeacherID:       req.TeacherID,
		Room:            req.Room,
		ExcludeLessonID: req.ExcludeLessonID,
	})
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	render.JSON(w, r, ConflictsResponse{Conflicts: conflicts})
}

func (h *Handler) previewSeries(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.previewSeries"
	log := h.log(r, op)

	var req LessonRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if req.Recurrence == nil {
		badRequest(w, r, "recurrence is required")
		return
	}

	rule, err := req.Recurrence.ToRule()
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	exp, err := h.lessons.PreviewSeries(req.input(), rule)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	render.JSON(w, r, PreviewResponse{
		Lessons:       exp.Lessons,
		AnchorShifted: exp.AnchorShifted,
		Capped:        exp.Capped,
	})
}
