package httpapi

import (
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"
)

func (h *Handler) getAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.getAttempt"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.lessons.GetAttempt(r.Context(), id)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	render.JSON(w, r, AttemptResponse{Attempt: a})
}

func (h *Handler) commitAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.commitAttempt"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.lessons.Commit(r.Context(), id)
	if err != nil {
		attemptError(w, r, log, a, err)
		return
	}

	render.JSON(w, r, AttemptResponse{Attempt: a})
}

func (h *Handler) confirmOverride(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.confirmOverride"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.lessons.ConfirmOverride(r.Context(), id)
	if err != nil {
		attemptError(w, r, log, a, err)
		return
	}

	log.Info("Override confirmed", zap.String("attempt_id", id.String()), zap.Int("conflicts", len(a.Conflicts)))
	render.JSON(w, r, AttemptResponse{Attempt: a})
}

func (h *Handler) cancelAttempt(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.cancelAttempt"
	log := h.log(r, op)

	id, ok := pathUUID(w, r, "id")
	if !ok {
		return
	}

	a, err := h.lessons.Cancel(r.Context(), id)
	if err != nil {
		attemptError(w, r, log, a, err)
		return
	}

	render.JSON(w, r, AttemptResponse{Attempt: a})
}
