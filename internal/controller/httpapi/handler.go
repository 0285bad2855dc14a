package httpapi

import (
	"net/http"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler обслуживает REST API расписания уроков
type Handler struct {
	lessons   *service.LessonService
	validate  *validator.Validate
	logger    *zap.Logger
	loc       *time.Location
	weekStart time.Weekday
	now       func() time.Time
}

func NewHandler(lessons *service.LessonService, loc *time.Location, weekStart time.Weekday, logger *zap.Logger) *Handler {
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		lessons:   lessons,
		validate:  validator.New(),
		logger:    logger,
		loc:       loc,
		weekStart: weekStart,
		now:       time.Now,
	}
}

// Routes собирает роутер со всеми маршрутами API
func (h *Handler) Routes() http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger(h.logger))
	router.Use(middleware.Recoverer)
	router.Use(render.SetContentType(render.ContentTypeJSON))

	router.Get("/calendar", h.calendar)
	router.Post("/conflicts/check", h.checkConflicts)
	router.Post("/recurrence/preview", h.previewSeries)

	router.Route("/lessons", func(r chi.Router) {
		r.Post("/", h.createLesson)
		r.Get("/{id}", h.getLesson)
		r.Put("/{id}", h.updateLesson)
		r.Post("/{id}/move", h.moveLesson)
		r.Post("/{id}/cancel", h.cancelLesson)
	})

	router.Route("/series/{groupID}", func(r chi.Router) {
		r.Post("/move", h.moveSeries)
		r.Post("/cancel", h.cancelSeries)
	})

	router.Route("/attempts/{id}", func(r chi.Router) {
		r.Get("/", h.getAttempt)
		r.Post("/commit", h.commitAttempt)
		r.Post("/confirm", h.confirmOverride)
		r.Delete("/", h.cancelAttempt)
	})

	return router
}

func (h *Handler) log(r *http.Request, op string) *zap.Logger {
	return h.logger.With(
		zap.String("op", op),
		zap.String("request_id", middleware.GetReqID(r.Context())),
	)
}

// decode читает JSON тело и проверяет теги validate
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *zap.Logger, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Info("Failed to decode request body", zap.Error(err))
		badRequest(w, r, "failed to decode request")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		log.Info("Invalid request", zap.Error(err))
		validationFailed(w, r, err)
		return false
	}
	return true
}

func pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		badRequest(w, r, name+" must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// renderAttempt отдаёт попытку: 201 - создано, 202 - ждёт подтверждения override, 200 - прочее
func renderAttempt(w http.ResponseWriter, r *http.Request, a *model.Attempt) {
	switch {
	case a.State == model.AttemptAwaitingOverride:
		render.Status(r, http.StatusAccepted)
	case a.State == model.AttemptCommitted && (a.Operation == model.OperationCreate || a.Operation == model.OperationCreateSeries):
		render.Status(r, http.StatusCreated)
	}
	render.JSON(w, r, AttemptResponse{Attempt: a})
}
