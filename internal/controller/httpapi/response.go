package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/service"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ErrCode string

const (
	CodeBadRequest      ErrCode = "BAD_REQUEST"
	CodeValidation      ErrCode = "VALIDATION_FAILED"
	CodeNotFound        ErrCode = "NOT_FOUND"
	CodeConflict        ErrCode = "CONFLICT"
	CodeConcurrent      ErrCode = "CONCURRENT_CHANGE"
	CodeAttemptClosed   ErrCode = "ATTEMPT_CLOSED"
	CodeLessonCancelled ErrCode = "LESSON_CANCELLED"
	CodeLessonModified  ErrCode = "LESSON_MODIFIED"
	CodeLocked          ErrCode = "LOCKED"
	CodeFailed          ErrCode = "REQUEST_FAILED"
)

type ResponseError struct {
	Code    ErrCode `json:"code"`
	Message string  `json:"message"`
}

// Response - общая часть всех ответов; error пустой при успехе
type Response struct {
	Error *ResponseError `json:"error,omitempty"`
}

// ErrorResponse - ответ с ошибкой и, для конфликтов, списком уроков
type ErrorResponse struct {
	Response
	Conflicts []model.Lesson `json:"conflicts,omitempty"`
	Attempt   *model.Attempt `json:"attempt,omitempty"`
}

func errorBody(code ErrCode, msg string) ErrorResponse {
	return ErrorResponse{Response: Response{Error: &ResponseError{Code: code, Message: msg}}}
}

func renderError(w http.ResponseWriter, r *http.Request, status int, body ErrorResponse) {
	render.Status(r, status)
	render.JSON(w, r, body)
}

func badRequest(w http.ResponseWriter, r *http.Request, msg string) {
	renderError(w, r, http.StatusBadRequest, errorBody(CodeBadRequest, msg))
}

// validationFailed переводит ошибки validator в читаемое сообщение
func validationFailed(w http.ResponseWriter, r *http.Request, err error) {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		renderError(w, r, http.StatusBadRequest, errorBody(CodeValidation, err.Error()))
		return
	}

	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field '%s' is required", e.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be greater than %s", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("field '%s' must be at most %s characters long", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("field '%s' is invalid", e.Field()))
		}
	}
	renderError(w, r, http.StatusBadRequest, errorBody(CodeValidation, strings.Join(msgs, ", ")))
}

// serviceError отображает ошибки сервиса на HTTP статусы
func serviceError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	attemptError(w, r, log, nil, err)
}

// attemptError работает как serviceError, но для конфликтов и закрытых попыток
// дополнительно возвращает текущее состояние попытки
func attemptError(w http.ResponseWriter, r *http.Request, log *zap.Logger, a *model.Attempt, err error) {
	var (
		conflictErr *model.ConflictError
		concErr     *model.ConcurrencyError
	)

	switch {
	case model.IsValidation(err):
		log.Info("Request rejected by validation", zap.Error(err))
		renderError(w, r, http.StatusBadRequest, errorBody(CodeValidation, err.Error()))
	case model.IsNotFound(err):
		log.Info("Resource not found", zap.Error(err))
		renderError(w, r, http.StatusNotFound, errorBody(CodeNotFound, err.Error()))
	case errors.As(err, &conflictErr):
		body := errorBody(CodeConflict, "lesson conflicts with existing lessons, confirm override to proceed")
		body.Conflicts = conflictErr.Conflicts
		body.Attempt = a
		renderError(w, r, http.StatusConflict, body)
	case errors.As(err, &concErr):
		body := errorBody(CodeConcurrent, "new conflicts appeared, review them and confirm again")
		body.Conflicts = concErr.NewConflicts
		body.Attempt = a
		renderError(w, r, http.StatusConflict, body)
	case errors.Is(err, model.ErrAttemptClosed):
		body := errorBody(CodeAttemptClosed, err.Error())
		body.Attempt = a
		renderError(w, r, http.StatusConflict, body)
	case errors.Is(err, model.ErrLessonCancelled):
		renderError(w, r, http.StatusConflict, errorBody(CodeLessonCancelled, err.Error()))
	case errors.Is(err, model.ErrLessonModified):
		log.Info("Lesson changed before commit", zap.Error(err))
		renderError(w, r, http.StatusConflict, errorBody(CodeLessonModified, err.Error()))
	case service.IsLocked(err):
		log.Warn("Resource is locked", zap.Error(err))
		renderError(w, r, http.StatusLocked, errorBody(CodeLocked, "schedule is being changed by another request, retry later"))
	default:
		log.Error("Request failed", zap.Error(err))
		renderError(w, r, http.StatusInternalServerError, errorBody(CodeFailed, "internal error"))
	}
}
