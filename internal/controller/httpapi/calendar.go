package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/go-chi/render"
)

const dateLayout = "2006-01-02"

func (h *Handler) calendar(w http.ResponseWriter, r *http.Request) {
	const op = "httpapi.calendar"
	log := h.log(r, op)
	q := r.URL.Query()

	mode, err := schedule.ParseViewMode(q.Get("view"))
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	anchor := h.now().In(h.loc)
	if s := q.Get("date"); s != "" {
		anchor, err = time.ParseInLocation(dateLayout, s, h.loc)
		if err != nil {
			badRequest(w, r, "date must be YYYY-MM-DD")
			return
		}
	}

	window := schedule.CalendarWindow{Mode: mode, Anchor: anchor, WeekStart: h.weekStart}
	switch q.Get("nav") {
	case "":
	case "prev":
		window = window.Prev()
	case "next":
		window = window.Next()
	case "today":
		window = window.Today(h.now())
	default:
		badRequest(w, r, "nav must be prev, next or today")
		return
	}

	filter := model.LessonFilter{IncludeCancelled: q.Get("include_cancelled") == "true"}
	if filter.TeacherID, err = optionalID(q.Get("teacher_id")); err != nil {
		badRequest(w, r, "teacher_id must be an integer")
		return
	}
	if filter.ClassID, err = optionalID(q.Get("class_id")); err != nil {
		badRequest(w, r, "class_id must be an integer")
		return
	}

	view, err := h.lessons.Calendar(r.Context(), window, filter)
	if err != nil {
		serviceError(w, r, log, err)
		return
	}

	render.JSON(w, r, CalendarResponse{
		View:       string(window.Mode),
		Date:       window.Anchor.Format(dateLayout),
		Prev:       window.Prev().Anchor.Format(dateLayout),
		Next:       window.Next().Anchor.Format(dateLayout),
		RangeStart: view.Range.Start,
		RangeEnd:   view.Range.End,
		Lessons:    view.Lessons,
	})
}

func optionalID(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
