package schedule

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/model"
	"github.com/google/uuid"
	"github.com/teambition/rrule-go"
)

const (
	// MaxInstances ограничивает число уроков в одной серии
	MaxInstances = 500
	// MaxHorizonYears ограничивает серию по времени от старта якоря
	MaxHorizonYears = 2
)

// Expansion - результат разворачивания правила повторения
type Expansion struct {
	Lessons []model.Lesson
	// AnchorShifted - день недели якоря не входит в правило, и первый урок
	// серии перенесён на ближайший подходящий день
	AnchorShifted bool
	// Capped - серия обрезана системным лимитом (MaxInstances / MaxHorizonYears)
	Capped bool
}

// Expand разворачивает правило в упорядоченный список уроков.
// Первый элемент - якорный урок (IsRecurring = true).
func Expand(anchor model.Lesson, rule model.RecurrenceRule) ([]model.Lesson, error) {
	exp, err := ExpandWithReport(anchor, rule)
	if err != nil {
		return nil, err
	}
	return exp.Lessons, nil
}

// ExpandWithReport работает как Expand, но дополнительно сообщает о сдвиге якоря
// и срабатывании лимита.
func ExpandWithReport(anchor model.Lesson, rule model.RecurrenceRule) (Expansion, error) {
	if err := anchor.TimeRange.Validate(); err != nil {
		return Expansion{}, err
	}
	if err := rule.Validate(); err != nil {
		return Expansion{}, err
	}

	start := anchor.TimeRange.Start
	duration := anchor.TimeRange.Duration()
	horizon := start.AddDate(MaxHorizonYears, 0, 0).Add(-time.Second)

	// rrule работает с точностью до секунды, доли секунды возвращаются каждому уроку
	whole := start.Truncate(time.Second)
	frac := start.Sub(whole)

	opt := rrule.ROption{
		Dtstart:  whole,
		Interval: rule.Interval(),
		Wkst:     toRRuleWeekday(rule.WeekStart()),
		Count:    MaxInstances,
		Until:    horizon,
	}

	switch rule.Frequency() {
	case model.FrequencyWeekly:
		opt.Freq = rrule.WEEKLY
		for _, d := range rule.Weekdays() {
			opt.Byweekday = append(opt.Byweekday, toRRuleWeekday(d))
		}
	case model.FrequencyMonthly:
		opt.Freq = rrule.MONTHLY
		opt.Bymonthday, opt.Bysetpos = monthDaySelector(start.Day())
	}

	end := rule.End()
	untilClamped := false
	switch end.Kind() {
	case model.EndKindCount:
		if end.Count() < MaxInstances {
			opt.Count = end.Count()
		}
	case model.EndKindDate:
		u := end.Until()
		lastDay := time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 0, start.Location())
		if lastDay.Before(start) {
			return Expansion{}, &model.InvalidRecurrenceError{Reason: "end date is before the anchor lesson"}
		}
		if lastDay.Before(horizon) {
			opt.Until = lastDay
		} else {
			untilClamped = true
		}
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return Expansion{}, &model.InvalidRecurrenceError{Reason: err.Error()}
	}

	starts := r.All()
	if len(starts) == 0 {
		return Expansion{}, &model.InvalidRecurrenceError{Reason: "rule produces no occurrences"}
	}
	if len(starts) > MaxInstances {
		starts = starts[:MaxInstances]
	}

	anchorID := anchor.ID
	if anchorID == uuid.Nil {
		anchorID = derivedAnchorID(anchor)
	}
	groupID := anchorID
	if anchor.RecurrenceGroupID != nil {
		groupID = *anchor.RecurrenceGroupID
	}

	lessons := make([]model.Lesson, 0, len(starts))
	for i, s := range starts {
		s = s.Add(frac)
		l := anchor
		l.TimeRange = model.TimeRange{Start: s, End: s.Add(duration)}
		gid := groupID
		l.RecurrenceGroupID = &gid
		l.Status = model.LessonStatusScheduled
		l.Room = cloneRoom(anchor.Room)

		if i == 0 {
			l.ID = anchorID
			l.IsRecurring = true
			rr := rule
			l.Recurrence = &rr
		} else {
			l.ID = InstanceID(groupID, s)
			l.IsRecurring = false
			l.Recurrence = nil
		}
		lessons = append(lessons, l)
	}

	exp := Expansion{
		Lessons:       lessons,
		AnchorShifted: rule.Frequency() == model.FrequencyWeekly && !rule.HasWeekday(start.Weekday()),
	}
	switch end.Kind() {
	case model.EndKindNever:
		exp.Capped = true
	case model.EndKindCount:
		exp.Capped = len(lessons) < end.Count()
	case model.EndKindDate:
		exp.Capped = untilClamped || len(lessons) == MaxInstances
	}

	return exp, nil
}

// InstanceID детерминированно вычисляет id экземпляра серии по группе и времени начала
func InstanceID(groupID uuid.UUID, start time.Time) uuid.UUID {
	return uuid.NewSHA1(groupID, []byte(start.UTC().Format(time.RFC3339Nano)))
}

func derivedAnchorID(anchor model.Lesson) uuid.UUID {
	key := fmt.Sprintf("lesson:%d:%d:%s", anchor.TeacherID, anchor.ClassID, anchor.TimeRange.Start.UTC().Format(time.RFC3339Nano))
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(key))
}

// monthDaySelector выбирает день месяца якоря; для 29-31 числа
// берётся последний существующий день из 28..day (BYSETPOS=-1).
func monthDaySelector(day int) ([]int, []int) {
	if day <= 28 {
		return []int{day}, nil
	}
	days := make([]int, 0, day-27)
	for d := 28; d <= day; d++ {
		days = append(days, d)
	}
	return days, []int{-1}
}

func toRRuleWeekday(d time.Weekday) rrule.Weekday {
	switch d {
	case time.Monday:
		return rrule.MO
	case time.Tuesday:
		return rrule.TU
	case time.Wednesday:
		return rrule.WE
	case time.Thursday:
		return rrule.TH
	case time.Friday:
		return rrule.FR
	case time.Saturday:
		return rrule.SA
	default:
		return rrule.SU
	}
}

func cloneRoom(room *string) *string {
	if room == nil {
		return nil
	}
	r := *room
	return &r
}
