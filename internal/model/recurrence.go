package model

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

type EndKind string

const (
	EndKindNever EndKind = "never"
	EndKindDate  EndKind = "date"
	EndKindCount EndKind = "count"
)

// EndCondition - ровно одно из условий окончания: без конца, дата (включительно), число повторений
type EndCondition struct {
	kind  EndKind
	until time.Time
	count int
}

// EndNever - серия ограничена только системным лимитом
func EndNever() EndCondition {
	return EndCondition{kind: EndKindNever}
}

// EndOn - серия заканчивается в календарный день until включительно
func EndOn(until time.Time) EndCondition {
	return EndCondition{kind: EndKindDate, until: until}
}

// EndAfter - серия из count уроков
func EndAfter(count int) EndCondition {
	return EndCondition{kind: EndKindCount, count: count}
}

func (e EndCondition) Kind() EndKind {
	return e.kind
}

func (e EndCondition) Until() time.Time {
	return e.until
}

func (e EndCondition) Count() int {
	return e.count
}

func (e EndCondition) validate() error {
	switch e.kind {
	case EndKindNever:
		return nil
	case EndKindDate:
		if e.until.IsZero() {
			return &InvalidRecurrenceError{Reason: "end date is required"}
		}
		return nil
	case EndKindCount:
		if e.count < 1 {
			return &InvalidRecurrenceError{Reason: fmt.Sprintf("occurrence count must be positive, got %d", e.count)}
		}
		return nil
	default:
		return &InvalidRecurrenceError{Reason: "exactly one end condition is required"}
	}
}

// RecurrenceRule - еженедельное или ежемесячное правило повторения.
// Создаётся только через NewWeeklyRule / NewMonthlyRule, поэтому
// существующее значение уже проверено.
type RecurrenceRule struct {
	frequency Frequency
	interval  int
	weekdays  []time.Weekday
	weekStart time.Weekday
	end       EndCondition
}

// NewWeeklyRule создаёт правило: каждые interval недель по указанным дням
func NewWeeklyRule(interval int, weekdays []time.Weekday, end EndCondition) (RecurrenceRule, error) {
	if interval < 1 {
		return RecurrenceRule{}, &InvalidRecurrenceError{Reason: fmt.Sprintf("interval must be >= 1, got %d", interval)}
	}
	if len(weekdays) == 0 {
		return RecurrenceRule{}, &InvalidRecurrenceError{Reason: "weekly rule requires at least one weekday"}
	}

	seen := make(map[time.Weekday]bool, len(weekdays))
	days := make([]time.Weekday, 0, len(weekdays))
	for _, d := range weekdays {
		if d < time.Sunday || d > time.Saturday {
			return RecurrenceRule{}, &InvalidRecurrenceError{Reason: fmt.Sprintf("unknown weekday %d", d)}
		}
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	if err := end.validate(); err != nil {
		return RecurrenceRule{}, err
	}

	return RecurrenceRule{
		frequency: FrequencyWeekly,
		interval:  interval,
		weekdays:  days,
		weekStart: time.Monday,
		end:       end,
	}, nil
}

// NewMonthlyRule создаёт правило: каждые interval месяцев в число месяца якоря
func NewMonthlyRule(interval int, end EndCondition) (RecurrenceRule, error) {
	if interval < 1 {
		return RecurrenceRule{}, &InvalidRecurrenceError{Reason: fmt.Sprintf("interval must be >= 1, got %d", interval)}
	}
	if err := end.validate(); err != nil {
		return RecurrenceRule{}, err
	}
	return RecurrenceRule{
		frequency: FrequencyMonthly,
		interval:  interval,
		weekStart: time.Monday,
		end:       end,
	}, nil
}

// WithWeekStart возвращает копию правила с началом недели d
func (r RecurrenceRule) WithWeekStart(d time.Weekday) RecurrenceRule {
	r.weekdays = append([]time.Weekday(nil), r.weekdays...)
	r.weekStart = d
	return r
}

func (r RecurrenceRule) Frequency() Frequency {
	return r.frequency
}

func (r RecurrenceRule) Interval() int {
	return r.interval
}

func (r RecurrenceRule) WeekStart() time.Weekday {
	return r.weekStart
}

func (r RecurrenceRule) End() EndCondition {
	return r.end
}

// Weekdays возвращает отсортированную копию дней недели (пусто для ежемесячных)
func (r RecurrenceRule) Weekdays() []time.Weekday {
	return append([]time.Weekday(nil), r.weekdays...)
}

// HasWeekday проверяет, входит ли день d в правило
func (r RecurrenceRule) HasWeekday(d time.Weekday) bool {
	for _, w := range r.weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// Validate повторно проверяет правило; нулевое значение невалидно
func (r RecurrenceRule) Validate() error {
	switch r.frequency {
	case FrequencyWeekly:
		_, err := NewWeeklyRule(r.interval, r.weekdays, r.end)
		return err
	case FrequencyMonthly:
		_, err := NewMonthlyRule(r.interval, r.end)
		return err
	default:
		return &InvalidRecurrenceError{Reason: fmt.Sprintf("unknown frequency %q", r.frequency)}
	}
}

// RecurrenceRuleJSON - представление правила в API и в базе
type RecurrenceRuleJSON struct {
	Frequency Frequency      `json:"frequency"`
	Interval  int            `json:"interval"`
	Weekdays  []time.Weekday `json:"weekdays,omitempty"`
	WeekStart *time.Weekday  `json:"week_start,omitempty"`
	EndDate   *time.Time     `json:"end_date,omitempty"`
	Count     *int           `json:"count,omitempty"`
}

// ToRule проверяет JSON представление и собирает RecurrenceRule
func (j RecurrenceRuleJSON) ToRule() (RecurrenceRule, error) {
	var end EndCondition
	switch {
	case j.EndDate != nil && j.Count != nil:
		return RecurrenceRule{}, &InvalidRecurrenceError{Reason: "end_date and count are mutually exclusive"}
	case j.EndDate != nil:
		end = EndOn(*j.EndDate)
	case j.Count != nil:
		end = EndAfter(*j.Count)
	default:
		end = EndNever()
	}

	var (
		rule RecurrenceRule
		err  error
	)
	switch j.Frequency {
	case FrequencyWeekly:
		rule, err = NewWeeklyRule(j.Interval, j.Weekdays, end)
	case FrequencyMonthly:
		rule, err = NewMonthlyRule(j.Interval, end)
	default:
		return RecurrenceRule{}, &InvalidRecurrenceError{Reason: fmt.Sprintf("unknown frequency %q", j.Frequency)}
	}
	if err != nil {
		return RecurrenceRule{}, err
	}
	if j.WeekStart != nil {
		if *j.WeekStart < time.Sunday || *j.WeekStart > time.Saturday {
			return RecurrenceRule{}, &InvalidRecurrenceError{Reason: fmt.Sprintf("unknown week start %d", *j.WeekStart)}
		}
		rule = rule.WithWeekStart(*j.WeekStart)
	}
	return rule, nil
}

// ToJSON возвращает JSON представление правила
func (r RecurrenceRule) ToJSON() RecurrenceRuleJSON {
	ws := r.weekStart
	out := RecurrenceRuleJSON{
		Frequency: r.frequency,
		Interval:  r.interval,
		Weekdays:  r.Weekdays(),
		WeekStart: &ws,
	}
	switch r.end.kind {
	case EndKindDate:
		until := r.end.until
		out.EndDate = &until
	case EndKindCount:
		count := r.end.count
		out.Count = &count
	}
	return out
}

func (r RecurrenceRule) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.ToJSON())
}

func (r *RecurrenceRule) UnmarshalJSON(data []byte) error {
	var raw RecurrenceRuleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	rule, err := raw.ToRule()
	if err != nil {
		return err
	}
	*r = rule
	return nil
}
