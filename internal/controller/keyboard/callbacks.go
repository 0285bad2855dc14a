package keyboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Freeeeeet/lesson_scheduler/internal/schedule"
	"github.com/google/uuid"
)

// Форматы callback data
const (
	PrefixCalendar = "cal:"    // cal:week:2024-01-03:5 (0 - все учителя)
	PrefixConfirm  = "ovr_ok:" // ovr_ok:<attempt uuid>
	PrefixAbandon  = "ovr_no:" // ovr_no:<attempt uuid>
	Noop           = "noop"
)

const dateLayout = "2006-01-02"

// CalendarData - состояние календаря, зашитое в кнопку навигации
type CalendarData struct {
	Mode      schedule.ViewMode
	Date      time.Time
	TeacherID int64
}

// Encode сериализует данные в callback data (не длиннее 64 байт)
func (d CalendarData) Encode() string {
	return fmt.Sprintf("%s%s:%s:%d", PrefixCalendar, d.Mode, d.Date.Format(dateLayout), d.TeacherID)
}

// ParseCalendarData разбирает callback data календаря; дата интерпретируется в loc
func ParseCalendarData(data string, loc *time.Location) (CalendarData, error) {
	parts := strings.Split(strings.TrimPrefix(data, PrefixCalendar), ":")
	if !strings.HasPrefix(data, PrefixCalendar) || len(parts) != 3 {
		return CalendarData{}, fmt.Errorf("invalid calendar callback %q", data)
	}

	mode, err := schedule.ParseViewMode(parts[0])
	if err != nil {
		return CalendarData{}, err
	}
	date, err := time.ParseInLocation(dateLayout, parts[1], loc)
	if err != nil {
		return CalendarData{}, fmt.Errorf("parse calendar date: %w", err)
	}
	teacherID, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return CalendarData{}, fmt.Errorf("parse teacher id: %w", err)
	}

	return CalendarData{Mode: mode, Date: date, TeacherID: teacherID}, nil
}

// ParseAttemptID извлекает id попытки из callback data с указанным префиксом
func ParseAttemptID(data, prefix string) (uuid.UUID, error) {
	if !strings.HasPrefix(data, prefix) {
		return uuid.Nil, fmt.Errorf("invalid callback data format")
	}
	return uuid.Parse(strings.TrimPrefix(data, prefix))
}
