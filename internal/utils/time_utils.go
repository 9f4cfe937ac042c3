package utils

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange представляет временной интервал [Start, End).
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside [Start, End).
func (tr TimeRange) Contains(t time.Time) bool {
	return !t.Before(tr.Start) && t.Before(tr.End)
}

// NormalizeTimeRange нормализует интервал:
//   - меняет местами границы, если они перепутаны;
//   - переводит в заданный часовой пояс loc;
//   - при превышении maxDuration обрезает интервал до end-maxDuration.
//
// Если maxDuration <= 0, ограничение по длительности не применяется.
// Обрезается начало: в выборках нас интересуют последние события.
func NormalizeTimeRange(
	start, end time.Time,
	loc *time.Location,
	maxDuration time.Duration,
) (TimeRange, error) {
	if start.IsZero() || end.IsZero() {
		return TimeRange{}, ErrInvalidTimeRange
	}

	if end.Before(start) {
		start, end = end, start
	}

	if loc != nil {
		start = start.In(loc)
		end = end.In(loc)
	}

	if maxDuration > 0 && end.Sub(start) > maxDuration {
		start = end.Add(-maxDuration)
	}

	if !end.After(start) {
		return TimeRange{}, ErrInvalidTimeRange
	}

	return TimeRange{Start: start, End: end}, nil
}

// Lookback returns [now-window, now]. A non-positive window yields a zero Start.
func Lookback(now time.Time, window time.Duration) TimeRange {
	if window <= 0 {
		return TimeRange{End: now}
	}
	return TimeRange{Start: now.Add(-window), End: now}
}

// MonthWindow: календарный месяц, содержащий now, в часовом поясе now.
func MonthWindow(now time.Time) TimeRange {
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return TimeRange{Start: start, End: start.AddDate(0, 1, 0)}
}

// FormatConsultationTime форматирует время встречи для уведомлений,
// например "Monday, 02 Jun 2025, 14:30 UTC".
// Если loc != nil, время переводится в указанный часовой пояс.
func FormatConsultationTime(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return fmt.Sprintf("%s, %s", t.Weekday(), t.Format("02 Jan 2006, 15:04 MST"))
}
