package service

import (
	"strings"
	"time"

	"shopstack/backend/internal/dashboard"
)

const dateLayout = "2006-01-02"

// todayWindow is [local midnight, next local midnight) in the shop timezone.
func (s *Service) todayWindow() (time.Time, time.Time) {
	start := dashboard.DayStart(s.now(), s.loc)
	return start, start.AddDate(0, 0, 1)
}

// dateWindow turns two inclusive calendar dates into the half-open window
// [from 00:00, day after to 00:00), which covers to's final second.
func (s *Service) dateWindow(fromDate string, toDate string) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dateLayout, strings.TrimSpace(fromDate), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("from date must be YYYY-MM-DD")
	}
	to, err := time.ParseInLocation(dateLayout, strings.TrimSpace(toDate), s.loc)
	if err != nil {
		return time.Time{}, time.Time{}, invalid("to date must be YYYY-MM-DD")
	}
	if from.After(to) {
		return time.Time{}, time.Time{}, invalid("from date is after to date")
	}
	return from, to.AddDate(0, 0, 1), nil
}
