package report

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"kasirinaja/backoffice/internal/domain"
)

var ErrInvalidRange = errors.New("invalid date range")

const dayLayout = "2006-01-02"

// DateRange is inclusive on both ends: From is the start of its day and To
// is 23:59:59.999 of its day.
type DateRange struct {
	From time.Time
	To   time.Time
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: startOfDay(from), To: endOfDay(to)}
}

// ParseDateRange reads YYYY-MM-DD bounds in loc. A missing bound defaults to
// the first or last day of the month containing now.
func ParseDateRange(from, to string, loc *time.Location, now time.Time) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	now = now.In(loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)

	start := monthStart
	if strings.TrimSpace(from) != "" {
		parsed, err := time.ParseInLocation(dayLayout, strings.TrimSpace(from), loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidRange)
		}
		start = parsed
	}
	end := monthStart.AddDate(0, 1, -1)
	if strings.TrimSpace(to) != "" {
		parsed, err := time.ParseInLocation(dayLayout, strings.TrimSpace(to), loc)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidRange)
		}
		end = parsed
	}
	if start.After(end) {
		return DateRange{}, fmt.Errorf("%w: from is after to", ErrInvalidRange)
	}
	return NewDateRange(start, end), nil
}

func (r DateRange) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	return !t.Before(r.From) && !t.After(r.To)
}

// DayKey formats t as a calendar day in the range's time zone.
func (r DateRange) DayKey(t time.Time) string {
	return t.In(r.From.Location()).Format(dayLayout)
}

func (r DateRange) Period() domain.Period {
	return domain.Period{From: r.From.Format(dayLayout), To: r.To.Format(dayLayout)}
}

// Query renders the range as the from/to query parameters the tenant API
// expects.
func (r DateRange) Query() map[string]string {
	p := r.Period()
	return map[string]string{"from": p.From, "to": p.To, "start_date": p.From, "end_date": p.To}
}
