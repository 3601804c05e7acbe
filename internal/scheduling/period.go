package scheduling

import (
	"fmt"
	"time"
)

// YearMonth identifies one calendar month, the grouping unit for recurring
// appointment series.
type YearMonth struct {
	Year  int
	Month time.Month
}

// ParseYearMonth parses the "2006-01" form.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, fmt.Errorf("parse year-month %q: %w", s, err)
	}
	return YearMonth{Year: t.Year(), Month: t.Month()}, nil
}

func (m YearMonth) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Window returns the inclusive month window [first day 00:00, last day
// 23:59:59.999999999] in the given location.
func (m YearMonth) Window(loc *time.Location) (start, end time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start = time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, loc)
	end = start.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return start, end
}

// endOfDay returns the last instant of t's calendar day. Release-date
// validation compares against end of today so same-day releases pass.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
