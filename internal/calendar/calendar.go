// Package calendar implements business-day arithmetic. A business day is
// Monday through Friday; no holiday calendar is applied.
package calendar

import "time"

// IsBusinessDay reports whether d falls on a weekday.
func IsBusinessDay(d time.Time) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

// CountBusinessDays returns the inclusive number of business days in
// [start, end]. When end is before start the count is zero.
func CountBusinessDays(start, end time.Time) int {
	start = truncateDay(start)
	end = truncateDay(end)
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			count++
		}
	}
	return count
}

// AddBusinessDays advances from d one calendar day at a time until n business
// days have been crossed, preserving d's time of day. n must be >= 0; a
// negative n returns d unchanged.
func AddBusinessDays(d time.Time, n int) time.Time {
	if n <= 0 {
		return d
	}
	crossed := 0
	for crossed < n {
		d = d.AddDate(0, 0, 1)
		if IsBusinessDay(d) {
			crossed++
		}
	}
	return d
}

// NthBusinessDayOfMonth returns the calendar date of the n-th business day of
// the given month. When the month holds fewer than n business days, the
// month's last business day is returned; degenerate input never errors.
func NthBusinessDayOfMonth(n, year int, month time.Month) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	var last time.Time
	count := 0
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		if !IsBusinessDay(d) {
			continue
		}
		count++
		last = d
		if count == n {
			return d
		}
	}
	return last
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
