package leave

import "time"

func IsWorkingDay(t time.Time) bool {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return true
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WorkingDays counts Monday to Friday dates in the inclusive range [from, to].
func WorkingDays(from, to time.Time) int {
	start, end := dateOnly(from), dateOnly(to)
	if end.Before(start) {
		return 0
	}
	days := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if IsWorkingDay(d) {
			days++
		}
	}
	return days
}

// ClipToYear narrows [from, to] to the calendar year. ok is false when the range misses the year.
func ClipToYear(from, to time.Time, year int) (time.Time, time.Time, bool) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
	start, end := dateOnly(from), dateOnly(to)
	if start.Before(yearStart) {
		start = yearStart
	}
	if end.After(yearEnd) {
		end = yearEnd
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// WorkingDaysInYear counts the working days of [from, to] that fall inside year.
func WorkingDaysInYear(from, to time.Time, year int) int {
	start, end, ok := ClipToYear(from, to, year)
	if !ok {
		return 0
	}
	return WorkingDays(start, end)
}

// SubtractWorkingDays steps back one calendar day at a time from now, counting only
// working days, and returns the date reached after n of them.
func SubtractWorkingDays(now time.Time, n int) time.Time {
	d := dateOnly(now)
	for n > 0 {
		d = d.AddDate(0, 0, -1)
		if IsWorkingDay(d) {
			n--
		}
	}
	return d
}
