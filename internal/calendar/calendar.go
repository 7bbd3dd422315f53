// Package calendar does the month arithmetic behind the calendar page.
package calendar

import "time"

// NormalizeMonth folds an out-of-range month into the neighbouring year:
// month 0 of 2025 is December 2024, month 13 of 2024 is January 2025.
func NormalizeMonth(year, month int) (int, time.Month) {
	t := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return t.Year(), t.Month()
}

// MonthRange returns the first and last calendar day of the month
// (midnight UTC), after normalising the month.
func MonthRange(year, month int) (start, end time.Time) {
	y, m := NormalizeMonth(year, month)
	start = time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, -1)
	return start, end
}

// Adjacent returns the previous and next months
func Adjacent(year int, month time.Month) (prevYear int, prevMonth time.Month, nextYear int, nextMonth time.Month) {
	prevYear, prevMonth = NormalizeMonth(year, int(month)-1)
	nextYear, nextMonth = NormalizeMonth(year, int(month)+1)
	return
}

// Weeks lays the month out as Sunday-first weeks of day numbers; days
// outside the month are 0.
func Weeks(year int, month time.Month) [][7]int {
	start, end := MonthRange(year, int(month))

	var weeks [][7]int
	var week [7]int
	col := int(start.Weekday())
	for day := 1; day <= end.Day(); day++ {
		week[col] = day
		col++
		if col == 7 {
			weeks = append(weeks, week)
			week = [7]int{}
			col = 0
		}
	}
	if col > 0 {
		weeks = append(weeks, week)
	}
	return weeks
}
