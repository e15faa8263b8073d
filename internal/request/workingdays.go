package request

import "time"

// WorkingDayCalculator abstracts the working-day/holiday calendar, which
// lives outside this service. The default implementation only skips
// weekends.
type WorkingDayCalculator interface {
	CountRange(start, end time.Time) int
	CountDates(dates []time.Time) int
}

type WeekdayCalculator struct{}

func NewWeekdayCalculator() WeekdayCalculator {
	return WeekdayCalculator{}
}

func (WeekdayCalculator) CountRange(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	count := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if isWeekday(d) {
			count++
		}
	}
	return count
}

func (WeekdayCalculator) CountDates(dates []time.Time) int {
	seen := make(map[string]struct{}, len(dates))
	count := 0
	for _, d := range dates {
		key := d.Format("2006-01-02")
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if isWeekday(d) {
			count++
		}
	}
	return count
}

func isWeekday(d time.Time) bool {
	wd := d.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}
