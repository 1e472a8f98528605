package aggregation

import "time"

// DayWindow floors any instant to UTC midnight and returns the half-open
// window [midnight, midnight+24h). Every calculator reads the same window, so
// re-aggregating "the same day" from any caller timezone always touches
// identical rows.
func DayWindow(t time.Time) (start, end time.Time) {
	utc := t.UTC()
	start = time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	end = start.Add(24 * time.Hour)
	return start, end
}

// YesterdayUTC returns UTC midnight of the previous calendar day, the default
// target for scheduled and manual runs.
func YesterdayUTC() time.Time {
	start, _ := DayWindow(time.Now().UTC().AddDate(0, 0, -1))
	return start
}
