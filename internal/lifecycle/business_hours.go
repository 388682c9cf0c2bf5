package lifecycle

import (
	"math"
	"time"
)

const (
	minutesPerDay   = 1440.0
	workHoursPerDay = 8.0
)

// BusinessHours converts the weekday time between start and end into work hours.
// Every weekday minute counts; Saturday and Sunday are skipped. 1440 counted
// minutes equal 8 work hours. The result is rounded to two decimals.
func BusinessHours(start, end time.Time, loc *time.Location) float64 {
	if loc == nil {
		loc = time.UTC
	}
	start = start.In(loc)
	end = end.In(loc)
	if !end.After(start) {
		return 0
	}

	var elapsed time.Duration
	cursor := start
	for cursor.Before(end) {
		y, m, d := cursor.Date()
		nextDay := time.Date(y, m, d+1, 0, 0, 0, 0, loc)
		segmentEnd := nextDay
		if segmentEnd.After(end) {
			segmentEnd = end
		}
		if wd := cursor.Weekday(); wd != time.Saturday && wd != time.Sunday {
			elapsed += segmentEnd.Sub(cursor)
		}
		cursor = segmentEnd
	}

	minutes := math.Floor(elapsed.Minutes())
	return math.Round(minutes/minutesPerDay*workHoursPerDay*100) / 100
}
