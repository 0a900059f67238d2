package util

import (
	"time"

	iso8601 "github.com/senseyeio/duration"
)

const MinutesPerDay = 24 * 60

// ParseClockTime parses a strict "HH:MM" time of day into minutes since midnight
func ParseClockTime(value string) (int, bool) {
	if len(value) != 5 || value[2] != ':' {
		return 0, false
	}

	digits := []byte{value[0], value[1], value[3], value[4]}
	for _, d := range digits {
		if d < '0' || d > '9' {
			return 0, false
		}
	}

	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')

	if hour > 23 || minute > 59 {
		return 0, false
	}

	return hour*60 + minute, true
}

// ClockMinutes returns the minutes since midnight of t in its own location, ignoring seconds
func ClockMinutes(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// ParseDuration accepts either an ISO8601 duration (PT2M) or a Go duration string (2m)
func ParseDuration(value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	if value[0] == 'P' {
		isoDuration, err := iso8601.ParseISO8601(value)
		if err != nil {
			return 0, err
		}

		reference := time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)
		return isoDuration.Shift(reference).Sub(reference), nil
	}

	return time.ParseDuration(value)
}
