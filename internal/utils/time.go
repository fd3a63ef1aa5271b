package utils

import "time"

// HourBucket truncates t to the start of its UTC hour.
func HourBucket(t time.Time) time.Time {
	return t.UTC().Truncate(time.Hour)
}

// HourLabel formats the hour as "HH:00".
func HourLabel(t time.Time) string {
	return t.UTC().Format("15") + ":00"
}
