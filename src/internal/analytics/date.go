package analytics

import "time"

// DateNumber returns the number of whole days between the Unix epoch and t,
// counted in t's location so that day boundaries fall on local midnight.
func DateNumber(t time.Time) int {
	_, offset := t.Zone()
	secs := t.Unix() + int64(offset)
	day := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		day--
	}
	return int(day)
}

// StartOfDay returns local midnight of the day containing t.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
