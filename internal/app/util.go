package app

import (
	"time"
)

const DayLayout = "2006-01-02"

// StartOfDay returns local midnight of t's calendar day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayBounds returns [start, end) of t's calendar day and its YYYY-MM-DD key.
func DayBounds(t time.Time) (start time.Time, end time.Time, key string) {
	start = StartOfDay(t)
	end = start.AddDate(0, 0, 1)
	return start, end, start.Format(DayLayout)
}

func CurrentMessageTime() string {
	t := time.Now()
	return t.Format("02.01.2006 15:04")
}

func RemoveTrailingSlash(s string) string {
	if len(s) > 0 && s[len(s)-1] == '/' {
		return s[:len(s)-1]
	}
	return s
}

// Paginate turns page/size into limit/offset.
func Paginate(page int, size int) (limit int, offset int) {
	return size, (page - 1) * size
}
