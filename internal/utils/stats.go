package utils

import (
	"math"
	"time"
)

// MonthLayout is the bucket key format used by the analytics read path.
const MonthLayout = "2006-01"

// WinRate returns round(accepted / (accepted + rejected) * 100), or -1 when
// nothing has been decided yet.
func WinRate(accepted, rejected int) int {
	total := accepted + rejected
	if total == 0 {
		return -1
	}
	return int(math.Round(float64(accepted) / float64(total) * 100))
}

// Ratio returns part/total rounded to 2 decimals, 0 for an empty total.
func Ratio(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return RoundTo(float64(part)/float64(total), 2)
}

// RoundTo rounds v to the given number of decimal places.
func RoundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// MonthStart truncates t to the first instant of its UTC month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// MonthKey formats t as YYYY-MM in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format(MonthLayout)
}

// TrailingMonths returns the month keys of the window ending at now's month,
// oldest first. months < 1 is treated as 1.
func TrailingMonths(now time.Time, months int) []string {
	if months < 1 {
		months = 1
	}
	start := MonthStart(now).AddDate(0, -(months - 1), 0)
	keys := make([]string, 0, months)
	for i := 0; i < months; i++ {
		keys = append(keys, MonthKey(start.AddDate(0, i, 0)))
	}
	return keys
}

// WindowStart returns the first instant covered by TrailingMonths(now, months).
func WindowStart(now time.Time, months int) time.Time {
	if months < 1 {
		months = 1
	}
	return MonthStart(now).AddDate(0, -(months - 1), 0)
}

// AverageDays averages durations in days, rounded to 2 decimals; 0 when empty.
func AverageDays(durations []time.Duration) float64 {
	if len(durations) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range durations {
		total += d
	}
	avg := total.Hours() / 24 / float64(len(durations))
	return RoundTo(avg, 2)
}
