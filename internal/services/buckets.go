package services

import (
	"time"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

type Granularity string

const (
	Day   Granularity = "day"
	Week  Granularity = "week"
	Month Granularity = "month"
	Year  Granularity = "year"
)

// BucketWindow is the last Periods calendar periods ending with the one that
// contains "now".
type BucketWindow struct {
	Granularity Granularity
	Periods     int
}

var (
	DailyWindow   = BucketWindow{Granularity: Day, Periods: 30}
	WeeklyWindow  = BucketWindow{Granularity: Week, Periods: 12}
	MonthlyWindow = BucketWindow{Granularity: Month, Periods: 12}
	YearlyWindow  = BucketWindow{Granularity: Year, Periods: 5}
)

// BucketLabel formats t the way the charts key their series. Month and year
// labels carry no disambiguating year, so "Jan" of two different years share
// a bucket.
func BucketLabel(g Granularity, t time.Time) string {
	switch g {
	case Week:
		return "Week of " + startOfWeek(t).Format("02 Jan")
	case Month:
		return t.Format("Jan")
	case Year:
		return t.Format("2006")
	default:
		return t.Format("Jan 02")
	}
}

// AggregateBuckets sums transaction totals into the window's buckets, oldest
// first. Every bucket is present even when nothing was sold in it; rows whose
// label falls outside the window are dropped.
func AggregateBuckets(rows []models.Transaction, w BucketWindow, now time.Time) []models.TimeBucket {
	if w.Periods <= 0 {
		return []models.TimeBucket{}
	}

	buckets := make([]models.TimeBucket, w.Periods)
	index := make(map[string]int, w.Periods)

	// Generated newest first, stored oldest first.
	for i := 0; i < w.Periods; i++ {
		label := BucketLabel(w.Granularity, periodStart(w.Granularity, now, i))
		pos := w.Periods - 1 - i
		buckets[pos] = models.TimeBucket{Label: label, Amount: decimal.Zero}
		if _, dup := index[label]; !dup {
			index[label] = pos
		}
	}

	loc := now.Location()
	for _, row := range rows {
		label := BucketLabel(w.Granularity, row.CreatedAt.In(loc))
		if pos, ok := index[label]; ok {
			buckets[pos].Amount = buckets[pos].Amount.Add(row.TotalAmount)
		}
	}
	return buckets
}

// WindowStart is the first instant of the oldest period in w.
func WindowStart(w BucketWindow, now time.Time) time.Time {
	if w.Periods <= 0 {
		return models.StartOfDay(now)
	}
	return periodStart(w.Granularity, now, w.Periods-1)
}

// periodStart returns the start of the period n steps before the one
// containing now.
func periodStart(g Granularity, now time.Time, n int) time.Time {
	switch g {
	case Week:
		return startOfWeek(now).AddDate(0, 0, -7*n)
	case Month:
		y, m, _ := now.Date()
		return time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, now.Location())
	case Year:
		return time.Date(now.Year()-n, time.January, 1, 0, 0, 0, 0, now.Location())
	default:
		return models.StartOfDay(now).AddDate(0, 0, -n)
	}
}

// Weeks start on Sunday.
func startOfWeek(t time.Time) time.Time {
	return models.StartOfDay(t).AddDate(0, 0, -int(t.Weekday()))
}
