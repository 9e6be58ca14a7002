package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"retail-dashboard/internal/models"
)

// Friday.
var bucketNow = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func sale(at time.Time, amount int64) models.Transaction {
	return models.Transaction{
		ID:          at.Format(time.RFC3339Nano),
		CreatedAt:   at,
		TotalAmount: decimal.NewFromInt(amount),
		Status:      models.StatusCompleted,
	}
}

func sumBuckets(buckets []models.TimeBucket) decimal.Decimal {
	total := decimal.Zero
	for _, b := range buckets {
		total = total.Add(b.Amount)
	}
	return total
}

func TestAggregateBuckets_WindowShape(t *testing.T) {
	tests := []struct {
		name   string
		window BucketWindow
		first  string
		last   string
	}{
		{"daily", DailyWindow, "Feb 15", "Mar 15"},
		{"weekly", WeeklyWindow, "Week of 24 Dec", "Week of 10 Mar"},
		{"monthly", MonthlyWindow, "Apr", "Mar"},
		{"yearly", YearlyWindow, "2020", "2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateBuckets(nil, tt.window, bucketNow)

			if len(got) != tt.window.Periods {
				t.Fatalf("len = %d, want %d", len(got), tt.window.Periods)
			}
			if got[0].Label != tt.first {
				t.Errorf("first label = %q, want %q", got[0].Label, tt.first)
			}
			if got[len(got)-1].Label != tt.last {
				t.Errorf("last label = %q, want %q", got[len(got)-1].Label, tt.last)
			}
			for _, b := range got {
				if !b.Amount.IsZero() {
					t.Errorf("bucket %q = %s, want 0", b.Label, b.Amount)
				}
			}
		})
	}
}

func TestAggregateBuckets_SharedDay(t *testing.T) {
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	rows := []models.Transaction{
		sale(day.Add(9*time.Hour), 100),
		sale(day.Add(12*time.Hour), 250),
		sale(day.Add(18*time.Hour), 0),
	}

	got := AggregateBuckets(rows, DailyWindow, bucketNow)

	for _, b := range got {
		want := decimal.Zero
		if b.Label == "Mar 10" {
			want = decimal.NewFromInt(350)
		}
		if !b.Amount.Equal(want) {
			t.Errorf("bucket %q = %s, want %s", b.Label, b.Amount, want)
		}
	}
}

func TestAggregateBuckets_ExcludesRowsOutsideWindow(t *testing.T) {
	rows := []models.Transaction{
		sale(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), 40),
		sale(time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC), 1000),
		sale(time.Date(2024, 3, 15, 23, 0, 0, 0, time.UTC), 2),
	}

	got := AggregateBuckets(rows, DailyWindow, bucketNow)

	if want := decimal.NewFromInt(42); !sumBuckets(got).Equal(want) {
		t.Errorf("sum = %s, want %s", sumBuckets(got), want)
	}
}

func TestAggregateBuckets_WeekStartsSunday(t *testing.T) {
	rows := []models.Transaction{
		sale(time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC), 5),  // Saturday
		sale(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC), 7), // Sunday
	}

	got := AggregateBuckets(rows, WeeklyWindow, bucketNow)

	byLabel := make(map[string]decimal.Decimal)
	for _, b := range got {
		byLabel[b.Label] = b.Amount
	}
	if !byLabel["Week of 03 Mar"].Equal(decimal.NewFromInt(5)) {
		t.Errorf("Week of 03 Mar = %s, want 5", byLabel["Week of 03 Mar"])
	}
	if !byLabel["Week of 10 Mar"].Equal(decimal.NewFromInt(7)) {
		t.Errorf("Week of 10 Mar = %s, want 7", byLabel["Week of 10 Mar"])
	}
}

// Month labels carry no year, so a sale from an older May lands in this
// window's May bucket.
func TestAggregateBuckets_MonthLabelCollision(t *testing.T) {
	rows := []models.Transaction{
		sale(time.Date(2023, 5, 10, 12, 0, 0, 0, time.UTC), 10),
		sale(time.Date(2021, 5, 10, 12, 0, 0, 0, time.UTC), 3),
	}

	got := AggregateBuckets(rows, MonthlyWindow, bucketNow)

	for _, b := range got {
		if b.Label == "May" && !b.Amount.Equal(decimal.NewFromInt(13)) {
			t.Errorf("May = %s, want 13", b.Amount)
		}
	}
}

func TestAggregateBuckets_UsesNowLocation(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)
	now := bucketNow.In(est)

	// 02:00 UTC on the 15th is the evening of the 14th in EST.
	rows := []models.Transaction{sale(time.Date(2024, 3, 15, 2, 0, 0, 0, time.UTC), 9)}
	got := AggregateBuckets(rows, DailyWindow, now)

	if got[len(got)-2].Label != "Mar 14" || !got[len(got)-2].Amount.Equal(decimal.NewFromInt(9)) {
		t.Errorf("got %+v, want Mar 14 = 9", got[len(got)-2])
	}
}

func TestAggregateBuckets_EndOfMonthStepping(t *testing.T) {
	now := time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)
	got := AggregateBuckets(nil, MonthlyWindow, now)

	seen := make(map[string]bool)
	for _, b := range got {
		if seen[b.Label] {
			t.Errorf("duplicate label %q", b.Label)
		}
		seen[b.Label] = true
	}
	if !seen["Feb"] {
		t.Error("Feb missing from window ending 31 Mar")
	}
}

func TestWindowStart(t *testing.T) {
	tests := []struct {
		window BucketWindow
		want   time.Time
	}{
		{DailyWindow, time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)},
		{WeeklyWindow, time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)},
		{MonthlyWindow, time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)},
		{YearlyWindow, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(string(tt.window.Granularity), func(t *testing.T) {
			if got := WindowStart(tt.window, bucketNow); !got.Equal(tt.want) {
				t.Errorf("WindowStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func BenchmarkAggregateBuckets(b *testing.B) {
	rows := make([]models.Transaction, 5000)
	for i := range rows {
		rows[i] = sale(bucketNow.Add(-time.Duration(i)*time.Hour), int64(i%200))
	}

	for b.Loop() {
		_ = AggregateBuckets(rows, DailyWindow, bucketNow)
	}
}
