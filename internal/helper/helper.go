package helper

import (
	"time"

	"github.com/shopspring/decimal"
)

// Round rounds v half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

// RoundPtr rounds v and returns a pointer to the result.
func RoundPtr(v float64, places int32) *float64 {
	r := Round(v, places)
	return &r
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }

// DayBounds returns the UTC calendar day containing t as [start, end).
func DayBounds(t time.Time) (time.Time, time.Time) {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}

// SumRounded adds values in decimal arithmetic and rounds the total.
func SumRounded(places int32, values ...float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v))
	}
	f, _ := total.Round(places).Float64()
	return f
}
