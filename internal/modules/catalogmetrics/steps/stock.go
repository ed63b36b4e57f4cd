package steps

import (
	"math"
	"time"
)

// StockDaysUnbounded stands in for an infinite runway when nothing sold.
const StockDaysUnbounded = 1000

const day = 24 * time.Hour

func Overstock(stock, sales30 int64) int64 {
	return int64(math.Round(float64(stock - sales30)))
}

// StockDays estimates the runway at the 30 day sales pace, capped by how long the
// product has been listed.
func StockDays(stock, sales30, age int64) int64 {
	if sales30 == 0 {
		return StockDaysUnbounded
	}
	span := age
	if span > LongWindow {
		span = LongWindow
	}
	return int64(math.Round(float64(stock)/float64(sales30))) * span
}

// ProductAge is whole days since publication, rounded to the nearest day.
func ProductAge(publishedAt, now time.Time) int64 {
	if publishedAt.IsZero() {
		return 0
	}
	return int64(math.Round(float64(now.Sub(publishedAt)) / float64(day)))
}
