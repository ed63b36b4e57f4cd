package steps

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTrending(t *testing.T) {
	cases := []struct {
		name string
		in   TrendingInput
		want int64
	}{
		{
			// p7 70*4=280, p30 300*27=8100; 40*0.75 + 270*0.25 = 97.5;
			// *1.3 = 126.75; + 11*600/14 = 598.18
			name: "young product is compensated and boosted",
			in:   TrendingInput{Age: 3, Profit7: 70, Profit30: 300, Availability: 1},
			want: 598,
		},
		{
			// 110*27/30*0.25 = 24.75; *1.3 = 32.175; + 471.43 = 503.6
			name: "young product without short term profit",
			in:   TrendingInput{Age: 3, Profit7: 0, Profit30: 110, Availability: 1},
			want: 503,
		},
		{
			name: "established product",
			in:   TrendingInput{Age: 100, Profit7: 70, Profit30: 300, Availability: 1},
			want: 10,
		},
		{
			name: "availability scales the value",
			in:   TrendingInput{Age: 100, Profit7: 700, Profit30: 3000, Availability: 0.5},
			want: 50,
		},
		{
			name: "zero availability leaves value unscaled",
			in:   TrendingInput{Age: 100, Profit7: 700, Profit30: 3000, Availability: 0},
			want: 100,
		},
		{
			name: "boost is gone at two weeks",
			in:   TrendingInput{Age: 14, Profit7: 0, Profit30: 0, Availability: 1},
			want: 0,
		},
		{
			name: "boost on day thirteen",
			in:   TrendingInput{Age: 13, Profit7: 0, Profit30: 0, Availability: 1},
			want: 42,
		},
		{
			name: "losses floor downward",
			in:   TrendingInput{Age: 100, Profit7: -7, Profit30: 0, Availability: 1},
			want: -1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Trending(tc.in))
		})
	}
}

func TestTrending_DayZeroCompensation(t *testing.T) {
	// Age 0 multiplies 7-day profit by 7 and 30-day profit by 30 before averaging.
	got := Trending(TrendingInput{Age: 0, Profit7: 10, Profit30: 10, Availability: 1})
	// (70/7)*0.75 + (300/30)*0.25 = 10; *1.3 = 13; + 600 = 613
	assert.Equal(t, int64(613), got)
}

func TestTrending_Deterministic(t *testing.T) {
	in := TrendingInput{Age: 9, Profit7: 123, Profit30: 456, Availability: 0.67}
	first := Trending(in)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Trending(in))
	}
}

func TestOverstock(t *testing.T) {
	assert.Equal(t, int64(50), Overstock(50, 0))
	assert.Equal(t, int64(-5), Overstock(5, 10))
	assert.Equal(t, int64(0), Overstock(0, 0))
}

func TestStockDays(t *testing.T) {
	for _, stock := range []int64{-3, 0, 50, 100000} {
		assert.Equal(t, int64(StockDaysUnbounded), StockDays(stock, 0, 12), "stock=%d", stock)
	}
	// round(50/20)=3 (2.5 rounds away from zero) * min(90,30)
	assert.Equal(t, int64(90), StockDays(50, 20, 90))
	// young products use their age
	assert.Equal(t, int64(20), StockDays(40, 10, 5))
	assert.Equal(t, int64(0), StockDays(1, 10, 40))
}

func TestProductAge(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, int64(3), ProductAge(now.AddDate(0, 0, -3), now))
	assert.Equal(t, int64(3), ProductAge(now.Add(-(2*24+13)*time.Hour), now))
	assert.Equal(t, int64(2), ProductAge(now.Add(-(2*24+11)*time.Hour), now))
	assert.Equal(t, int64(0), ProductAge(now, now))
	assert.Equal(t, int64(0), ProductAge(time.Time{}, now))
}

func TestRoundScore(t *testing.T) {
	assert.Equal(t, 0.67, RoundScore(2.0/3.0))
	assert.Equal(t, 0.33, RoundScore(1.0/3.0))
	assert.Equal(t, 1.0, RoundScore(1))
}

func TestWindowStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 8, 0, 0, 0, 0, time.UTC), WindowStart(now, 7))
	assert.Equal(t, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC), WindowStart(now, 30))
}
