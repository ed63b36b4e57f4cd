package steps

import "math"

type TrendingInput struct {
	Age          int64
	Profit7      int64
	Profit30     int64
	Availability float64
}

// Trending blends short and long term daily profit. Products younger than a window have
// their profit scaled up as if they had sold for the whole window, and products younger
// than two weeks get a boost that fades out linearly. A zero availability leaves the
// value unscaled.
func Trending(in TrendingInput) int64 {
	p7 := float64(in.Profit7)
	p30 := float64(in.Profit30)
	age := float64(in.Age)

	if in.Age < 7 {
		p7 *= 7 - age
	}
	if in.Age < 30 {
		p30 *= 30 - age
	}

	v := (p7/7)*0.75 + (p30/30)*0.25

	if in.Age < 14 {
		v += v * 0.3
		v += (14 - age) * (600.0 / 14.0)
	}

	if in.Availability != 0 {
		v *= in.Availability
	}
	return int64(math.Floor(v))
}
