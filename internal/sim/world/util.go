package world

import "math"

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

func clampF(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// round3 keeps recorded numeric metadata stable for diffing/serialization.
func round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
