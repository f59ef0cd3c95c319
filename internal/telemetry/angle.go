package telemetry

import (
	"math"

	"github.com/golang/geo/s1"
)

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// BoatAngleOf recovers an angle in [-180, 180] from its sine and cosine. The
// inputs need not be normalized; smoothed components rarely are.
func BoatAngleOf(s, c float64) float64 {
	sAng := s1.Angle(math.Asin(clampUnit(s))).Degrees()
	cAng := s1.Angle(math.Acos(clampUnit(c))).Degrees()
	switch {
	case cAng < 45:
		return sAng
	case cAng > 135:
		if sAng > 0 {
			return 180 - sAng
		}
		return -180 - sAng
	case sAng < 0:
		return -cAng
	default:
		return cAng
	}
}

// CompassAngleOf recovers an angle in [0, 360) from its sine and cosine.
func CompassAngleOf(s, c float64) float64 {
	a := BoatAngleOf(s, c)
	if a < 0 {
		a += 360
	}
	if a >= 360 {
		a -= 360
	}
	return a
}

func sinCosDeg(deg float64) (float64, float64) {
	return math.Sincos((s1.Angle(deg) * s1.Degree).Radians())
}
