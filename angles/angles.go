// Package angles provides helpers for working with planar headings in radians.
package angles

import "math"

// Normalize wraps an angle in radians into the half-open interval [-Pi, Pi).
// Pi itself maps to -Pi so the interval has a single representation for a
// half turn. The function is idempotent for values already inside the
// interval.
func Normalize(angle float64) float64 {
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
