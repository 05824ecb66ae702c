package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const twoPi = 2 * math.Pi

var (
	axisX = r3.Vec{X: 1}
	axisZ = r3.Vec{Z: 1}
)

// TangentBasis returns the local triad of a sky position: r points at
// (ra, dec), p towards increasing ra and q towards increasing dec.
func TangentBasis(ra, dec float64) (p, q, r r3.Vec) {
	sa, ca := math.Sincos(ra)
	sd, cd := math.Sincos(dec)
	p = r3.Vec{X: -sa, Y: ca}
	q = r3.Vec{X: -sd * ca, Y: -sd * sa, Z: cd}
	r = r3.Vec{X: cd * ca, Y: cd * sa, Z: sd}
	return p, q, r
}

// RaDec returns the spherical coordinates of a direction. The ra is
// normalised to [0, 2π).
func RaDec(v r3.Vec) (ra, dec float64) {
	u := r3.Unit(v)
	ra = normalizeAngle(math.Atan2(u.Y, u.X))
	dec = math.Asin(clamp(u.Z, -1, 1))
	return ra, dec
}

// WrapAngle maps an angle difference onto (-π, π].
func WrapAngle(a float64) float64 {
	w := math.Remainder(a, twoPi)
	if w == -math.Pi {
		return math.Pi
	}
	return w
}

// rotateX rotates v about the x axis by angle.
func rotateX(v r3.Vec, angle float64) r3.Vec {
	s, c := math.Sincos(angle)
	return r3.Vec{X: v.X, Y: c*v.Y - s*v.Z, Z: s*v.Y + c*v.Z}
}

func normalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle, twoPi)
	if wrapped < 0 {
		wrapped += twoPi
	}
	return wrapped
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

func finite(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
