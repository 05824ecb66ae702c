package core

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Detector turns a barycentric direction into the measured field angle.
type Detector interface {
	// FieldAngle returns the measured angle of direction under att.
	FieldAngle(direction r3.Vec, att AttitudeState) float64
	// FieldAngleDerivative returns dη for an infinitesimal change dDirection.
	FieldAngleDerivative(direction, dDirection r3.Vec, att AttitudeState) float64
}

// AlongScanDetector measures the along-scan angle η = atan2(w_y, w_x) of the
// direction w in the scan frame. Both methods are invariant to the length of
// direction, so unnormalised directions may be passed.
type AlongScanDetector struct{}

var _ Detector = AlongScanDetector{}

func (AlongScanDetector) FieldAngle(direction r3.Vec, att AttitudeState) float64 {
	w := att.ToScanFrame(direction)
	return math.Atan2(w.Y, w.X)
}

func (AlongScanDetector) FieldAngleDerivative(direction, dDirection r3.Vec, att AttitudeState) float64 {
	w := att.ToScanFrame(direction)
	dw := att.ToScanFrame(dDirection)
	rho2 := w.X*w.X + w.Y*w.Y
	if rho2 == 0 {
		return 0
	}
	return (w.X*dw.Y - w.Y*dw.X) / rho2
}

// AcrossScanAngle returns ζ, the elevation of direction above the scan plane.
func AcrossScanAngle(direction r3.Vec, att AttitudeState) float64 {
	w := r3.Unit(att.ToScanFrame(direction))
	return math.Asin(clamp(w.Z, -1, 1))
}
