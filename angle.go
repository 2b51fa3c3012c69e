package etch

import (
	"math"
)

// Wrap detection band for AngleDelta.
//
// A jump from >= wrapHighDeg to < wrapLowDeg (or the reverse) is treated as a
// crossing of 0/360 rather than a long sweep the other way round. The band is
// wider than the naive 90/270 split so that jitter near an axis does not
// register as a wrap.
const (
	wrapLowDeg  = 135.0
	wrapHighDeg = 225.0
)

// DialVector is one analog sample (e.g. a joystick axis pair) in arbitrary units.
// The host scales gamepad axes to roughly [-100, 100].
type DialVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Magnitude returns the Euclidean length of the vector.
func (v DialVector) Magnitude() float64 {
	return math.Hypot(v.X, v.Y)
}

// AngleOf maps a vector to an angle in [0, 360) degrees.
//
// The convention is compass-like: the positive Y axis is 270, positive X is 0,
// negative Y is 90 and negative X is 180, so the angle increases as the vector
// sweeps clockwise. (0, 0) has no direction and yields NaN.
func AngleOf(x, y float64) float64 {
	ax, ay := math.Abs(x), math.Abs(y)
	yOverX := rad2deg(math.Atan(ay / ax))
	xOverY := rad2deg(math.Atan(ax / ay))

	var deg float64
	switch {
	case x >= 0 && y >= 0:
		deg = xOverY + 270
	case x >= 0 && y < 0:
		deg = yOverX
	case x < 0 && y < 0:
		deg = xOverY + 90
	default: // x < 0, y >= 0
		deg = yOverX + 180
	}

	// (+x, 0) lands on exactly 360.
	if deg >= 360 {
		deg -= 360
	}
	return deg
}

// AngleDelta returns the signed difference newDeg - oldDeg, taking the short way
// across 0/360 when the two angles sit on opposite sides of the wrap band.
func AngleDelta(newDeg, oldDeg float64) float64 {
	switch {
	case oldDeg >= wrapHighDeg && newDeg < wrapLowDeg:
		// crossed zero clockwise
		return (newDeg + 360) - oldDeg
	case oldDeg < wrapLowDeg && newDeg > wrapHighDeg:
		// crossed zero counter-clockwise
		return newDeg - (oldDeg + 360)
	default:
		return newDeg - oldDeg
	}
}

func rad2deg(r float64) float64 {
	return r * 180 / math.Pi
}

// AngleTracker follows the direction of an analog stick and reports how far it
// turned between samples.
//
// Samples whose magnitude does not exceed the dead zone are ignored and the last
// stable angle is kept, so a stick springing back to centre does not snap the
// tracked angle to a meaningless direction.
//
// Not safe for concurrent use.
type AngleTracker struct {
	deadZone  float64
	lastAngle float64 // NaN until the first accepted sample
}

// NewAngleTracker creates a tracker with the given dead-zone threshold.
func NewAngleTracker(deadZone float64) *AngleTracker {
	return &AngleTracker{
		deadZone:  deadZone,
		lastAngle: math.NaN(),
	}
}

// Angle returns the last stable angle and whether one has been established.
func (t *AngleTracker) Angle() (float64, bool) {
	if math.IsNaN(t.lastAngle) {
		return 0, false
	}
	return t.lastAngle, true
}

// Sample feeds one vector and returns the signed angle change in degrees.
//
// The first accepted sample only establishes the reference angle and returns 0.
// Degenerate or below-dead-zone samples return 0 and leave the tracker unchanged.
func (t *AngleTracker) Sample(v DialVector) float64 {
	if !isFinite(v.X) || !isFinite(v.Y) {
		return 0
	}
	if !(v.Magnitude() > t.deadZone) {
		return 0
	}

	angle := AngleOf(v.X, v.Y)
	if math.IsNaN(angle) {
		return 0
	}

	prev := t.lastAngle
	t.lastAngle = angle
	if math.IsNaN(prev) {
		return 0
	}
	return AngleDelta(angle, prev)
}

// Reset forgets the reference angle.
func (t *AngleTracker) Reset() {
	t.lastAngle = math.NaN()
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
