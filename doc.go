// Package etch converts analog stick rotation and rolling key gestures into
// stylus movement on a bounded canvas.
//
// Each axis has a GallopDecoder fed by four adjacent keys and an AngleTracker
// fed by one stick. An Integrator drains both once per tick and clamps the
// result to the canvas. None of the types are safe for concurrent use; the
// host drives them from a single goroutine.
package etch
