package etch

import (
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Reference motion parameters.
const (
	DefaultCanvasWidth     = 640
	DefaultCanvasHeight    = 480
	DefaultDeadZone        = 50.0 // on a 0-100 analog scale
	DefaultDialSensitivity = 2.0  // degrees of stick rotation per unit of movement
	DefaultSampleInterval  = 25 * time.Millisecond
)

// Axis selects a canvas dimension.
type Axis int

const (
	AxisX Axis = iota
	AxisY
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	default:
		return fmt.Sprintf("Axis(%d)", int(a))
	}
}

// ParseAxis parses "x" or "y" (case-insensitive).
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	default:
		return 0, fmt.Errorf("invalid axis %q (must be x or y)", s)
	}
}

// MarshalText encodes the axis as "x" or "y".
func (a Axis) MarshalText() ([]byte, error) {
	if a != AxisX && a != AxisY {
		return nil, fmt.Errorf("invalid axis %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText accepts the forms understood by ParseAxis.
func (a *Axis) UnmarshalText(b []byte) error {
	v, err := ParseAxis(string(b))
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// StylusPosition is a point on the canvas. The integrator keeps it within
// [0, width] x [0, height].
type StylusPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DialFrame holds the latest analog sample for each axis.
type DialFrame struct {
	X DialVector
	Y DialVector
}

// Get returns the sample driving axis a.
func (f DialFrame) Get(a Axis) DialVector {
	if a == AxisY {
		return f.Y
	}
	return f.X
}

// Set replaces the sample driving axis a.
func (f *DialFrame) Set(a Axis, v DialVector) {
	if a == AxisY {
		f.Y = v
		return
	}
	f.X = v
}

// Delta is an accumulated displacement for one tick.
type Delta struct {
	X float64
	Y float64
}

func (d *Delta) add(a Axis, v float64) {
	if a == AxisY {
		d.Y += v
		return
	}
	d.X += v
}

// MotionConfig contains all tunables of the motion integrator. It is constant
// for a session.
type MotionConfig struct {
	// Canvas bounds
	Width  float64
	Height float64

	// Dial path
	DeadZone        float64 // minimum stick magnitude for a sample to count
	DialSensitivity float64 // angle delta is divided by this

	// Gallop path
	Gallop GallopConfig

	// Cadence
	SampleInterval time.Duration
}

// DefaultMotionConfig returns the reference configuration.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Width:           DefaultCanvasWidth,
		Height:          DefaultCanvasHeight,
		DeadZone:        DefaultDeadZone,
		DialSensitivity: DefaultDialSensitivity,
		Gallop:          DefaultGallopConfig(),
		SampleInterval:  DefaultSampleInterval,
	}
}

// Integrator merges gallop events and dial rotation into stylus movement.
//
// It owns one GallopDecoder and one AngleTracker per axis. Which keys and which
// stick feed which axis is decided by the caller.
//
// Not safe for concurrent use. It is meant to be driven from a single loop on a
// fixed tick; the decoders may be fed from the same loop between ticks.
type Integrator struct {
	cfg    MotionConfig
	gallop [2]*GallopDecoder
	dial   [2]*AngleTracker
	logger *slog.Logger
}

// NewIntegrator creates an integrator with empty decoders and untracked dials.
func NewIntegrator(cfg MotionConfig, logger *slog.Logger) *Integrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	m := &Integrator{cfg: cfg, logger: logger}
	for _, a := range []Axis{AxisX, AxisY} {
		m.gallop[a] = NewGallopDecoder(cfg.Gallop, logger.With("axis", a.String()))
		m.dial[a] = NewAngleTracker(cfg.DeadZone)
	}
	return m
}

// Config returns the configuration the integrator was built with.
func (m *Integrator) Config() MotionConfig {
	return m.cfg
}

// Gallop returns the decoder feeding axis a.
func (m *Integrator) Gallop(a Axis) *GallopDecoder {
	return m.gallop[a]
}

// Dial returns the angle tracker feeding axis a.
func (m *Integrator) Dial(a Axis) *AngleTracker {
	return m.dial[a]
}

// Center returns the middle of the canvas.
func (m *Integrator) Center() StylusPosition {
	return StylusPosition{X: m.cfg.Width / 2, Y: m.cfg.Height / 2}
}

// GallopDelta drains every decodable gallop event and sums the magnitudes of
// the ones that arrived within tolerance.
func (m *Integrator) GallopDelta() Delta {
	var d Delta
	for _, a := range []Axis{AxisX, AxisY} {
		g := m.gallop[a]
		for {
			ev, ok := g.Pull()
			if !ok {
				break
			}
			if ev.Expired() {
				m.logger.Debug("gallop event expired", "axis", a.String(), "elapsed", ev.Elapsed)
				continue
			}
			d.add(a, ev.Magnitude())
		}
	}
	return d
}

// DialDelta samples both angle trackers and converts their rotation into movement.
func (m *Integrator) DialDelta(frame DialFrame) Delta {
	var d Delta
	if m.cfg.DialSensitivity == 0 {
		return d
	}
	for _, a := range []Axis{AxisX, AxisY} {
		deg := m.dial[a].Sample(frame.Get(a))
		if deg != 0 {
			m.logger.Debug("dial rotated", "axis", a.String(), "delta_deg", deg)
		}
		d.add(a, deg/m.cfg.DialSensitivity)
	}
	return d
}

// Apply moves pos by d, clamps each axis to the canvas, and reports whether
// pos changed.
func (m *Integrator) Apply(pos *StylusPosition, d Delta) bool {
	prev := *pos
	pos.X = clamp(pos.X+d.X, 0, m.cfg.Width)
	pos.Y = clamp(pos.Y+d.Y, 0, m.cfg.Height)
	return *pos != prev
}

// Step runs one full tick: gallop events, then dial rotation, then clamping.
func (m *Integrator) Step(pos *StylusPosition, frame DialFrame) bool {
	g := m.GallopDelta()
	d := m.DialDelta(frame)
	return m.Apply(pos, Delta{X: g.X + d.X, Y: g.Y + d.Y})
}

// Reset drops pending presses and forgets tracked angles.
func (m *Integrator) Reset() {
	for _, a := range []Axis{AxisX, AxisY} {
		m.gallop[a].Clear()
		m.dial[a].Reset()
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
