package main

import (
	"fmt"
	"log/slog"
	"time"

	"etch"
)

// StateBroadcast is a state change published to websocket clients. The daemon
// emits these; the broadcaster turns them into wire messages.
type StateBroadcast interface {
	broadcastMarker()
}

// BroadcastSegment is one stylus move produced by a tick.
type BroadcastSegment struct {
	From etch.StylusPosition
	To   etch.StylusPosition
	At   time.Time
}

func (BroadcastSegment) broadcastMarker() {}

// BroadcastStylusReset reports that the stylus jumped back to Position.
type BroadcastStylusReset struct {
	Position etch.StylusPosition
	At       time.Time
}

func (BroadcastStylusReset) broadcastMarker() {}

// DrawState is the daemon-owned drawing state.
//
// Only the daemon goroutine may call its methods. Other goroutines see it
// through StateSnapshot.
type DrawState struct {
	integ *etch.Integrator
	frame etch.DialFrame
	pos   etch.StylusPosition

	logger *slog.Logger
}

// NewDrawState builds the integrator and puts the stylus at the canvas centre.
func NewDrawState(cfg etch.MotionConfig, logger *slog.Logger) *DrawState {
	integ := etch.NewIntegrator(cfg, logger)
	return &DrawState{
		integ:  integ,
		pos:    integ.Center(),
		logger: logger,
	}
}

// Position returns the current stylus position.
func (s *DrawState) Position() etch.StylusPosition {
	return s.pos
}

// Snapshot returns a copy of the state for other goroutines.
func (s *DrawState) Snapshot() StateSnapshot {
	cfg := s.integ.Config()
	return StateSnapshot{
		Position: s.pos,
		Width:    cfg.Width,
		Height:   cfg.Height,
	}
}

// Apply feeds one input event into the integrator. Movement only happens on
// ticks; the only event that moves the stylus immediately is ResetStylus.
func (s *DrawState) Apply(ev Event, at time.Time) []StateBroadcast {
	switch e := ev.(type) {
	case TimedEvent:
		return s.Apply(e.Event, e.At)

	case LanePressed:
		if err := e.Validate(); err != nil {
			s.logger.Warn("dropping lane press", "error", err)
			return nil
		}
		if err := s.integ.Gallop(e.Axis).PushAt(e.Lane, at); err != nil {
			s.logger.Warn("dropping lane press", "error", err)
		}
		return nil

	case DialSample:
		if err := e.Validate(); err != nil {
			s.logger.Warn("dropping dial sample", "error", err)
			return nil
		}
		s.frame.Set(e.Axis, etch.DialVector{X: e.X, Y: e.Y})
		return nil

	case ResetStylus:
		s.integ.Reset()
		s.frame = etch.DialFrame{}
		s.pos = s.integ.Center()
		s.logger.Info("stylus reset", "x", s.pos.X, "y", s.pos.Y)
		return []StateBroadcast{BroadcastStylusReset{Position: s.pos, At: at}}

	default:
		s.logger.Debug("ignoring event", "type", fmt.Sprintf("%T", ev))
		return nil
	}
}

// StepGallop drains the gallop decoders and moves the stylus.
func (s *DrawState) StepGallop(at time.Time) []StateBroadcast {
	return s.move(s.integ.GallopDelta(), at)
}

// StepDial samples the latest stick positions and moves the stylus.
func (s *DrawState) StepDial(at time.Time) []StateBroadcast {
	return s.move(s.integ.DialDelta(s.frame), at)
}

// Step runs both paths in one tick.
func (s *DrawState) Step(at time.Time) []StateBroadcast {
	g := s.integ.GallopDelta()
	d := s.integ.DialDelta(s.frame)
	return s.move(etch.Delta{X: g.X + d.X, Y: g.Y + d.Y}, at)
}

func (s *DrawState) move(d etch.Delta, at time.Time) []StateBroadcast {
	from := s.pos
	if !s.integ.Apply(&s.pos, d) {
		return nil
	}
	return []StateBroadcast{BroadcastSegment{From: from, To: s.pos, At: at}}
}
