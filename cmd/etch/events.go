package main

import (
	"encoding/json"
	"fmt"
	"time"

	"etch"
)

// ============================================================================
// Event Types
// ============================================================================
// Events carry input from every source (evdev, terminal, IPC) to the daemon
// loop, which is the only goroutine that touches the integrator.
// ============================================================================

// Event is a marker interface for everything the daemon consumes.
type Event interface {
	eventMarker()
}

// LanePressed is one key-down on a gallop lane.
type LanePressed struct {
	Axis etch.Axis `json:"axis"`
	Lane int       `json:"lane"`
}

func (LanePressed) eventMarker() {}

// Validate rejects presses the decoder would refuse.
func (e LanePressed) Validate() error {
	if e.Axis != etch.AxisX && e.Axis != etch.AxisY {
		return fmt.Errorf("invalid axis %d", int(e.Axis))
	}
	if e.Lane < 0 || e.Lane >= etch.LaneCount {
		return fmt.Errorf("lane %d: %w", e.Lane, etch.ErrLaneOutOfRange)
	}
	return nil
}

// DialSample is the latest stick position for one axis, scaled to [-100, 100].
type DialSample struct {
	Axis etch.Axis `json:"axis"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

func (DialSample) eventMarker() {}

func (e DialSample) Validate() error {
	if e.Axis != etch.AxisX && e.Axis != etch.AxisY {
		return fmt.Errorf("invalid axis %d", int(e.Axis))
	}
	return nil
}

// ResetStylus recenters the stylus and forgets pending input.
type ResetStylus struct{}

func (ResetStylus) eventMarker() {}

// TimedEvent carries the capture time of an input event. Sources that can
// stamp events close to the hardware wrap them; bare events are stamped on
// receipt by the daemon.
type TimedEvent struct {
	Event Event
	At    time.Time
}

func (TimedEvent) eventMarker() {}

// RequestStateSnapshot asks the daemon for a coherent view of the drawing state.
// The daemon replies without blocking, so Reply should be buffered.
type RequestStateSnapshot struct {
	Reply chan<- StateSnapshot
}

func (RequestStateSnapshot) eventMarker() {}

// StateSnapshot is a copy of daemon-owned state, safe to hand to other goroutines.
type StateSnapshot struct {
	Position etch.StylusPosition
	Width    float64
	Height   float64
}

// ============================================================================
// JSON Encoding/Decoding Support
// ============================================================================
// Only the payload events are exposed over IPC. Snapshots and timestamps stay
// internal.
// ============================================================================

// EventEnvelope wraps an event with a type discriminator for JSON marshaling
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	eventTypeLanePressed = "lane_pressed"
	eventTypeDialSample  = "dial_sample"
	eventTypeResetStylus = "reset_stylus"
)

// UnmarshalEvent deserializes a JSON event envelope into a concrete, validated Event
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case eventTypeLanePressed:
		var e LanePressed
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal LanePressed: %w", err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid LanePressed: %w", err)
		}
		return e, nil

	case eventTypeDialSample:
		var e DialSample
		if err := json.Unmarshal(env.Data, &e); err != nil {
			return nil, fmt.Errorf("unmarshal DialSample: %w", err)
		}
		if err := e.Validate(); err != nil {
			return nil, fmt.Errorf("invalid DialSample: %w", err)
		}
		return e, nil

	case eventTypeResetStylus:
		return ResetStylus{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent serializes an Event into a JSON envelope with type discriminator
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case LanePressed:
		env.Type = eventTypeLanePressed
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal LanePressed: %w", err)
		}
		env.Data = data

	case DialSample:
		env.Type = eventTypeDialSample
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal DialSample: %w", err)
		}
		env.Data = data

	case ResetStylus:
		env.Type = eventTypeResetStylus

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
