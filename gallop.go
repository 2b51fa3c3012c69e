package etch

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// LaneCount is the number of lanes in a GallopDecoder.
const LaneCount = 4

// Reference gallop timing.
const (
	DefaultGallopTolerance   = 250 * time.Millisecond
	DefaultGallopSensitivity = 25 * time.Millisecond
)

// ErrLaneOutOfRange is returned when a press is recorded for a lane outside [0, LaneCount).
var ErrLaneOutOfRange = errors.New("gallop lane out of range")

// GallopConfig holds the timing parameters used to weigh decoded events.
type GallopConfig struct {
	// Tolerance is the longest gap between two presses that still counts as a gesture.
	// An event exactly at Tolerance has zero magnitude.
	Tolerance time.Duration

	// Sensitivity is the duration that maps to one unit of movement.
	Sensitivity time.Duration
}

// DefaultGallopConfig returns the reference timing (250ms tolerance, 25ms sensitivity).
func DefaultGallopConfig() GallopConfig {
	return GallopConfig{
		Tolerance:   DefaultGallopTolerance,
		Sensitivity: DefaultGallopSensitivity,
	}
}

// Direction is the sign of a gallop event.
type Direction int

const (
	// Positive means the lane index increased between the two presses.
	Positive Direction = 1
	// Negative means the lane index decreased between the two presses.
	Negative Direction = -1
)

func (d Direction) String() string {
	switch d {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// GallopEvent is one decoded rolling gesture across two adjacent lanes.
type GallopEvent struct {
	Direction Direction
	Elapsed   time.Duration // gap between the two presses that produced the event

	cfg GallopConfig
}

// Magnitude returns sign * (tolerance - elapsed) / sensitivity.
//
// Faster rolls give larger values. The result turns negative once Elapsed exceeds
// the tolerance, so callers must drop expired events (see Expired) before using it.
func (e GallopEvent) Magnitude() float64 {
	if e.cfg.Sensitivity <= 0 {
		return 0
	}
	units := float64(e.cfg.Tolerance-e.Elapsed) / float64(e.cfg.Sensitivity)
	return float64(e.Direction) * units
}

// Expired reports whether the two presses were too far apart to count as a gesture.
func (e GallopEvent) Expired() bool {
	return e.Elapsed > e.cfg.Tolerance
}

func (e GallopEvent) String() string {
	return fmt.Sprintf("GallopEvent(%s, elapsed=%s)", e.Direction, e.Elapsed)
}

// GallopDecoder turns presses on four adjacent keys into directional events.
//
// Each lane remembers only its most recent press. Pull pairs the two oldest
// pending presses and consumes the older one, so calling Pull until it reports
// nothing drains the decoder like a queue.
//
// Not safe for concurrent use; the owner must serialize Push and Pull.
type GallopDecoder struct {
	lanes [LaneCount]lane
	cfg   GallopConfig

	now    func() time.Time
	logger *slog.Logger
}

// NewGallopDecoder creates an empty decoder. A nil logger discards decoder logs.
func NewGallopDecoder(cfg GallopConfig, logger *slog.Logger) *GallopDecoder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GallopDecoder{
		cfg:    cfg,
		now:    time.Now,
		logger: logger,
	}
}

// SetClock replaces the time source used by Push. The clock must be monotonic;
// time.Now qualifies because its readings carry a monotonic component.
func (g *GallopDecoder) SetClock(now func() time.Time) {
	if now == nil {
		now = time.Now
	}
	g.now = now
}

// Push records a press on lane idx at the current time, replacing any pending
// press on that lane. It never decodes anything.
func (g *GallopDecoder) Push(idx int) error {
	return g.PushAt(idx, g.now())
}

// PushAt records a press on lane idx at the given time. Use it when the press was
// timestamped at capture and delivered later.
func (g *GallopDecoder) PushAt(idx int, at time.Time) error {
	if idx < 0 || idx >= LaneCount {
		return fmt.Errorf("push lane %d: %w", idx, ErrLaneOutOfRange)
	}
	g.lanes[idx] = lane{at: at, set: true}
	return nil
}

// Pending returns how many lanes hold a press.
func (g *GallopDecoder) Pending() int {
	n := 0
	for _, l := range g.lanes {
		if l.set {
			n++
		}
	}
	return n
}

// Clear drops every pending press.
func (g *GallopDecoder) Clear() {
	g.lanes = [LaneCount]lane{}
}

// Pull decodes at most one event from the two oldest pending presses.
//
// With fewer than two pending presses it returns false and changes nothing.
// Otherwise the oldest press is always consumed, even when the pair is not
// adjacent and no event is produced.
func (g *GallopDecoder) Pull() (GallopEvent, bool) {
	// Two oldest populated lanes. Strict Before keeps the lower index first on ties.
	oldest, second := -1, -1
	for i, l := range g.lanes {
		if !l.set {
			continue
		}
		switch {
		case oldest < 0 || l.at.Before(g.lanes[oldest].at):
			second = oldest
			oldest = i
		case second < 0 || l.at.Before(g.lanes[second].at):
			second = i
		}
	}
	if second < 0 {
		return GallopEvent{}, false
	}

	older, newer := oldest, second
	elapsed := g.lanes[newer].at.Sub(g.lanes[older].at)

	g.logger.Debug("gallop pair",
		"newer_lane", newer,
		"older_lane", older,
		"elapsed", elapsed)

	g.lanes[older] = lane{}

	high := LaneCount - 1
	if newer == 0 && older == high {
		g.logger.Debug("gallop wrap", "direction", Positive)
		return g.event(Positive, elapsed), true
	}
	if newer == high && older == 0 {
		// TODO: mirror the positive wrap once the rolling gesture is confirmed
		// to be symmetric on hardware; this pairing currently decodes to nothing.
		g.logger.Debug("gallop wrap not decoded", "direction", Negative)
	}

	switch {
	case newer > older:
		if newer-older > 1 {
			g.logger.Debug("gallop pair not adjacent", "direction", Positive, "distance", newer-older)
			return GallopEvent{}, false
		}
		return g.event(Positive, elapsed), true

	case newer < older:
		if older-newer > 1 {
			g.logger.Debug("gallop pair not adjacent", "direction", Negative, "distance", older-newer)
			return GallopEvent{}, false
		}
		return g.event(Negative, elapsed), true

	default:
		return GallopEvent{}, false
	}
}

// lane holds the most recent press on one key.
type lane struct {
	at  time.Time
	set bool
}

func (g *GallopDecoder) event(dir Direction, elapsed time.Duration) GallopEvent {
	return GallopEvent{Direction: dir, Elapsed: elapsed, cfg: g.cfg}
}
