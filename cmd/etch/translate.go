package main

import (
	"fmt"
	"strings"

	"etch"
)

// laneKeys maps physical keys to gallop lanes, both as evdev codes and as the
// runes a terminal reports.
type laneKeys struct {
	byCode map[uint16]LanePressed
	byRune map[rune]LanePressed
}

// buildLaneKeys resolves the configured key names. Each axis needs exactly
// etch.LaneCount distinct keys and no key may serve two lanes.
func buildLaneKeys(c LanesConfig) (laneKeys, error) {
	keys := laneKeys{
		byCode: make(map[uint16]LanePressed),
		byRune: make(map[rune]LanePressed),
	}

	for _, axis := range []etch.Axis{etch.AxisX, etch.AxisY} {
		names := c.X
		if axis == etch.AxisY {
			names = c.Y
		}
		if len(names) != etch.LaneCount {
			return laneKeys{}, fmt.Errorf("lanes.%s must list exactly %d keys, got %d", axis, etch.LaneCount, len(names))
		}

		for lane, name := range names {
			k, ok := keyNames[strings.ToLower(name)]
			if !ok {
				return laneKeys{}, fmt.Errorf("lanes.%s[%d]: unknown key %q", axis, lane, name)
			}
			if prev, dup := keys.byCode[k.code]; dup {
				return laneKeys{}, fmt.Errorf("lanes.%s[%d]: key %q already used by lanes.%s[%d]", axis, lane, name, prev.Axis, prev.Lane)
			}
			p := LanePressed{Axis: axis, Lane: lane}
			keys.byCode[k.code] = p
			keys.byRune[k.r] = p
		}
	}

	return keys, nil
}

// absRange is the raw value range a device reports for one absolute axis.
type absRange struct {
	Min int32
	Max int32
}

// defaultStickRange is used when the device does not report a range.
var defaultStickRange = absRange{Min: -32768, Max: 32767}

// normalize maps v from the range onto [-dialScale, dialScale].
func (r absRange) normalize(v int32) float64 {
	if r.Max <= r.Min {
		return clampFloat(float64(v), -dialScale, dialScale)
	}
	unit := float64(v-r.Min)/float64(r.Max-r.Min)*2 - 1
	return clampFloat(unit*dialScale, -dialScale, dialScale)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// stick indexes the two analog sticks of a gamepad.
type stick int

const (
	leftStick stick = iota
	rightStick
)

// evdevTranslator turns the raw event stream of one device into Events.
//
// Key-downs on lane keys become LanePressed. Stick axes are accumulated and
// reported as one DialSample per stick per SYN_REPORT, so a diagonal move
// arrives as a single coherent vector.
type evdevTranslator struct {
	keys laneKeys

	// Gamepad only; nil ranges means the device has no sticks.
	ranges    map[uint16]absRange
	stickAxis [2]etch.Axis
	invertY   bool

	sticks  [2]etch.DialVector
	dirty   [2]bool
	dropped bool
}

func newKeyboardTranslator(keys laneKeys) *evdevTranslator {
	return &evdevTranslator{keys: keys}
}

func newGamepadTranslator(keys laneKeys, ranges map[uint16]absRange, left, right etch.Axis, invertY bool) *evdevTranslator {
	return &evdevTranslator{
		keys:      keys,
		ranges:    ranges,
		stickAxis: [2]etch.Axis{left, right},
		invertY:   invertY,
	}
}

// translate consumes one raw event and returns the Events it completes.
func (t *evdevTranslator) translate(ev inputEvent) []Event {
	if t.dropped {
		// The kernel dropped events; everything up to the next report is stale.
		if ev.Type == EV_SYN && ev.Code == SYN_REPORT {
			t.dropped = false
			t.dirty = [2]bool{}
		}
		return nil
	}

	switch ev.Type {
	case EV_KEY:
		// Releases and autorepeat are not gallop presses.
		if ev.Value != evValuePress {
			return nil
		}
		if p, ok := t.keys.byCode[ev.Code]; ok {
			return []Event{p}
		}

	case EV_ABS:
		t.absChanged(ev.Code, ev.Value)

	case EV_SYN:
		switch ev.Code {
		case SYN_REPORT:
			return t.flush()
		case SYN_DROPPED:
			t.dropped = true
		}
	}
	return nil
}

func (t *evdevTranslator) absChanged(code uint16, value int32) {
	if t.ranges == nil {
		return
	}

	var s stick
	var isY bool
	switch code {
	case ABS_X:
		s = leftStick
	case ABS_Y:
		s, isY = leftStick, true
	case ABS_RX:
		s = rightStick
	case ABS_RY:
		s, isY = rightStick, true
	default:
		return
	}

	r, ok := t.ranges[code]
	if !ok {
		r = defaultStickRange
	}
	v := r.normalize(value)

	if isY {
		if t.invertY {
			v = -v
		}
		t.sticks[s].Y = v
	} else {
		t.sticks[s].X = v
	}
	t.dirty[s] = true
}

func (t *evdevTranslator) flush() []Event {
	var out []Event
	for _, s := range []stick{leftStick, rightStick} {
		if !t.dirty[s] {
			continue
		}
		t.dirty[s] = false
		v := t.sticks[s]
		out = append(out, DialSample{Axis: t.stickAxis[s], X: v.X, Y: v.Y})
	}
	return out
}
