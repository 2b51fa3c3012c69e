package main

import (
	"context"
	"testing"
	"time"

	"github.com/gdamore/tcell/v2"

	"etch"
)

func TestTerminalAction(t *testing.T) {
	keys := defaultTestKeys(t)

	tests := []struct {
		name     string
		ev       *tcell.EventKey
		want     Event
		wantQuit bool
	}{
		{"lane key", tcell.NewEventKey(tcell.KeyRune, 'k', tcell.ModNone), LanePressed{Axis: etch.AxisY, Lane: 1}, false},
		{"upper case lane key", tcell.NewEventKey(tcell.KeyRune, 'F', tcell.ModShift), LanePressed{Axis: etch.AxisX, Lane: 3}, false},
		{"reset", tcell.NewEventKey(tcell.KeyRune, 'r', tcell.ModNone), ResetStylus{}, false},
		{"other rune", tcell.NewEventKey(tcell.KeyRune, 'z', tcell.ModNone), nil, false},
		{"escape", tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone), nil, true},
		{"ctrl-c", tcell.NewEventKey(tcell.KeyCtrlC, 0, tcell.ModCtrl), nil, true},
		{"arrow", tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone), nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, quit := terminalAction(tt.ev, keys, 'r')
			if quit != tt.wantQuit {
				t.Fatalf("quit = %v, want %v", quit, tt.wantQuit)
			}
			if got != tt.want {
				t.Fatalf("event = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func newSimScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func TestDrawStatus_PlotsMarkerAndStatusLine(t *testing.T) {
	s := newSimScreen(t, 81, 11)

	drawStatus(s, StateSnapshot{
		Position: etch.StylusPosition{X: 320, Y: 240},
		Width:    640,
		Height:   480,
	})

	// Centre of 81 columns and 10 drawable rows.
	if r, _, _, _ := s.GetContent(40, 4); r != '●' {
		t.Fatalf("expected marker at (40, 4), got %q", r)
	}

	var line []rune
	for col := 0; col < 20; col++ {
		r, _, _, _ := s.GetContent(col, 10)
		line = append(line, r)
	}
	if got := string(line); got != " x=320.0 y=240.0  ca" {
		t.Fatalf("unexpected status line prefix %q", got)
	}
}

func TestRunTerminalInput_ForwardsKeysAndQuits(t *testing.T) {
	s := newSimScreen(t, 40, 10)
	keys := defaultTestKeys(t)

	out := make(chan Event, 8)
	done := make(chan error, 1)
	go func() {
		done <- runTerminalInput(context.Background(), s, keys, 'r', out, discardLogger())
	}()

	s.InjectKey(tcell.KeyRune, 'a', tcell.ModNone)

	// Status refreshes also arrive on out; skip them.
	deadline := time.After(time.Second)
	for {
		select {
		case ev := <-out:
			if _, ok := ev.(RequestStateSnapshot); ok {
				continue
			}
			te, ok := ev.(TimedEvent)
			if !ok {
				t.Fatalf("expected TimedEvent, got %T", ev)
			}
			if te.Event != (LanePressed{Axis: etch.AxisX, Lane: 0}) {
				t.Fatalf("unexpected event: %#v", te.Event)
			}
			if te.At.IsZero() {
				t.Fatalf("expected capture time")
			}
		case <-deadline:
			t.Fatalf("timeout waiting for lane press")
		}
		break
	}

	s.InjectKey(tcell.KeyEscape, 0, tcell.ModNone)
	select {
	case err := <-done:
		if err != errQuit {
			t.Fatalf("expected errQuit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for quit")
	}
}
