package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"
)

// errQuit is returned by the terminal source when the user asks to exit.
var errQuit = errors.New("quit requested")

// terminalAction classifies one key event. It returns the Event to send (nil
// for none) and whether the user asked to quit.
func terminalAction(ev *tcell.EventKey, keys laneKeys, reset rune) (Event, bool) {
	switch ev.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return nil, true
	case tcell.KeyRune:
	default:
		return nil, false
	}

	r := unicode.ToLower(ev.Rune())
	if r == reset {
		return ResetStylus{}, false
	}
	if p, ok := keys.byRune[r]; ok {
		return p, false
	}
	return nil, false
}

// runTerminalInput reads keys from screen and keeps a status view of the
// stylus on it until ctx is canceled or the user quits. The caller owns the
// screen and must Fini it.
//
// Terminals report no key releases and repeat held keys, so a held lane key
// keeps refreshing its timestamp; only distinct taps form a gallop.
func runTerminalInput(ctx context.Context, screen tcell.Screen, keys laneKeys, reset rune, out chan<- Event, logger *slog.Logger) error {
	evCh := make(chan tcell.Event, defaultEventBuf)
	go func() {
		for {
			ev := screen.PollEvent()
			if ev == nil {
				// Screen finalized.
				return
			}
			select {
			case evCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	ticker := time.NewTicker(statusRefreshInterval)
	defer ticker.Stop()
	replies := make(chan StateSnapshot, 1)

	send := func(ev Event) bool {
		select {
		case out <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	logger.Info("terminal input started", "reset_key", string(reset))

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev := <-evCh:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				e, quit := terminalAction(ev, keys, reset)
				if quit {
					logger.Info("quit requested from terminal")
					return errQuit
				}
				if e != nil && !send(TimedEvent{Event: e, At: ev.When()}) {
					return nil
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case <-ticker.C:
			// Best-effort: skip a refresh rather than stall on a busy daemon.
			select {
			case out <- RequestStateSnapshot{Reply: replies}:
			default:
			}

		case snap := <-replies:
			drawStatus(screen, snap)
		}
	}
}

// drawStatus plots the stylus as a marker scaled to the screen and writes a
// one-line status at the bottom.
func drawStatus(screen tcell.Screen, snap StateSnapshot) {
	screen.Clear()
	w, h := screen.Size()
	if w <= 0 || h <= 0 {
		return
	}

	// Leave the last row for the status line.
	rows := h - 1
	if rows > 0 && snap.Width > 0 && snap.Height > 0 {
		col := int(snap.Position.X / snap.Width * float64(w-1))
		row := int(snap.Position.Y / snap.Height * float64(rows-1))
		screen.SetContent(col, row, '●', nil, tcell.StyleDefault.Foreground(tcell.ColorYellow))
	}

	status := fmt.Sprintf(" x=%.1f y=%.1f  canvas %.0fx%.0f  esc quits",
		snap.Position.X, snap.Position.Y, snap.Width, snap.Height)
	style := tcell.StyleDefault.Reverse(true)
	col := 0
	for _, r := range status {
		if col >= w {
			break
		}
		screen.SetContent(col, h-1, r, nil, style)
		col++
	}
	for ; col < w; col++ {
		screen.SetContent(col, h-1, ' ', nil, style)
	}

	screen.Show()
}
