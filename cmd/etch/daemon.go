package main

import (
	"context"
	"log/slog"
	"time"
)

// ============================================================================
// Central Daemon Loop
// ============================================================================
//
// The daemon goroutine is the single owner of DrawState. Input sources send
// Events; the loop feeds them to the integrator, steps it on a fixed cadence,
// and publishes the resulting moves as StateBroadcasts.
//
// ============================================================================

// DaemonConfig holds the tick cadences. When both intervals are equal one
// ticker drives a combined step.
type DaemonConfig struct {
	GallopInterval time.Duration
	DialInterval   time.Duration
}

// runDaemon runs until ctx is canceled or events is closed.
//
// broadcasts may be nil when nobody is listening for strokes.
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	state *DrawState,
	cfg DaemonConfig,
	broadcasts chan<- StateBroadcast,
	logger *slog.Logger,
) error {
	gallopTicker := time.NewTicker(cfg.GallopInterval)
	defer gallopTicker.Stop()

	// A nil channel never fires, so the combined case below handles both paths.
	var dialC <-chan time.Time
	combined := cfg.DialInterval == cfg.GallopInterval
	if !combined {
		dialTicker := time.NewTicker(cfg.DialInterval)
		defer dialTicker.Stop()
		dialC = dialTicker.C
	}

	logger.Info("daemon started",
		"gallop_interval", cfg.GallopInterval,
		"dial_interval", cfg.DialInterval)

	publish := func(bs []StateBroadcast) bool {
		if broadcasts == nil {
			return true
		}
		for _, b := range bs {
			select {
			case broadcasts <- b:
			case <-ctx.Done():
				return false
			}
		}
		return true
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return nil

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return nil
			}

			if req, isReq := ev.(RequestStateSnapshot); isReq {
				select {
				case req.Reply <- state.Snapshot():
				default:
					logger.Warn("snapshot reply dropped (receiver not ready)")
				}
				continue
			}

			if !publish(state.Apply(ev, time.Now())) {
				return nil
			}

		case now := <-gallopTicker.C:
			var bs []StateBroadcast
			if combined {
				bs = state.Step(now)
			} else {
				bs = state.StepGallop(now)
			}
			if !publish(bs) {
				return nil
			}

		case now := <-dialC:
			if !publish(state.StepDial(now)) {
				return nil
			}
		}
	}
}
