package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
//
// The kernel timestamp is decoded but not used: events are stamped with the
// monotonic clock when they reach user space.
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvents decodes every whole event in buf.
func decodeInputEvents(buf []byte) ([]inputEvent, error) {
	if len(buf)%inputEventSize != 0 {
		return nil, fmt.Errorf("short input read: %d bytes is not a multiple of %d", len(buf), inputEventSize)
	}
	out := make([]inputEvent, 0, len(buf)/inputEventSize)
	reader := bytes.NewReader(buf)
	for reader.Len() > 0 {
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			return nil, fmt.Errorf("decode input event: %w", err)
		}
		out = append(out, ev)
	}
	return out, nil
}

// inputDevice is an opened evdev node with its translator.
type inputDevice struct {
	f  *os.File
	tr *evdevTranslator
}

// deviceEvent is a raw event tagged with the index of the device it came from.
type deviceEvent struct {
	dev int
	ev  inputEvent
}

// runEvdevInput opens the configured devices and forwards their lane presses
// and stick samples to the daemon until ctx is canceled.
func runEvdevInput(ctx context.Context, cfg EvdevConfig, keys laneKeys, out chan<- Event, logger *slog.Logger) error {
	devices, err := openInputDevices(cfg, keys, logger)
	if err != nil {
		return err
	}
	defer func() {
		for _, d := range devices {
			_ = d.f.Close()
		}
	}()

	files := make([]*os.File, len(devices))
	for i, d := range devices {
		files[i] = d.f
	}

	raw := make(chan deviceEvent, defaultEventBuf)
	readErr := make(chan error, 1)
	go func() {
		readErr <- readInputEventsEpoll(ctx, files, raw)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if err != nil {
				return fmt.Errorf("input reader stopped: %w", err)
			}
			return nil

		case de := <-raw:
			evs := devices[de.dev].tr.translate(de.ev)
			if len(evs) == 0 {
				continue
			}
			now := time.Now()
			for _, ev := range evs {
				select {
				case out <- TimedEvent{Event: ev, At: now}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
