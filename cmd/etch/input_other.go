//go:build !linux

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

var errEvdevUnsupported = errors.New("evdev input is only supported on linux")

func openInputDevices(cfg EvdevConfig, keys laneKeys, logger *slog.Logger) ([]*inputDevice, error) {
	return nil, errEvdevUnsupported
}

func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- deviceEvent) error {
	return errEvdevUnsupported
}
