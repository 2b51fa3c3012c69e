//go:build linux

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// epollWaitMS bounds each epoll_wait so the reader notices cancellation.
const epollWaitMS = 200

// readInputEventsEpoll reads from multiple input devices using epoll in a
// single goroutine and tags each event with the index of its device.
//
// It returns nil when ctx is canceled and an error when any device fails;
// a device error or hangup is treated as fatal.
func readInputEventsEpoll(ctx context.Context, files []*os.File, events chan<- deviceEvent) error {
	if len(files) == 0 {
		return errors.New("no input devices provided")
	}

	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return fmt.Errorf("epoll_create1: %w", err)
	}
	defer unix.Close(epfd)

	fdToDev := make(map[int]int, len(files))
	for i, f := range files {
		fd := int(f.Fd())
		fdToDev[fd] = i

		event := unix.EpollEvent{
			Events: unix.EPOLLIN,
			Fd:     int32(fd),
		}
		if err := unix.EpollCtl(epfd, unix.EPOLL_CTL_ADD, fd, &event); err != nil {
			return fmt.Errorf("epoll_ctl_add %s: %w", f.Name(), err)
		}
	}

	const maxEvents = 32
	const maxBatch = 64
	epollEvents := make([]unix.EpollEvent, maxEvents)
	buf := make([]byte, inputEventSize*maxBatch)

	for {
		if ctx.Err() != nil {
			return nil
		}

		n, err := unix.EpollWait(epfd, epollEvents, epollWaitMS)
		if err != nil {
			if err == syscall.EINTR {
				continue
			}
			return fmt.Errorf("epoll_wait: %w", err)
		}

		for i := 0; i < n; i++ {
			fd := int(epollEvents[i].Fd)
			dev := fdToDev[fd]
			f := files[dev]

			if epollEvents[i].Events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 {
				return fmt.Errorf("device error/hangup: %s", f.Name())
			}

			// evdev only ever returns whole events.
			nr, err := f.Read(buf)
			if err != nil {
				return fmt.Errorf("read from %s: %w", f.Name(), err)
			}
			evs, err := decodeInputEvents(buf[:nr])
			if err != nil {
				return fmt.Errorf("%s: %w", f.Name(), err)
			}

			for _, ev := range evs {
				select {
				case events <- deviceEvent{dev: dev, ev: ev}:
				case <-ctx.Done():
					return nil
				}
			}
		}
	}
}
