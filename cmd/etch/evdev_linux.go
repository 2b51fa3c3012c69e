//go:build linux

package main

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"

	"etch"
)

// absInfo mirrors struct input_absinfo.
type absInfo struct {
	Value      int32
	Min        int32
	Max        int32
	Fuzz       int32
	Flat       int32
	Resolution int32
}

// ioctl request encoding (Linux _IOC macro)
const (
	iocNRBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNRShift   = 0
	iocTypeShift = iocNRShift + iocNRBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	iocWrite = 1
	iocRead  = 2
)

func ioc(dir, typ, nr, size uint32) uintptr {
	return uintptr((dir << iocDirShift) | (typ << iocTypeShift) | (nr << iocNRShift) | (size << iocSizeShift))
}

// EVIOCGABS(abs) = _IOR('E', 0x40 + abs, struct input_absinfo)
func evioCGAbs(code uint16) uintptr {
	return ioc(iocRead, 'E', 0x40+uint32(code), uint32(unsafe.Sizeof(absInfo{})))
}

// EVIOCGRAB = _IOW('E', 0x90, int)
func evioCGrab() uintptr {
	return ioc(iocWrite, 'E', 0x90, uint32(unsafe.Sizeof(int32(0))))
}

// EVIOCGNAME(len) = _IOC(_IOC_READ, 'E', 0x06, len)
func evioCGName(n int) uintptr {
	return ioc(iocRead, 'E', 0x06, uint32(n))
}

func getAbsInfo(fd int, code uint16) (absInfo, error) {
	var info absInfo
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGAbs(code), uintptr(unsafe.Pointer(&info)))
	if errno != 0 {
		return absInfo{}, errno
	}
	return info, nil
}

func grabDevice(fd int) error {
	var one int32 = 1
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGrab(), uintptr(unsafe.Pointer(&one)))
	if errno != 0 {
		return errno
	}
	return nil
}

func deviceName(fd int) string {
	buf := make([]byte, 256)
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), evioCGName(len(buf)), uintptr(unsafe.Pointer(&buf[0])))
	if errno != 0 {
		return ""
	}
	if i := bytes.IndexByte(buf, 0); i >= 0 {
		buf = buf[:i]
	}
	return string(buf)
}

// stickRanges queries the raw range of every stick axis. Axes the device does
// not report fall back to defaultStickRange in the translator.
func stickRanges(fd int, logger *slog.Logger) map[uint16]absRange {
	ranges := make(map[uint16]absRange, 4)
	for _, code := range []uint16{ABS_X, ABS_Y, ABS_RX, ABS_RY} {
		info, err := getAbsInfo(fd, code)
		if err != nil {
			logger.Debug("no abs range for axis, using default", "code", code, "error", err)
			continue
		}
		ranges[code] = absRange{Min: info.Min, Max: info.Max}
	}
	return ranges
}

// openInputDevices opens every configured keyboard and the gamepad. On error
// any device already opened is closed.
func openInputDevices(cfg EvdevConfig, keys laneKeys, logger *slog.Logger) (devices []*inputDevice, err error) {
	defer func() {
		if err != nil {
			for _, d := range devices {
				_ = d.f.Close()
			}
			devices = nil
		}
	}()

	open := func(path string) (*os.File, error) {
		f, err := os.Open(ExpandPath(path))
		if err != nil {
			return nil, fmt.Errorf("open input device %s: %w", path, err)
		}
		fd := int(f.Fd())
		if cfg.Grab {
			if err := grabDevice(fd); err != nil {
				f.Close()
				return nil, fmt.Errorf("grab input device %s: %w", path, err)
			}
		}
		logger.Info("input device opened", "path", path, "name", deviceName(fd), "grab", cfg.Grab)
		return f, nil
	}

	for _, path := range cfg.Keyboards {
		f, err := open(path)
		if err != nil {
			return devices, err
		}
		devices = append(devices, &inputDevice{f: f, tr: newKeyboardTranslator(keys)})
	}

	if cfg.Gamepad != "" {
		f, err := open(cfg.Gamepad)
		if err != nil {
			return devices, err
		}
		// Validated by Config.Validate.
		left, _ := etch.ParseAxis(cfg.LeftStick)
		right, _ := etch.ParseAxis(cfg.RightStick)
		ranges := stickRanges(int(f.Fd()), logger)
		devices = append(devices, &inputDevice{
			f:  f,
			tr: newGamepadTranslator(keys, ranges, left, right, cfg.InvertY),
		})
	}

	return devices, nil
}
