package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_ABS = 0x03

	SYN_REPORT  = 0x00
	SYN_DROPPED = 0x03

	// Gamepad sticks
	ABS_X  = 0x00
	ABS_Y  = 0x01
	ABS_RX = 0x03
	ABS_RY = 0x04
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

// keyName binds a configurable lane key name to its evdev code and the rune a
// terminal reports for it.
type keyName struct {
	code uint16
	r    rune
}

// keyNames covers the main block of a US keyboard, which is where rolling
// gestures are played.
var keyNames = map[string]keyName{
	"1": {2, '1'}, "2": {3, '2'}, "3": {4, '3'}, "4": {5, '4'}, "5": {6, '5'},
	"6": {7, '6'}, "7": {8, '7'}, "8": {9, '8'}, "9": {10, '9'}, "0": {11, '0'},

	"q": {16, 'q'}, "w": {17, 'w'}, "e": {18, 'e'}, "r": {19, 'r'}, "t": {20, 't'},
	"y": {21, 'y'}, "u": {22, 'u'}, "i": {23, 'i'}, "o": {24, 'o'}, "p": {25, 'p'},

	"a": {30, 'a'}, "s": {31, 's'}, "d": {32, 'd'}, "f": {33, 'f'}, "g": {34, 'g'},
	"h": {35, 'h'}, "j": {36, 'j'}, "k": {37, 'k'}, "l": {38, 'l'}, ";": {39, ';'},

	"z": {44, 'z'}, "x": {45, 'x'}, "c": {46, 'c'}, "v": {47, 'v'}, "b": {48, 'b'},
	"n": {49, 'n'}, "m": {50, 'm'}, ",": {51, ','}, ".": {52, '.'}, "/": {53, '/'},
}

// Defaults
const (
	defaultIPCSocket    = "/tmp/etch.sock"
	defaultStateWSPort  = 3002
	defaultStateWSPath  = "/ws/state"
	defaultResetKey     = "r"
	defaultEventBuf     = 64
	defaultBroadcastBuf = 64

	// Analog sticks are normalised to this range before angle tracking.
	dialScale = 100.0

	// How often the terminal status line asks the daemon for the position.
	statusRefreshInterval = 100 * time.Millisecond
)

var (
	defaultLanesX = []string{"a", "s", "d", "f"}
	defaultLanesY = []string{"j", "k", "l", ";"}
)
