package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"etch"
)

// ============================================================================
// etchctl - Command-line IPC Client
// ============================================================================
// Sends input events to a running etch daemon over its Unix socket.
//
// Usage:
//   etchctl press x 2
//   etchctl roll y down 20
//   etchctl dial x 0 -100
//   etchctl reset
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/etch.sock)
// ============================================================================

// Event types (duplicated from the daemon for a standalone binary)
type Event interface{}

type LanePressed struct {
	Axis etch.Axis `json:"axis"`
	Lane int       `json:"lane"`
}

type DialSample struct {
	Axis etch.Axis `json:"axis"`
	X    float64   `json:"x"`
	Y    float64   `json:"y"`
}

type ResetStylus struct{}

// EventEnvelope wraps events for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func main() {
	socketPath := "/tmp/etch.sock"

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var (
		events []Event
		gap    time.Duration
		err    error
	)

	switch args[0] {
	case "press":
		events, err = parsePress(args[1:])

	case "roll":
		events, gap, err = parseRoll(args[1:])

	case "dial":
		events, err = parseDial(args[1:])

	case "reset":
		events = []Event{ResetStylus{}}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := sendEvents(socketPath, events, gap); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("ok")
}

func parseAxisArg(s string) (etch.Axis, error) {
	a, err := etch.ParseAxis(s)
	if err != nil {
		return 0, fmt.Errorf("invalid axis %q (want x or y)", s)
	}
	return a, nil
}

// parsePress handles: press <x|y> <lane>
func parsePress(args []string) ([]Event, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("press requires an axis and a lane")
	}
	axis, err := parseAxisArg(args[0])
	if err != nil {
		return nil, err
	}
	lane, err := strconv.Atoi(args[1])
	if err != nil || lane < 0 || lane >= etch.LaneCount {
		return nil, fmt.Errorf("invalid lane %q (want 0-%d)", args[1], etch.LaneCount-1)
	}
	return []Event{LanePressed{Axis: axis, Lane: lane}}, nil
}

// parseRoll handles: roll <x|y> <up|down> [gap-ms]
//
// The daemon stamps IPC events on receipt, so the gap is produced by pausing
// between sends.
func parseRoll(args []string) ([]Event, time.Duration, error) {
	if len(args) < 2 || len(args) > 3 {
		return nil, 0, fmt.Errorf("roll requires an axis and a direction")
	}
	axis, err := parseAxisArg(args[0])
	if err != nil {
		return nil, 0, err
	}

	gapMS := 20
	if len(args) == 3 {
		gapMS, err = strconv.Atoi(args[2])
		if err != nil || gapMS < 0 {
			return nil, 0, fmt.Errorf("invalid gap %q", args[2])
		}
	}

	lanes := []int{0, 1, 2, 3}
	switch args[1] {
	case "up", "+":
	case "down", "-":
		lanes = []int{3, 2, 1, 0}
	default:
		return nil, 0, fmt.Errorf("invalid direction %q (want up or down)", args[1])
	}

	events := make([]Event, 0, len(lanes))
	for _, l := range lanes {
		events = append(events, LanePressed{Axis: axis, Lane: l})
	}
	return events, time.Duration(gapMS) * time.Millisecond, nil
}

// parseDial handles: dial <x|y> <vx> <vy>
func parseDial(args []string) ([]Event, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("dial requires an axis and two stick values")
	}
	axis, err := parseAxisArg(args[0])
	if err != nil {
		return nil, err
	}
	var x, y float64
	if _, err := fmt.Sscanf(args[1]+" "+args[2], "%f %f", &x, &y); err != nil {
		return nil, fmt.Errorf("invalid stick values: %v", err)
	}
	return []Event{DialSample{Axis: axis, X: x, Y: y}}, nil
}

// sendEvents sends events over one connection, pausing gap between them.
func sendEvents(socketPath string, events []Event, gap time.Duration) error {
	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	for i, ev := range events {
		if i > 0 && gap > 0 {
			time.Sleep(gap)
		}

		data, err := marshalEvent(ev)
		if err != nil {
			return fmt.Errorf("marshal event: %w", err)
		}
		if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
			return fmt.Errorf("send event: %w", err)
		}

		var response IPCResponse
		if err := decoder.Decode(&response); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		if response.Status == "error" {
			return fmt.Errorf("daemon error: %s", response.Error)
		}
	}

	return nil
}

func marshalEvent(ev Event) ([]byte, error) {
	var env EventEnvelope

	switch e := ev.(type) {
	case LanePressed:
		env.Type = "lane_pressed"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal LanePressed: %w", err)
		}
		env.Data = data

	case DialSample:
		env.Type = "dial_sample"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal DialSample: %w", err)
		}
		env.Data = data

	case ResetStylus:
		env.Type = "reset_stylus"

	default:
		return nil, fmt.Errorf("unknown event type: %T", ev)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `etchctl - Drive the etch stylus via IPC

Usage:
  etchctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: /tmp/etch.sock)

Commands:
  press <x|y> <lane>              Press one gallop lane (0-3)
  roll <x|y> <up|down> [gap-ms]   Roll across all four lanes (default gap 20ms)
  dial <x|y> <vx> <vy>            Set the stick feeding an axis (-100..100)
  reset                           Recenter the stylus
  help, -h, --help                Show this help message

Examples:
  etchctl roll x up
  etchctl roll y down 40
  etchctl dial x 0 -100
  etchctl -socket /run/etch.sock reset
`)
}
