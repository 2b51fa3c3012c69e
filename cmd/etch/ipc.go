package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// Scripts and the etchctl tool drive the stylus over a Unix domain socket.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "lane_pressed", "data": {"axis": "x", "lane": 2}}
//   - Server responds: {"status": "ok"} or {"status": "error", "error": "msg"}
//
// Events are stamped with the time they were read, the same as evdev input.
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status string `json:"status"`          // "ok" or "error"
	Error  string `json:"error,omitempty"` // error message if status == "error"
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and every
// open connection, and returns once their handlers have exited.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	socketPath = ExpandPath(socketPath)

	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	var conns sync.WaitGroup
	defer conns.Wait()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		conns.Add(1)
		go func() {
			defer conns.Done()
			handleIPCConnection(ctx, conn, events, logger)
		}()
	}
}

// handleIPCConnection handles a single IPC connection until the client hangs up
// or ctx is canceled.
func handleIPCConnection(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	// Closing the conn unblocks a Scan waiting on an idle client.
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	respond := func(resp IPCResponse) {
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "status", resp.Status, "error", err)
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		logger.Debug("IPC received", "line", line)

		ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(IPCResponse{Status: "error", Error: fmt.Sprintf("parse event: %v", err)})
			continue
		}

		select {
		case events <- TimedEvent{Event: ev, At: time.Now()}:
			respond(IPCResponse{Status: "ok"})
		default:
			respond(IPCResponse{Status: "error", Error: "event queue full"})
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug("IPC read error", "error", err)
	}
	logger.Debug("IPC connection closed")
}

// ============================================================================
// IPC Client
// ============================================================================

// SendIPCEvent sends one event to the daemon and waits for its response.
func SendIPCEvent(socketPath string, ev Event) error {
	conn, err := net.DialTimeout("unix", ExpandPath(socketPath), 2*time.Second)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	return sendIPCEventConn(conn, ev)
}

func sendIPCEventConn(conn net.Conn, ev Event) error {
	data, err := MarshalEvent(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if resp.Status != "ok" {
		return fmt.Errorf("ipc error: %s", resp.Error)
	}
	return nil
}
