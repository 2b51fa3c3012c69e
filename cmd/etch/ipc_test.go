package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"etch"
)

func startIPCConn(t *testing.T, events chan Event) (net.Conn, *bufio.Reader) {
	t.Helper()
	client, server := net.Pipe()
	go handleIPCConnection(context.Background(), server, events, discardLogger())
	t.Cleanup(func() { client.Close() })
	_ = client.SetDeadline(time.Now().Add(2 * time.Second))
	return client, bufio.NewReader(client)
}

func readIPCResponse(t *testing.T, r *bufio.Reader) IPCResponse {
	t.Helper()
	line, err := r.ReadBytes('\n')
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	var resp IPCResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		t.Fatalf("decode response %q: %v", line, err)
	}
	return resp
}

func TestHandleIPCConnection_QueuesValidEvent(t *testing.T) {
	events := make(chan Event, 1)
	conn, r := startIPCConn(t, events)

	fmt.Fprintln(conn, `{"type":"lane_pressed","data":{"axis":"y","lane":2}}`)
	if resp := readIPCResponse(t, r); resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}

	select {
	case ev := <-events:
		te, ok := ev.(TimedEvent)
		if !ok {
			t.Fatalf("expected TimedEvent, got %T", ev)
		}
		if te.Event != (LanePressed{Axis: etch.AxisY, Lane: 2}) || te.At.IsZero() {
			t.Fatalf("unexpected event: %+v", te)
		}
	default:
		t.Fatalf("expected event queued")
	}
}

func TestHandleIPCConnection_RejectsInvalidEvent(t *testing.T) {
	events := make(chan Event, 1)
	conn, r := startIPCConn(t, events)

	fmt.Fprintln(conn, `{"type":"lane_pressed","data":{"axis":"x","lane":4}}`)
	resp := readIPCResponse(t, r)
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("expected error response, got %+v", resp)
	}

	// The connection stays usable after an error.
	fmt.Fprintln(conn, `{"type":"reset_stylus"}`)
	if resp := readIPCResponse(t, r); resp.Status != "ok" {
		t.Fatalf("expected ok, got %+v", resp)
	}
	if len(events) != 1 {
		t.Fatalf("expected only the valid event queued, got %d", len(events))
	}
}

func TestHandleIPCConnection_QueueFull(t *testing.T) {
	events := make(chan Event) // nobody reads
	conn, r := startIPCConn(t, events)

	fmt.Fprintln(conn, `{"type":"reset_stylus"}`)
	resp := readIPCResponse(t, r)
	if resp.Status != "error" || resp.Error != "event queue full" {
		t.Fatalf("expected queue full error, got %+v", resp)
	}
}

func TestHandleIPCConnection_ReturnsOnCancel(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		handleIPCConnection(ctx, server, make(chan Event, 1), discardLogger())
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for idle connection to close")
	}
}

func TestIPCServer_ShutdownClosesIdleConnection(t *testing.T) {
	dir, err := os.MkdirTemp("", "etch")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "etch.sock")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- runIPCServer(ctx, socket, make(chan Event, 1), discardLogger())
	}()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, "socket not created")

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Make sure the server is serving this connection before shutdown.
	r := bufio.NewReader(conn)
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))
	fmt.Fprintln(conn, `{"type":"reset_stylus"}`)
	if resp := readIPCResponse(t, r); resp.Status != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for server to stop with an idle client")
	}

	if _, err := r.ReadByte(); err == nil {
		t.Fatalf("expected the idle connection to be closed")
	}
}

func TestIPCServer_SendIPCEvent(t *testing.T) {
	// Unix socket paths are length-limited, so avoid deep temp dirs.
	dir, err := os.MkdirTemp("", "etch")
	if err != nil {
		t.Fatalf("MkdirTemp: %v", err)
	}
	defer os.RemoveAll(dir)
	socket := filepath.Join(dir, "etch.sock")

	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- runIPCServer(ctx, socket, events, discardLogger())
	}()

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socket)
		return err == nil
	}, "socket not created")

	if err := SendIPCEvent(socket, DialSample{Axis: etch.AxisY, X: 10, Y: -10}); err != nil {
		t.Fatalf("SendIPCEvent: %v", err)
	}
	select {
	case ev := <-events:
		if te := ev.(TimedEvent); te.Event != (DialSample{Axis: etch.AxisY, X: 10, Y: -10}) {
			t.Fatalf("unexpected event: %+v", te.Event)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for event")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for server to stop")
	}
	if _, err := os.Stat(socket); !os.IsNotExist(err) {
		t.Fatalf("expected socket removed, stat err=%v", err)
	}
}
