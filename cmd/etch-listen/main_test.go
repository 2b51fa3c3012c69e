package main

import (
	"io"
	"os"
	"strings"
	"testing"
)

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	orig := os.Stdout
	os.Stdout = w
	defer func() { os.Stdout = orig }()

	fn()
	w.Close()

	b, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return string(b)
}

func TestHandleTextMessage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"type":"state_init","data":{"x":320,"y":240,"width":640,"height":480}}`, "[INIT] stylus at (320.0, 240.0) on 640x480"},
		{`{"type":"stroke","data":{"points":[{"x":1,"y":2},{"x":3,"y":4},{"x":5,"y":6}]}}`, "[STROKE] 3 points (1.0, 2.0) -> (5.0, 6.0)"},
		{`{"type":"stylus_reset","data":{"x":320,"y":240}}`, "[RESET] stylus at (320.0, 240.0)"},
		{`{"type":"stroke","data":{"points":[]}}`, `[stroke] {"points":[]}`},
		{`not json`, "[TEXT] not json"},
	}
	for _, tt := range tests {
		out := captureStdout(t, func() { handleTextMessage([]byte(tt.in)) })
		if strings.TrimSpace(out) != tt.want {
			t.Fatalf("handleTextMessage(%s) printed %q, want %q", tt.in, out, tt.want)
		}
	}
}
