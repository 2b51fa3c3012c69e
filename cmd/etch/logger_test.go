package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	for in, want := range map[string]LogLevel{
		"error": LogLevelError, "WARN": LogLevelWarn, "warning": LogLevelWarn,
		"info": LogLevelInfo, "Debug": LogLevelDebug,
	} {
		got, err := parseLogLevel(in)
		if err != nil || got != want {
			t.Fatalf("parseLogLevel(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := parseLogLevel("trace"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestSetupLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := setupLogger(LogLevelWarn, &buf)

	logger.Info("hidden")
	logger.Warn("shown", "lane", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be filtered: %q", out)
	}
	if !strings.Contains(out, "msg=shown") || !strings.Contains(out, "lane=2") {
		t.Fatalf("expected warn line with attrs, got %q", out)
	}
}

func TestOpenLogWriter(t *testing.T) {
	w, closeFn, err := openLogWriter("", false)
	if err != nil {
		t.Fatalf("openLogWriter: %v", err)
	}
	if w != os.Stdout {
		t.Fatalf("expected stdout without a terminal")
	}
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	path := filepath.Join(t.TempDir(), "etch.log")
	w, closeFn, err = openLogWriter(path, true)
	if err != nil {
		t.Fatalf("openLogWriter: %v", err)
	}
	setupLogger(LogLevelInfo, w).Info("to file")
	if err := closeFn(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(b), "to file") {
		t.Fatalf("expected log line in file, got %q", b)
	}
}
