package main

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig_Validates(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestParseConfig_OverridesDefaults(t *testing.T) {
	cfg, err := parseConfig([]byte(`
canvas:
  width: 800
motion:
  dial_sensitivity: 4
  gallop_tolerance_ms: 300
lanes:
  x: [q, w, e, t]
evdev:
  enabled: true
  gamepad: /dev/input/event9
  left_stick: y
  right_stick: x
state_ws:
  port: 0
logging:
  level: debug
`))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}

	if cfg.Canvas.Width != 800 || cfg.Canvas.Height != 480 {
		t.Fatalf("unexpected canvas: %+v", cfg.Canvas)
	}
	if cfg.Motion.DialSensitivity != 4 || cfg.Motion.GallopToleranceMS != 300 {
		t.Fatalf("unexpected motion: %+v", cfg.Motion)
	}
	// Untouched keys keep their defaults.
	if cfg.Motion.GallopSensitivityMS != 25 || cfg.Motion.DeadZone != 50 {
		t.Fatalf("expected defaults kept: %+v", cfg.Motion)
	}
	if strings.Join(cfg.Lanes.X, "") != "qwet" || strings.Join(cfg.Lanes.Y, "") != "jkl;" {
		t.Fatalf("unexpected lanes: %+v", cfg.Lanes)
	}
	if !cfg.Evdev.Enabled || cfg.Evdev.Gamepad != "/dev/input/event9" || !cfg.Evdev.InvertY {
		t.Fatalf("unexpected evdev: %+v", cfg.Evdev)
	}
	if cfg.StateWS.Port != 0 {
		t.Fatalf("expected state_ws disabled, got port %d", cfg.StateWS.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseConfig_RejectsUnknownField(t *testing.T) {
	_, err := parseConfig([]byte("motion:\n  dead_zoen: 10\n"))
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseConfig_RejectsTrailingDocument(t *testing.T) {
	_, err := parseConfig([]byte("canvas:\n  width: 100\n---\ncanvas:\n  width: 200\n"))
	if err == nil || !strings.Contains(err.Error(), "trailing document") {
		t.Fatalf("expected trailing document error, got %v", err)
	}
}

func TestParseConfig_NonFiniteFailsValidate(t *testing.T) {
	cfg, err := parseConfig([]byte("motion:\n  dead_zone: .nan\n"))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "dead_zone") {
		t.Fatalf("expected dead_zone error, got %v", err)
	}
}

func TestParseConfig_AllowsTrailingComments(t *testing.T) {
	cfg, err := parseConfig([]byte("canvas:\n  width: 100\n# done\n"))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if cfg.Canvas.Width != 100 {
		t.Fatalf("expected width 100, got %v", cfg.Canvas.Width)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "etch.yaml")
	if err := os.WriteFile(path, []byte("canvas:\n  height: 100\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Canvas.Height != 100 {
		t.Fatalf("expected height 100, got %v", cfg.Canvas.Height)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()

	zero := 0.0
	kb := "/dev/input/event3"
	off := false
	port := 9000
	FlagOverrides{
		DialSensitivity: &zero,
		Keyboard:        &kb,
		TerminalEnabled: &off,
		StateWSPort:     &port,
	}.Apply(&cfg)

	if cfg.Motion.DialSensitivity != 0 {
		t.Fatalf("expected explicit zero to be applied, got %v", cfg.Motion.DialSensitivity)
	}
	if !cfg.Evdev.Enabled || len(cfg.Evdev.Keyboards) != 1 || cfg.Evdev.Keyboards[0] != kb {
		t.Fatalf("expected keyboard flag to enable evdev: %+v", cfg.Evdev)
	}
	if cfg.Terminal.Enabled {
		t.Fatalf("expected terminal disabled")
	}
	if cfg.StateWS.Port != 9000 {
		t.Fatalf("expected port 9000, got %d", cfg.StateWS.Port)
	}
	// Unset overrides leave values alone.
	if cfg.Canvas.Width != 640 || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected changes: %+v", cfg)
	}
}

func TestConfig_ValidateErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"zero width", func(c *Config) { c.Canvas.Width = 0 }, "canvas"},
		{"infinite width", func(c *Config) { c.Canvas.Width = math.Inf(1) }, "canvas"},
		{"nan height", func(c *Config) { c.Canvas.Height = math.NaN() }, "canvas"},
		{"negative dead zone", func(c *Config) { c.Motion.DeadZone = -1 }, "dead_zone"},
		{"nan dead zone", func(c *Config) { c.Motion.DeadZone = math.NaN() }, "dead_zone"},
		{"infinite dead zone", func(c *Config) { c.Motion.DeadZone = math.Inf(1) }, "dead_zone"},
		{"nan dial sensitivity", func(c *Config) { c.Motion.DialSensitivity = math.NaN() }, "dial_sensitivity"},
		{"negative dial sensitivity", func(c *Config) { c.Motion.DialSensitivity = -2 }, "dial_sensitivity"},
		{"zero tolerance", func(c *Config) { c.Motion.GallopToleranceMS = 0 }, "gallop_tolerance_ms"},
		{"zero sensitivity", func(c *Config) { c.Motion.GallopSensitivityMS = 0 }, "gallop_sensitivity_ms"},
		{"slow sample", func(c *Config) { c.Motion.SampleIntervalMS = 5000 }, "sample_interval_ms"},
		{"negative dial interval", func(c *Config) { c.Motion.DialIntervalMS = -1 }, "dial_interval_ms"},
		{"three lanes", func(c *Config) { c.Lanes.Y = []string{"j", "k", "l"} }, "exactly 4"},
		{"evdev without devices", func(c *Config) { c.Evdev.Enabled = true }, "neither"},
		{"empty keyboard path", func(c *Config) {
			c.Evdev.Enabled = true
			c.Evdev.Keyboards = []string{""}
		}, "keyboards[0]"},
		{"bad stick axis", func(c *Config) { c.Evdev.LeftStick = "z" }, "left_stick"},
		{"same stick axes", func(c *Config) { c.Evdev.RightStick = "x" }, "different axes"},
		{"unknown reset key", func(c *Config) { c.Terminal.ResetKey = "esc" }, "reset_key"},
		{"reset key on a lane", func(c *Config) { c.Terminal.ResetKey = "S" }, "also a lane key"},
		{"no input", func(c *Config) {
			c.Terminal.Enabled = false
			c.IPC.SocketPath = ""
		}, "no input source"},
		{"bad port", func(c *Config) { c.StateWS.Port = 70000 }, "state_ws.port"},
		{"bad path", func(c *Config) { c.StateWS.Path = "ws" }, "state_ws.path"},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestConfig_IPCOnlyIsValid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Terminal.Enabled = false
	// Reset key is only checked when the terminal is in use.
	cfg.Terminal.ResetKey = "a"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected IPC-only config to validate: %v", err)
	}
}

func TestConfig_ToMotionConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Motion.GallopToleranceMS = 200
	cfg.Motion.SampleIntervalMS = 40

	m := cfg.ToMotionConfig()
	if m.Width != 640 || m.Height != 480 {
		t.Fatalf("unexpected canvas: %+v", m)
	}
	if m.Gallop.Tolerance != 200*time.Millisecond || m.Gallop.Sensitivity != 25*time.Millisecond {
		t.Fatalf("unexpected gallop config: %+v", m.Gallop)
	}
	if m.SampleInterval != 40*time.Millisecond {
		t.Fatalf("unexpected sample interval: %v", m.SampleInterval)
	}
}

func TestConfig_ToDaemonConfig(t *testing.T) {
	cfg := DefaultConfig()
	d := cfg.ToDaemonConfig()
	if d.GallopInterval != 25*time.Millisecond || d.DialInterval != 25*time.Millisecond {
		t.Fatalf("expected shared 25ms cadence, got %+v", d)
	}

	cfg.Motion.DialIntervalMS = 50
	d = cfg.ToDaemonConfig()
	if d.GallopInterval != 25*time.Millisecond || d.DialInterval != 50*time.Millisecond {
		t.Fatalf("expected 25ms/50ms, got %+v", d)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/etch.sock"); got != filepath.Join(home, "etch.sock") {
		t.Fatalf("unexpected expansion: %q", got)
	}
	if got := ExpandPath("/tmp/etch.sock"); got != "/tmp/etch.sock" {
		t.Fatalf("expected absolute path unchanged, got %q", got)
	}
}
