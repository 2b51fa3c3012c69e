package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"etch"
)

// Config is the top-level YAML configuration for the etch daemon.
//
// Defaults come from DefaultConfig, a config file is layered on top, then
// command-line overrides, then Validate.
type Config struct {
	// Canvas bounds the stylus moves within
	Canvas CanvasConfig `yaml:"canvas"`

	// Motion integrator tuning
	Motion MotionFileConfig `yaml:"motion"`

	// Key names for the four gallop lanes of each axis
	Lanes LanesConfig `yaml:"lanes"`

	// Linux input devices
	Evdev EvdevConfig `yaml:"evdev"`

	// Terminal keyboard capture
	Terminal TerminalConfig `yaml:"terminal"`

	// IPC injection socket
	IPC IPCConfig `yaml:"ipc"`

	// Stroke publication over websocket
	StateWS StateWSConfig `yaml:"state_ws"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type CanvasConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// MotionFileConfig is the user-facing form of etch.MotionConfig. Durations are
// in milliseconds.
type MotionFileConfig struct {
	DeadZone        float64 `yaml:"dead_zone"`
	DialSensitivity float64 `yaml:"dial_sensitivity"` // 0 disables the dial path

	GallopToleranceMS   int `yaml:"gallop_tolerance_ms"`
	GallopSensitivityMS int `yaml:"gallop_sensitivity_ms"`

	SampleIntervalMS int `yaml:"sample_interval_ms"`
	DialIntervalMS   int `yaml:"dial_interval_ms,omitempty"` // 0 = same as sample_interval_ms
}

// LanesConfig lists key names in physical order; index i is lane i.
type LanesConfig struct {
	X []string `yaml:"x"`
	Y []string `yaml:"y"`
}

type EvdevConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Keyboards []string `yaml:"keyboards,omitempty"`
	Gamepad   string   `yaml:"gamepad,omitempty"`

	// Grab takes exclusive access so key presses do not also reach other programs.
	Grab bool `yaml:"grab"`

	// Axis driven by each stick ("x" or "y")
	LeftStick  string `yaml:"left_stick"`
	RightStick string `yaml:"right_stick"`

	// InvertY flips the kernel's down-positive stick Y so that up is positive.
	InvertY bool `yaml:"invert_y"`
}

type TerminalConfig struct {
	Enabled  bool   `yaml:"enabled"`
	ResetKey string `yaml:"reset_key"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"` // empty disables IPC
}

type StateWSConfig struct {
	Port int    `yaml:"port"` // 0 disables the HTTP listener
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Canvas: CanvasConfig{
			Width:  etch.DefaultCanvasWidth,
			Height: etch.DefaultCanvasHeight,
		},
		Motion: MotionFileConfig{
			DeadZone:            etch.DefaultDeadZone,
			DialSensitivity:     etch.DefaultDialSensitivity,
			GallopToleranceMS:   int(etch.DefaultGallopTolerance / time.Millisecond),
			GallopSensitivityMS: int(etch.DefaultGallopSensitivity / time.Millisecond),
			SampleIntervalMS:    int(etch.DefaultSampleInterval / time.Millisecond),
		},
		Lanes: LanesConfig{
			X: append([]string(nil), defaultLanesX...),
			Y: append([]string(nil), defaultLanesY...),
		},
		Evdev: EvdevConfig{
			LeftStick:  "x",
			RightStick: "y",
			InvertY:    true,
		},
		Terminal: TerminalConfig{
			Enabled:  true,
			ResetKey: defaultResetKey,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocket,
		},
		StateWS: StateWSConfig{
			Port: defaultStateWSPort,
			Path: defaultStateWSPath,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfigFile reads and parses a YAML config file over DefaultConfig.
// Unknown fields and trailing documents are rejected.
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, errors.New("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values from explicitly set flags. A nil pointer means the
// flag was not given; a non-nil pointer is applied even if it holds a zero value.
type FlagOverrides struct {
	CanvasWidth  *float64
	CanvasHeight *float64

	DeadZone            *float64
	DialSensitivity     *float64
	GallopToleranceMS   *int
	GallopSensitivityMS *int
	SampleIntervalMS    *int
	DialIntervalMS      *int

	EvdevEnabled *bool
	Keyboard     *string
	Gamepad      *string
	Grab         *bool

	TerminalEnabled *bool

	IPCSocketPath *string
	StateWSPort   *int

	LogLevel *string
	LogFile  *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}

	if o.CanvasWidth != nil {
		cfg.Canvas.Width = *o.CanvasWidth
	}
	if o.CanvasHeight != nil {
		cfg.Canvas.Height = *o.CanvasHeight
	}

	if o.DeadZone != nil {
		cfg.Motion.DeadZone = *o.DeadZone
	}
	if o.DialSensitivity != nil {
		cfg.Motion.DialSensitivity = *o.DialSensitivity
	}
	if o.GallopToleranceMS != nil {
		cfg.Motion.GallopToleranceMS = *o.GallopToleranceMS
	}
	if o.GallopSensitivityMS != nil {
		cfg.Motion.GallopSensitivityMS = *o.GallopSensitivityMS
	}
	if o.SampleIntervalMS != nil {
		cfg.Motion.SampleIntervalMS = *o.SampleIntervalMS
	}
	if o.DialIntervalMS != nil {
		cfg.Motion.DialIntervalMS = *o.DialIntervalMS
	}

	if o.EvdevEnabled != nil {
		cfg.Evdev.Enabled = *o.EvdevEnabled
	}
	if o.Keyboard != nil {
		// A device on the command line implies evdev input.
		cfg.Evdev.Keyboards = []string{*o.Keyboard}
		cfg.Evdev.Enabled = true
	}
	if o.Gamepad != nil {
		cfg.Evdev.Gamepad = *o.Gamepad
		cfg.Evdev.Enabled = true
	}
	if o.Grab != nil {
		cfg.Evdev.Grab = *o.Grab
	}

	if o.TerminalEnabled != nil {
		cfg.Terminal.Enabled = *o.TerminalEnabled
	}

	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.StateWSPort != nil {
		cfg.StateWS.Port = *o.StateWSPort
	}

	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

// Validate checks config invariants and returns a user-friendly error.
// It is called after defaults, file and overrides are applied.
func (c *Config) Validate() error {
	// Canvas
	if !(c.Canvas.Width > 0) || !(c.Canvas.Height > 0) ||
		math.IsInf(c.Canvas.Width, 0) || math.IsInf(c.Canvas.Height, 0) {
		return errors.New("canvas.width and canvas.height must be finite and > 0")
	}

	// Motion
	if !(c.Motion.DeadZone >= 0) || math.IsInf(c.Motion.DeadZone, 0) {
		return errors.New("motion.dead_zone must be finite and >= 0")
	}
	if !(c.Motion.DialSensitivity >= 0) || math.IsInf(c.Motion.DialSensitivity, 0) {
		return errors.New("motion.dial_sensitivity must be >= 0 (0 disables the dial)")
	}
	if c.Motion.GallopToleranceMS <= 0 {
		return errors.New("motion.gallop_tolerance_ms must be > 0")
	}
	if c.Motion.GallopSensitivityMS <= 0 {
		return errors.New("motion.gallop_sensitivity_ms must be > 0")
	}
	if c.Motion.SampleIntervalMS <= 0 || c.Motion.SampleIntervalMS > 1000 {
		return errors.New("motion.sample_interval_ms must be between 1 and 1000")
	}
	if c.Motion.DialIntervalMS < 0 || c.Motion.DialIntervalMS > 1000 {
		return errors.New("motion.dial_interval_ms must be between 0 and 1000")
	}

	// Lanes
	if _, err := buildLaneKeys(c.Lanes); err != nil {
		return err
	}

	// Evdev
	if c.Evdev.Enabled {
		if len(c.Evdev.Keyboards) == 0 && c.Evdev.Gamepad == "" {
			return errors.New("evdev.enabled is true but neither evdev.keyboards nor evdev.gamepad is set")
		}
		for i, dev := range c.Evdev.Keyboards {
			if dev == "" {
				return fmt.Errorf("evdev.keyboards[%d] is empty", i)
			}
		}
	}
	left, err := etch.ParseAxis(c.Evdev.LeftStick)
	if err != nil {
		return fmt.Errorf("evdev.left_stick: %w", err)
	}
	right, err := etch.ParseAxis(c.Evdev.RightStick)
	if err != nil {
		return fmt.Errorf("evdev.right_stick: %w", err)
	}
	if left == right {
		return errors.New("evdev.left_stick and evdev.right_stick must drive different axes")
	}

	// Terminal
	if c.Terminal.Enabled {
		k, ok := keyNames[strings.ToLower(c.Terminal.ResetKey)]
		if !ok {
			return fmt.Errorf("terminal.reset_key %q is not a known key", c.Terminal.ResetKey)
		}
		for _, name := range append(append([]string(nil), c.Lanes.X...), c.Lanes.Y...) {
			if keyNames[strings.ToLower(name)] == k {
				return fmt.Errorf("terminal.reset_key %q is also a lane key", c.Terminal.ResetKey)
			}
		}
	}

	// At least one way to move the stylus
	if !c.Evdev.Enabled && !c.Terminal.Enabled && c.IPC.SocketPath == "" {
		return errors.New("no input source: enable evdev or terminal, or set ipc.socket_path")
	}

	// State websocket
	if c.StateWS.Port < 0 || c.StateWS.Port > 65535 {
		return errors.New("state_ws.port must be between 0 and 65535")
	}
	if c.StateWS.Port != 0 && !strings.HasPrefix(c.StateWS.Path, "/") {
		return errors.New("state_ws.path must start with /")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToMotionConfig converts the file config into the integrator configuration.
func (c *Config) ToMotionConfig() etch.MotionConfig {
	return etch.MotionConfig{
		Width:           c.Canvas.Width,
		Height:          c.Canvas.Height,
		DeadZone:        c.Motion.DeadZone,
		DialSensitivity: c.Motion.DialSensitivity,
		Gallop: etch.GallopConfig{
			Tolerance:   time.Duration(c.Motion.GallopToleranceMS) * time.Millisecond,
			Sensitivity: time.Duration(c.Motion.GallopSensitivityMS) * time.Millisecond,
		},
		SampleInterval: time.Duration(c.Motion.SampleIntervalMS) * time.Millisecond,
	}
}

// ToDaemonConfig returns the tick cadences for the daemon loop.
func (c *Config) ToDaemonConfig() DaemonConfig {
	sample := time.Duration(c.Motion.SampleIntervalMS) * time.Millisecond
	dial := time.Duration(c.Motion.DialIntervalMS) * time.Millisecond
	if dial == 0 {
		dial = sample
	}
	return DaemonConfig{
		GallopInterval: sample,
		DialInterval:   dial,
	}
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
