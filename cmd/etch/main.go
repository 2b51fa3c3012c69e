package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/sync/errgroup"
)

const version = "0.3.0"

func printVersion() {
	fmt.Printf("etch v%s\n", version)
	fmt.Println("Two-axis drawing stylus driven by gallop keys and analog sticks")
}

func printUsage() {
	def := DefaultConfig()
	printVersion()
	fmt.Fprintf(os.Stdout, `
USAGE:
  etch [OPTIONS]

DESCRIPTION:
  Moves a stylus over a fixed canvas. Each axis is driven by four gallop
  lane keys (roll fingers across them to move) and by rotating an analog
  stick. Keys come from the terminal or from Linux input devices; sticks
  come from a gamepad. Strokes are published over a state websocket.

OPTIONS:
  -config string
        YAML config file. Flags override values from the file.

  -canvas-width float, -canvas-height float
        Canvas size (default %dx%d)

  -dead-zone float
        Stick dead zone on the 0-100 scale (default %.0f)

  -dial-sensitivity float
        Degrees of stick rotation per unit of movement; 0 disables (default %.1f)

  -gallop-tolerance-ms int
        Longest gap between lane presses that still counts (default %d)

  -gallop-sensitivity-ms int
        Gap change per unit of movement (default %d)

  -sample-interval-ms int
        Integrator step period (default %d)

  -dial-interval-ms int
        Dial step period; 0 uses -sample-interval-ms (default 0)

  -evdev
        Read lane keys and sticks from Linux input devices

  -keyboard string
        Keyboard event device (implies -evdev)

  -gamepad string
        Gamepad event device (implies -evdev)

  -grab
        Grab input devices exclusively

  -terminal
        Read lane keys from the terminal (default true)

  -ipc-socket string
        Unix socket for etchctl; empty disables (default %q)

  -state-ws-port int
        Port for the state websocket; 0 disables (default %d)

  -log-level string
        error, warn, info, debug (default "info")

  -log-file string
        Log file; defaults to stdout, or the temp dir while the terminal is active

  -version
        Print version and exit

  -help
        Print this message
`,
		int(def.Canvas.Width), int(def.Canvas.Height),
		def.Motion.DeadZone, def.Motion.DialSensitivity,
		def.Motion.GallopToleranceMS, def.Motion.GallopSensitivityMS, def.Motion.SampleIntervalMS,
		def.IPC.SocketPath, def.StateWS.Port)
}

func main() {
	os.Exit(run())
}

func run() int {
	def := DefaultConfig()

	var (
		configPath = flag.String("config", "", "YAML config file")

		canvasWidth  = flag.Float64("canvas-width", def.Canvas.Width, "canvas width")
		canvasHeight = flag.Float64("canvas-height", def.Canvas.Height, "canvas height")

		deadZone            = flag.Float64("dead-zone", def.Motion.DeadZone, "stick dead zone (0-100)")
		dialSensitivity     = flag.Float64("dial-sensitivity", def.Motion.DialSensitivity, "degrees per unit of movement; 0 disables")
		gallopToleranceMS   = flag.Int("gallop-tolerance-ms", def.Motion.GallopToleranceMS, "gallop tolerance in ms")
		gallopSensitivityMS = flag.Int("gallop-sensitivity-ms", def.Motion.GallopSensitivityMS, "gallop sensitivity in ms")
		sampleIntervalMS    = flag.Int("sample-interval-ms", def.Motion.SampleIntervalMS, "integrator step period in ms")
		dialIntervalMS      = flag.Int("dial-interval-ms", def.Motion.DialIntervalMS, "dial step period in ms; 0 uses sample interval")

		evdevEnabled = flag.Bool("evdev", def.Evdev.Enabled, "read Linux input devices")
		keyboard     = flag.String("keyboard", "", "keyboard event device")
		gamepad      = flag.String("gamepad", "", "gamepad event device")
		grab         = flag.Bool("grab", def.Evdev.Grab, "grab input devices exclusively")

		terminalEnabled = flag.Bool("terminal", def.Terminal.Enabled, "read lane keys from the terminal")

		ipcSocketPath = flag.String("ipc-socket", def.IPC.SocketPath, "Unix socket for IPC; empty disables")
		stateWSPort   = flag.Int("state-ws-port", def.StateWS.Port, "state websocket port; 0 disables")

		logLevel = flag.String("log-level", def.Logging.Level, "log level: error, warn, info, debug")
		logFile  = flag.String("log-file", "", "log file")

		showVersion = flag.Bool("version", false, "print version and exit")
		showHelp    = flag.Bool("help", false, "print help message")
	)

	flag.Usage = printUsage
	flag.Parse()

	if *showHelp {
		printUsage()
		return 0
	}
	if *showVersion {
		printVersion()
		return 0
	}

	// Only flags given on the command line override the file.
	var ov FlagOverrides
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "canvas-width":
			ov.CanvasWidth = canvasWidth
		case "canvas-height":
			ov.CanvasHeight = canvasHeight
		case "dead-zone":
			ov.DeadZone = deadZone
		case "dial-sensitivity":
			ov.DialSensitivity = dialSensitivity
		case "gallop-tolerance-ms":
			ov.GallopToleranceMS = gallopToleranceMS
		case "gallop-sensitivity-ms":
			ov.GallopSensitivityMS = gallopSensitivityMS
		case "sample-interval-ms":
			ov.SampleIntervalMS = sampleIntervalMS
		case "dial-interval-ms":
			ov.DialIntervalMS = dialIntervalMS
		case "evdev":
			ov.EvdevEnabled = evdevEnabled
		case "keyboard":
			ov.Keyboard = keyboard
		case "gamepad":
			ov.Gamepad = gamepad
		case "grab":
			ov.Grab = grab
		case "terminal":
			ov.TerminalEnabled = terminalEnabled
		case "ipc-socket":
			ov.IPCSocketPath = ipcSocketPath
		case "state-ws-port":
			ov.StateWSPort = stateWSPort
		case "log-level":
			ov.LogLevel = logLevel
		case "log-file":
			ov.LogFile = logFile
		}
	})

	cfg := def
	if *configPath != "" {
		var err error
		cfg, err = LoadConfigFile(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			return 1
		}
	}
	ov.Apply(&cfg)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	level, _ := parseLogLevel(cfg.Logging.Level) // validated
	logOut, closeLog, err := openLogWriter(cfg.Logging.File, cfg.Terminal.Enabled)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}
	defer closeLog()
	logger := setupLogger(level, logOut)

	keys, _ := buildLaneKeys(cfg.Lanes) // validated

	logger.Debug("starting etch", "version", version)
	logger.Debug("configuration",
		"canvas_width", cfg.Canvas.Width,
		"canvas_height", cfg.Canvas.Height,
		"dead_zone", cfg.Motion.DeadZone,
		"dial_sensitivity", cfg.Motion.DialSensitivity,
		"gallop_tolerance_ms", cfg.Motion.GallopToleranceMS,
		"gallop_sensitivity_ms", cfg.Motion.GallopSensitivityMS,
		"sample_interval_ms", cfg.Motion.SampleIntervalMS,
		"dial_interval_ms", cfg.Motion.DialIntervalMS,
		"lanes_x", strings.Join(cfg.Lanes.X, ","),
		"lanes_y", strings.Join(cfg.Lanes.Y, ","),
		"evdev", cfg.Evdev.Enabled,
		"terminal", cfg.Terminal.Enabled,
		"ipc_socket", cfg.IPC.SocketPath,
		"state_ws_port", cfg.StateWS.Port,
	)

	// The terminal must be set up before anything else writes to it.
	var screen tcell.Screen
	finiScreen := func() {}
	if cfg.Terminal.Enabled {
		screen, err = tcell.NewScreen()
		if err == nil {
			err = screen.Init()
		}
		if err != nil {
			logger.Error("failed to initialize terminal", "error", err)
			fmt.Fprintln(os.Stderr, "error: terminal:", err)
			return 1
		}
		finiScreen = sync.OnceFunc(screen.Fini)
		defer finiScreen()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = runServices(ctx, cfg, keys, screen, logger)
	if err != nil && !errors.Is(err, errQuit) {
		logger.Error("etch stopped with error", "error", err)
		finiScreen()
		fmt.Fprintln(os.Stderr, "error:", err)
		return 1
	}

	logger.Info("etch stopped")
	return 0
}

// runServices starts the daemon and every enabled input and output, and waits
// until ctx is canceled or one of them fails.
func runServices(ctx context.Context, cfg Config, keys laneKeys, screen tcell.Screen, logger *slog.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	events := make(chan Event, defaultEventBuf)

	var broadcasts chan StateBroadcast
	var wsServer *Server
	if cfg.StateWS.Port != 0 {
		broadcasts = make(chan StateBroadcast, defaultBroadcastBuf)
		wsServer = NewServer(logger, events, ServerConfig{
			Hub: HubConfig{BroadcastBuf: defaultBroadcastBuf},
		})
	}

	state := NewDrawState(cfg.ToMotionConfig(), logger)
	g.Go(func() error {
		return runDaemon(ctx, events, state, cfg.ToDaemonConfig(), broadcasts, logger)
	})

	if wsServer != nil {
		mux := http.NewServeMux()
		wsServer.Register(mux, cfg.StateWS.Path)

		g.Go(func() error {
			wsServer.Hub().Run(ctx)
			return nil
		})
		g.Go(func() error {
			RunBroadcaster(ctx, wsServer.Hub(), broadcasts, logger)
			return nil
		})
		g.Go(func() error {
			return runHTTPServer(ctx, cfg.StateWS.Port, mux, logger)
		})
	}

	if cfg.IPC.SocketPath != "" {
		g.Go(func() error {
			return runIPCServer(ctx, cfg.IPC.SocketPath, events, logger)
		})
	}

	if cfg.Evdev.Enabled {
		g.Go(func() error {
			return runEvdevInput(ctx, cfg.Evdev, keys, events, logger)
		})
	}

	if screen != nil {
		reset := keyNames[strings.ToLower(cfg.Terminal.ResetKey)].r
		g.Go(func() error {
			return runTerminalInput(ctx, screen, keys, reset, events, logger)
		})
	}

	return g.Wait()
}
