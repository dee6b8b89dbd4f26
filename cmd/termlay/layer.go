package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/spf13/pflag"

	"github.com/termlay/termlay/internal/config"
	"github.com/termlay/termlay/internal/runtimepath"
	"github.com/termlay/termlay/internal/terminal"
	"github.com/termlay/termlay/internal/x11"
)

func runLayer(args []string) int {
	flagSet := pflag.NewFlagSet("termlay layer", pflag.ContinueOnError)
	parentFlag := flagSet.Uint32("parent", 0, "bind to this window id instead of resolving terminals")
	logLevelFlag := flagSet.String("log-level", "", "override the configured log level")
	logFileFlag := flagSet.String("log-file", "", "override the configured log file (\"stderr\" for standard error)")
	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *logLevelFlag != "" {
		cfg.LogLevel = *logLevelFlag
	}
	if *logFileFlag != "" {
		cfg.LogFile = *logFileFlag
	}

	logger, closeLog, err := buildLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer closeLog()
	slog.SetDefault(logger)

	display, err := x11.Open()
	if err != nil {
		logger.Error("failed to open display", "error", err)
		return 1
	}
	defer display.Close()
	display.SetLogger(logger)

	if geom, err := terminal.Size(os.Stdout); err == nil {
		px, py := geom.CellToPixel(geom.Cols, geom.Rows)
		logger.Debug("terminal geometry",
			"cols", geom.Cols, "rows", geom.Rows,
			"cell_width", geom.CellWidth(), "cell_height", geom.CellHeight(),
			"pixel_width", px, "pixel_height", py)
	}

	layer := &layerProcess{
		display: display,
		pump:    x11.NewPump(display),
		tmux:    terminal.NewTmux(cfg.Tmux.Command),
		parent:  xproto.Window(*parentFlag),
		logger:  logger,
	}

	if err := layer.bindAll(); err != nil {
		logger.Error("failed to bind overlay windows", "error", err)
		return 1
	}
	if len(layer.pump.Windows()) == 0 {
		logger.Error("no terminal windows found")
		return 1
	}

	// SIGUSR1 asks for a re-resolution of terminal windows (sent by
	// `termlay pids`); SIGINT/SIGTERM shut the layer down by closing
	// the display, which unblocks the event wait.
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	go func() {
		for sig := range signals {
			if sig == syscall.SIGUSR1 {
				layer.requestRebind()
				continue
			}
			logger.Info("shutting down", "signal", sig)
			display.Close()
			return
		}
	}()

	if err := layer.run(); err != nil {
		logger.Error("event loop failed", "error", err)
		return 1
	}
	return 0
}

// layerProcess owns the overlay windows of one layer invocation. The
// run loop goroutine is the only one touching windows and pump; signal
// handling only flips the rebind flag and wakes the loop.
type layerProcess struct {
	display *x11.Display
	pump    *x11.Pump
	tmux    terminal.Tmux
	parent  xproto.Window
	logger  *slog.Logger

	rebind atomic.Bool
}

func (l *layerProcess) bindAll() error {
	for _, w := range l.pump.Windows() {
		if err := w.Finalize(); err != nil {
			l.logger.Warn("failed to finalize overlay window", "error", err)
		}
	}
	l.pump = x11.NewPump(l.display)

	parents, err := l.resolveParents()
	if err != nil {
		return err
	}

	for _, parent := range parents {
		w, err := x11.NewOverlayWindow(l.display, parent.Window)
		if err != nil {
			return err
		}
		l.pump.Register(w)
		l.logger.Info("bound overlay window",
			"window", w.ID(), "parent", parent.Window,
			"width", w.Width(), "height", w.Height(), "pty", parent.PTY)
	}
	return nil
}

func (l *layerProcess) resolveParents() ([]terminal.ParentWindow, error) {
	if l.parent != 0 {
		return []terminal.ParentWindow{{Window: l.parent}}, nil
	}
	return terminal.ParentWindows(l.display, l.tmux)
}

// requestRebind marks the window set dirty and wakes the run loop, since
// re-resolution must happen on the loop goroutine. The wake works even
// when the previous rebind resolved zero windows; a layer in a tmux
// window that lost focus must come back once it regains it.
func (l *layerProcess) requestRebind() {
	l.rebind.Store(true)
	if err := l.display.Wake(); err != nil {
		l.logger.Warn("failed to wake event loop", "error", err)
	}
}

func (l *layerProcess) run() error {
	for {
		if err := l.pump.Wait(); err != nil {
			if errors.Is(err, x11.ErrConnectionClosed) {
				return nil
			}
			return err
		}
		if _, err := l.pump.Dispatch(); err != nil {
			return err
		}
		if l.rebind.Swap(false) {
			l.logger.Info("re-resolving terminal windows")
			if err := l.bindAll(); err != nil {
				return err
			}
			if len(l.pump.Windows()) == 0 {
				l.logger.Info("no terminal windows; idling until the next rebind request")
			}
		}
	}
}

// buildLogger opens the layer log. The layer shares its terminal with
// the windows it overlays, so logs go to a file in the runtime directory
// unless "stderr" is asked for explicitly.
func buildLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	path := cfg.LogFile
	if path == "" {
		var err error
		path, err = runtimepath.LogPath()
		if err != nil {
			return nil, nil, err
		}
	}

	output := os.Stderr
	closeLog := func() {}

	if path != "stderr" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", path, err)
		}
		output = f
		closeLog = func() { f.Close() }
	}

	handler := slog.NewTextHandler(output, &slog.HandlerOptions{Level: cfg.SlogLevel()})
	return slog.New(handler), closeLog, nil
}
