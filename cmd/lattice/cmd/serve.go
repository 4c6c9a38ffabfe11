package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-drift/lattice/cmd/lattice/internal/demo"
	"github.com/go-drift/lattice/pkg/engine"
	"github.com/go-drift/lattice/pkg/graphics"
)

func init() {
	RegisterCommand(&Command{
		Name:  "serve",
		Short: "Run a demo app with the debug server",
		Long: `Run a demo app headless and serve its debug endpoints until interrupted.

Endpoints:
  /tree       The node tree with geometry and dirty flags
  /frames     Recent frame samples (limit, min_ms, build_ms, ... filters)
  /runtime    Memory and GC statistics
  /atlas      Texture atlas counters
  /health     Liveness check

Flags:
  --addr ADDR    Listen address (default: debug.addr or localhost:9292)
  --size WxH     Viewport size in logical pixels (default: 320x240)
  --fps N        Frame rate while frames are requested (default: 60)`,
		Usage: "lattice serve <app> [--addr ADDR] [--size WxH] [--fps N]",
		Run:   runServe,
	})
}

const defaultDebugAddr = "localhost:9292"

type serveOptions struct {
	app  string
	addr string
	size graphics.Size
	fps  int
}

func parseServeArgs(args []string) (serveOptions, error) {
	opts := serveOptions{size: defaultViewport, fps: 60}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--addr", "--size", "--fps":
			if i+1 >= len(args) {
				return opts, fmt.Errorf("%s requires a value", arg)
			}
			v := args[i+1]
			i++
			var err error
			switch arg {
			case "--addr":
				opts.addr = v
			case "--size":
				opts.size, err = parseSize(v)
			case "--fps":
				opts.fps, err = strconv.Atoi(v)
				if err != nil || opts.fps < 1 || opts.fps > 240 {
					err = fmt.Errorf("--fps must be between 1 and 240 (got %q)", v)
				}
			}
			if err != nil {
				return opts, err
			}
		default:
			if strings.HasPrefix(arg, "-") {
				return opts, fmt.Errorf("unknown flag %q", arg)
			}
			if opts.app != "" {
				return opts, fmt.Errorf("unexpected argument %q", arg)
			}
			opts.app = arg
		}
	}
	if opts.app == "" {
		return opts, fmt.Errorf("app is required (one of %v)\n\nUsage: lattice serve <app>", demo.Names())
	}
	return opts, nil
}

func runServe(args []string) error {
	opts, err := parseServeArgs(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.addr == "" {
		opts.addr = cfg.Debug.Addr
	}
	if opts.addr == "" {
		opts.addr = defaultDebugAddr
	}
	// The engine would start a second listener on debug.addr otherwise.
	cfg.Debug.Addr = ""
	log := newLogger(cfg)

	e, err := startApp(cfg, log, opts.app, opts.size)
	if err != nil {
		return err
	}
	defer e.Close()

	addr, err := e.ServeDebug(opts.addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Serving %s on http://%s (Ctrl+C to stop)\n", opts.app, addr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return loop(ctx, e, time.Second/time.Duration(opts.fps))
}

// loop steps a frame on every tick that has a pending frame request until
// ctx is done.
func loop(ctx context.Context, e *engine.Engine, interval time.Duration) error {
	if _, err := e.StepFrame(ctx); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !e.NeedsFrame() {
				continue
			}
			if _, err := e.StepFrame(ctx); err != nil {
				return err
			}
		}
	}
}
