package cmd

import (
	"context"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/go-drift/lattice/cmd/lattice/internal/demo"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/engine"
	"github.com/go-drift/lattice/pkg/gpu/soft"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
)

func init() {
	RegisterCommand(&Command{
		Name:  "capture",
		Short: "Render a demo app to a PNG file",
		Long: `Render a demo app with the software device and write the frame as PNG.

The app runs until it is idle, then each --tap is delivered as a pointer
down and up at the given position followed by another frame.

Apps:
  counter    A button that grows a bar on every tap
  gallery    Shapes, opacity, blur and clipping

Flags:
  -o, --output FILE   Output path (default: <app>.png)
  --size WxH          Viewport size in logical pixels (default: 320x240)
  --tap X,Y           Tap at X,Y before capturing; may repeat
  --frames N          Frame limit while waiting for idle (default: 8)

Examples:
  lattice capture gallery
  lattice capture counter --tap 20,20 --tap 20,20 -o counter.png`,
		Usage: "lattice capture <app> [-o FILE] [--size WxH] [--tap X,Y] [--frames N]",
		Run:   runCapture,
	})
}

type captureOptions struct {
	app    string
	output string
	size   graphics.Size
	taps   []graphics.Offset
	frames int
}

var defaultViewport = graphics.Size{Width: 320, Height: 240}

func parseCaptureArgs(args []string) (captureOptions, error) {
	opts := captureOptions{size: defaultViewport, frames: 8}
	value := func(i int, flag string) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", flag)
		}
		return args[i+1], nil
	}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "-o", "--output":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			opts.output = v
			i++
		case "--size":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			if opts.size, err = parseSize(v); err != nil {
				return opts, err
			}
			i++
		case "--tap":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			pos, err := parseOffset(v)
			if err != nil {
				return opts, err
			}
			opts.taps = append(opts.taps, pos)
			i++
		case "--frames":
			v, err := value(i, arg)
			if err != nil {
				return opts, err
			}
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				return opts, fmt.Errorf("--frames must be a positive integer (got %q)", v)
			}
			opts.frames = n
			i++
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
		return opts, fmt.Errorf("app is required (one of %v)\n\nUsage: lattice capture <app>", demo.Names())
	}
	if opts.output == "" {
		opts.output = opts.app + ".png"
	}
	return opts, nil
}

func parseSize(s string) (graphics.Size, error) {
	w, h, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return graphics.Size{}, fmt.Errorf("size must be WxH (got %q)", s)
	}
	width, err1 := strconv.Atoi(w)
	height, err2 := strconv.Atoi(h)
	if err1 != nil || err2 != nil || width < 1 || height < 1 {
		return graphics.Size{}, fmt.Errorf("size must be WxH with positive integers (got %q)", s)
	}
	return graphics.Size{Width: float64(width), Height: float64(height)}, nil
}

func parseOffset(s string) (graphics.Offset, error) {
	x, y, ok := strings.Cut(s, ",")
	if !ok {
		return graphics.Offset{}, fmt.Errorf("position must be X,Y (got %q)", s)
	}
	px, err1 := strconv.ParseFloat(strings.TrimSpace(x), 64)
	py, err2 := strconv.ParseFloat(strings.TrimSpace(y), 64)
	if err1 != nil || err2 != nil {
		return graphics.Offset{}, fmt.Errorf("position must be X,Y (got %q)", s)
	}
	return graphics.Offset{X: px, Y: py}, nil
}

func runCapture(args []string) error {
	opts, err := parseCaptureArgs(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cfg)

	e, err := startApp(cfg, log, opts.app, opts.size)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx := context.Background()
	report, err := settle(ctx, e, opts.frames)
	if err != nil {
		return err
	}
	for _, pos := range opts.taps {
		e.HandleEvent(engine.PointerEvent{Phase: layout.PointerDown, Position: pos})
		e.HandleEvent(engine.PointerEvent{Phase: layout.PointerUp, Position: pos})
		if report, err = settle(ctx, e, opts.frames); err != nil {
			return err
		}
	}

	img, err := e.Capture()
	if err != nil {
		return fmt.Errorf("capture: %w", err)
	}
	f, err := os.Create(opts.output)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", opts.output, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", opts.output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Wrote %s (%dx%d)\n", opts.output, img.Bounds().Dx(), img.Bounds().Dy())
	fmt.Fprintf(stdout, "  frame %d: %d commands, %d batches, %d triangles\n",
		report.Frame, report.Commands, report.Render.Batches, report.Render.Triangles)
	for _, d := range report.Diagnostics {
		fmt.Fprintf(stdout, "  diagnostic: %v\n", d)
	}
	return nil
}

// startApp creates an engine for the named demo app on a software device.
func startApp(cfg *config.Config, log *slog.Logger, app string, size graphics.Size) (*engine.Engine, error) {
	root, err := demo.Lookup(app)
	if err != nil {
		return nil, err
	}
	return engine.New(cfg, soft.New(cfg.Atlas.MaxSize), root, size, engine.WithLogger(log)), nil
}

// settle steps at least one frame and then keeps stepping while the engine
// requests frames, up to limit. It returns the last report.
func settle(ctx context.Context, e *engine.Engine, limit int) (*engine.FrameReport, error) {
	var last *engine.FrameReport
	for i := 0; i < limit; i++ {
		if i > 0 && !e.NeedsFrame() {
			break
		}
		r, err := e.StepFrame(ctx)
		if err != nil {
			return nil, err
		}
		last = r
	}
	return last, nil
}
