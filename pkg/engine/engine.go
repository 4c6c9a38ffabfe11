// Package engine drives frames: it drains cross-thread writes and task
// results, rebuilds, lays out, paints and renders the tree, and routes
// input events to it.
package engine

import (
	"context"
	"image"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-drift/lattice/pkg/animation"
	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/core"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/focus"
	"github.com/go-drift/lattice/pkg/gpu"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/layout"
	"github.com/go-drift/lattice/pkg/paint"
	"github.com/go-drift/lattice/pkg/tree"
	"github.com/go-drift/lattice/pkg/worker"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine and its renderer.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) {
		if log != nil {
			e.log = log
		}
	}
}

// WithExecutor runs Spawn work on exec instead of the engine's worker pool.
func WithExecutor(exec core.Executor) Option {
	return func(e *Engine) {
		e.exec = exec
	}
}

// WithFrameRequest registers a callback invoked, possibly from another
// goroutine, whenever the engine needs a new frame. Platforms use it to
// schedule frames on demand instead of polling.
func WithFrameRequest(fn func()) Option {
	return func(e *Engine) {
		e.requestFrame = fn
	}
}

// WithClock sets the clock animation tickers read.
func WithClock(clock animation.Clock) Option {
	return func(e *Engine) {
		e.clock = clock
	}
}

// FrameReport describes one StepFrame.
type FrameReport struct {
	Frame uint64
	// Ticks is the number of animation tickers stepped.
	Ticks int
	// Build holds the scheduler counters, including the rebuild passes.
	Build  core.BuildStats
	Layout layout.Result
	Paint  paint.Stats
	Render gpu.Stats
	// Commands is the number of draw commands rendered.
	Commands int
	// Diagnostics collects the non-fatal conditions of the frame from
	// every pass.
	Diagnostics []error
	// Fallback is set when the rebuild did not converge and the last
	// stable frame was rendered again.
	Fallback bool
	Duration time.Duration
}

// Engine owns one widget tree and the passes that turn it into pixels.
//
// StepFrame, HandleEvent, Resize, SetFocus and Capture serialize on an
// internal lock, so exactly one of them touches the tree at a time; the
// goroutine holding the lock acts as the UI goroutine. Dispatch may be
// called from any goroutine and is applied at the next frame boundary.
type Engine struct {
	mu sync.Mutex

	cfg      *config.Config
	log      *slog.Logger
	tree     *tree.Tree
	owner    *core.BuildOwner
	layout   *layout.Pipeline
	paint    *paint.Pipeline
	renderer *gpu.Renderer
	focus    *focus.Manager
	pool     *worker.Pool
	exec     core.Executor
	trace    *FrameTraceBuffer
	anim     *animation.Scheduler
	clock    animation.Clock
	debug    *debugServer

	root     core.Widget
	mounted  bool
	viewport graphics.Size
	frame    uint64
	last     *paint.Frame
	pointers *pointerRouter
	inFrame  bool
	closed   bool

	needsFrame   atomic.Bool
	requestFrame func()
}

// New creates an engine rendering root to device at the given logical
// viewport size. A nil cfg uses config.Default(). When debug.addr is set
// the debug server is started; failing to bind it is logged, not fatal.
func New(cfg *config.Config, device gpu.Device, root core.Widget, viewport graphics.Size, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	e := &Engine{
		cfg:      cfg,
		log:      slog.Default(),
		tree:     tree.New(),
		root:     root,
		viewport: viewport,
		trace:    NewFrameTraceBuffer(cfg.Debug.FrameSamples, time.Duration(cfg.Debug.JankThresholdMs*float64(time.Millisecond))),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.exec == nil {
		e.pool = worker.New(cfg.Scheduler.Workers, 0)
		e.exec = e.pool
	}
	e.owner = core.NewBuildOwner(e.tree, core.OptionsFromConfig(cfg, notifyingExecutor{inner: e.exec, notify: e.scheduleFrame}))
	e.owner.OnNeedsFrame = e.nodeScheduled
	e.owner.OnUnmount = e.nodeUnmounted
	e.anim = animation.NewScheduler(e.clock)
	e.anim.OnStart = e.scheduleFrame
	e.layout = layout.NewPipeline(cfg.Layout)
	e.paint = paint.NewPipeline(viewport)
	e.renderer = gpu.NewRenderer(device, cfg, e.log)
	e.focus = focus.NewManager(e.tree)
	e.pointers = newPointerRouter()
	e.needsFrame.Store(true)
	if cfg.Debug.Addr != "" {
		if _, err := e.ServeDebug(cfg.Debug.Addr); err != nil {
			e.log.Error("debug server not started", slog.String("addr", cfg.Debug.Addr), slog.Any("err", err))
		}
	}
	return e
}

// notifyingExecutor requests a frame when spawned work finishes so its
// result is applied promptly and parked tasks get another chance.
type notifyingExecutor struct {
	inner  core.Executor
	notify func()
}

func (x notifyingExecutor) TrySubmit(work func()) error {
	return x.inner.TrySubmit(func() {
		work()
		x.notify()
	})
}

func (e *Engine) scheduleFrame() {
	e.needsFrame.Store(true)
	if e.requestFrame != nil {
		e.requestFrame()
	}
}

// nodeScheduled requests a frame for nodes dirtied outside StepFrame, for
// example by an event handler. Nodes dirtied during a frame are handled by
// that frame.
func (e *Engine) nodeScheduled() {
	if !e.inFrame {
		e.scheduleFrame()
	}
}

// nodeUnmounted drops everything held for a node that left the tree.
func (e *Engine) nodeUnmounted(id arena.ID) {
	e.renderer.ReleaseNode(id)
	e.focus.Forget(id)
	e.pointers.forget(id)
}

// NeedsFrame reports whether state changed since the last frame. It is
// safe to call from any goroutine.
func (e *Engine) NeedsFrame() bool {
	return e.needsFrame.Load()
}

// Dispatch queues fn to run on the UI goroutine at the next frame
// boundary. From other goroutines it blocks or drops the oldest queued
// write when the queue is full, as configured by
// scheduler.write_queue.policy. Called from an event handler or a build,
// it returns errors.ErrQueueFull rather than wait for a drain that only
// the next frame performs.
func (e *Engine) Dispatch(ctx context.Context, fn func()) error {
	if err := e.owner.Post(ctx, fn); err != nil {
		return err
	}
	e.scheduleFrame()
	return nil
}

// Animations returns the scheduler whose tickers run at the start of
// every frame, on the UI goroutine.
func (e *Engine) Animations() *animation.Scheduler {
	return e.anim
}

// Resize changes the logical viewport. The root is re-measured under the
// new constraints on the next frame.
func (e *Engine) Resize(size graphics.Size) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if size == e.viewport {
		return
	}
	e.viewport = size
	e.paint.SetViewport(size)
	e.scheduleFrame()
}

// Viewport returns the logical viewport size.
func (e *Engine) Viewport() graphics.Size {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// StepFrame produces one frame.
//
// A rebuild that does not converge leaves the remaining nodes dirty for
// the next frame and renders the last stable frame again; the condition is
// reported in FrameReport.Diagnostics. Contract violations, cancellation
// of ctx and device failures are returned as errors. After an error
// wrapping errors.ErrDeviceLost, call ResetDevice before the next frame.
func (e *Engine) StepFrame(ctx context.Context) (*FrameReport, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, &errors.EngineError{Op: "engine.StepFrame", Kind: errors.KindContract, Err: errors.ErrDisposed}
	}

	defer e.owner.EnterUI()()

	start := time.Now()
	e.frame++
	e.needsFrame.Store(false)
	e.inFrame = true
	defer func() { e.inFrame = false }()
	e.owner.BeginFrame(e.frame)
	report := &FrameReport{Frame: e.frame}
	sample := FrameSample{Frame: e.frame, Timestamp: start.UnixMilli()}

	phase := time.Now()
	report.Ticks = e.anim.Step()
	e.owner.DrainWrites()
	e.owner.DrainResults()
	sample.Phases.DispatchMs = sinceMillis(phase)

	phase = time.Now()
	buildErr := e.build()
	sample.Phases.BuildMs = sinceMillis(phase)
	report.Build = e.owner.Stats()
	var contract *errors.ContractError
	if errors.As(buildErr, &contract) {
		return report, buildErr
	}

	frame := e.last
	if buildErr != nil {
		report.Fallback = true
		e.log.Warn("rebuild did not converge, rendering last stable frame", slog.Uint64("frame", e.frame))
	} else {
		phase = time.Now()
		report.Layout = e.layout.Run(e.tree, layout.Tight(e.viewport))
		sample.Phases.LayoutMs = sinceMillis(phase)

		phase = time.Now()
		frame = e.paint.Paint(e.tree)
		sample.Phases.PaintMs = sinceMillis(phase)
		report.Paint = frame.Stats
		e.last = frame
	}

	if frame != nil {
		phase = time.Now()
		st, err := e.renderer.Render(ctx, frame, e.viewport)
		sample.Phases.RenderMs = sinceMillis(phase)
		report.Render = st
		report.Commands = len(frame.Commands)
		if err != nil {
			if errors.Is(err, errors.ErrDeviceLost) {
				e.log.Error("graphics device lost", slog.Uint64("frame", e.frame), slog.Any("err", err))
			}
			return report, err
		}
	}

	report.Diagnostics = append(report.Diagnostics, e.owner.TakeDiagnostics()...)
	report.Diagnostics = append(report.Diagnostics, report.Layout.Diagnostics...)
	report.Diagnostics = append(report.Diagnostics, report.Render.Diagnostics...)
	if e.owner.Pending() > 0 || e.anim.Active() {
		e.needsFrame.Store(true)
	}
	report.Duration = time.Since(start)

	sample.FrameMs = durationToMillis(report.Duration)
	sample.Counts = FrameCounts{
		Nodes:     e.tree.Len(),
		Rebuilt:   report.Build.Rebuilt,
		Measured:  report.Layout.Measured,
		Painted:   report.Paint.Painted,
		Reused:    report.Paint.Reused,
		Commands:  report.Commands,
		Batches:   report.Render.Batches,
		Triangles: report.Render.Triangles,
	}
	sample.Flags = FrameFlags{Fallback: report.Fallback, Diagnostics: len(report.Diagnostics)}
	e.trace.Add(sample, report.Duration)
	return report, nil
}

// build mounts the root on the first frame and flushes pending rebuilds.
func (e *Engine) build() error {
	if !e.mounted {
		if _, err := e.owner.MountRoot(e.root); err != nil {
			return err
		}
		e.mounted = true
	}
	return e.owner.FlushBuild()
}

// SetRoot replaces the root widget. A root of the same type and key is
// updated in place and keeps its state.
func (e *Engine) SetRoot(root core.Widget) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.root = root
	e.mounted = false
	e.scheduleFrame()
}

// SetFocus moves keyboard focus to id. It reports false when id is not a
// live node that accepts key events.
func (e *Engine) SetFocus(id arena.ID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focus.Focus(id)
}

// Focused returns the node holding keyboard focus, or the zero ID.
func (e *Engine) Focused() arena.ID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.focus.Primary()
}

// Capture returns the pixels of the last rendered frame.
func (e *Engine) Capture() (*image.RGBA, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.renderer.Capture()
}

// ResetDevice switches rendering to a new device after device loss. The
// next frame re-emits every command.
func (e *Engine) ResetDevice(device gpu.Device) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.renderer.Reset(device)
	e.paint.Invalidate()
	e.tree.Mark(e.tree.Root(), tree.NeedsPaint)
	e.scheduleFrame()
}

// Renderer returns the renderer, for inspecting atlas and cache state.
func (e *Engine) Renderer() *gpu.Renderer {
	return e.renderer
}

// Inspect runs fn with the tree while no frame or event is in progress.
func (e *Engine) Inspect(fn func(t *tree.Tree)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.tree)
}

// Timeline returns the recent frame samples.
func (e *Engine) Timeline() FrameTimeline {
	return e.trace.Snapshot()
}

// Close unmounts the tree, cancelling in-flight tasks and releasing their
// resources, rejects further dispatches, and stops the worker pool and
// the debug server.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.anim.StopAll()
	e.owner.Unmount()
	e.owner.CloseQueues()
	e.mu.Unlock()

	if e.pool != nil {
		e.pool.Close()
	}
	return e.StopDebugServer()
}

func sinceMillis(t time.Time) float64 {
	return durationToMillis(time.Since(t))
}
