package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/gpu"
	"github.com/go-drift/lattice/pkg/tree"
)

// debugServer manages the HTTP server for tree inspection.
type debugServer struct {
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// TreeNode represents a node in the serialized tree.
// Uses SafeFloat for dimensions that may contain Inf/NaN from layout issues.
type TreeNode struct {
	ID       string     `json:"id"`
	Type     string     `json:"type"`
	Key      any        `json:"key,omitempty"`
	Depth    int        `json:"depth"`
	State    string     `json:"state"`
	Flags    string     `json:"flags,omitempty"`
	Size     SafeSize   `json:"size"`
	Offset   SafeOffset `json:"offset"`
	Children []TreeNode `json:"children,omitempty"`
}

// SafeFloat wraps a float64 to handle Inf/NaN in JSON encoding.
type SafeFloat float64

func (f SafeFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsInf(v, 1) {
		return []byte(`"Infinity"`), nil
	}
	if math.IsInf(v, -1) {
		return []byte(`"-Infinity"`), nil
	}
	if math.IsNaN(v) {
		return []byte(`"NaN"`), nil
	}
	return json.Marshal(v)
}

// SafeSize is a JSON-safe version of graphics.Size.
type SafeSize struct {
	Width  SafeFloat `json:"width"`
	Height SafeFloat `json:"height"`
}

// SafeOffset is a JSON-safe version of graphics.Offset.
type SafeOffset struct {
	X SafeFloat `json:"x"`
	Y SafeFloat `json:"y"`
}

// maxTreeDepth limits recursion depth to prevent stack overflow from malformed trees.
const maxTreeDepth = 500

// DebugHandler returns the HTTP handler serving the inspection endpoints:
// /tree, /frames, /runtime, /atlas and /health.
func (e *Engine) DebugHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tree", e.handleTree)
	mux.HandleFunc("/frames", e.handleFrameTimeline)
	mux.HandleFunc("/runtime", handleRuntime)
	mux.HandleFunc("/atlas", e.handleAtlas)
	mux.HandleFunc("/health", handleHealth)
	return mux
}

// ServeDebug starts the debug server on addr and returns the bound
// address, which differs from addr when it names port 0. Calling it while
// the server runs returns the current address.
func (e *Engine) ServeDebug(addr string) (string, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", &errors.EngineError{Op: "engine.ServeDebug", Kind: errors.KindContract, Err: errors.ErrDisposed}
	}
	if e.debug == nil {
		e.debug = &debugServer{}
	}
	srv := e.debug
	e.mu.Unlock()

	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.server != nil {
		return srv.listener.Addr().String(), nil
	}

	// Bind listener first to fail fast on port conflicts
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("debug server listen: %w", err)
	}
	server := &http.Server{Handler: e.DebugHandler(), ReadHeaderTimeout: 5 * time.Second}
	srv.server = server
	srv.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			// Server failed - clear state so it can be restarted
			srv.mu.Lock()
			srv.server = nil
			srv.listener = nil
			srv.mu.Unlock()
			e.log.Error("debug server stopped", slog.Any("err", err))
		}
	}()
	e.log.Info("debug server listening", slog.String("addr", listener.Addr().String()))
	return listener.Addr().String(), nil
}

// StopDebugServer gracefully shuts down the debug server, if running.
func (e *Engine) StopDebugServer() error {
	e.mu.Lock()
	srv := e.debug
	e.mu.Unlock()
	if srv == nil {
		return nil
	}

	srv.mu.Lock()
	server := srv.server
	srv.server = nil
	srv.listener = nil
	srv.mu.Unlock()
	if server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// handleTree returns the node tree as JSON.
//
// The engine lock is held while serializing, so the snapshot always falls
// between frames.
func (e *Engine) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Recover from panics during serialization
	defer func() {
		if rec := recover(); rec != nil {
			http.Error(w, fmt.Sprintf("panic: %v", rec), http.StatusInternalServerError)
		}
	}()

	var (
		root TreeNode
		ok   bool
	)
	e.Inspect(func(t *tree.Tree) {
		if n := t.Node(t.Root()); n != nil {
			root, ok = serializeTree(t, n, 0), true
		}
	})
	if !ok {
		http.Error(w, "no tree", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, root)
}

// handleFrameTimeline returns recent frame timing samples as JSON.
func (e *Engine) handleFrameTimeline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := e.trace.Snapshot()
	applyFrameFilters(r, &resp)
	writeJSON(w, resp)
}

// handleAtlas returns atlas counters as JSON.
func (e *Engine) handleAtlas(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	e.mu.Lock()
	st := e.renderer.Atlas().Stats()
	e.mu.Unlock()
	writeJSON(w, atlasResponse(st))
}

type atlasJSON struct {
	Pages       int `json:"pages"`
	Slots       int `json:"slots"`
	Hits        int `json:"hits"`
	Uploads     int `json:"uploads"`
	Evictions   int `json:"evictions"`
	Compactions int `json:"compactions"`
	Grows       int `json:"grows"`
	Failures    int `json:"failures"`
}

func atlasResponse(st gpu.AtlasStats) atlasJSON {
	return atlasJSON(st)
}

// handleRuntime returns a runtime/GC sample as JSON.
func handleRuntime(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, ReadRuntimeSample())
}

// handleHealth returns a simple health check response.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	// Encode to buffer first so we can catch errors
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func applyFrameFilters(r *http.Request, resp *FrameTimeline) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	var filters []func(FrameSample) bool

	if v := parseFloatQuery(r, "min_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.FrameMs >= v })
	}
	if v := parseFloatQuery(r, "build_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.BuildMs >= v })
	}
	if v := parseFloatQuery(r, "layout_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.LayoutMs >= v })
	}
	if v := parseFloatQuery(r, "paint_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.PaintMs >= v })
	}
	if v := parseFloatQuery(r, "render_ms"); v > 0 {
		filters = append(filters, func(s FrameSample) bool { return s.Phases.RenderMs >= v })
	}
	if value := r.URL.Query().Get("fallback"); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil && parsed {
			filters = append(filters, func(s FrameSample) bool { return s.Flags.Fallback })
		}
	}

	if len(filters) > 0 {
		filtered := make([]FrameSample, 0, len(resp.Samples))
	outer:
		for _, sample := range resp.Samples {
			for _, f := range filters {
				if !f(sample) {
					continue outer
				}
			}
			filtered = append(filtered, sample)
		}
		resp.Samples = filtered
	}

	if limit > 0 && len(resp.Samples) > limit {
		resp.Samples = resp.Samples[len(resp.Samples)-limit:]
	}
}

func parseFloatQuery(r *http.Request, key string) float64 {
	value := r.URL.Query().Get(key)
	if value == "" {
		return 0
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil || parsed <= 0 {
		return 0
	}
	return parsed
}

// serializeTree recursively converts a subtree to JSON-serializable form.
// The depth parameter limits recursion to prevent stack overflow.
func serializeTree(t *tree.Tree, n *tree.Node, depth int) TreeNode {
	g := n.Geometry
	node := TreeNode{
		ID:     n.ID.String(),
		Type:   n.TypeName,
		Key:    safeKey(n.Key),
		Depth:  n.Depth,
		State:  n.State.String(),
		Size:   SafeSize{Width: SafeFloat(g.Size.Width), Height: SafeFloat(g.Size.Height)},
		Offset: SafeOffset{X: SafeFloat(g.Offset.X), Y: SafeFloat(g.Offset.Y)},
	}
	if n.Flags != 0 {
		node.Flags = n.Flags.String()
	}
	if depth < maxTreeDepth {
		for _, id := range n.Children {
			if child := t.Node(id); child != nil {
				node.Children = append(node.Children, serializeTree(t, child, depth+1))
			}
		}
	}
	return node
}

// safeKey converts a widget key to a JSON-safe value.
// Non-serializable types (funcs, chans, etc.) are converted to their string representation.
func safeKey(key any) any {
	if key == nil {
		return nil
	}
	switch key.(type) {
	case string, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, bool:
		return key
	default:
		// For complex types, use string representation to avoid JSON errors
		return fmt.Sprintf("%v", key)
	}
}
