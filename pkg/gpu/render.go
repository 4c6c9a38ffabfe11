package gpu

import (
	"cmp"
	"context"
	"image"
	"log/slog"
	"math"
	"slices"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/errors"
	"github.com/go-drift/lattice/pkg/graphics"
	"github.com/go-drift/lattice/pkg/paint"
	"github.com/go-drift/lattice/pkg/tessellate"
)

// batchLookback bounds how many batches back a command may move to join a
// batch with the same texture.
const batchLookback = 8

// pixelLimit clamps unbounded rects before they are converted to pixels.
const pixelLimit = 1 << 24

// Stats counts the work of one Render.
type Stats struct {
	Commands  int
	Meshes    int
	Images    int
	Batches   int
	Triangles int
	// Skipped is the number of image commands dropped because the atlas
	// had no room for them.
	Skipped        int
	LayersRendered int
	LayersReused   int
	Diagnostics    []error
}

type cachedLayer struct {
	tex     TextureID
	version uint64
	bounds  image.Rectangle
	seen    uint64
}

// item is one draw command resolved to device geometry.
type item struct {
	z      int
	tex    TextureID
	verts  []Vertex
	idx    []uint32
	bounds graphics.Rect
}

type pendingBatch struct {
	batch  Batch
	bounds graphics.Rect
}

// Renderer turns composed frames into device draw calls.
//
// Renderer belongs to the UI goroutine. Tessellation fans out to worker
// goroutines inside Render.
type Renderer struct {
	dev    Device
	atlas  *Atlas
	tess   *tessellate.Tessellator
	log    *slog.Logger
	layers map[paint.LayerID]*cachedLayer
	frame  uint64
	lost   bool

	// Clear is the color each frame starts from.
	Clear graphics.Color

	// per-frame state
	cmds   []paint.DrawCommand
	meshes map[int]*tessellate.Mesh
	slots  map[int]*Slot
	skip   []bool
	bounds image.Rectangle
}

// NewRenderer creates a renderer drawing to dev.
func NewRenderer(dev Device, cfg *config.Config, log *slog.Logger) *Renderer {
	if log == nil {
		log = slog.Default()
	}
	return &Renderer{
		dev:    dev,
		atlas:  NewAtlas(dev, cfg.Atlas, log),
		tess:   tessellate.New(cfg.Tessellation),
		log:    log,
		layers: make(map[paint.LayerID]*cachedLayer),
		Clear:  graphics.ColorWhite,
	}
}

// Atlas returns the renderer's texture atlas.
func (r *Renderer) Atlas() *Atlas { return r.atlas }

// Tessellator returns the renderer's mesh cache.
func (r *Renderer) Tessellator() *tessellate.Tessellator { return r.tess }

// Lost reports whether the device was lost and Reset is required.
func (r *Renderer) Lost() bool { return r.lost }

// Render draws frame onto a surface of the given size.
//
// Missing atlas space is not an error: the affected images are skipped,
// lowest priority first, and reported in Stats.Diagnostics. Errors are
// returned for cancellation and device failures; after an error wrapping
// errors.ErrDeviceLost the renderer refuses to draw until Reset.
func (r *Renderer) Render(ctx context.Context, frame *paint.Frame, size graphics.Size) (Stats, error) {
	if r.lost {
		return Stats{}, &errors.EngineError{Op: "gpu.Render", Kind: errors.KindDevice, Err: errors.ErrDeviceLost}
	}
	r.frame = r.atlas.BeginFrame()
	defer r.atlas.EndFrame()
	defer func() { r.cmds, r.meshes, r.slots, r.skip = nil, nil, nil, nil }()

	r.cmds = frame.Commands
	r.bounds = image.Rect(0, 0, int(math.Ceil(size.Width)), int(math.Ceil(size.Height)))
	st := Stats{Commands: len(r.cmds)}
	r.markCachedLayers()

	if err := r.tessellate(ctx, &st); err != nil {
		return st, err
	}
	if err := r.acquireImages(&st); err != nil {
		return st, r.deviceError(err)
	}
	if err := r.dev.BeginFrame(r.bounds.Max, r.Clear); err != nil {
		return st, r.deviceError(err)
	}
	if err := r.submit(0, len(r.cmds), &st); err != nil {
		return st, r.deviceError(err)
	}
	if err := r.dev.EndFrame(); err != nil {
		return st, r.deviceError(err)
	}
	r.purgeLayers()
	return st, nil
}

// Capture returns the last rendered frame.
func (r *Renderer) Capture() (*image.RGBA, error) {
	if r.lost {
		return nil, &errors.EngineError{Op: "gpu.Capture", Kind: errors.KindDevice, Err: errors.ErrDeviceLost}
	}
	img, err := r.dev.Capture()
	if err != nil {
		return nil, r.deviceError(err)
	}
	return img, nil
}

// Reset switches to a new device after loss. Every texture is recreated
// on demand; tessellated meshes survive.
func (r *Renderer) Reset(dev Device) {
	r.dev = dev
	r.atlas.Reset(dev)
	clear(r.layers)
	r.lost = false
	r.log.Info("renderer reset")
}

// ReleaseNode frees the layer textures and atlas slots held for a node
// that left the tree.
func (r *Renderer) ReleaseNode(id arena.ID) {
	for lid, l := range r.layers {
		if lid.Node == id {
			r.dev.ReleaseTexture(l.tex)
			delete(r.layers, lid)
		}
	}
	r.atlas.ReleaseOwner(id)
}

func (r *Renderer) deviceError(err error) error {
	if errors.Is(err, errors.ErrDeviceLost) {
		r.lost = true
		r.log.Error("graphics device lost", "frame", r.frame)
	}
	var ee *errors.EngineError
	if errors.As(err, &ee) {
		return ee
	}
	return &errors.EngineError{Op: "gpu.Render", Kind: errors.KindDevice, Err: err, Frame: r.frame}
}

// markCachedLayers flags the commands inside layers whose cached texture
// is still valid, so they are neither tessellated nor uploaded.
func (r *Renderer) markCachedLayers() {
	r.skip = make([]bool, len(r.cmds))
	for i := 0; i < len(r.cmds); i++ {
		c := r.cmds[i]
		if c.Kind != paint.KindPushLayer {
			continue
		}
		cached, ok := r.layers[c.Layer.ID]
		if !ok || cached.version != c.Layer.Version || cached.bounds != r.layerBounds(c.Layer) {
			continue
		}
		end := r.matchingPop(i, len(r.cmds))
		for j := i + 1; j < end; j++ {
			r.skip[j] = true
			if inner, ok := r.layers[r.cmds[j].Layer.ID]; ok && r.cmds[j].Kind == paint.KindPushLayer {
				inner.seen = r.frame
			}
		}
		i = end
	}
}

func (r *Renderer) tessellate(ctx context.Context, st *Stats) error {
	var jobs []tessellate.Job
	var at []int
	for i, c := range r.cmds {
		if c.Kind != paint.KindFillPath || r.skip[i] || c.Path.IsEmpty() {
			continue
		}
		jobs = append(jobs, tessellate.Job{Path: c.Path, Paint: c.Paint, Scale: c.Transform.MaxScale()})
		at = append(at, i)
	}
	meshes, err := r.tess.Batch(ctx, jobs)
	if err != nil {
		return &errors.EngineError{Op: "gpu.Render", Kind: errors.KindAsync, Err: err, Frame: r.frame}
	}
	r.meshes = make(map[int]*tessellate.Mesh, len(meshes))
	for k, m := range meshes {
		r.meshes[at[k]] = m
	}
	st.Meshes = len(meshes)
	return nil
}

// acquireImages packs the frame's images into the atlas, highest priority
// first, so that the lowest priority content is what gets skipped.
func (r *Renderer) acquireImages(st *Stats) error {
	var order []int
	for i, c := range r.cmds {
		if c.Kind == paint.KindImage && !r.skip[i] {
			order = append(order, i)
		}
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(r.cmds[b].Priority, r.cmds[a].Priority)
	})
	r.slots = make(map[int]*Slot, len(order))
	for _, i := range order {
		c := r.cmds[i]
		var w, h int
		if c.Image != nil {
			w, h = c.Image.Bounds().Dx(), c.Image.Bounds().Dy()
		} else if _, ok := r.atlas.Lookup(c.ImageKey); !ok {
			// Keyed content that was never uploaded has nothing to draw.
			continue
		}
		s, err := r.atlas.Acquire(c.ImageKey, w, h, c.Node, func() image.Image { return c.Image })
		if err != nil {
			if !errors.Is(err, errors.ErrResourceExhausted) {
				return err
			}
			st.Skipped++
			st.Diagnostics = append(st.Diagnostics,
				errors.Diagnostic("gpu.Render", errors.KindResource, c.Node.String(), r.frame, err))
			continue
		}
		r.slots[i] = s
		st.Images++
	}
	return nil
}

// submit draws commands [lo, hi). Draw commands between state changes form
// a segment that is sorted by Z and merged into batches.
func (r *Renderer) submit(lo, hi int, st *Stats) error {
	var seg []item
	flush := func() error {
		if len(seg) == 0 {
			return nil
		}
		slices.SortStableFunc(seg, func(a, b item) int { return cmp.Compare(a.z, b.z) })
		for _, b := range mergeBatches(seg) {
			if err := r.dev.Draw(b.batch); err != nil {
				return err
			}
			st.Batches++
			st.Triangles += b.batch.Triangles()
		}
		seg = seg[:0]
		return nil
	}
	for i := lo; i < hi; i++ {
		c := r.cmds[i]
		switch c.Kind {
		case paint.KindFillPath, paint.KindImage:
			if it, ok := r.item(i); ok {
				seg = append(seg, it)
			}
		case paint.KindPushClip:
			if err := flush(); err != nil {
				return err
			}
			r.dev.PushClip(pixelRect(c.Clip))
		case paint.KindPopClip:
			if err := flush(); err != nil {
				return err
			}
			r.dev.PopClip()
		case paint.KindPushLayer:
			if err := flush(); err != nil {
				return err
			}
			end := r.matchingPop(i, hi)
			if err := r.layer(i, end, st); err != nil {
				return err
			}
			i = end
		}
	}
	return flush()
}

// layer draws the layer opened at push, from cache when its version and
// bounds are unchanged.
func (r *Renderer) layer(push, pop int, st *Stats) error {
	l := r.cmds[push].Layer
	bounds := r.layerBounds(l)
	if bounds.Empty() {
		return nil
	}
	if cached, ok := r.layers[l.ID]; ok && cached.version == l.Version && cached.bounds == bounds {
		cached.seen = r.frame
		st.LayersReused++
		return r.dev.CompositeTexture(cached.tex, bounds, l.Opacity)
	}
	if err := r.dev.BeginLayer(bounds, l.Blur); err != nil {
		return err
	}
	if err := r.submit(push+1, pop, st); err != nil {
		return err
	}
	tex, err := r.dev.EndLayer()
	if err != nil {
		return err
	}
	if old, ok := r.layers[l.ID]; ok {
		r.dev.ReleaseTexture(old.tex)
	}
	r.layers[l.ID] = &cachedLayer{tex: tex, version: l.Version, bounds: bounds, seen: r.frame}
	st.LayersRendered++
	return r.dev.CompositeTexture(tex, bounds, l.Opacity)
}

func (r *Renderer) layerBounds(l paint.Layer) image.Rectangle {
	return pixelRect(l.Bounds).Intersect(r.bounds)
}

// matchingPop returns the index of the PopLayer closing the layer opened
// at push, or hi when it is missing.
func (r *Renderer) matchingPop(push, hi int) int {
	depth := 0
	for j := push; j < hi; j++ {
		switch r.cmds[j].Kind {
		case paint.KindPushLayer:
			depth++
		case paint.KindPopLayer:
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return hi
}

// purgeLayers releases layer textures not composited this frame.
func (r *Renderer) purgeLayers() {
	for id, l := range r.layers {
		if l.seen != r.frame {
			r.dev.ReleaseTexture(l.tex)
			delete(r.layers, id)
		}
	}
}

// item resolves command i to root-space vertices.
func (r *Renderer) item(i int) (item, bool) {
	c := r.cmds[i]
	m := c.Transform
	switch c.Kind {
	case paint.KindFillPath:
		mesh := r.meshes[i]
		if mesh.IsEmpty() {
			return item{}, false
		}
		verts := make([]Vertex, len(mesh.Vertices))
		for k, v := range mesh.Vertices {
			p := m.Apply(graphics.Offset{X: float64(v.X), Y: float64(v.Y)})
			verts[k] = Vertex{X: float32(p.X), Y: float32(p.Y), Color: c.Paint.Color}
		}
		return item{
			z:      c.Z,
			verts:  verts,
			idx:    mesh.Indices,
			bounds: m.TransformRect(mesh.Bounds()),
		}, true
	case paint.KindImage:
		s, ok := r.slots[i]
		if !ok {
			return item{}, false
		}
		d := c.Dst
		corners := [4]graphics.Offset{
			m.Apply(graphics.Offset{X: d.Left, Y: d.Top}),
			m.Apply(graphics.Offset{X: d.Right, Y: d.Top}),
			m.Apply(graphics.Offset{X: d.Right, Y: d.Bottom}),
			m.Apply(graphics.Offset{X: d.Left, Y: d.Bottom}),
		}
		uv := [4]image.Point{
			s.Rect.Min,
			{X: s.Rect.Max.X, Y: s.Rect.Min.Y},
			s.Rect.Max,
			{X: s.Rect.Min.X, Y: s.Rect.Max.Y},
		}
		verts := make([]Vertex, 4)
		for k := range corners {
			verts[k] = Vertex{
				X: float32(corners[k].X), Y: float32(corners[k].Y),
				U: float32(uv[k].X), V: float32(uv[k].Y),
				Color: graphics.ColorWhite,
			}
		}
		return item{
			z:      c.Z,
			tex:    r.atlas.Texture(s.Page),
			verts:  verts,
			idx:    []uint32{0, 1, 2, 0, 2, 3},
			bounds: m.TransformRect(d),
		}, true
	}
	return item{}, false
}

// mergeBatches groups Z-ordered items into draw calls by texture. An item
// may join an earlier batch with the same texture only if it overlaps none
// of the batches it would jump over, so the visible paint order is kept.
func mergeBatches(items []item) []*pendingBatch {
	var out []*pendingBatch
	for _, it := range items {
		var target *pendingBatch
		for j := len(out) - 1; j >= 0 && j >= len(out)-batchLookback; j-- {
			if out[j].batch.Texture == it.tex {
				target = out[j]
				break
			}
			if out[j].bounds.Overlaps(it.bounds) {
				break
			}
		}
		if target == nil {
			target = &pendingBatch{batch: Batch{Texture: it.tex}}
			out = append(out, target)
		}
		b := &target.batch
		base := uint32(len(b.Vertices))
		b.Shapes = append(b.Shapes, len(b.Indices))
		b.Vertices = append(b.Vertices, it.verts...)
		for _, ix := range it.idx {
			b.Indices = append(b.Indices, base+ix)
		}
		target.bounds = target.bounds.Union(it.bounds)
	}
	return out
}

// pixelRect returns the smallest pixel rectangle covering r.
func pixelRect(r graphics.Rect) image.Rectangle {
	clamp := func(v float64) int {
		return int(math.Max(-pixelLimit, math.Min(pixelLimit, v)))
	}
	return image.Rect(clamp(math.Floor(r.Left)), clamp(math.Floor(r.Top)), clamp(math.Ceil(r.Right)), clamp(math.Ceil(r.Bottom)))
}
