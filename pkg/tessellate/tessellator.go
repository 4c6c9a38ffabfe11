package tessellate

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/go-drift/lattice/pkg/cache"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/graphics"
)

// Key identifies a tessellated mesh by content.
type Key struct {
	Path      uint64
	Style     graphics.PaintStyle
	Stroke    graphics.StrokeStyle
	Rule      graphics.FillRule
	Tolerance float64
}

// Job is one path to tessellate in a batch.
type Job struct {
	Path  *graphics.Path
	Paint graphics.Paint
	// Scale is the largest factor the mesh will be magnified by when drawn.
	Scale float64
}

// Stats counts tessellator work since creation.
type Stats struct {
	Tessellated uint64
	Cache       cache.Stats
}

// Tessellator turns paths into meshes and caches the results by content
// hash, so an unchanged path is never tessellated twice.
//
// Thread safety: Tessellator is safe for concurrent use.
type Tessellator struct {
	tolerance float64
	workers   int
	meshes    *cache.LRU[Key, *Mesh]

	tessellated atomic.Uint64
}

// New creates a tessellator from configuration.
func New(cfg config.TessellationConfig) *Tessellator {
	t := &Tessellator{
		tolerance: cfg.Tolerance,
		workers:   cfg.Workers,
		meshes:    cache.New[Key, *Mesh](cfg.CacheSize),
	}
	if t.tolerance <= 0 {
		t.tolerance = 0.25
	}
	if t.workers <= 0 {
		t.workers = 1
	}
	return t
}

// KeyFor returns the cache key of path drawn with paint at scale.
func (t *Tessellator) KeyFor(path *graphics.Path, paint graphics.Paint, scale float64) Key {
	k := Key{
		Path:      path.Hash(),
		Style:     paint.Style,
		Rule:      path.FillRule,
		Tolerance: t.effectiveTolerance(scale),
	}
	if paint.Style == graphics.PaintStroke {
		k.Stroke = paint.Stroke
	}
	return k
}

// effectiveTolerance divides the tolerance by the draw scale, rounded to a
// power of two so nearby scales share cache entries.
func (t *Tessellator) effectiveTolerance(scale float64) float64 {
	if scale <= 0 || math.IsNaN(scale) || math.IsInf(scale, 0) {
		scale = 1
	}
	return t.tolerance / math.Exp2(math.Ceil(math.Log2(scale)))
}

// Tessellate returns the mesh for path drawn with paint, from the cache when
// possible. The returned mesh is shared and must not be modified.
func (t *Tessellator) Tessellate(path *graphics.Path, paint graphics.Paint, scale float64) *Mesh {
	if path.IsEmpty() {
		return &Mesh{}
	}
	key := t.KeyFor(path, paint, scale)
	if m, ok := t.meshes.Get(key); ok {
		return m
	}
	var m *Mesh
	if paint.Style == graphics.PaintStroke {
		m = FillPieces(Stroke(path, paint.Stroke, key.Tolerance), key.Tolerance)
	} else {
		m = Fill(path, path.FillRule, key.Tolerance)
	}
	t.tessellated.Add(1)
	t.meshes.Put(key, m)
	return m
}

// Batch tessellates jobs in parallel on at most the configured number of
// workers. Results are in job order. It stops early when ctx is cancelled.
func (t *Tessellator) Batch(ctx context.Context, jobs []Job) ([]*Mesh, error) {
	out := make([]*Mesh, len(jobs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers)
	for i, job := range jobs {
		if err := ctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = t.Tessellate(job.Path, job.Paint, job.Scale)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats returns a snapshot of the tessellator counters.
func (t *Tessellator) Stats() Stats {
	return Stats{Tessellated: t.tessellated.Load(), Cache: t.meshes.Stats()}
}

// Purge drops every cached mesh.
func (t *Tessellator) Purge() {
	t.meshes.Clear()
}
