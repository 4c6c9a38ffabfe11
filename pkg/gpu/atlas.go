package gpu

import (
	"cmp"
	"fmt"
	"image"
	"log/slog"
	"slices"

	"github.com/go-drift/lattice/pkg/arena"
	"github.com/go-drift/lattice/pkg/config"
	"github.com/go-drift/lattice/pkg/errors"
)

// Slot is a packed region of an atlas page holding one piece of content.
type Slot struct {
	Key  uint64
	Page int
	// Rect is the content area in page texels, padding excluded.
	Rect image.Rectangle

	refs     int
	pins     int
	lastUsed uint64
	owners   map[arena.ID]struct{}
}

// Refs returns the number of uses in the current frame.
func (s *Slot) Refs() int { return s.refs }

// LastUsed returns the last frame that acquired the slot.
func (s *Slot) LastUsed() uint64 { return s.lastUsed }

func (s *Slot) evictable() bool {
	return s.refs == 0 && s.pins == 0
}

func (s *Slot) String() string {
	return fmt.Sprintf("Slot(%x page=%d %v)", s.Key, s.Page, s.Rect)
}

type page struct {
	tex    TextureID
	size   int
	packer *shelfPacker
	slots  map[uint64]*Slot
}

// AtlasStats counts atlas activity since creation.
type AtlasStats struct {
	Pages       int
	Slots       int
	Hits        int
	Uploads     int
	Evictions   int
	Compactions int
	Grows       int
	Failures    int
}

// Atlas packs content into device textures and reuses packed content by
// hash. Slots acquired in a frame are pinned until EndFrame; when space
// runs out the least recently used unpinned slots are evicted and the page
// compacted before the atlas grows or opens another page.
type Atlas struct {
	dev     Device
	cfg     config.AtlasConfig
	log     *slog.Logger
	pages   []*page
	slots   map[uint64]*Slot
	owners  map[arena.ID]map[uint64]struct{}
	touched []*Slot
	frame   uint64
	stats   AtlasStats
}

// NewAtlas creates an empty atlas. Pages are created on first use.
func NewAtlas(dev Device, cfg config.AtlasConfig, log *slog.Logger) *Atlas {
	def := config.Default().Atlas
	if cfg.InitialSize <= 0 {
		cfg.InitialSize = def.InitialSize
	}
	if cfg.MaxSize < cfg.InitialSize {
		cfg.MaxSize = cfg.InitialSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 1
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	if log == nil {
		log = slog.Default()
	}
	return &Atlas{
		dev:    dev,
		cfg:    cfg,
		log:    log,
		slots:  make(map[uint64]*Slot),
		owners: make(map[arena.ID]map[uint64]struct{}),
	}
}

func (a *Atlas) maxSize() int {
	return min(a.cfg.MaxSize, a.dev.MaxTextureSize())
}

// BeginFrame starts a new frame and returns its number.
func (a *Atlas) BeginFrame() uint64 {
	a.frame++
	return a.frame
}

// EndFrame drops the references taken during the frame.
func (a *Atlas) EndFrame() {
	for _, s := range a.touched {
		s.refs = 0
	}
	a.touched = a.touched[:0]
}

// Texture returns the device texture of page i.
func (a *Atlas) Texture(i int) TextureID {
	return a.pages[i].tex
}

// Lookup returns the resident slot for key.
func (a *Atlas) Lookup(key uint64) (*Slot, bool) {
	s, ok := a.slots[key]
	return s, ok
}

// Acquire returns the slot holding key, packing and uploading the content
// returned by upload if it is not resident. The slot stays valid until
// EndFrame. owner, when not zero, records the node drawing the content so
// ReleaseOwner can free it when the node goes away.
func (a *Atlas) Acquire(key uint64, w, h int, owner arena.ID, upload func() image.Image) (*Slot, error) {
	s, ok := a.slots[key]
	if ok {
		a.stats.Hits++
	} else {
		var err error
		if s, err = a.place(key, w, h); err != nil {
			a.stats.Failures++
			return nil, err
		}
		if err := a.dev.UploadRegion(a.pages[s.Page].tex, s.Rect.Min.X, s.Rect.Min.Y, upload()); err != nil {
			a.free(s)
			return nil, err
		}
		a.stats.Uploads++
	}
	if s.refs == 0 {
		a.touched = append(a.touched, s)
	}
	s.refs++
	s.lastUsed = a.frame
	if !owner.IsZero() {
		s.owners[owner] = struct{}{}
		keys := a.owners[owner]
		if keys == nil {
			keys = make(map[uint64]struct{})
			a.owners[owner] = keys
		}
		keys[key] = struct{}{}
	}
	return s, nil
}

// Retain pins a resident slot across frames until Release.
func (a *Atlas) Retain(key uint64) bool {
	s, ok := a.slots[key]
	if ok {
		s.pins++
	}
	return ok
}

// Release undoes one Retain.
func (a *Atlas) Release(key uint64) {
	if s, ok := a.slots[key]; ok && s.pins > 0 {
		s.pins--
	}
}

// ReleaseOwner forgets owner and frees every slot it was the last owner
// of, unless the slot is in use this frame or pinned. It returns the number
// of slots freed.
func (a *Atlas) ReleaseOwner(owner arena.ID) int {
	keys := a.owners[owner]
	delete(a.owners, owner)
	freed := 0
	for key := range keys {
		s, ok := a.slots[key]
		if !ok {
			continue
		}
		delete(s.owners, owner)
		if len(s.owners) == 0 && s.evictable() {
			a.free(s)
			freed++
		}
	}
	return freed
}

// Stats returns a snapshot of the atlas counters.
func (a *Atlas) Stats() AtlasStats {
	st := a.stats
	st.Pages = len(a.pages)
	st.Slots = len(a.slots)
	return st
}

// Reset forgets all content and switches to dev. Textures of the old
// device are not released: after device loss they are already gone.
func (a *Atlas) Reset(dev Device) {
	a.dev = dev
	a.pages = nil
	a.touched = a.touched[:0]
	clear(a.slots)
	clear(a.owners)
}

func (a *Atlas) free(s *Slot) {
	delete(a.slots, s.Key)
	delete(a.pages[s.Page].slots, s.Key)
	for o := range s.owners {
		if keys := a.owners[o]; keys != nil {
			delete(keys, s.Key)
			if len(keys) == 0 {
				delete(a.owners, o)
			}
		}
	}
}

// place finds room for a new w×h slot: first in the existing pages, then
// by evicting and compacting, then by growing a page, then by opening a
// new page.
func (a *Atlas) place(key uint64, w, h int) (*Slot, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("gpu: invalid atlas request %dx%d", w, h)
	}
	pw, ph := w+a.cfg.Padding, h+a.cfg.Padding
	if pw > a.maxSize() || ph > a.maxSize() {
		return nil, fmt.Errorf("gpu: %dx%d exceeds the maximum atlas size %d: %w", w, h, a.maxSize(), errors.ErrResourceExhausted)
	}
	for i, p := range a.pages {
		if at, ok := p.packer.allocate(pw, ph); ok {
			return a.insert(key, i, at, w, h), nil
		}
	}

	if i, ok := a.evictFor(pw, ph); ok {
		at, err := a.repack(i, a.pages[i].size, pw, ph)
		if err != nil {
			return nil, err
		}
		a.stats.Compactions++
		return a.insert(key, i, at, w, h), nil
	}

	for i, p := range a.pages {
		for size := p.size * 2; size <= a.maxSize(); size *= 2 {
			if !a.fits(p, size, pw, ph) {
				continue
			}
			at, err := a.repack(i, size, pw, ph)
			if err != nil {
				return nil, err
			}
			a.stats.Grows++
			a.log.Debug("atlas grown", "page", i, "size", size)
			return a.insert(key, i, at, w, h), nil
		}
	}

	if len(a.pages) < a.cfg.MaxPages {
		size := a.cfg.InitialSize
		for size < pw || size < ph {
			size *= 2
		}
		size = min(size, a.maxSize())
		tex, err := a.dev.CreateTexture(size, size)
		if err != nil {
			return nil, err
		}
		p := &page{tex: tex, size: size, packer: newShelfPacker(size, size), slots: make(map[uint64]*Slot)}
		a.pages = append(a.pages, p)
		a.log.Debug("atlas page added", "page", len(a.pages)-1, "size", size)
		at, _ := p.packer.allocate(pw, ph)
		return a.insert(key, len(a.pages)-1, at, w, h), nil
	}

	return nil, fmt.Errorf("gpu: no atlas space for %dx%d: %w", w, h, errors.ErrResourceExhausted)
}

func (a *Atlas) insert(key uint64, pageIndex int, at image.Point, w, h int) *Slot {
	s := &Slot{
		Key:    key,
		Page:   pageIndex,
		Rect:   image.Rectangle{Min: at, Max: at.Add(image.Pt(w, h))},
		owners: make(map[arena.ID]struct{}),
	}
	a.slots[key] = s
	a.pages[pageIndex].slots[key] = s
	return s
}

// evictFor evicts unpinned slots, least recently used first, until a
// compacted page would have room for pw×ph. It reports the page to compact.
// Nothing is evicted when no amount of eviction would make room.
func (a *Atlas) evictFor(pw, ph int) (int, bool) {
	var candidates []*Slot
	for _, s := range a.slots {
		if s.evictable() {
			candidates = append(candidates, s)
		}
	}
	if len(candidates) == 0 {
		return 0, false
	}
	slices.SortFunc(candidates, func(x, y *Slot) int {
		if c := cmp.Compare(x.lastUsed, y.lastUsed); c != 0 {
			return c
		}
		return cmp.Compare(x.Key, y.Key)
	})

	// Check that full eviction of some page's candidates would help before
	// evicting anything.
	target := -1
	for i, p := range a.pages {
		if a.fitsWithout(p, p.size, pw, ph, func(s *Slot) bool { return s.evictable() }) {
			target = i
			break
		}
	}
	if target < 0 {
		return 0, false
	}

	gone := make(map[*Slot]bool)
	for _, s := range candidates {
		gone[s] = true
		p := a.pages[s.Page]
		if !a.fitsWithout(p, p.size, pw, ph, func(x *Slot) bool { return gone[x] }) {
			continue
		}
		for e := range gone {
			a.free(e)
			a.stats.Evictions++
		}
		a.log.Debug("atlas evicted", "slots", len(gone), "page", s.Page)
		return s.Page, true
	}
	return 0, false
}

func (a *Atlas) fits(p *page, size, pw, ph int) bool {
	return a.fitsWithout(p, size, pw, ph, func(*Slot) bool { return false })
}

// fitsWithout reports whether the slots of p, minus those gone reports,
// plus a pw×ph rectangle pack into a size×size page.
func (a *Atlas) fitsWithout(p *page, size, pw, ph int, gone func(*Slot) bool) bool {
	packer := newShelfPacker(size, size)
	for _, s := range a.packOrder(p) {
		if gone(s) {
			continue
		}
		if _, ok := packer.allocate(s.Rect.Dx()+a.cfg.Padding, s.Rect.Dy()+a.cfg.Padding); !ok {
			return false
		}
	}
	_, ok := packer.allocate(pw, ph)
	return ok
}

// packOrder returns the slots of p tallest first, which keeps shelves
// dense.
func (a *Atlas) packOrder(p *page) []*Slot {
	out := make([]*Slot, 0, len(p.slots))
	for _, s := range p.slots {
		out = append(out, s)
	}
	slices.SortFunc(out, func(x, y *Slot) int {
		if c := cmp.Compare(y.Rect.Dy(), x.Rect.Dy()); c != 0 {
			return c
		}
		return cmp.Compare(x.Key, y.Key)
	})
	return out
}

// repack moves the live slots of page i into a new size×size texture and
// reserves pw×ph after them.
func (a *Atlas) repack(i, size, pw, ph int) (image.Point, error) {
	p := a.pages[i]
	tex, err := a.dev.CreateTexture(size, size)
	if err != nil {
		return image.Point{}, err
	}
	packer := newShelfPacker(size, size)
	order := a.packOrder(p)
	moved := make([]image.Rectangle, len(order))
	for j, s := range order {
		at, ok := packer.allocate(s.Rect.Dx()+a.cfg.Padding, s.Rect.Dy()+a.cfg.Padding)
		if !ok {
			a.dev.ReleaseTexture(tex)
			return image.Point{}, fmt.Errorf("gpu: atlas repack overflow: %w", errors.ErrResourceExhausted)
		}
		if err := a.dev.CopyRegion(tex, at.X, at.Y, p.tex, s.Rect); err != nil {
			a.dev.ReleaseTexture(tex)
			return image.Point{}, err
		}
		moved[j] = s.Rect.Add(at.Sub(s.Rect.Min))
	}
	at, ok := packer.allocate(pw, ph)
	if !ok {
		a.dev.ReleaseTexture(tex)
		return image.Point{}, fmt.Errorf("gpu: atlas repack overflow: %w", errors.ErrResourceExhausted)
	}
	for j, s := range order {
		s.Rect = moved[j]
	}
	a.dev.ReleaseTexture(p.tex)
	p.tex, p.size, p.packer = tex, size, packer
	return at, nil
}
