package gpu

import "image"

// shelfPacker packs rectangles into horizontal shelves. Each shelf is as
// tall as the tallest rectangle placed on it; rectangles go left to right
// and a new shelf opens below the last one when none has room.
//
// Space is never returned to a shelf. Freed rectangles are reclaimed by
// repacking the live ones into a fresh packer.
type shelfPacker struct {
	width, height int
	shelves       []shelf
}

type shelf struct {
	y, height, x int
}

func newShelfPacker(width, height int) *shelfPacker {
	return &shelfPacker{width: width, height: height}
}

// allocate reserves a w×h rectangle and returns its top-left corner.
func (p *shelfPacker) allocate(w, h int) (image.Point, bool) {
	if w <= 0 || h <= 0 || w > p.width || h > p.height {
		return image.Point{}, false
	}
	for i := range p.shelves {
		s := &p.shelves[i]
		if s.x+w > p.width {
			continue
		}
		if h > s.height {
			// Only the last shelf can grow, and only into free space.
			if i != len(p.shelves)-1 || s.y+h > p.height {
				continue
			}
			s.height = h
		}
		at := image.Pt(s.x, s.y)
		s.x += w
		return at, true
	}
	y := 0
	if n := len(p.shelves); n > 0 {
		y = p.shelves[n-1].y + p.shelves[n-1].height
	}
	if y+h > p.height {
		return image.Point{}, false
	}
	p.shelves = append(p.shelves, shelf{y: y, height: h, x: w})
	return image.Pt(0, y), true
}
