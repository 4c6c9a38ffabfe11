// Package arena implements a generational slot arena.
//
// Values are addressed by ID, a slot index paired with the slot's
// generation. Removing a value bumps the generation, so an ID held past
// removal never resolves to whatever later occupies the slot.
package arena

import (
	"fmt"
	"iter"
)

// ID addresses a value in an Arena. The zero ID is never valid.
type ID struct {
	index uint32
	gen   uint32
}

// Index returns the slot index.
func (id ID) Index() uint32 { return id.index }

// Generation returns the slot generation the ID was issued for.
func (id ID) Generation() uint32 { return id.gen }

// IsZero reports whether id is the zero ID.
func (id ID) IsZero() bool { return id.index == 0 }

func (id ID) String() string {
	if id.IsZero() {
		return "nil"
	}
	return fmt.Sprintf("%dv%d", id.index, id.gen)
}

type slot[T any] struct {
	gen      uint32
	occupied bool
	value    T
}

// Arena stores values of type T in reusable slots.
// It is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	len   int
}

// New returns an empty arena. Slot 0 is reserved for the zero ID.
func New[T any]() *Arena[T] {
	return &Arena[T]{slots: make([]slot[T], 1)}
}

// Insert stores v and returns its ID.
func (a *Arena[T]) Insert(v T) ID {
	if a.slots == nil {
		a.slots = make([]slot[T], 1)
	}
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{gen: 1})
		idx = uint32(len(a.slots) - 1)
	}
	s := &a.slots[idx]
	s.occupied = true
	s.value = v
	a.len++
	return ID{index: idx, gen: s.gen}
}

// Get returns the value for id, or false if id is stale or zero.
func (a *Arena[T]) Get(id ID) (T, bool) {
	if !a.Contains(id) {
		var zero T
		return zero, false
	}
	return a.slots[id.index].value, true
}

// Contains reports whether id refers to a live value.
func (a *Arena[T]) Contains(id ID) bool {
	if id.index == 0 || int(id.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[id.index]
	return s.occupied && s.gen == id.gen
}

// Remove deletes the value for id and returns it.
// The slot's generation is bumped before the slot becomes reusable.
func (a *Arena[T]) Remove(id ID) (T, bool) {
	var zero T
	if !a.Contains(id) {
		return zero, false
	}
	s := &a.slots[id.index]
	v := s.value
	s.value = zero
	s.occupied = false
	s.gen++
	a.free = append(a.free, id.index)
	a.len--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int {
	return a.len
}

// All iterates live values in slot order.
func (a *Arena[T]) All() iter.Seq2[ID, T] {
	return func(yield func(ID, T) bool) {
		for i := 1; i < len(a.slots); i++ {
			s := &a.slots[i]
			if !s.occupied {
				continue
			}
			if !yield(ID{index: uint32(i), gen: s.gen}, s.value) {
				return
			}
		}
	}
}
