package slabwheel

import (
	"errors"
	"fmt"
)

// ErrCorruptFreeList is the value a Slab panics with when its free list
// leads to an occupied slot. It means the allocator's own bookkeeping is
// broken, so there is nothing a caller could sensibly recover from.
var ErrCorruptFreeList = errors.New("slabwheel: corrupted free list")

// slot is a single cell of the slab, either occupied by a timer or free.
type slot[T any] struct {
	timer    timer[T]
	nextFree uint32 // next free index when this slot is free, 0 for none
	gen      uint32 // bumped on every free
	used     bool
}

// Slab is an arena of timer records addressed by 1-based uint32 indices.
// Freed slots are reused in LIFO order.
type Slab[T any] struct {
	slots []slot[T]
	free  uint32 // head of the free list, 0 when empty
	size  int    // occupied slots
}

// NewSlab creates a slab with room for capacity records before growing.
func NewSlab[T any](capacity int) *Slab[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Slab[T]{slots: make([]slot[T], 0, capacity)}
}

// Allocate stores a new record and returns its index, which is never 0.
// The most recently freed slot is reused first; the slab only grows when the
// free list is empty.
func (s *Slab[T]) Allocate(task T, deadline uint64, level uint8) uint32 {
	t := timer[T]{task: task, deadline: deadline, level: level}

	if idx := s.free; idx != 0 {
		sl := &s.slots[idx-1]
		if sl.used {
			panic(fmt.Errorf("%w: free head %d is occupied", ErrCorruptFreeList, idx))
		}
		if next := sl.nextFree; next != 0 && s.slots[next-1].used {
			panic(fmt.Errorf("%w: slot %d links to occupied slot %d", ErrCorruptFreeList, idx, next))
		}
		s.free = sl.nextFree
		sl.timer = t
		sl.nextFree = 0
		sl.used = true
		s.size++
		return idx
	}

	s.slots = append(s.slots, slot[T]{timer: t, used: true})
	s.size++
	return uint32(len(s.slots))
}

// Get returns the record at idx, or nil if idx is out of range or free.
// The pointer is only valid until the next Allocate.
func (s *Slab[T]) Get(idx uint32) *timer[T] {
	if idx == 0 || int(idx) > len(s.slots) {
		return nil
	}
	sl := &s.slots[idx-1]
	if !sl.used {
		return nil
	}
	return &sl.timer
}

// Free releases the record at idx and returns its task. Freeing an index
// that is out of range or already free returns false and changes nothing.
func (s *Slab[T]) Free(idx uint32) (T, bool) {
	var zero T
	if idx == 0 || int(idx) > len(s.slots) {
		return zero, false
	}
	sl := &s.slots[idx-1]
	if !sl.used {
		return zero, false
	}

	task := sl.timer.task
	sl.timer = timer[T]{}
	sl.used = false
	sl.gen++
	sl.nextFree = s.free
	s.free = idx
	s.size--
	return task, true
}

// RemoveAndGetData frees the record at idx and returns its task and deadline.
func (s *Slab[T]) RemoveAndGetData(idx uint32) (T, uint64, bool) {
	t := s.Get(idx)
	if t == nil {
		var zero T
		return zero, 0, false
	}
	deadline := t.deadline
	task, _ := s.Free(idx)
	return task, deadline, true
}

// Generation returns how many times the slot at idx has been freed.
func (s *Slab[T]) Generation(idx uint32) uint32 {
	if idx == 0 || int(idx) > len(s.slots) {
		return 0
	}
	return s.slots[idx-1].gen
}

// Len returns the number of occupied slots.
func (s *Slab[T]) Len() int { return s.size }

// Cap returns the number of slots ever handed out, free or not.
func (s *Slab[T]) Cap() int { return len(s.slots) }
