package slabwheel

// TimingWheel is a hierarchical timing wheel driven by an abstract tick
// counter. Level 0 resolves single ticks, and every further level covers
// 1<<SlotBits times the span of the one below it. Timers live in a Slab and
// are threaded into per-bucket doubly linked lists by slab index, which makes
// Insert, Cancel and Tick O(1) amortized regardless of how many timers are
// pending.
//
// A TimingWheel is not safe for concurrent use. Callers that share one
// between goroutines must serialize every call themselves.
type TimingWheel[T any] struct {
	Options // inherited options

	current uint64     // the current tick
	mask    uint64     // slots per level minus one
	buckets [][]uint32 // levels x slots, each cell the head index of a bucket list
	slab    *Slab[T]
}

// New creates an empty time wheel at tick 0.
func New[T any](opts ...Option) *TimingWheel[T] {
	tw := &TimingWheel[T]{
		Options: NewOptions(opts...),
	}
	tw.mask = 1<<uint(tw.SlotBits) - 1
	tw.slab = NewSlab[T](tw.Capacity)

	tw.initBuckets()

	return tw
}

// initBuckets carves every level's bucket heads out of one backing array.
func (tw *TimingWheel[T]) initBuckets() {
	slots := 1 << uint(tw.SlotBits)
	cells := make([]uint32, tw.Levels*slots)
	tw.buckets = make([][]uint32, tw.Levels)
	for i := range tw.buckets {
		tw.buckets[i] = cells[i*slots : (i+1)*slots : (i+1)*slots]
	}
}

// CurrentTime returns the current tick.
func (tw *TimingWheel[T]) CurrentTime() uint64 {
	return tw.current
}

// Len returns the number of pending timers.
func (tw *TimingWheel[T]) Len() int {
	return tw.slab.Len()
}

// Horizon returns the longest duration, in ticks, the wheel places exactly.
// Timers further out are parked on the top level and cascade back into it
// until they come within range, so they never fire early.
func (tw *TimingWheel[T]) Horizon() uint64 {
	return 1<<uint(tw.Levels*tw.SlotBits) - 1
}

// place returns the bucket a timer due at deadline belongs in.
//
// A timer that is already due goes into the level 0 slot the next Tick
// drains, so it fires on that tick rather than when its own slot comes round.
func (tw *TimingWheel[T]) place(deadline uint64) (int, int) {
	if deadline <= tw.current {
		return 0, int((tw.current + 1) & tw.mask)
	}

	bits := uint(tw.SlotBits)
	duration := deadline - tw.current
	level := 0
	for level < tw.Levels-1 && duration>>(uint(level+1)*bits) != 0 {
		level++
	}

	return level, int((deadline >> (uint(level) * bits)) & tw.mask)
}

// Insert schedules task to fire on the tick that advances the wheel to
// deadline and returns the handle to cancel it with.
func (tw *TimingWheel[T]) Insert(task T, deadline uint64) Handle {
	if deadline <= tw.current {
		tw.Logger.Printf("[%d] timer due at %d is overdue, firing on next tick\n", tw.current, deadline)
	} else if deadline-tw.current > tw.Horizon() {
		tw.Logger.Printf("[%d] timer due at %d is beyond the horizon of %d ticks\n", tw.current, deadline, tw.Horizon())
	}

	level, slot := tw.place(deadline)
	idx := tw.slab.Allocate(task, deadline, uint8(level))
	tw.link(idx, level, slot)

	return newHandle(idx, tw.slab.Generation(idx))
}

// Cancel removes the timer identified by h and returns its task.
// It returns false if the timer already fired, was already cancelled, or h
// was never issued by this wheel.
func (tw *TimingWheel[T]) Cancel(h Handle) (T, bool) {
	t := tw.lookup(h)
	if t == nil {
		var zero T
		return zero, false
	}

	tw.unlink(t)

	return tw.slab.Free(h.index())
}

// Deadline returns the deadline of the pending timer identified by h.
func (tw *TimingWheel[T]) Deadline(h Handle) (uint64, bool) {
	t := tw.lookup(h)
	if t == nil {
		return 0, false
	}
	return t.deadline, true
}

// Tick advances the wheel by one tick and appends the tasks of every timer
// that became due to out. out is never cleared.
//
// Level 0's bucket for the new tick is always drained. A higher level's
// bucket is drained only when every level below it has wrapped round, and
// its timers either fire or move down to a finer bucket.
func (tw *TimingWheel[T]) Tick(out *[]T) {
	tw.current++

	tw.processBucket(0, int(tw.current&tw.mask), out)

	bits := uint(tw.SlotBits)
	for level := 1; level < tw.Levels; level++ {
		shift := uint(level) * bits
		// a level only wraps when all the levels below it have
		if tw.current&(1<<shift-1) != 0 {
			break
		}

		slot := int((tw.current >> shift) & tw.mask)
		expired, cascaded := tw.processBucket(level, slot, out)
		if expired+cascaded > 0 {
			tw.Logger.Printf("[%d] level %d slot %d: %d expired, %d cascaded\n",
				tw.current, level, slot, expired, cascaded)
		}
	}
}

// Advance ticks the wheel n times and hands every expired task to h, in
// the order Tick reports them. h runs after each tick has finished, so it
// may Insert or Cancel. It returns the number of tasks handled.
func (tw *TimingWheel[T]) Advance(n int, h Handler[T]) int {
	var expired []T
	handled := 0
	for i := 0; i < n; i++ {
		expired = expired[:0]
		tw.Tick(&expired)
		for _, task := range expired {
			h.Handle(task)
		}
		handled += len(expired)
	}
	clear(expired)

	return handled
}

// processBucket detaches the list of buckets[level][slot] and walks it.
// Due timers are freed and their tasks appended to out, the rest are linked
// into the bucket place picks for them now. The bucket is emptied first so
// that timers relinked into it are not walked again.
func (tw *TimingWheel[T]) processBucket(level, slot int, out *[]T) (expired, cascaded int) {
	idx := tw.buckets[level][slot]
	tw.buckets[level][slot] = 0

	for idx != 0 {
		t := tw.slab.Get(idx)
		next := t.next

		if t.deadline <= tw.current {
			task, _ := tw.slab.Free(idx)
			*out = append(*out, task)
			expired++
		} else {
			l, s := tw.place(t.deadline)
			tw.link(idx, l, s)
			cascaded++
		}

		idx = next
	}

	return expired, cascaded
}

// lookup resolves h to its timer, or nil if h is stale or invalid.
func (tw *TimingWheel[T]) lookup(h Handle) *timer[T] {
	t := tw.slab.Get(h.index())
	if t == nil || tw.slab.Generation(h.index()) != h.generation() {
		return nil
	}
	return t
}

// link pushes the timer at idx onto the head of buckets[level][slot].
func (tw *TimingWheel[T]) link(idx uint32, level, slot int) {
	t := tw.slab.Get(idx)
	head := tw.buckets[level][slot]

	t.level = uint8(level)
	t.slot = uint16(slot)
	t.prev = 0
	t.next = head

	if head != 0 {
		tw.slab.Get(head).prev = idx
	}
	tw.buckets[level][slot] = idx
}

// unlink splices t out of its bucket list.
func (tw *TimingWheel[T]) unlink(t *timer[T]) {
	if t.prev != 0 {
		tw.slab.Get(t.prev).next = t.next
	} else {
		tw.buckets[t.level][t.slot] = t.next
	}
	if t.next != 0 {
		tw.slab.Get(t.next).prev = t.prev
	}
	t.next = 0
	t.prev = 0
}
