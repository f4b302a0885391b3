package slabwheel

// timer is the record stored in the slab for every pending task.
type timer[T any] struct {
	task     T      // the caller payload
	deadline uint64 // the absolute tick at which the timer fires
	level    uint8  // the wheel level of the bucket the timer is linked into
	slot     uint16 // the slot of that bucket within its level
	next     uint32 // the next timer in the bucket, 0 for the tail
	prev     uint32 // the previous timer in the bucket, 0 for the head
}

// Handle identifies a pending timer. It is returned by Insert and is the only
// token accepted by Cancel.
//
// The low 32 bits hold the slab index, the high 32 bits the generation of the
// slot at allocation time, so a handle whose timer already expired or was
// cancelled never matches a later timer that reuses the same slot.
// The zero Handle is never issued.
type Handle uint64

func newHandle(idx, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(idx))
}

func (h Handle) index() uint32 { return uint32(h) }

func (h Handle) generation() uint32 { return uint32(h >> 32) }
