package slabwheel_test

import (
	"container/heap"
	"testing"

	"github.com/hyperjiang/slabwheel"
)

// heapTimer is the binary heap baseline the wheel is measured against.
type heapTimer struct {
	deadline uint64
	task     int
	index    int
}

type timerHeap []*heapTimer

func (h timerHeap) Len() int           { return len(h) }
func (h timerHeap) Less(i, j int) bool { return h[i].deadline < h[j].deadline }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	t := x.(*heapTimer)
	t.index = len(*h)
	*h = append(*h, t)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return t
}

// cancelByDeadline removes a timer the way a heap without handles must,
// by searching for it.
func (h *timerHeap) cancelByDeadline(deadline uint64) {
	for i, t := range *h {
		if t.deadline == deadline {
			heap.Remove(h, i)
			return
		}
	}
}

var result int

func benchmarkWheelInsert(b *testing.B, n int) {
	for i := 0; i < b.N; i++ {
		tw := slabwheel.New[int](slabwheel.WithCapacity(n))
		for j := 0; j < n; j++ {
			tw.Insert(j, uint64(j))
		}
		result = tw.Len()
	}
}

func benchmarkHeapInsert(b *testing.B, n int) {
	for i := 0; i < b.N; i++ {
		h := make(timerHeap, 0, n)
		for j := 0; j < n; j++ {
			heap.Push(&h, &heapTimer{deadline: uint64(n - j), task: j})
		}
		result = h.Len()
	}
}

func BenchmarkWheelInsert10K(b *testing.B) { benchmarkWheelInsert(b, 10000) }
func BenchmarkHeapInsert10K(b *testing.B)  { benchmarkHeapInsert(b, 10000) }
func BenchmarkWheelInsert1M(b *testing.B)  { benchmarkWheelInsert(b, 1000000) }
func BenchmarkHeapInsert1M(b *testing.B)   { benchmarkHeapInsert(b, 1000000) }

func BenchmarkWheelCancel(b *testing.B) {
	const n = 10000
	handles := make([]slabwheel.Handle, n)
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		tw := slabwheel.New[int]()
		for j := range handles {
			handles[j] = tw.Insert(j, uint64(j))
		}
		b.StartTimer()

		for _, h := range handles {
			tw.Cancel(h)
		}
	}
}

func BenchmarkHeapCancel(b *testing.B) {
	const n = 10000
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		h := make(timerHeap, 0, n)
		for j := 0; j < n; j++ {
			heap.Push(&h, &heapTimer{deadline: uint64(j), task: j})
		}
		b.StartTimer()

		for j := n - 1; j >= 0; j-- {
			h.cancelByDeadline(uint64(j))
		}
	}
}

// Repeated insert+tick, where n is the delay of each inserted timer and so
// sets the working set size of the wheel.
func benchmarkInsertTick(b *testing.B, n uint64) {
	tw := slabwheel.New[int]()
	var out []int

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		tw.Insert(i, tw.CurrentTime()+n)
		out = out[:0]
		tw.Tick(&out)
	}
	result = len(out)
}

func BenchmarkInsertTick1(b *testing.B)    { benchmarkInsertTick(b, 1) }
func BenchmarkInsertTick10K(b *testing.B)  { benchmarkInsertTick(b, 10000) }
func BenchmarkInsertTick1M(b *testing.B)   { benchmarkInsertTick(b, 1000000) }
func BenchmarkInsertTick100M(b *testing.B) { benchmarkInsertTick(b, 100000000) }
