package allocator

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lzk031/segalloc/concurrency/gopool"
)

// Heap is not safe for concurrent use on its own; callers that share one
// across goroutines must serialize access themselves. This test drives a
// shared heap through gopool workers with an external mutex, the pattern
// expected of any concurrent caller.
func TestConcurrentMallocFreeUnderExternalLock(t *testing.T) {
	h := newHeap(t)

	var mu sync.Mutex
	var wg sync.WaitGroup

	pool := gopool.NewGoPool("heap-stress", gopool.DefaultOption())

	const tasks = 200
	wg.Add(tasks)
	for i := 0; i < tasks; i++ {
		size := 8 + (i%37)*8
		pool.Go(func() {
			defer wg.Done()

			mu.Lock()
			p, ok := h.Malloc(size)
			if ok {
				buf := h.View(p, size)
				for j := range buf {
					buf[j] = byte(j)
				}
			}
			mu.Unlock()
			require.True(t, ok)

			mu.Lock()
			h.Free(p)
			mu.Unlock()
		})
	}
	wg.Wait()

	rpt := h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)
	require.Zero(t, rpt.AllocCount)
}
