package allocator

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newHeap(t *testing.T) *Heap {
	t.Helper()
	h := New()
	require.NoError(t, h.Init())
	return h
}

func TestInitThenMallocEight(t *testing.T) {
	h := newHeap(t)

	p0, ok := h.Malloc(8)
	require.True(t, ok)
	require.Zero(t, p0%8)

	hdr := hdrOfPayload(p0)
	require.EqualValues(t, minBlockSize, h.Size(hdr))
	require.True(t, h.ThisAlloc(hdr))
	require.True(t, h.PrevAlloc(hdr)) // prologue
}

func TestSplit(t *testing.T) {
	h := newHeap(t)

	p1, ok := h.Malloc(16)
	require.True(t, ok)
	p2, ok := h.Malloc(16)
	require.True(t, ok)

	require.Greater(t, p2, p1)
	require.EqualValues(t, 24, p2-p1) // 16 payload + 4 header = 20, rounded up to 24; no footer on an allocated block
}

func TestCoalesceForward(t *testing.T) {
	h := newHeap(t)

	a, ok := h.Malloc(64)
	require.True(t, ok)
	b, ok := h.Malloc(64)
	require.True(t, ok)

	h.Free(a)
	h.Free(b)

	rpt := h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)

	hdrA := hdrOfPayload(a)
	require.False(t, h.ThisAlloc(hdrA))
	require.GreaterOrEqual(t, h.Size(hdrA), uint32(128))
}

func TestCoalesceBothSides(t *testing.T) {
	h := newHeap(t)

	a, ok := h.Malloc(64)
	require.True(t, ok)
	b, ok := h.Malloc(64)
	require.True(t, ok)
	c, ok := h.Malloc(64)
	require.True(t, ok)

	h.Free(a)
	h.Free(c)
	h.Free(b)

	hdrA := hdrOfPayload(a)
	require.False(t, h.ThisAlloc(hdrA))
	require.GreaterOrEqual(t, h.Size(hdrA), uint32(3*adjustedSize(64)))

	rpt := h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)
}

func TestReallocPreserves(t *testing.T) {
	h := newHeap(t)

	p, ok := h.Malloc(64)
	require.True(t, ok)

	buf := h.View(p, 64)
	for i := range buf {
		buf[i] = byte(i)
	}

	q, ok := h.Realloc(p, 128)
	require.True(t, ok)

	got := h.View(q, 64)
	for i := 0; i < 64; i++ {
		require.Equal(t, byte(i), got[i])
	}
}

func TestReallocShrinkFixesSuccessorPrevAllocBit(t *testing.T) {
	h := newHeap(t)

	p, ok := h.Malloc(200)
	require.True(t, ok)
	successor, ok := h.Malloc(64)
	require.True(t, ok)

	q, ok := h.Realloc(p, 8)
	require.True(t, ok)
	require.Equal(t, p, q) // in-place shrink, same block

	rpt := h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)

	// The successor's prev-alloc bit must reflect the new free tail, or a
	// later Free of it would skip merging with that tail and leave two
	// adjacent free blocks.
	h.Free(successor)
	rpt = h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)

	tailHdr := hdrOfPayload(q) + int64(adjustedSize(8))
	require.False(t, h.ThisAlloc(tailHdr))
	require.GreaterOrEqual(t, h.Size(tailHdr), uint32(200)+64)
}

func TestBestFitOnLarge(t *testing.T) {
	h := newHeap(t)

	// Carve out a free block of 1024 (class C7) and a larger free block
	// of 2048 (class C8), each isolated from its neighbours by a small
	// allocated anchor so they never coalesce into one another.
	small1024, ok := h.Malloc(1024 - headerSize)
	require.True(t, ok)
	anchor1, ok := h.Malloc(64)
	require.True(t, ok)
	small2048, ok := h.Malloc(2048 - headerSize)
	require.True(t, ok)
	anchor2, ok := h.Malloc(64)
	require.True(t, ok)

	h.Free(small1024)
	h.Free(small2048)
	_ = anchor1
	_ = anchor2

	p, ok := h.Malloc(1000)
	require.True(t, ok)

	require.Equal(t, small1024, p)
}

func TestMallocZeroReturnsNone(t *testing.T) {
	h := newHeap(t)
	before := h.raw.Hi()

	_, ok := h.Malloc(0)
	require.False(t, ok)
	require.Equal(t, before, h.raw.Hi())
}

func TestMallocOneGetsSixteenByteBlock(t *testing.T) {
	h := newHeap(t)
	p, ok := h.Malloc(1)
	require.True(t, ok)
	require.EqualValues(t, minBlockSize, h.Size(hdrOfPayload(p)))
}

func TestFreeNoneIsNoop(t *testing.T) {
	h := newHeap(t)
	require.NotPanics(t, func() { h.Free(0) })
}

func TestFreeOutOfHeapIsNoop(t *testing.T) {
	h := newHeap(t)
	require.NotPanics(t, func() { h.Free(1 << 30) })
}

func TestExtensionSatisfiesRequestExceedingFreeBlocks(t *testing.T) {
	h := newHeap(t) // Init seeds one free block of CHUNK (464) bytes

	// A request bigger than the single free block Init left behind must
	// miss findFit and fall through to extend, which must succeed.
	p, ok := h.Malloc(4096)
	require.True(t, ok)
	require.NotZero(t, p)
}

func TestCallocZeroesMemory(t *testing.T) {
	h := newHeap(t)

	p, ok := h.Calloc(8, 16)
	require.True(t, ok)

	buf := h.View(p, 128)
	for _, b := range buf {
		require.Zero(t, b)
	}
}

func TestCallocOverflowRejected(t *testing.T) {
	h := newHeap(t)
	_, ok := h.Calloc(1<<40, 1<<40)
	require.False(t, ok)
}

func TestAllocatingIdenticalSizesReturnsDistinctBlocks(t *testing.T) {
	h := newHeap(t)
	seen := map[int64]bool{}
	for i := 0; i < 50; i++ {
		p, ok := h.Malloc(32)
		require.True(t, ok)
		require.False(t, seen[p])
		seen[p] = true
	}
}

func TestMallocThenFreeRestoresEquivalentState(t *testing.T) {
	h := newHeap(t)
	before := h.CheckHeap(0)

	p, ok := h.Malloc(100)
	require.True(t, ok)
	h.Free(p)

	after := h.CheckHeap(0)
	require.Equal(t, before.BlockCount, after.BlockCount)
	require.Equal(t, before.AllocCount, after.AllocCount)
}
