package segalloc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPackageLevelDefaultHeapLifecycle(t *testing.T) {
	p, ok := Malloc(64) // implicit Init, per the default heap's lazy-init guard
	require.True(t, ok)

	buf := Heap().View(p, 64)
	for i := range buf {
		buf[i] = byte(i)
	}

	q, ok := Realloc(p, 128)
	require.True(t, ok)
	got := Heap().View(q, 64)
	for i := 0; i < 64; i++ {
		require.Equal(t, byte(i), got[i])
	}

	Free(q)

	rpt := CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)
}

func TestPackageLevelCalloc(t *testing.T) {
	p, ok := Calloc(4, 32)
	require.True(t, ok)
	buf := Heap().View(p, 128)
	for _, b := range buf {
		require.Zero(t, b)
	}
	Free(p)
}

func TestNewReturnsIndependentHeap(t *testing.T) {
	h := New()
	require.NoError(t, h.Init())

	p, ok := h.Malloc(32)
	require.True(t, ok)
	require.NotSame(t, h, Heap())

	h.Free(p)
	rpt := h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)
}

func TestExplicitInitOnFreshHeapIsIdempotentGuard(t *testing.T) {
	h := New()
	require.NoError(t, h.Init())
	require.Error(t, h.Init()) // already initialized
}
