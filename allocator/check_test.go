package allocator

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckHeapCleanAfterInit(t *testing.T) {
	h := newHeap(t)
	rpt := h.CheckHeap(0)
	require.True(t, rpt.OK, rpt.Violations)
	require.Zero(t, rpt.AllocCount)
}

func TestCheckHeapDetectsFingerprintChange(t *testing.T) {
	h := newHeap(t)
	before := h.CheckHeap(0)

	p, ok := h.Malloc(32)
	require.True(t, ok)
	after := h.CheckHeap(0)
	require.NotEqual(t, before.Fingerprint, after.Fingerprint)

	h.Free(p)
	restored := h.CheckHeap(0)
	require.Equal(t, before.Fingerprint, restored.Fingerprint)
}

func TestCheckHeapDetectsCorruptPrologue(t *testing.T) {
	h := newHeap(t)
	prologueHdr := h.firstBlockHdr - prologueSize
	h.writeHeader(prologueHdr, packWord(minBlockSize, true, false)) // clear alloc bit

	var buf bytes.Buffer
	rpt := h.checkHeapTo(&buf, 1)
	require.False(t, rpt.OK)
	require.Contains(t, buf.String(), "prologue")
}

func TestCheckHeapDetectsCorruptEpilogue(t *testing.T) {
	h := newHeap(t)
	epilogueHdr := h.raw.Hi() - headerSize
	h.writeHeader(epilogueHdr, packWord(0, true, false)) // clear alloc bit

	var buf bytes.Buffer
	rpt := h.checkHeapTo(&buf, 2)
	require.False(t, rpt.OK)
	require.Contains(t, buf.String(), "epilogue")
}

func TestCheckHeapDetectsStaleFreeListNode(t *testing.T) {
	h := newHeap(t)
	// Point C0's head at the prologue: it lies before firstBlockHdr, so the
	// address-order sweep can never reach it, which must surface as a
	// free-list/sweep count mismatch (on top of the prologue itself being
	// marked allocated).
	h.setDirHead(0, h.firstBlockHdr-prologueSize)

	var buf bytes.Buffer
	rpt := h.checkHeapTo(&buf, 3)
	require.False(t, rpt.OK)
	require.NotEmpty(t, rpt.Violations)
}

func TestCheckHeapReportsToWriter(t *testing.T) {
	h := newHeap(t)
	hdr := h.firstBlockHdr
	// Corrupt a live block's header directly to force a violation, then
	// confirm the diagnostic dump mentions it.
	h.writeHeader(hdr, packWord(minBlockSize-8, true, true))

	var buf bytes.Buffer
	rpt := h.checkHeapTo(&buf, 42)
	require.False(t, rpt.OK)
	require.Contains(t, buf.String(), "checkheap(42)")
	require.NotEmpty(t, rpt.Violations)
}
