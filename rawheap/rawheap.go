// Package rawheap is the external "raw heap" collaborator the allocator
// core depends on: a primitive that extends a single, contiguous,
// monotonically-growable region and reports its current bounds. It has no
// knowledge of blocks, size classes, or free lists - the allocator core
// builds all of that on top.
//
// There is no portable sbrk(2) available to a Go process, so Heap stands in
// for it with a []byte arena that is grown in place by bumping a
// high-water mark inside a pre-reserved backing array, falling back to a
// grow-and-copy only when the reservation is exhausted. Either way,
// successive Sbrk calls report contiguous, non-overlapping byte ranges,
// which is the only contract the allocator core relies on (spec section 1).
package rawheap

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/bytedance/gopkg/lang/dirtmake"
)

// ErrOutOfSpace is returned by Sbrk when the heap cannot grow further
// (spec's OutOfMemory error kind, surfaced at the raw-heap layer).
var ErrOutOfSpace = errors.New("rawheap: out of space")

// maxHeapBytes bounds growth so that byte offsets from a fixed BASE always
// fit in 32 bits (Design Notes section 9: free-list links are 32-bit
// offsets relative to BASE).
const maxHeapBytes = 1 << 32

// Heap is a growable, contiguous byte arena standing in for the OS process
// heap. It is not safe for concurrent use; callers serialize access
// themselves (spec section 5).
type Heap struct {
	arena []byte // len(arena) == hi; cap(arena) may exceed it
}

// New returns an empty Heap (Lo() == Hi() == 0).
func New() *Heap {
	return &Heap{}
}

// Lo returns the heap's low address (always 0 - Heap.arena's own base
// doubles as BASE for offset purposes, see spec section 6 step 1).
func (h *Heap) Lo() int64 { return 0 }

// Hi returns the heap's current high-water offset (one past the last
// valid byte, matching the "previous break" semantics of sbrk(2): the
// value returned by Hi() before a Sbrk is exactly the offset Sbrk returns).
func (h *Heap) Hi() int64 { return int64(len(h.arena)) }

// Sbrk extends the heap by exactly n bytes (n must be a positive multiple
// of 8) and returns the offset of the first new byte, i.e. the heap's
// high-water mark before the extension.
func (h *Heap) Sbrk(n int) (off int64, err error) {
	if n <= 0 || n%8 != 0 {
		return 0, fmt.Errorf("rawheap: Sbrk(%d): n must be a positive multiple of 8", n)
	}
	off = int64(len(h.arena))
	newHi := off + int64(n)
	if newHi > maxHeapBytes {
		return 0, ErrOutOfSpace
	}

	if newHi <= int64(cap(h.arena)) {
		h.arena = h.arena[:newHi]
		return off, nil
	}

	// Reservation exhausted: grow-and-copy. dirtmake.Bytes skips the
	// runtime's zeroing pass, so bytes of the grown region hold unspecified
	// values until written: the allocator writes its own headers, footers,
	// links and epilogue, and payload bytes carry no zeroing guarantee
	// (Calloc zeroes its block explicitly).
	newCap := growCap(cap(h.arena), int(newHi))
	grown := dirtmake.Bytes(int(newHi), newCap)
	copy(grown, h.arena)
	h.arena = grown
	return off, nil
}

// growCap returns a new capacity at least need, growing geometrically from
// cur (doubling, with a floor) to amortize the cost of repeated Sbrk calls.
func growCap(cur, need int) int {
	const minCap = 4096
	if cur < minCap {
		cur = minCap
	}
	for cur < need {
		cur *= 2
	}
	return cur
}

// At returns a slice view of the arena starting at off, for use by the
// allocator/memio layer. It panics if [off, off+n) is not fully within
// [Lo(), Hi()); that is a programming error in the core, not a runtime
// condition callers should expect to recover from.
func (h *Heap) At(off int64, n int) []byte {
	if off < 0 || n < 0 || off+int64(n) > int64(len(h.arena)) {
		panic(fmt.Sprintf("rawheap: At(%d, %d) out of bounds [0, %d)", off, n, len(h.arena)))
	}
	return h.arena[off : off+int64(n)]
}

// Contains reports whether addr lies within [Lo(), Hi()).
func (h *Heap) Contains(addr int64) bool {
	return addr >= h.Lo() && addr < h.Hi()
}

// OffsetOf recovers the heap offset a previously returned slice (from
// At) started at, by comparing its backing pointer against the arena's.
// It reports false for a slice that is empty or does not point into the
// current arena - in particular, a slice taken before a grow-and-copy
// that has since relocated the arena no longer resolves.
func (h *Heap) OffsetOf(buf []byte) (int64, bool) {
	if len(buf) == 0 || len(h.arena) == 0 {
		return 0, false
	}
	base := uintptr(unsafe.Pointer(&h.arena[0]))
	p := uintptr(unsafe.Pointer(&buf[0]))
	if p < base {
		return 0, false
	}
	off := int64(p - base)
	if off >= int64(len(h.arena)) {
		return 0, false
	}
	return off, true
}
