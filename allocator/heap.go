package allocator

import (
	"fmt"

	"github.com/lzk031/segalloc/rawheap"
)

// prologueSize is the 8 physical bytes the sentinel prologue occupies:
// a header word immediately followed by a footer word, both packed as
// (minBlockSize, allocated, allocated). The prologue's size field reads
// minBlockSize even though it is never traversed as a generic block - it
// exists purely so the first real block always has a well-formed
// "previous" neighbour to point PrevAlloc-style checks at, matching
// classic mm_init's prologue convention. firstBlockHdr is computed once
// here and stored, rather than derived by walking next(hdr) from the
// prologue, since the generic size-based next() rule would otherwise
// have to special-case the prologue forever.
const prologueSize = 2 * headerSize

// Option configures a Heap at construction time.
type Option func(*Heap)

// WithChunk overrides the minimum number of bytes requested from the raw
// heap whenever findFit misses (default CHUNK).
func WithChunk(n int) Option {
	return func(h *Heap) { h.chunk = n }
}

// WithTraceCapacity overrides the number of recent operations kept for
// diagnostics (default traceCapacity).
func WithTraceCapacity(n int) Option {
	return func(h *Heap) { h.trace = newTraceLogWithCapacity(n) }
}

// Heap is a segregated-free-list allocator over a single, contiguous,
// monotonically-growable arena (spec sections 1-3). It keeps no locks of
// its own; callers must serialize access (spec section 5).
type Heap struct {
	raw           *rawheap.Heap
	trace         *traceLog
	chunk         int
	firstBlockHdr int64
	initialized   bool
}

// New returns a Heap over a fresh rawheap.Heap, uninitialized until Init
// is called.
func New(opts ...Option) *Heap {
	return NewWithOptions(rawheap.New(), opts...)
}

// NewWithOptions returns a Heap over the given raw heap, uninitialized
// until Init is called.
func NewWithOptions(raw *rawheap.Heap, opts ...Option) *Heap {
	h := &Heap{
		raw:   raw,
		trace: newTraceLog(),
		chunk: CHUNK,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Init lays down the directory, prologue and epilogue, then extends the
// heap once to seed an initial free block (spec section 6 step 1). It is
// an error to call Init more than once on the same Heap.
func (h *Heap) Init() error {
	if h.initialized {
		return fmt.Errorf("allocator: Init called on an already-initialized heap")
	}

	dirBytes := int(directorySize())
	if _, err := h.raw.Sbrk(align8(dirBytes)); err != nil {
		return fmt.Errorf("allocator: Init: reserving directory: %w", err)
	}
	for class := 0; class < NumClasses; class++ {
		h.setDirHead(class, 0)
	}

	// One padding word, then the prologue header, then the prologue
	// footer, then the epilogue header - 4 words (16 bytes) total, the
	// classic mm_init layout. The padding word's only purpose is pushing
	// the first real payload onto an 8-byte boundary; it is never read.
	padWord, err := h.raw.Sbrk(4 * headerSize)
	if err != nil {
		return fmt.Errorf("allocator: Init: reserving prologue/epilogue: %w", err)
	}
	prologueHdr := padWord + headerSize
	h.setHeader(prologueHdr, minBlockSize, true, true)
	// Footer written directly at prologueHdr+headerSize rather than via
	// writeFooter/footerAddr: the prologue's declared size (minBlockSize)
	// does not describe its own 8-byte physical span, so the generic
	// size-derived footer address would land in the wrong place.
	h.writeHeader(prologueHdr+headerSize, h.header(prologueHdr))

	epilogueHdr := prologueHdr + prologueSize
	h.setHeader(epilogueHdr, 0, true, true) // first real block seeded prev-alloc

	h.firstBlockHdr = epilogueHdr
	h.initialized = true

	if _, ok := h.extend(h.chunk); !ok {
		return fmt.Errorf("allocator: Init: seeding initial free block: %w", rawheap.ErrOutOfSpace)
	}
	return nil
}

func align8(n int) int { return (n + 7) &^ 7 }

// Malloc returns the payload pointer of a block of at least n usable
// bytes, or (0, false) if the request cannot be satisfied - including
// when n is 0, per spec section 4.F's "malloc(0) returns none" edge case.
func (h *Heap) Malloc(n int) (ptr int64, ok bool) {
	if n <= 0 {
		return 0, false
	}
	if !h.initialized {
		// malloc implicitly initializes on first call (spec section 7);
		// every other entry point assumes Init already ran.
		if err := h.Init(); err != nil {
			return 0, false
		}
	}

	need := adjustedSize(n)
	hdr, found := h.findFit(need)
	if !found {
		grow := need
		if grow < h.chunk {
			grow = h.chunk
		}
		hdr, found = h.extend(grow)
		if !found {
			return 0, false
		}
		// extend's returned hdr may have merged into a larger block than
		// the one directly satisfying need; findFit again against the
		// class it now lives in rather than assuming hdr itself fits
		// (coalescing can shift it earlier in address order).
		hdr, found = h.findFit(need)
		if !found {
			return 0, false
		}
	}

	ptr = h.place(hdr, need)
	h.trace.record(traceMalloc, int64(n), ptr)
	return ptr, true
}

// adjustedSize maps a requested payload size to the block size that must
// be carved out of the heap: header + payload, rounded up to 8 bytes,
// floored at minBlockSize so a freed block always has room for its
// footer and both free-list links (spec section 4.F step 1).
func adjustedSize(n int) uint32 {
	need := align8(n + headerSize)
	if need < minBlockSize {
		need = minBlockSize
	}
	return uint32(need)
}

// Free releases the block at payload pointer ptr. Freeing zero, a pointer
// out of heap bounds, or a pointer whose header word is not marked
// allocated (for example one already freed) is a no-op (spec section 7's
// InvalidRelease kind is never fatal). A pointer inside the heap that is
// not a block's payload pointer is not detected.
func (h *Heap) Free(ptr int64) {
	if ptr == 0 || !h.raw.Contains(ptr-headerSize) {
		return
	}
	hdr := hdrOfPayload(ptr)
	if !h.ThisAlloc(hdr) {
		return
	}
	h.freeBlock(ptr)
	h.trace.record(traceFree, ptr, 0)
}

// Realloc resizes the block at ptr to hold n bytes, preserving its
// contents up to the smaller of the old and new sizes (spec section
// 4.F's realloc semantics). ptr == 0 behaves as Malloc(n); n <= 0
// behaves as Free(ptr) followed by a (0, true) return.
func (h *Heap) Realloc(ptr int64, n int) (int64, bool) {
	if ptr == 0 {
		return h.Malloc(n)
	}
	if n <= 0 {
		h.Free(ptr)
		return 0, true
	}

	hdr := hdrOfPayload(ptr)
	oldSize := h.Size(hdr)
	need := adjustedSize(n)

	if need <= oldSize {
		// Optional in-place-shrink shortcut (spec Design Notes section 9):
		// split off a free tail rather than always reallocating, so
		// shrinking reallocs never move data or touch the free lists for
		// the shrunk payload itself.
		if oldSize-need >= minBlockSize {
			prevAlloc := h.PrevAlloc(hdr)
			h.setHeader(hdr, need, prevAlloc, true)

			tailHdr := hdr + int64(need)
			tailSize := oldSize - need
			h.setHeader(tailHdr, tailSize, true, false)
			h.syncFooter(tailHdr)
			h.setPrevAllocBit(h.nextBlock(tailHdr), false)
			h.flAdd(classOf(tailSize), tailHdr)
			h.coalesce(tailHdr)
		}
		h.trace.record(traceRealloc, int64(n), ptr)
		return ptr, true
	}

	newPtr, ok := h.Malloc(n)
	if !ok {
		return 0, false
	}
	copyPayload(h, newPtr, ptr, oldSize-headerSize)
	h.Free(ptr)
	h.trace.record(traceRealloc, int64(n), newPtr)
	return newPtr, true
}

func copyPayload(h *Heap, dst, src int64, n uint32) {
	copy(h.raw.At(dst, int(n)), h.raw.At(src, int(n)))
}

// Calloc returns a zeroed block sized for nmemb elements of size bytes
// each, or (0, false) on overflow or allocation failure (spec section
// 4.F's calloc overflow check - nmemb*size must not wrap before the
// resulting request is ever handed to Malloc).
func (h *Heap) Calloc(nmemb, size int) (int64, bool) {
	if nmemb < 0 || size < 0 {
		return 0, false
	}
	if nmemb != 0 && size > (1<<62)/nmemb {
		return 0, false
	}
	total := nmemb * size

	ptr, ok := h.Malloc(total)
	if !ok {
		return 0, false
	}
	hdr := hdrOfPayload(ptr)
	usable := int(h.Size(hdr)) - headerSize
	zero := h.raw.At(ptr, usable)
	for i := range zero {
		zero[i] = 0
	}
	h.trace.record(traceCalloc, int64(total), ptr)
	return ptr, true
}

// ClassOf exposes the size-class classifier to callers outside the core
// (cache/mempool's footer scheme needs to agree with it, see spec
// section 4.C).
func ClassOf(size uint32) int { return classOf(size) }

// PayloadSize returns the usable payload size in bytes of the allocated
// block at ptr.
func (h *Heap) PayloadSize(ptr int64) int {
	hdr := hdrOfPayload(ptr)
	return int(h.Size(hdr)) - headerSize
}

// View returns a slice view of n bytes starting at payload pointer ptr.
// The slice is only valid until the next call that may grow the heap
// (see the rawheap package doc comment).
func (h *Heap) View(ptr int64, n int) []byte { return h.raw.At(ptr, n) }

// OffsetOf recovers the payload pointer a previously returned View/Malloc
// slice corresponds to, or (0, false) if buf does not point into the
// heap's current arena.
func (h *Heap) OffsetOf(buf []byte) (int64, bool) { return h.raw.OffsetOf(buf) }
