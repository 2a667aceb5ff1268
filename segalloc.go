// Package segalloc is a segregated-free-list dynamic memory allocator
// over a single, contiguous, monotonically-growable heap. It exposes the
// same operations a C malloc implementation would - init, malloc, free,
// realloc, calloc, and a checkheap diagnostic - as a package-level
// convenience API over one default heap, mirroring the teacher's
// cache/mempool package-level Malloc/Free/Cap functions over a
// package-level pool slice.
//
// Callers needing more than one independent heap in a process (typically
// tests) should use New instead of the package-level functions; the core
// allocator keeps no global state of its own, only this wrapper does.
package segalloc

import "github.com/lzk031/segalloc/allocator"

var defaultHeap = allocator.New()

// New returns a fresh, uninitialized allocator instance independent of
// the package-level default heap.
func New(opts ...allocator.Option) *allocator.Heap {
	return allocator.New(opts...)
}

// Init prepares the default heap for use. Malloc (and Calloc, and Realloc
// with a zero ptr) initialize the default heap on first use if Init has
// not been called; calling Init after the heap is initialized returns an
// error.
func Init() error { return defaultHeap.Init() }

// Malloc requests a block of at least n usable bytes from the default
// heap.
func Malloc(n int) (ptr int64, ok bool) { return defaultHeap.Malloc(n) }

// Free releases the block at ptr on the default heap. Invalid pointers
// are silently ignored.
func Free(ptr int64) { defaultHeap.Free(ptr) }

// Realloc resizes the block at ptr on the default heap.
func Realloc(ptr int64, n int) (int64, bool) { return defaultHeap.Realloc(ptr, n) }

// Calloc allocates and zeroes storage for nmemb elements of size bytes
// each on the default heap.
func Calloc(nmemb, size int) (int64, bool) { return defaultHeap.Calloc(nmemb, size) }

// CheckHeap walks the default heap, verifying its invariants, and
// returns a report.
func CheckHeap(lineno int) allocator.Report { return defaultHeap.CheckHeap(lineno) }

// Heap returns the package-level default heap instance, for callers that
// need direct access (e.g. cache/mempool, which views and locates its
// buffers through it).
func Heap() *allocator.Heap { return defaultHeap }
