// Package memio is the narrow, unchecked module Design Notes section 9 asks
// for: a small set of typed word accessors over a raw []byte window, so
// that every unsafe pointer cast in the allocator core funnels through one
// place. Bounds checks collapse to the heap-bounds check already performed
// by rawheap.Heap.At; nothing in here re-validates its input.
//
// The cast style (reinterpret a byte window as a fixed-width integer via
// unsafe.Pointer) is the same one the teacher uses for its own header
// words (compare unsafex's no-copy string/[]byte conversions).
package memio

import "unsafe"

// ReadU32 reads the 32-bit little-endian-in-memory word stored at b[0:4].
// b must have length >= 4.
func ReadU32(b []byte) uint32 {
	_ = b[3] // bounds check hint, same cost as the explicit check it replaces
	return *(*uint32)(unsafe.Pointer(&b[0]))
}

// WriteU32 stores v into b[0:4]. b must have length >= 4.
func WriteU32(b []byte, v uint32) {
	_ = b[3]
	*(*uint32)(unsafe.Pointer(&b[0])) = v
}

// ReadU32At reads a word at byte offset off within b.
func ReadU32At(b []byte, off int) uint32 {
	return ReadU32(b[off:])
}

// WriteU32At stores v at byte offset off within b.
func WriteU32At(b []byte, off int, v uint32) {
	WriteU32(b[off:], v)
}

// ReadU64 reads the 64-bit word stored at b[0:8]. b must have length >= 8.
// Used outside the core by cache/mempool's footer scheme, which needs a
// wider word than a block header/footer does.
func ReadU64(b []byte) uint64 {
	_ = b[7]
	return *(*uint64)(unsafe.Pointer(&b[0]))
}

// WriteU64 stores v into b[0:8]. b must have length >= 8.
func WriteU64(b []byte, v uint64) {
	_ = b[7]
	*(*uint64)(unsafe.Pointer(&b[0])) = v
}
