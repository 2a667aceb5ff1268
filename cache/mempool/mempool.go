/*
 * Copyright 2024 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package mempool is a []byte cache backed by segalloc instead of
// sync.Pool: Malloc draws its backing storage from the package-level
// segalloc heap and Free returns it there, using the same 14 size
// classes segalloc's own free lists use so the two never disagree about
// which class a given size belongs to.
//
// Buffers returned by Malloc are views into segalloc's arena taken via
// Heap().View(); segalloc's arena is a growable []byte that may be
// reallocated (grown and copied) by a later Malloc/Calloc call that
// extends the heap. Treat a buffer as valid only until the next call
// into this package or into segalloc directly - exactly the discipline
// the allocator core itself follows, never holding a slice across a
// call that might grow the heap.
package mempool

import (
	"github.com/lzk031/segalloc"
	"github.com/lzk031/segalloc/allocator"
	"github.com/lzk031/segalloc/internal/hack"
	"github.com/lzk031/segalloc/internal/memio"
)

const (
	// footer is a [8]byte trailer at the end of every buffer returned by
	// Malloc, mirroring the teacher's magic+index scheme: magic (52 bits)
	// + class index (4 bits) + 8 padding bits, so Free can always tell
	// whether a buf came from this package regardless of what the caller
	// passes in.
	footerLen = 8

	footerMagicMask = uint64(0xFFFFFFFFFFFFF000)
	footerIndexMask = uint64(0x0000000000000F00)
	footerMagic     = uint64(0xBADC0DEBADC0D000)
)

func footerIndex(footer uint64) int { return int((footer & footerIndexMask) >> 8) }

// Malloc returns a buffer of at least size usable bytes, drawn from the
// default segalloc heap. The returned slice's cap may exceed size - use
// Cap to find out how far it can be grown in place.
func Malloc(size int) []byte {
	if size == 0 {
		return []byte{}
	}

	ptr, ok := segalloc.Malloc(size + footerLen)
	if !ok {
		return make([]byte, size) // falls back to the Go heap rather than returning nil
	}

	h := segalloc.Heap()
	full := h.View(ptr, h.PayloadSize(ptr))
	class := allocator.ClassOf(uint32(len(full)))

	footer := footerMagic | uint64(class)<<8
	memio.WriteU64(full[len(full)-footerLen:], footer)

	buf := full[:size:len(full)-footerLen]
	return buf
}

// Cap returns the max length a buf returned by Malloc can be resized to
// via re-slicing, without reallocating.
func Cap(buf []byte) int {
	return cap(buf)
}

// Append appends b to a, growing in place when a has room and falling
// back to Malloc-copy-Free otherwise.
func Append(a []byte, b ...byte) []byte {
	if cap(a)-len(a) >= len(b) {
		return append(a, b...)
	}
	return appendSlow(a, b)
}

func appendSlow(a, b []byte) []byte {
	ret := Malloc(len(a) + len(b))
	copy(ret, a)
	copy(ret[len(a):], b)
	Free(a)
	return ret
}

// AppendStr is Append for a string argument. It views b as a []byte
// without copying it first - b is only ever read from, never mutated.
func AppendStr(a []byte, b string) []byte {
	return Append(a, hack.StringToByteSlice(b)...)
}

// Free returns buf to the default segalloc heap. Buffers not obtained
// from Malloc, or already freed, are silently ignored.
func Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	h := segalloc.Heap()
	ptr, ok := h.OffsetOf(buf)
	if !ok {
		return
	}
	full := h.View(ptr, h.PayloadSize(ptr))
	if len(full) < footerLen {
		return
	}
	footer := memio.ReadU64(full[len(full)-footerLen:])
	if footer&footerMagicMask != footerMagic {
		return
	}
	if footerIndex(footer) != allocator.ClassOf(uint32(len(full))) {
		return
	}
	segalloc.Free(ptr)
}
