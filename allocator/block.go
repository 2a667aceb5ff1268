package allocator

import (
	"github.com/lzk031/segalloc/internal/memio"
)

// Block layout constants (spec section 3).
const (
	headerSize   = 4
	footerSize   = 4
	minBlockSize = 16

	thisAllocBit = 1 << 0
	prevAllocBit = 1 << 2
	sizeMask     = ^uint32(0x7)
)

func packWord(size uint32, prevAlloc, thisAlloc bool) uint32 {
	w := size &^ 0x7
	if prevAlloc {
		w |= prevAllocBit
	}
	if thisAlloc {
		w |= thisAllocBit
	}
	return w
}

func wordSize(w uint32) uint32    { return w & sizeMask }
func wordPrevAlloc(w uint32) bool { return w&prevAllocBit != 0 }
func wordThisAlloc(w uint32) bool { return w&thisAllocBit != 0 }

// header reads the 4-byte header word at block address hdr.
func (h *Heap) header(hdr int64) uint32 {
	return memio.ReadU32(h.raw.At(hdr, headerSize))
}

func (h *Heap) writeHeader(hdr int64, w uint32) {
	memio.WriteU32(h.raw.At(hdr, headerSize), w)
}

// footerAddr returns the address of the footer of the block at hdr, valid
// only for free blocks (size must already be known, e.g. from the header).
func footerAddr(hdr int64, size uint32) int64 {
	return hdr + int64(size) - footerSize
}

func (h *Heap) writeFooter(hdr int64, w uint32) {
	memio.WriteU32(h.raw.At(footerAddr(hdr, wordSize(w)), footerSize), w)
}

// setHeader writes (size, prevAlloc, thisAlloc) as this block's header.
func (h *Heap) setHeader(hdr int64, size uint32, prevAlloc, thisAlloc bool) {
	h.writeHeader(hdr, packWord(size, prevAlloc, thisAlloc))
}

// syncFooter copies the current header word of hdr into its footer. Per
// invariant 9, a free block's footer must equal its header exactly.
func (h *Heap) syncFooter(hdr int64) {
	h.writeFooter(hdr, h.header(hdr))
}

// Size returns the block's total size in bytes (header + payload,
// including any footer/links for a free block).
func (h *Heap) Size(hdr int64) uint32 { return wordSize(h.header(hdr)) }

// ThisAlloc reports whether the block at hdr is allocated.
func (h *Heap) ThisAlloc(hdr int64) bool { return wordThisAlloc(h.header(hdr)) }

// PrevAlloc reports whether the block immediately preceding hdr in address
// order is allocated.
func (h *Heap) PrevAlloc(hdr int64) bool { return wordPrevAlloc(h.header(hdr)) }

// payloadOf returns the payload ("pointer") address of the block at hdr.
func payloadOf(hdr int64) int64 { return hdr + headerSize }

// hdrOfPayload returns the block address for a given payload pointer.
func hdrOfPayload(ptr int64) int64 { return ptr - headerSize }

// nextBlock returns the address of the block immediately following hdr in
// address order. Valid for any block including the epilogue sentinel,
// which reports size 0 and so maps to itself - callers must check size==0
// (i.e. "is this the epilogue") before advancing.
func (h *Heap) nextBlock(hdr int64) int64 {
	return hdr + int64(h.Size(hdr))
}

// setPrevAllocBit updates only the prev-alloc bit of the block at hdr,
// preserving its size and this-alloc bit. If the block is free, its footer
// is re-synced so invariant 9 (footer == header) keeps holding.
func (h *Heap) setPrevAllocBit(hdr int64, prevAlloc bool) {
	w := h.header(hdr)
	w2 := packWord(wordSize(w), prevAlloc, wordThisAlloc(w))
	h.writeHeader(hdr, w2)
	if !wordThisAlloc(w2) {
		h.writeFooter(hdr, w2)
	}
}

// Free-block in-payload links (spec section 3): prev-link at payload
// offset 0, next-link at payload offset 4, stored as 32-bit offsets from
// BASE (0 meaning "none").
func (h *Heap) prevLink(hdr int64) int64 {
	return int64(memio.ReadU32(h.raw.At(payloadOf(hdr), 4)))
}

func (h *Heap) nextLink(hdr int64) int64 {
	return int64(memio.ReadU32(h.raw.At(payloadOf(hdr)+4, 4)))
}

func (h *Heap) setPrevLink(hdr, v int64) {
	memio.WriteU32(h.raw.At(payloadOf(hdr), 4), uint32(v))
}

func (h *Heap) setNextLink(hdr, v int64) {
	memio.WriteU32(h.raw.At(payloadOf(hdr)+4, 4), uint32(v))
}
