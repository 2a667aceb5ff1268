package allocator

import "github.com/lzk031/segalloc/internal/memio"

// Directory zone (spec section 3): NumClasses 8-byte slots at the very
// start of the heap, slot i holding the head offset of size class i (0 ==
// empty). Only the first 4 bytes of each 8-byte slot are used - the
// remaining 4 bytes are reserved padding, mirroring the 32-bit offset
// encoding Design Notes section 9 mandates for in-block links.
const directorySlotSize = 8

// Stored link/directory values are block header addresses, which sit 4
// bytes before their 8-byte-aligned payload (hdr = payload-4) and are
// therefore only 4-byte aligned themselves. spec.md's "every stored
// address is 8-byte aligned" invariant describes payload pointers, not
// these header offsets, and CheckHeap does not assert 8-byte alignment
// on link values for that reason.

func directorySize() int64 { return NumClasses * directorySlotSize }

func (h *Heap) dirHead(class int) int64 {
	return int64(memio.ReadU32(h.raw.At(int64(class)*directorySlotSize, 4)))
}

func (h *Heap) setDirHead(class int, hdr int64) {
	memio.WriteU32(h.raw.At(int64(class)*directorySlotSize, 4), uint32(hdr))
}

// flAdd pushes the free block at hdr onto the head of its size class's
// list. O(1).
func (h *Heap) flAdd(class int, hdr int64) {
	oldHead := h.dirHead(class)
	h.setPrevLink(hdr, 0)
	h.setNextLink(hdr, oldHead)
	if oldHead != 0 {
		h.setPrevLink(oldHead, hdr)
	}
	h.setDirHead(class, hdr)
}

// flRemove unlinks hdr from size class list class. The caller guarantees
// hdr is currently a member of that list (spec section 4.D).
func (h *Heap) flRemove(class int, hdr int64) {
	p := h.prevLink(hdr)
	n := h.nextLink(hdr)
	if p != 0 {
		h.setNextLink(p, n)
	} else {
		h.setDirHead(class, n)
	}
	if n != 0 {
		h.setPrevLink(n, p)
	}
}
