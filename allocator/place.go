package allocator

// place marks the free block at hdr (of size >= need, as found by
// findFit) allocated, splitting off a free remainder when the slack is at
// least minBlockSize (spec section 4.F). Returns the payload pointer of
// the newly allocated block.
func (h *Heap) place(hdr int64, need uint32) int64 {
	class := classOf(h.Size(hdr))
	h.flRemove(class, hdr)

	total := h.Size(hdr)
	prevAlloc := h.PrevAlloc(hdr)

	if total-need >= minBlockSize {
		h.setHeader(hdr, need, prevAlloc, true)

		freeHdr := hdr + int64(need)
		freeSize := total - need
		h.setHeader(freeHdr, freeSize, true, false)
		h.syncFooter(freeHdr)
		h.flAdd(classOf(freeSize), freeHdr)
	} else {
		h.setHeader(hdr, total, prevAlloc, true)
		h.setPrevAllocBit(h.nextBlock(hdr), true)
	}

	return payloadOf(hdr)
}
