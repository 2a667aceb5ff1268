package allocator

// freeBlock releases the allocated block whose payload pointer is ptr. It
// is the internal counterpart of the exported Free, assuming ptr has
// already been validated to lie within the heap and on a block boundary
// (spec section 4.G).
func (h *Heap) freeBlock(ptr int64) {
	hdr := hdrOfPayload(ptr)
	size := h.Size(hdr)
	prevAlloc := h.PrevAlloc(hdr)

	h.setHeader(hdr, size, prevAlloc, false)
	h.syncFooter(hdr)
	h.setPrevAllocBit(h.nextBlock(hdr), false)

	h.flAdd(classOf(size), hdr)
	h.coalesce(hdr)
}

// prevBlockFromFooter returns the address of the block immediately
// preceding hdr in address order, valid only when hdr's prev-alloc bit is
// 0 (i.e. that neighbour is free and therefore carries a footer).
func (h *Heap) prevBlockFromFooter(hdr int64) int64 {
	prevFooterW := h.header(hdr - footerSize) // footer word == header word
	return hdr - int64(wordSize(prevFooterW))
}

// coalesce immediately merges the free block at hdr with any free
// neighbours (spec section 4.G, four-way case analysis). It returns the
// address of the resulting (possibly merged) free block.
//
// Per Design Notes section 9: in every branch the sizes of all
// participating blocks are read before any header/footer is overwritten,
// so the merged size is always computed from pristine data - this is the
// resolution of the "footer write ordering" open question.
func (h *Heap) coalesce(hdr int64) int64 {
	size := h.Size(hdr)
	prevAlloc := h.PrevAlloc(hdr)
	next := h.nextBlock(hdr)
	nextAlloc := h.ThisAlloc(next)

	switch {
	case prevAlloc && nextAlloc:
		return hdr

	case prevAlloc && !nextAlloc:
		nextSize := h.Size(next)
		h.flRemove(classOf(nextSize), next)
		h.flRemove(classOf(size), hdr)

		merged := size + nextSize
		h.setHeader(hdr, merged, true, false)
		h.syncFooter(hdr)
		h.flAdd(classOf(merged), hdr)
		h.trace.record(traceCoalesce, int64(merged), hdr)
		return hdr

	case !prevAlloc && nextAlloc:
		prev := h.prevBlockFromFooter(hdr)
		prevSize := h.Size(prev)
		h.flRemove(classOf(size), hdr)
		h.flRemove(classOf(prevSize), prev)

		merged := prevSize + size
		prevPrevAlloc := h.PrevAlloc(prev)
		h.setHeader(prev, merged, prevPrevAlloc, false)
		h.syncFooter(prev)
		h.flAdd(classOf(merged), prev)
		h.trace.record(traceCoalesce, int64(merged), prev)
		return prev

	default: // !prevAlloc && !nextAlloc
		prev := h.prevBlockFromFooter(hdr)
		prevSize := h.Size(prev)
		nextSize := h.Size(next)

		h.flRemove(classOf(size), hdr)
		h.flRemove(classOf(prevSize), prev)
		h.flRemove(classOf(nextSize), next)

		merged := prevSize + size + nextSize
		prevPrevAlloc := h.PrevAlloc(prev)
		h.setHeader(prev, merged, prevPrevAlloc, false)
		h.syncFooter(prev)
		h.flAdd(classOf(merged), prev)
		h.trace.record(traceCoalesce, int64(merged), prev)
		return prev
	}
}
