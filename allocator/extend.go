package allocator

// CHUNK is the minimum number of bytes requested from the raw heap on a
// find-fit miss (spec section 4.F step 5).
const CHUNK = 464

// extend grows the heap by wantBytes (floored at minBlockSize and rounded
// up to a multiple of 8 here, since a chunk size set via WithChunk need not
// be aligned) and lays down one new free block followed by a
// fresh epilogue, then coalesces it with whatever free block precedes it
// (spec section 4.H).
//
// The requested size is computed and captured in full before anything is
// written: this is the fix for Design Notes section 9's first open
// question (the source reads the about-to-be-overwritten old epilogue's
// prev-alloc bit *after* already clobbering related state in some
// translations; here that read happens strictly before any write).
func (h *Heap) extend(wantBytes int) (hdr int64, ok bool) {
	size := wantBytes
	if size < minBlockSize {
		size = minBlockSize
	}
	size = (size + 7) &^ 7

	bp, err := h.raw.Sbrk(size)
	if err != nil {
		return 0, false
	}

	newBlockHdr := bp - headerSize         // reuses the old epilogue's 4 bytes
	oldEpiPrevAlloc := h.PrevAlloc(newBlockHdr) // read before any write below

	h.setHeader(newBlockHdr, uint32(size), oldEpiPrevAlloc, false)
	h.syncFooter(newBlockHdr)

	newEpilogue := newBlockHdr + int64(size)
	h.setHeader(newEpilogue, 0, false, true)

	h.flAdd(classOf(uint32(size)), newBlockHdr)
	h.trace.record(traceExtend, int64(size), newBlockHdr)

	return h.coalesce(newBlockHdr), true
}
