package allocator

import (
	"fmt"
	"io"
	"os"

	"github.com/bytedance/gopkg/lang/mcache"
	"github.com/bytedance/gopkg/util/xxhash3"

	"github.com/lzk031/segalloc/internal/hack"
)

// Report summarizes one CheckHeap run (spec section 8's invariants I1-I7).
type Report struct {
	OK          bool
	Violations  []string
	BlockCount  int
	FreeCount   int
	AllocCount  int
	AllocBytes  int64
	FreeBytes   int64
	Fingerprint uint64
}

// CheckHeap walks every block in address order and every free list,
// verifying invariants I1, I3-I7, the prologue/epilogue sentinel shape,
// and that the free lists and the address-order sweep agree on which
// blocks are free, then returns a Report. lineno is included in
// diagnostic output only, letting callers tag a check with the call site
// that requested it (mirroring the teacher's debug-build checkheap
// convention referenced by spec section 6).
func (h *Heap) CheckHeap(lineno int) Report {
	return h.checkHeapTo(os.Stderr, lineno)
}

func (h *Heap) checkHeapTo(w io.Writer, lineno int) Report {
	var rpt Report
	rpt.OK = true

	add := func(format string, args ...interface{}) {
		rpt.OK = false
		rpt.Violations = append(rpt.Violations, fmt.Sprintf(format, args...))
	}

	if !h.initialized {
		add("checkheap: heap not initialized")
		h.report(w, lineno, rpt)
		return rpt
	}

	// digestBuf accumulates a compact per-block descriptor string that
	// gets hashed once at the end into rpt.Fingerprint; borrowed from
	// mcache for the duration of one sweep the same way the teacher's
	// bufio layer borrows scratch buffers instead of allocating with
	// make. Capacity is sized for the worst case (every minBlockSize-byte
	// slot in the heap holding one block) so the slice never has to grow
	// past what mcache handed out.
	maxBlocks := int(h.raw.Hi()/minBlockSize) + 1
	digestBuf := mcache.Malloc(0, maxBlocks*24+64)
	defer func() { mcache.Free(digestBuf) }()
	freeListMembers := make(map[int64]int, 64)

	for class := 0; class < NumClasses; class++ {
		for cur := h.dirHead(class); cur != 0; cur = h.nextLink(cur) {
			freeListMembers[cur] = class
			if h.ThisAlloc(cur) {
				add("checkheap: block %d in free list C%d but marked allocated", cur, class)
			}
			if got := classOf(h.Size(cur)); got != class {
				add("checkheap: block %d has size %d (class C%d) but lives in list C%d (I5)", cur, h.Size(cur), got, class)
			}
			if n := h.nextLink(cur); n != 0 && h.prevLink(n) != cur {
				add("checkheap: block %d.next=%d but %d.prev!=%d (I6)", cur, n, n, cur)
			}
		}
	}
	rpt.FreeCount = len(freeListMembers)

	prologueHdr := h.firstBlockHdr - prologueSize
	if got := h.Size(prologueHdr); got != minBlockSize {
		add("checkheap: prologue block %d has size %d, want %d", prologueHdr, got, minBlockSize)
	}
	if !h.ThisAlloc(prologueHdr) {
		add("checkheap: prologue block %d not marked allocated", prologueHdr)
	}

	var sumSize int64
	var sweptFreeCount int
	prevWasFree := false
	cur := h.firstBlockHdr
	for {
		size := h.Size(cur)
		if size == 0 {
			if !h.ThisAlloc(cur) {
				add("checkheap: epilogue block %d not marked allocated", cur)
			}
			break // epilogue
		}
		rpt.BlockCount++
		sumSize += int64(size)

		if size%8 != 0 || size < minBlockSize {
			add("checkheap: block %d has malformed size %d (I1)", cur, size)
		}

		thisAlloc := h.ThisAlloc(cur)
		if thisAlloc {
			rpt.AllocCount++
			rpt.AllocBytes += int64(size)
		} else {
			rpt.FreeBytes += int64(size)
			sweptFreeCount++
			if _, ok := freeListMembers[cur]; !ok {
				add("checkheap: free block %d not found in any free list (I5)", cur)
			}
			if prevWasFree {
				add("checkheap: adjacent free blocks at or before %d (I4)", cur)
			}
			footer := h.header(footerAddr(cur, size))
			if footer != h.header(cur) {
				add("checkheap: block %d footer != header", cur)
			}
		}

		next := h.nextBlock(cur)
		nextPrevAlloc := h.PrevAlloc(next)
		if nextPrevAlloc != thisAlloc {
			add("checkheap: block %d this-alloc=%v but successor's prev-alloc=%v (I3)", cur, thisAlloc, nextPrevAlloc)
		}

		digestBuf = fmt.Appendf(digestBuf, "%d:%d:%v|", cur, size, thisAlloc)
		prevWasFree = !thisAlloc

		if next <= cur {
			add("checkheap: block %d does not advance (possible cycle)", cur)
			break
		}
		cur = next
		if int64(rpt.BlockCount) > (h.raw.Hi()/minBlockSize)+1 {
			add("checkheap: exceeded heap-size/minBlockSize block count, aborting sweep (cycle guard)")
			break
		}
	}
	rpt.Fingerprint = xxhash3.Hash(digestBuf)

	wantTotal := h.raw.Hi() - h.firstBlockHdr - headerSize // epilogue's own header word is not part of any block
	if sumSize != wantTotal {
		add("checkheap: sum of block sizes %d != heap span %d (I7)", sumSize, wantTotal)
	}

	if sweptFreeCount != rpt.FreeCount {
		add("checkheap: %d free blocks found in address-order sweep but free lists hold %d nodes (I5)", sweptFreeCount, rpt.FreeCount)
	}

	h.report(w, lineno, rpt)
	return rpt
}

// report prints a human-readable summary, including the operation trace,
// whenever rpt is not OK - so a failure is reproducible without
// re-running the scenario under a debugger (spec section 4.J).
func (h *Heap) report(w io.Writer, lineno int, rpt Report) {
	if rpt.OK {
		return
	}
	buf := make([]byte, 0, 512)
	buf = fmt.Appendf(buf, "checkheap(%d): %d violation(s)\n", lineno, len(rpt.Violations))
	for _, v := range rpt.Violations {
		buf = fmt.Appendf(buf, "  - %s\n", v)
	}
	buf = fmt.Appendf(buf, "  recent operations:\n")
	for _, e := range h.trace.recent(16) {
		buf = fmt.Appendf(buf, "    %-8s arg=%d res=%d\n", e.op, e.arg, e.res)
	}
	// One no-copy string view over the assembled report rather than
	// handing fmt.Fprint a fresh copy of buf.
	io.WriteString(w, hack.ByteSliceToString(buf))
}
