package allocator

// bestFitThreshold is the class boundary (960 bytes, start of C7) at and
// above which find-fit switches from first-fit to best-fit (spec section
// 4.E). Requests below it dominate allocation count and benefit from
// first-fit's O(1) expected cost; larger, rarer requests benefit from
// best-fit's reduced wasted splits.
const bestFitThreshold = 960

// findFit searches the segregated free lists for a block of size >= need,
// starting at class C(need) and escalating to larger classes until a fit
// is found or all classes are exhausted. Returns (0, false) on a miss.
func (h *Heap) findFit(need uint32) (hdr int64, ok bool) {
	bestFit := need >= bestFitThreshold
	for class := classOf(need); class < NumClasses; class++ {
		head := h.dirHead(class)
		if head == 0 {
			continue
		}
		if !bestFit {
			for cur := head; cur != 0; cur = h.nextLink(cur) {
				if h.Size(cur) >= need {
					return cur, true
				}
			}
			continue
		}

		var best int64
		var bestSize uint32
		for cur := head; cur != 0; cur = h.nextLink(cur) {
			sz := h.Size(cur)
			if sz == need {
				return cur, true
			}
			if sz >= need && (best == 0 || sz < bestSize) {
				best, bestSize = cur, sz
			}
		}
		if best != 0 {
			return best, true
		}
	}
	return 0, false
}
