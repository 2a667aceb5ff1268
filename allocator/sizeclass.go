package allocator

// NumClasses is the number of segregated size classes (spec section 3: SEG_NUM).
const NumClasses = 14

// classBounds holds the low (inclusive) bound of each class; the high bound
// of class i is classBounds[i+1] (open), or +Inf for the last class.
var classBounds = [NumClasses]uint32{
	0, 16, 32, 64, 128, 256, 480, 960, 1920, 3840, 7680, 15360, 30720, 61440,
}

// classOf returns the index i in [0, NumClasses) such that size falls in
// the half-open range [classBounds[i], classBounds[i+1]) (or
// [classBounds[NumClasses-1], inf) for the last class).
//
// Grounded on cache/mempool's poolIndex/bits2idx lookup-table technique,
// generalized from a power-of-two ladder (where bits.Len gives the index
// directly) to spec.md's fixed, non-power-of-two boundaries via a small
// linear scan from the top: at most NumClasses comparisons, the same O(1)
// bound the teacher's own array lookup relies on.
func classOf(size uint32) int {
	for i := NumClasses - 1; i > 0; i-- {
		if size >= classBounds[i] {
			return i
		}
	}
	return 0
}
