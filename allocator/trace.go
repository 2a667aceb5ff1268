package allocator

import "github.com/lzk031/segalloc/container/ring"

// traceCapacity is the number of recent operations kept for diagnostics
// (spec section 4.I's checker reports this alongside invariant
// violations).
const traceCapacity = 256

type traceOp uint8

const (
	traceMalloc traceOp = iota
	traceFree
	traceRealloc
	traceCalloc
	traceExtend
	traceCoalesce
)

func (op traceOp) String() string {
	switch op {
	case traceMalloc:
		return "malloc"
	case traceFree:
		return "free"
	case traceRealloc:
		return "realloc"
	case traceCalloc:
		return "calloc"
	case traceExtend:
		return "extend"
	case traceCoalesce:
		return "coalesce"
	default:
		return "?"
	}
}

// traceEntry is one recorded operation. It deliberately holds no pointers
// (ring.Ring[V]'s doc comment requires V be pointer-free for its
// GC-friendliness guarantee to hold).
type traceEntry struct {
	op  traceOp
	arg int64 // a size (requested, extended or merged), or the freed pointer, depending on op
	res int64 // resulting block/payload address, or 0
}

// traceLog is a fixed-capacity, overwrite-oldest log of recent allocator
// operations, adapted from container/ring.Ring[V]: the teacher's Ring is a
// static view over a pre-sized slice with wraparound Next/Prev addressing,
// which is exactly what an overwrite-oldest recorder needs once it is
// paired with a write cursor.
type traceLog struct {
	r      *ring.Ring[traceEntry]
	cursor int
}

func newTraceLog() *traceLog {
	return newTraceLogWithCapacity(traceCapacity)
}

func newTraceLogWithCapacity(n int) *traceLog {
	if n <= 0 {
		n = 1
	}
	return &traceLog{r: ring.NewFromSlice(make([]traceEntry, n))}
}

func (t *traceLog) record(op traceOp, arg, res int64) {
	item, _ := t.r.Get(t.cursor)
	*item.Pointer() = traceEntry{op: op, arg: arg, res: res}
	next, _ := t.r.Next(t.cursor)
	t.cursor = next.Index()
}

// recent returns up to n of the most recently recorded entries, oldest
// first.
func (t *traceLog) recent(n int) []traceEntry {
	if n > t.r.Len() {
		n = t.r.Len()
	}
	out := make([]traceEntry, 0, n)
	idx := t.cursor
	for i := 0; i < n; i++ {
		idx--
		if idx < 0 {
			idx = t.r.Len() - 1
		}
		item, _ := t.r.Get(idx)
		if item.Value() == (traceEntry{}) {
			break // slot never written: fewer than n operations recorded so far
		}
		out = append([]traceEntry{item.Value()}, out...)
	}
	return out
}
