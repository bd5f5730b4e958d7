package ape

// gcAllocThreshold is the allocation-count trigger spec.md §4.5 sets at
// "≈200"; after each instruction the VM checks the heap's counter
// against this and sweeps once the counter reaches it.
const gcAllocThreshold = 200

// poolCap bounds how many objects of a kind the free-list pools retain;
// beyond this, swept objects are simply dropped for the Go runtime's own
// collector to reclaim.
const poolCap = 256

// arrayPoolLimit / mapPoolLimit / stringPoolLimit mirror spec.md §4.6's
// pool eligibility thresholds: only "small enough" objects get recycled,
// since a giant array sitting in a free list would waste more memory
// than it saves.
const (
	arrayPoolLimit  = 1024
	mapPoolLimit    = 1024
	stringPoolLimit = 4096
)

// heap is the GC-owned object arena. It is not a general-purpose
// allocator: all heap objects in one VM run are allocated by its
// alloc* methods and linked into `live`. Sweep walks `live` once per
// cycle, splitting survivors back into a fresh `live` list and recycling
// unmarked candidates into per-kind pools instead of letting every
// allocation pay full GC cost.
type heap struct {
	live  []*object
	count int // allocations since last sweep

	pool struct {
		strings []*object
		arrays  []*object
		maps    []*object
	}

	// pinned holds objects kept alive regardless of reachability
	// (spec.md §4.6 "not-gced" list); disableGCOn/enableGCOn manage it.
	pinned []*object

	// roots is not set anywhere in this package; Collect and mark take
	// the root set as an argument instead.
	roots func() []Value

	allocations int64
	sweeps      int64
	freed       int64

	// threshold overrides gcAllocThreshold; a Context wires this from
	// its Config's "gc.threshold" setting. Zero means "use the default."
	threshold int
}

func newHeap() *heap {
	return &heap{}
}

// SetThreshold overrides the sweep-trigger allocation count.
func (h *heap) SetThreshold(n int) { h.threshold = n }

func (h *heap) track(o *object) *object {
	h.live = append(h.live, o)
	h.count++
	h.allocations++
	return o
}

func (h *heap) allocString(s string) *object {
	if o := h.takeStringFromPool(); o != nil {
		o.str = s
		o.strHash = 0
		return h.track(o)
	}
	return h.track(&object{kind: objString, str: s})
}

func (h *heap) takeStringFromPool() *object {
	n := len(h.pool.strings)
	if n == 0 {
		return nil
	}
	o := h.pool.strings[n-1]
	h.pool.strings = h.pool.strings[:n-1]
	return o
}

func (h *heap) allocArray(elems []Value) *object {
	if o := h.takeArrayFromPool(); o != nil {
		o.arr = append(o.arr[:0], elems...)
		return h.track(o)
	}
	return h.track(&object{kind: objArray, arr: elems})
}

func (h *heap) takeArrayFromPool() *object {
	n := len(h.pool.arrays)
	if n == 0 {
		return nil
	}
	o := h.pool.arrays[n-1]
	h.pool.arrays = h.pool.arrays[:n-1]
	return o
}

func (h *heap) allocMap() *object {
	if o := h.takeMapFromPool(); o != nil {
		o.m = newOrderedMap()
		return h.track(o)
	}
	return h.track(&object{kind: objMap, m: newOrderedMap()})
}

func (h *heap) takeMapFromPool() *object {
	n := len(h.pool.maps)
	if n == 0 {
		return nil
	}
	o := h.pool.maps[n-1]
	h.pool.maps = h.pool.maps[:n-1]
	return o
}

func (h *heap) allocFunction(fn *functionData) *object {
	return h.track(&object{kind: objFunction, fn: fn})
}

func (h *heap) allocNativeFunction(nf *nativeFunctionData) *object {
	return h.track(&object{kind: objNativeFunction, native: nf})
}

func (h *heap) allocError(msg string, tb *Traceback) *object {
	return h.track(&object{kind: objError, err: &errorData{message: msg, traceback: tb}})
}

func (h *heap) allocExternal(data any, destroy func(any)) *object {
	return h.track(&object{kind: objExternal, ext: &externalData{data: data, destroy: destroy}})
}

// disableGCOn pins o so sweep never reclaims it, independent of normal
// reachability (spec.md's "Pin" glossary entry).
func (h *heap) disableGCOn(o *object) {
	if o == nil {
		return
	}
	h.pinned = append(h.pinned, o)
}

// enableGCOn removes o's pin, if present.
func (h *heap) enableGCOn(o *object) {
	for i, p := range h.pinned {
		if p == o {
			h.pinned = append(h.pinned[:i], h.pinned[i+1:]...)
			return
		}
	}
}

// shouldSweep reports whether the allocation counter has crossed the
// threshold spec.md §4.5 describes.
func (h *heap) shouldSweep() bool {
	t := h.threshold
	if t <= 0 {
		t = gcAllocThreshold
	}
	return h.count >= t
}

// mark performs the tracing DFS from every root. Roots are whatever the
// caller (the VM) reports live at the moment of collection: host
// globals, constants, module globals, every frame's function, both
// operand stacks up to their stack pointers, last-popped, and the
// pinned list.
func (h *heap) mark(roots []Value) {
	for _, o := range h.live {
		o.marked = false
	}
	var stack []*object
	push := func(v Value) {
		if o := v.object(); o != nil {
			stack = append(stack, o)
		}
	}
	for _, v := range roots {
		push(v)
	}
	for _, o := range h.pinned {
		stack = append(stack, o)
	}
	for len(stack) > 0 {
		o := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if o.marked {
			continue
		}
		o.marked = true
		switch o.kind {
		case objArray:
			for _, e := range o.arr {
				push(e)
			}
		case objMap:
			if o.m != nil {
				o.m.Each(func(k, v Value) {
					push(k)
					push(v)
				})
			}
		case objFunction:
			for _, fv := range o.fn.freeVars {
				push(fv)
			}
		}
	}
}

// sweep reclaims every unmarked object, either returning it to its
// type's pool (if small enough and the pool has room) or dropping it for
// Go's own collector, running finalizers for external objects along the
// way. Swapping h.live for a freshly built slice avoids mutating the
// slice being iterated mid-sweep.
func (h *heap) sweep() {
	h.sweeps++
	survivors := make([]*object, 0, len(h.live))
	for _, o := range h.live {
		if o.marked {
			survivors = append(survivors, o)
			continue
		}
		h.freed++
		h.recycle(o)
	}
	h.live = survivors
	h.count = 0
}

func (h *heap) recycle(o *object) {
	switch o.kind {
	case objString:
		if len(o.str) <= stringPoolLimit && len(h.pool.strings) < poolCap {
			o.str = ""
			o.strHash = 0
			h.pool.strings = append(h.pool.strings, o)
			return
		}
	case objArray:
		if len(o.arr) <= arrayPoolLimit && len(h.pool.arrays) < poolCap {
			o.arr = o.arr[:0]
			h.pool.arrays = append(h.pool.arrays, o)
			return
		}
	case objMap:
		if o.m != nil && o.m.Len() <= mapPoolLimit && len(h.pool.maps) < poolCap {
			o.m = nil
			h.pool.maps = append(h.pool.maps, o)
			return
		}
	case objExternal:
		if o.ext != nil && o.ext.destroy != nil {
			o.ext.destroy(o.ext.data)
		}
	}
	// not pool-eligible: drop the reference and let Go's allocator
	// reclaim the backing memory in its own time.
}

// Collect runs mark+sweep unconditionally; the VM calls this at the end
// of every run/call batch per spec.md §4.5, in addition to the
// threshold-triggered sweeps during execution.
func (h *heap) Collect(roots []Value) {
	h.mark(roots)
	h.sweep()
}

// Stats reports the heap's lifetime allocation/free counters, exposed
// for diagnostics.
type HeapStats struct {
	Live        int
	Allocations int64
	Sweeps      int64
	Freed       int64
}

func (h *heap) Stats() HeapStats {
	return HeapStats{Live: len(h.live), Allocations: h.allocations, Sweeps: h.sweeps, Freed: h.freed}
}
