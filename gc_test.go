package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeap_CollectReclaimsUnreachable(t *testing.T) {
	h := newHeap()
	reachable := h.allocString("kept")
	unreachable := h.allocArray(nil)
	_ = unreachable

	roots := []Value{objectValue(TypeString, reachable)}
	h.Collect(roots)

	assert.Len(t, h.live, 1)
	assert.True(t, h.live[0] == reachable)
}

func TestHeap_CollectKeepsNestedReachables(t *testing.T) {
	h := newHeap()
	inner := h.allocString("inner")
	outer := h.allocArray([]Value{objectValue(TypeString, inner)})

	h.Collect([]Value{objectValue(TypeArray, outer)})

	assert.Len(t, h.live, 2)
}

func TestHeap_PinnedSurvivesWithoutRoot(t *testing.T) {
	h := newHeap()
	o := h.allocString("pinned")
	h.disableGCOn(o)

	h.Collect(nil)

	assert.Len(t, h.live, 1)
	h.enableGCOn(o)
	h.Collect(nil)
	assert.Len(t, h.live, 0)
}

func TestHeap_ShouldSweepRespectsThreshold(t *testing.T) {
	h := newHeap()
	h.SetThreshold(2)
	assert.False(t, h.shouldSweep())
	h.allocString("a")
	h.allocString("b")
	assert.True(t, h.shouldSweep())
}

func TestHeap_StringPoolRecycles(t *testing.T) {
	h := newHeap()
	o := h.allocString("temp")
	h.Collect(nil)
	assert.Len(t, h.pool.strings, 1)

	o2 := h.allocString("new")
	assert.True(t, o2 == o, "expected the pooled object to be reused")
}
