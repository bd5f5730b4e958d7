package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSymbolTable_DefineAndResolveModuleGlobal(t *testing.T) {
	globals := newGlobalStore()
	st := NewSymbolTable(globals)

	sym, ok := st.Define("x", true)
	require.True(t, ok)
	assert.Equal(t, ScopeModuleGlobal, sym.Scope)

	resolved, ok := st.Resolve("x")
	require.True(t, ok)
	assert.Equal(t, sym.Index, resolved.Index)
}

func TestSymbolTable_RedefinitionInSameBlockFails(t *testing.T) {
	globals := newGlobalStore()
	st := NewSymbolTable(globals)

	_, ok := st.Define("x", true)
	require.True(t, ok)
	_, ok = st.Define("x", true)
	assert.False(t, ok, "redefining a name in the same block must fail")
}

func TestSymbolTable_ShadowingAcrossBlocksSucceeds(t *testing.T) {
	globals := newGlobalStore()
	st := NewSymbolTable(globals)

	_, ok := st.Define("x", true)
	require.True(t, ok)

	st.EnterBlock()
	sym, ok := st.Define("x", true)
	assert.True(t, ok, "shadowing an outer block's binding must succeed")
	assert.NotNil(t, sym)
	st.LeaveBlock()
}

func TestSymbolTable_FreeVariableCapture(t *testing.T) {
	globals := newGlobalStore()
	module := NewSymbolTable(globals)
	outer := NewEnclosedSymbolTable(module)
	outerSym, ok := outer.Define("n", true)
	require.True(t, ok)

	inner := NewEnclosedSymbolTable(outer)
	resolved, ok := inner.Resolve("n")
	require.True(t, ok)
	assert.Equal(t, ScopeFree, resolved.Scope)
	require.Len(t, inner.FreeSymbols, 1)
	assert.Equal(t, outerSym.Name, inner.FreeSymbols[0].Name)
}

func TestSymbolTable_ApeGlobalResolution(t *testing.T) {
	globals := newGlobalStore()
	globals.define("len", NumberValue(0))

	st := NewSymbolTable(globals)
	sym, ok := st.Resolve("len")
	require.True(t, ok)
	assert.Equal(t, ScopeApeGlobal, sym.Scope)
}

func TestSymbolTable_UnresolvedNameFails(t *testing.T) {
	globals := newGlobalStore()
	st := NewSymbolTable(globals)
	_, ok := st.Resolve("nope")
	assert.False(t, ok)
}
