package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compileSource(t *testing.T, source string) (*CompiledFunction, *Compiler) {
	t.Helper()
	h := newHeap()
	globals := newGlobalStore()
	errs := newErrorList()
	c := NewCompiler(h, globals, errs, false)
	top, err := c.Compile("<test>", source)
	require.NoError(t, err)
	require.False(t, errs.HasErrors(), "unexpected compile errors: %v", errs.items)
	return top, c
}

func TestCompiler_BytecodeLinearity(t *testing.T) {
	top, _ := compileSource(t, "var x = 1 + 2 * 3")
	assert.Equal(t, len(top.Code), len(top.Positions))
	for _, pos := range top.Positions {
		assert.False(t, pos.IsZero())
	}
}

func TestCompiler_SimpleArithmeticEmitsExpectedOpcodes(t *testing.T) {
	top, _ := compileSource(t, "var a = 1\na + 2")
	assert.Contains(t, top.Code, byte(OpAdd))
	assert.Contains(t, top.Code, byte(OpPop))
}

func TestCompiler_ConstantFoldingEliminatesLiteralOp(t *testing.T) {
	// Both operands are literal numbers, so the optimizer should fold
	// the addition at compile time and emit no ADD opcode.
	top, _ := compileSource(t, "1 + 2")
	_, c := compileSource(t, "1 + 2")
	_ = c
	found := false
	for _, b := range top.Code {
		if Opcode(b) == OpAdd {
			found = true
		}
	}
	assert.False(t, found, "expected constant folding to eliminate the ADD opcode")
}

func TestCompiler_ScopeRestorationOnError(t *testing.T) {
	h := newHeap()
	globals := newGlobalStore()
	errs := newErrorList()
	c := NewCompiler(h, globals, errs, false)

	_, err := c.Compile("<test>", "var x = 1")
	require.NoError(t, err)
	constantsBefore := c.Constants()
	modGlobalsBefore := c.ModuleGlobalCount()

	errs.Clear()
	_, err = c.Compile("<test>", "var x = ")
	assert.Error(t, err)

	assert.Equal(t, modGlobalsBefore, c.ModuleGlobalCount())
	assert.Equal(t, len(constantsBefore), len(c.Constants()))
}

func TestCompiler_SymbolExclusivityAtModuleScope(t *testing.T) {
	h := newHeap()
	globals := newGlobalStore()
	errs := newErrorList()
	c := NewCompiler(h, globals, errs, false)

	_, err := c.Compile("<test>", "var x = 1")
	require.NoError(t, err)

	errs.Clear()
	_, err = c.Compile("<test>", "var x = 2")
	assert.Error(t, err, "redefining a module global in the same scope must fail")
}
