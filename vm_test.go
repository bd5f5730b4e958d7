package ape

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVM_ClosuresCaptureByReferenceToBinding(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`
		var make = function(n) { return function() { n = n + 1; return n } }
		var f = make(10); f(); f(); f()
	`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.Equal(t, float64(13), result.AsNumber())
}

func TestVM_ForeachOverStringYieldsOneCharacterStrings(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`
		var out = ""
		for (c in "abc") { out = out + c }
		out
	`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.Equal(t, "abc", result.AsString())
}

func TestVM_RecoverInterceptsRuntimeError(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`
		var f = function() { recover(e) { return "got:" + to_str(e) } crash("boom") }
		f()
	`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors(), "error queue must be empty after a successful recover")
	s := result.AsString()
	assert.True(t, strings.HasPrefix(s, "got:"))
	assert.Contains(t, s, "boom")
}

func TestVM_OperatorOverloadOnMap(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`
		var a = { __operator_add__: function(x,y){ return 42 } }
		a + 1
	`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.Equal(t, float64(42), result.AsNumber())
}

func TestVM_CompoundAssignmentOnIndexExpression(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`
		var x = [10]; x[0] += 5; x[0]
	`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.Equal(t, float64(15), result.AsNumber())
}

func TestVM_WhileLoopBreakAndContinue(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`
		var i = 0
		var sum = 0
		while (true) {
			i = i + 1
			if (i > 10) { break }
			if (i % 2 == 0) { continue }
			sum = sum + i
		}
		sum
	`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.Equal(t, float64(25), result.AsNumber()) // 1+3+5+7+9
}

func TestVM_IncomparableTypesCompareAsNotEqual(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`1 == [1]`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.False(t, result.AsBool())
}

func TestVM_GetIndexOutOfBoundsIsNullNotError(t *testing.T) {
	ctx := New()
	result, err := ctx.Execute(`var a = [1,2,3]; a[10]`)
	require.NoError(t, err)
	require.False(t, ctx.Errors().HasErrors())
	assert.True(t, result.IsNull())
}

func TestVM_SetIndexOutOfBoundsIsError(t *testing.T) {
	ctx := New()
	_, err := ctx.Execute(`var a = [1,2,3]; a[10] = 1`)
	if err == nil {
		require.True(t, ctx.Errors().HasErrors())
	}
}
