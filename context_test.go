package ape

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContext_SetGlobalConstant(t *testing.T) {
	ctx := New()
	ctx.SetGlobalConstant("ANSWER", ctx.NewNumber(42))

	result, err := ctx.Execute("ANSWER")
	require.NoError(t, err)
	assert.Equal(t, float64(42), result.AsNumber())
}

func TestContext_SetNativeFunction(t *testing.T) {
	ctx := New()
	ctx.SetNativeFunction("double", func(vm *VM, args []Value) (Value, error) {
		return NumberValue(args[0].AsNumber() * 2), nil
	})

	result, err := ctx.Execute("double(21)")
	require.NoError(t, err)
	assert.Equal(t, float64(42), result.AsNumber())
}

func TestContext_SetStdoutWriteRedirectsPrint(t *testing.T) {
	ctx := New()
	var buf bytes.Buffer
	ctx.SetStdoutWrite(&buf)

	_, err := ctx.Execute(`print("hello")`)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "hello")
}

func TestContext_GetObject(t *testing.T) {
	ctx := New()
	_, err := ctx.Execute("var x = 99")
	require.NoError(t, err)

	v, ok := ctx.GetObject("x")
	require.True(t, ok)
	assert.Equal(t, float64(99), v.AsNumber())

	_, ok = ctx.GetObject("nope")
	assert.False(t, ok)
}

func TestContext_SetTimeoutSurfacesTimeoutError(t *testing.T) {
	ctx := New()
	ctx.SetTimeout(1 * time.Nanosecond)

	_, err := ctx.Execute(`
		var i = 0
		while (true) { i = i + 1 }
	`)
	assert.Error(t, err)
}

func TestContext_ImportCycleDetection(t *testing.T) {
	ctx := New()
	files := map[string]string{
		"a.ape": `import "b"`,
		"b.ape": `import "a"`,
	}
	ctx.SetFileRead(func(path string) (string, error) {
		return files[filepath.Base(path)], nil
	})

	_, err := ctx.ExecuteFile("a.ape")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Cyclic")
}

func TestContext_ReplModeAccumulatesState(t *testing.T) {
	ctx := New()
	ctx.SetReplMode(true)

	_, err := ctx.Execute("var x = 1")
	require.NoError(t, err)
	result, err := ctx.Execute("x + 1")
	require.NoError(t, err)
	assert.Equal(t, float64(2), result.AsNumber())
}

func TestContext_ErrorQueueReportsParsingError(t *testing.T) {
	ctx := New()
	_, err := ctx.Execute("var x = ")
	assert.Error(t, err)
	require.True(t, ctx.Errors().HasErrors())
	e := ctx.Errors().At(0)
	require.NotNil(t, e)
	assert.Equal(t, ErrorParsing, e.Kind)
}
