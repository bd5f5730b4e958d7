package ape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValue_TypeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		typ  ValueType
	}{
		{"number", NumberValue(42), TypeNumber},
		{"bool", BoolValue(true), TypeBool},
		{"null", Null, TypeNull},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.typ, tt.v.Type())
		})
	}
}

func TestValue_Equals(t *testing.T) {
	assert.True(t, Equals(NumberValue(1), NumberValue(1)))
	assert.False(t, Equals(NumberValue(1), NumberValue(2)))
	assert.True(t, Equals(True, True))
	assert.True(t, Equals(Null, Null))
	assert.False(t, Equals(NumberValue(0), Null))
}

func TestValue_Compare(t *testing.T) {
	ord, err := Compare(NumberValue(1), NumberValue(2))
	assert.NoError(t, err)
	assert.Less(t, ord, 0)

	ord, err = Compare(NumberValue(2), NumberValue(2))
	assert.NoError(t, err)
	assert.Equal(t, 0, ord)

	h := newHeap()
	arr := objectValue(TypeArray, h.allocArray(nil))
	_, err = Compare(NumberValue(1), arr)
	assert.Error(t, err)
}

func TestValue_HashConsistency(t *testing.T) {
	h := newHeap()
	a := objectValue(TypeString, h.allocString("hello"))
	b := objectValue(TypeString, h.allocString("hello"))
	assert.True(t, Equals(a, b))
	assert.True(t, a.IsHashable())
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestValue_ToDisplayString(t *testing.T) {
	h := newHeap()
	assert.Equal(t, "42", NumberValue(42).ToDisplayString())
	assert.Equal(t, "true", True.ToDisplayString())
	assert.Equal(t, "null", Null.ToDisplayString())
	s := objectValue(TypeString, h.allocString("hi"))
	assert.Equal(t, "hi", s.ToDisplayString())
}
