package ape

import (
	"fmt"
	"math"
)

// ValueType is the discriminator spec.md's NaN-boxed word would decode
// to. This repo follows the target design called out in spec.md §9
// ("Tagged values → sum type"): a discriminated union `{Number, Bool,
// Null, Object}` rather than a packed 64-bit pattern. The type round-trip
// and NaN invariants fall out of this representation for free — a raw
// float64 field already preserves every NaN bit pattern, so there is no
// canonicalisation step to get wrong.
type ValueType int

const (
	TypeNone ValueType = iota
	TypeNumber
	TypeBool
	TypeNull
	TypeString
	TypeArray
	TypeMap
	TypeFunction
	TypeNativeFunction
	TypeError
	TypeExternal
	TypeAny // used only in type-check masks, never a real value's type
)

var valueTypeNames = [...]string{
	TypeNone:           "none",
	TypeNumber:         "number",
	TypeBool:           "bool",
	TypeNull:           "null",
	TypeString:         "string",
	TypeArray:          "array",
	TypeMap:            "map",
	TypeFunction:       "function",
	TypeNativeFunction: "native-function",
	TypeError:          "error",
	TypeExternal:       "external",
	TypeAny:            "any",
}

func (t ValueType) String() string {
	if int(t) < 0 || int(t) >= len(valueTypeNames) {
		return "unknown"
	}
	return valueTypeNames[t]
}

// Value is the 64-bit word of spec.md's data model, minus the bit
// packing: an immediate payload (num) for Number/Bool, and a pointer to
// heap-allocated object data for everything else. Null carries no
// payload at all.
type Value struct {
	typ ValueType
	num float64
	obj *object
}

// Null, True and False are the three immediate non-number values.
var (
	Null  = Value{typ: TypeNull}
	True  = Value{typ: TypeBool, num: 1}
	False = Value{typ: TypeBool, num: 0}
)

// NumberValue builds a Number value. A NaN payload round-trips exactly:
// IsNumber still reports true and AsNumber still returns a value for
// which math.IsNaN holds, satisfying spec.md §8's NaN-boxing invariant.
func NumberValue(v float64) Value { return Value{typ: TypeNumber, num: v} }

// BoolValue builds a Bool value.
func BoolValue(b bool) Value {
	if b {
		return True
	}
	return False
}

func objectValue(typ ValueType, o *object) Value { return Value{typ: typ, obj: o} }

func (v Value) Type() ValueType { return v.typ }

func (v Value) IsNumber() bool         { return v.typ == TypeNumber }
func (v Value) IsBool() bool           { return v.typ == TypeBool }
func (v Value) IsNull() bool           { return v.typ == TypeNull }
func (v Value) IsString() bool         { return v.typ == TypeString }
func (v Value) IsArray() bool          { return v.typ == TypeArray }
func (v Value) IsMap() bool            { return v.typ == TypeMap }
func (v Value) IsFunction() bool       { return v.typ == TypeFunction }
func (v Value) IsNativeFunction() bool { return v.typ == TypeNativeFunction }
func (v Value) IsError() bool          { return v.typ == TypeError }
func (v Value) IsExternal() bool       { return v.typ == TypeExternal }
func (v Value) IsCallable() bool       { return v.typ == TypeFunction || v.typ == TypeNativeFunction }
func (v Value) IsAllocated() bool      { return v.obj != nil }

// AsNumber returns the raw float64 payload. Callers must check IsNumber
// first; this repo does not panic on a type mismatch (see check_assign /
// index-write permissiveness decisions in DESIGN.md).
func (v Value) AsNumber() float64 { return v.num }
func (v Value) AsBool() bool      { return v.num != 0 }

func (v Value) object() *object {
	return v.obj
}

func (v Value) AsString() string {
	if v.obj == nil || v.obj.kind != objString {
		return ""
	}
	return v.obj.str
}

func (v Value) AsArray() []Value {
	if v.obj == nil || v.obj.kind != objArray {
		return nil
	}
	return v.obj.arr
}

func (v Value) AsMap() *OrderedMap {
	if v.obj == nil || v.obj.kind != objMap {
		return nil
	}
	return v.obj.m
}

func (v Value) AsFunction() *functionData {
	if v.obj == nil || v.obj.kind != objFunction {
		return nil
	}
	return v.obj.fn
}

func (v Value) AsNativeFunction() *nativeFunctionData {
	if v.obj == nil || v.obj.kind != objNativeFunction {
		return nil
	}
	return v.obj.native
}

func (v Value) AsError() *errorData {
	if v.obj == nil || v.obj.kind != objError {
		return nil
	}
	return v.obj.err
}

func (v Value) AsExternal() *externalData {
	if v.obj == nil || v.obj.kind != objExternal {
		return nil
	}
	return v.obj.ext
}

// IsHashable reports whether v belongs to {number, bool, string}, the
// only types permitted as map keys (spec.md §3 invariant 3).
func (v Value) IsHashable() bool {
	switch v.typ {
	case TypeNumber, TypeBool, TypeString:
		return true
	default:
		return false
	}
}

// Hash returns a stable hash for hashable values. For strings the hash
// is memoised on the backing object (0 means "recompute", per spec.md's
// string-hash invariant); FNV-1a is used as the underlying algorithm to
// match the "cached hash, recompute on 0" contract without depending on
// a packed representation.
func (v Value) Hash() uint64 {
	switch v.typ {
	case TypeNumber:
		bits := math.Float64bits(v.num)
		return hashUint64(bits)
	case TypeBool:
		if v.AsBool() {
			return hashUint64(1)
		}
		return hashUint64(0)
	case TypeString:
		return v.obj.stringHash()
	default:
		return 0
	}
}

func hashUint64(x uint64) uint64 {
	// splitmix64 finalizer; cheap, good avalanche, no allocation.
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// Equals implements value-equality for comparable types. Allocated
// objects of the same kind that are not strings fall back to pointer
// identity (spec.md §9 open question: no structural equality for arrays
// or maps).
func Equals(a, b Value) bool {
	if a.typ != b.typ {
		// number/bool/null never cross-compare equal to one another
		return false
	}
	switch a.typ {
	case TypeNumber:
		return a.num == b.num
	case TypeBool:
		return a.num == b.num
	case TypeNull:
		return true
	case TypeString:
		return a.obj == b.obj || a.obj.str == b.obj.str
	default:
		return a.obj == b.obj
	}
}

// compareResult mirrors the VM's COMPARE opcode: a signed ordering, or
// errNotComparable when the two values can't be ordered.
type compareResult int

var errNotComparable = fmt.Errorf("values are not comparable")

// Compare produces a numeric ordering for COMPARE/COMPARE_EQ. Two
// numbers, two bools or two nulls compare by numeric value; a mix of
// these types (e.g. number vs bool) is not comparable. Strings compare by length,
// then hash, then byte-lexicographically; allocated objects of the same
// non-string kind compare by pointer identity (nonzero unless identical).
func Compare(a, b Value) (int, error) {
	switch {
	case a.typ == TypeNumber && b.typ == TypeNumber:
		return compareFloat(a.num, b.num), nil
	case a.typ == TypeBool && b.typ == TypeBool:
		return compareFloat(a.num, b.num), nil
	case a.typ == TypeNull && b.typ == TypeNull:
		return 0, nil
	case a.typ == TypeString && b.typ == TypeString:
		return compareStrings(a.obj, b.obj), nil
	case a.typ == b.typ && a.obj != nil && b.obj != nil:
		if a.obj == b.obj {
			return 0, nil
		}
		return 1, nil
	default:
		return 0, errNotComparable
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareStrings(a, b *object) int {
	if len(a.str) != len(b.str) {
		return compareFloat(float64(len(a.str)), float64(len(b.str)))
	}
	ah, bh := a.stringHash(), b.stringHash()
	if ah != bh {
		return compareFloat(float64(ah), float64(bh))
	}
	if a.str < b.str {
		return -1
	}
	if a.str > b.str {
		return 1
	}
	return 0
}

// ToDisplayString implements the `to_str` coercion table described in
// original_source/builtins.c: the rule template-string desugaring
// depends on, via the to_str builtin.
func (v Value) ToDisplayString() string {
	switch v.typ {
	case TypeNumber:
		return formatNumber(v.num)
	case TypeBool:
		if v.AsBool() {
			return "true"
		}
		return "false"
	case TypeNull:
		return "null"
	case TypeString:
		return v.obj.str
	case TypeArray:
		s := "["
		for i, e := range v.obj.arr {
			if i > 0 {
				s += ", "
			}
			s += e.ToDisplayString()
		}
		return s + "]"
	case TypeMap:
		s := "{"
		for i, k := range v.obj.m.keys() {
			if i > 0 {
				s += ", "
			}
			val, _ := v.obj.m.Get(k)
			s += fmt.Sprintf("%s: %s", k.ToDisplayString(), val.ToDisplayString())
		}
		return s + "}"
	case TypeFunction:
		name := v.obj.fn.name
		if name == "" {
			name = "anonymous"
		}
		return fmt.Sprintf("<function %s>", name)
	case TypeNativeFunction:
		return fmt.Sprintf("<native %s>", v.obj.native.name)
	case TypeError:
		return fmt.Sprintf("ERROR: %s", v.obj.err.message)
	case TypeExternal:
		return "<external>"
	default:
		return "<none>"
	}
}

func formatNumber(f float64) string {
	if math.IsNaN(f) {
		return "NaN"
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		return fmt.Sprintf("%.0f", f)
	}
	return fmt.Sprintf("%g", f)
}
