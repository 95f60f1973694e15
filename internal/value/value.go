// Package value implements the tagged Value union and the single heap
// object kind (interned strings) that the compiler and VM share.
package value

import (
	"fmt"
	"strconv"
)

type ValueType int

const (
	VAL_NIL ValueType = iota
	VAL_BOOL
	VAL_NUMBER
	VAL_OBJ
)

// Value is a tagged union: exactly one of AsBool/AsNumber/Obj is
// meaningful, selected by Type.
type Value struct {
	Type     ValueType
	AsBool   bool
	AsNumber float64
	Obj      *ObjString
}

func NewNil() Value             { return Value{Type: VAL_NIL} }
func NewBool(b bool) Value      { return Value{Type: VAL_BOOL, AsBool: b} }
func NewNumber(n float64) Value { return Value{Type: VAL_NUMBER, AsNumber: n} }
func NewObj(o *ObjString) Value { return Value{Type: VAL_OBJ, Obj: o} }

func (v Value) IsNil() bool    { return v.Type == VAL_NIL }
func (v Value) IsBool() bool   { return v.Type == VAL_BOOL }
func (v Value) IsNumber() bool { return v.Type == VAL_NUMBER }
func (v Value) IsObj() bool    { return v.Type == VAL_OBJ }
func (v Value) IsString() bool { return v.Type == VAL_OBJ && v.Obj != nil }

// IsFalsey implements the language's truthiness rule: nil and false are
// falsey, everything else is truthy.
func (v Value) IsFalsey() bool {
	return v.Type == VAL_NIL || (v.Type == VAL_BOOL && !v.AsBool)
}

// Equal implements value equality: same-variant required, numbers by
// numeric equality, strings by object identity (sound because of
// interning), booleans by value, nil==nil.
func Equal(a, b Value) bool {
	if a.Type != b.Type {
		return false
	}
	switch a.Type {
	case VAL_NIL:
		return true
	case VAL_BOOL:
		return a.AsBool == b.AsBool
	case VAL_NUMBER:
		return a.AsNumber == b.AsNumber
	case VAL_OBJ:
		return a.Obj == b.Obj
	default:
		return false
	}
}

// String renders a Value the way the VM's `print` does.
func (v Value) String() string {
	switch v.Type {
	case VAL_NIL:
		return "nil"
	case VAL_BOOL:
		return strconv.FormatBool(v.AsBool)
	case VAL_NUMBER:
		return formatNumber(v.AsNumber)
	case VAL_OBJ:
		if v.Obj == nil {
			return "nil"
		}
		return v.Obj.Chars
	default:
		return "<invalid value>"
	}
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return fmt.Sprintf("%g", n)
}

// ObjectKind discriminates the heap-object union. Only strings exist in
// this core; the tag is kept so a future variant can be added without
// disturbing callers that switch on Kind.
type ObjectKind int

const (
	OBJ_STRING ObjectKind = iota
)

// ObjString is the sole heap-object variant: an immutable, interned
// byte string with a precomputed FNV-1a hash. Next links the object
// into the VM's single intrusive allocation list so shutdown can sweep
// the whole graph in one pass.
type ObjString struct {
	Kind  ObjectKind
	Chars string
	Hash  uint32
	Next  *ObjString
}

// HashString computes the FNV-1a hash used both to place a string in the
// table and as the cached hash stored on the object itself.
func HashString(s string) uint32 {
	var hash uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		hash ^= uint32(s[i])
		hash *= 16777619
	}
	return hash
}

// NewObjString builds a fresh, un-interned string object. Callers that
// need the interning invariant go through an Interner instead of calling
// this directly.
func NewObjString(chars string) *ObjString {
	return &ObjString{Kind: OBJ_STRING, Chars: chars, Hash: HashString(chars)}
}

// Interner canonicalizes equal-content strings to a single heap object.
// The VM implements this; the compiler takes one so that string literals
// and identifier-name constants it emits share the same intern table the
// VM consults at runtime (spec §3: "any two string objects with equal
// byte content must be the same object").
type Interner interface {
	Intern(chars string) *ObjString
}
