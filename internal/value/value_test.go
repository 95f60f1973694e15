package value

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTruthiness(t *testing.T) {
	require.True(t, NewNil().IsFalsey())
	require.True(t, NewBool(false).IsFalsey())
	require.False(t, NewBool(true).IsFalsey())
	require.False(t, NewNumber(0).IsFalsey())
	require.False(t, NewObj(NewObjString("")).IsFalsey())
}

func TestEqualityRequiresSameVariant(t *testing.T) {
	require.True(t, Equal(NewNil(), NewNil()))
	require.False(t, Equal(NewNil(), NewBool(false)))
	require.True(t, Equal(NewNumber(1), NewNumber(1)))
	require.False(t, Equal(NewNumber(1), NewNumber(2)))
	require.True(t, Equal(NewBool(true), NewBool(true)))
}

func TestStringEqualityIsByObjectIdentity(t *testing.T) {
	a := NewObjString("hi")
	b := NewObjString("hi")
	require.False(t, Equal(NewObj(a), NewObj(b)), "distinct objects with equal content must not compare equal without interning")
	require.True(t, Equal(NewObj(a), NewObj(a)))
}

func TestNumberStringFormatting(t *testing.T) {
	require.Equal(t, "3", NewNumber(3).String())
	require.Equal(t, "3.14", NewNumber(3.14).String())
}

func TestHashStringIsDeterministic(t *testing.T) {
	require.Equal(t, HashString("abc"), HashString("abc"))
	require.NotEqual(t, HashString("abc"), HashString("abd"))
}
