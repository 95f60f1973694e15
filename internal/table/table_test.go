package table

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"loxvm/internal/value"
)

func key(s string) *value.ObjString {
	return value.NewObjString(s)
}

func TestSetGetRoundTrip(t *testing.T) {
	tbl := New()
	keys := make([]*value.ObjString, 0, 20)
	for i := 0; i < 20; i++ {
		k := key(fmt.Sprintf("key-%d", i))
		keys = append(keys, k)
		isNew := tbl.Set(k, value.NewNumber(float64(i)))
		require.True(t, isNew)
	}

	for i, k := range keys {
		v, ok := tbl.Get(k)
		require.True(t, ok)
		require.Equal(t, float64(i), v.AsNumber)
	}
}

func TestDeleteRemovesKeyKeepsOthers(t *testing.T) {
	tbl := New()
	a, b, c := key("a"), key("b"), key("c")
	tbl.Set(a, value.NewNumber(1))
	tbl.Set(b, value.NewNumber(2))
	tbl.Set(c, value.NewNumber(3))

	require.True(t, tbl.Delete(b))

	_, ok := tbl.Get(b)
	require.False(t, ok)

	va, ok := tbl.Get(a)
	require.True(t, ok)
	require.Equal(t, float64(1), va.AsNumber)

	vc, ok := tbl.Get(c)
	require.True(t, ok)
	require.Equal(t, float64(3), vc.AsNumber)
}

func TestSetOverwriteIsNotNew(t *testing.T) {
	tbl := New()
	a := key("a")
	require.True(t, tbl.Set(a, value.NewNumber(1)))
	require.False(t, tbl.Set(a, value.NewNumber(2)))

	v, ok := tbl.Get(a)
	require.True(t, ok)
	require.Equal(t, float64(2), v.AsNumber)
}

func TestLoadFactorInvariant(t *testing.T) {
	tbl := New()
	for i := 0; i < 500; i++ {
		tbl.Set(key(fmt.Sprintf("k%d", i)), value.NewNumber(float64(i)))
		if tbl.Capacity() > 0 {
			require.LessOrEqual(t, float64(tbl.Count()), float64(tbl.Capacity())*0.75)
		}
	}
}

func TestCapacityIsZeroOrPowerOfTwoAtLeastEight(t *testing.T) {
	tbl := New()
	require.Equal(t, 0, tbl.Capacity())
	for i := 0; i < 100; i++ {
		tbl.Set(key(fmt.Sprintf("k%d", i)), value.NewNil())
		cap := tbl.Capacity()
		if cap == 0 {
			continue
		}
		require.GreaterOrEqual(t, cap, 8)
		require.Zero(t, cap&(cap-1), "capacity %d is not a power of two", cap)
	}
}

func TestFindStringComparesBytesNotIdentity(t *testing.T) {
	tbl := New()
	original := value.NewObjString("hello")
	tbl.Set(original, value.NewNil())

	hash := value.HashString("hello")
	found := tbl.FindString("hello", hash)
	require.Same(t, original, found)

	require.Nil(t, tbl.FindString("world", value.HashString("world")))
}

func TestAddAllCopiesLiveEntriesOnly(t *testing.T) {
	src := New()
	a, b := key("a"), key("b")
	src.Set(a, value.NewNumber(1))
	src.Set(b, value.NewNumber(2))
	src.Delete(b)

	dst := New()
	dst.AddAll(src)

	_, ok := dst.Get(a)
	require.True(t, ok)
	_, ok = dst.Get(b)
	require.False(t, ok)
}

func TestDeleteKeepsCountAndNewKeyInEmptySlotGrowsIt(t *testing.T) {
	tbl := New()
	a, b := key("a"), key("b")
	tbl.Set(a, value.NewNumber(1))
	countBeforeDelete := tbl.Count()
	tbl.Delete(a)
	require.Equal(t, countBeforeDelete, tbl.Count())

	tbl.Set(b, value.NewNumber(2))
	require.Equal(t, countBeforeDelete+1, tbl.Count())
}
