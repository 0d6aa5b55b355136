package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToScalar_Numbers(t *testing.T) {
	v, ok := toScalar(42)
	require.True(t, ok)
	assert.Equal(t, 42.0, v)

	v, ok = toScalar(int64(7))
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = toScalar(3.5)
	require.True(t, ok)
	assert.Equal(t, 3.5, v)

	v, ok = toScalar("250")
	require.True(t, ok)
	assert.Equal(t, 250.0, v)
}

func TestToScalar_Timestamps(t *testing.T) {
	day, ok := toScalar("2024-03-01")
	require.True(t, ok)
	later, ok := toScalar("2024-03-02 12:00:00")
	require.True(t, ok)
	assert.Less(t, day, later)

	ts := time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC)
	native, ok := toScalar(ts)
	require.True(t, ok)
	assert.Equal(t, later, native)

	rfc, ok := toScalar("2024-03-02T12:00:00Z")
	require.True(t, ok)
	assert.Equal(t, later, rfc)
}

func TestToScalar_StringsPreserveOrder(t *testing.T) {
	apple, ok := toScalar("apple")
	require.True(t, ok)
	banana, ok := toScalar("banana")
	require.True(t, ok)
	assert.Less(t, apple, banana)

	// Only the leading bytes matter; order among shared prefixes still
	// holds within the first eight.
	aa, _ := toScalar("aardvark")
	ab, _ := toScalar("abacus")
	assert.Less(t, aa, ab)
}

func TestToScalar_Unordered(t *testing.T) {
	_, ok := toScalar(nil)
	assert.False(t, ok)

	_, ok = toScalar([]int{1})
	assert.False(t, ok)
}

func TestStringToScalar_Range(t *testing.T) {
	v := stringToScalar("Q")
	assert.Greater(t, v, 0.0)
	assert.Less(t, v, 1.0)
	assert.Equal(t, 0.0, stringToScalar(""))
}
