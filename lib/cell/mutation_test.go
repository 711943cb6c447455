package cell

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMutationOrdering(t *testing.T) {
	m := NewMutation("test", []byte("row")).
		Add([]byte("b"), []byte("x"), 1, []byte("1")).
		Add([]byte("a"), []byte("x"), 2, []byte("2")).
		Add([]byte("b"), []byte(""), 3, []byte("3")).
		Add([]byte("b"), []byte("x"), 4, []byte("4"))

	require.Equal(t, 4, m.Len())
	assert.Equal(t, [][]byte{[]byte("b"), []byte("a")}, m.Families())

	fam := m.Family([]byte("b"))
	require.Len(t, fam, 3)
	assert.Equal(t, int64(1), fam[0].Timestamp)
	assert.Equal(t, int64(3), fam[1].Timestamp)
	assert.Equal(t, int64(4), fam[2].Timestamp)

	got := m.Get([]byte("b"), []byte("x"))
	require.Len(t, got, 2)
	assert.Equal(t, []byte("1"), got[0].Value)
	assert.Equal(t, []byte("4"), got[1].Value)

	assert.Nil(t, m.Family([]byte("c")))
	assert.Empty(t, m.Get([]byte("a"), []byte("y")))

	for _, c := range m.Cells() {
		assert.Equal(t, []byte("row"), c.Row)
	}
}

func TestMutationCopiesInput(t *testing.T) {
	value := []byte("value")
	m := NewMutation("test", []byte("row")).Add([]byte("a"), []byte("q"), 1, value)
	value[0] = 'X'
	assert.Equal(t, []byte("value"), m.Cells()[0].Value)
}

func TestMutationStamp(t *testing.T) {
	m := NewMutation("test", []byte("row")).
		AddLatest([]byte("a"), []byte("q"), []byte("1")).
		Add([]byte("a"), []byte("r"), 7, []byte("2"))

	stamped := m.Stamp(100)
	cells := stamped.Cells()
	require.Len(t, cells, 2)
	assert.Equal(t, int64(100), cells[0].Timestamp)
	assert.Equal(t, int64(7), cells[1].Timestamp)

	// the original is untouched
	assert.Equal(t, LatestTimestamp, m.Cells()[0].Timestamp)
}

func TestEmptyMutation(t *testing.T) {
	m := NewMutation("test", []byte("row"))
	assert.True(t, m.IsEmpty())
	assert.Empty(t, m.Cells())
	assert.Empty(t, m.Families())
}

func TestIntHelpers(t *testing.T) {
	for _, v := range []int32{0, 1, -1, 15, 1 << 30, -1 << 31} {
		got, err := ToInt32(Int32(v))
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
	assert.Equal(t, []byte{0, 0, 0, 15}, Int32(15))

	_, err := ToInt32([]byte{1, 2, 3})
	assert.Error(t, err)

	got, err := ToInt64(Int64(-5))
	require.NoError(t, err)
	assert.Equal(t, int64(-5), got)

	_, err = ToInt64(Int32(5))
	assert.Error(t, err)
}
