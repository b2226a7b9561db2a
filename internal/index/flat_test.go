package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlatL2_Search(t *testing.T) {
	f := NewFlatL2(2)
	require.NoError(t, f.Add([][]float32{{1, 1}, {0, 0}, {1, 1}}))
	assert.Equal(t, 3, f.Len())

	got := f.Search([]float32{1, 1}, 2)
	assert.Equal(t, []Neighbor{{Position: 0, Distance: 0}, {Position: 2, Distance: 0}}, got)

	assert.Nil(t, f.Search([]float32{1, 1}, 0))
	assert.Nil(t, f.Search([]float32{1}, 1))
	assert.Len(t, f.Search([]float32{0, 0}, 99), 3)
}

func TestFlatL2_AddRejectsWrongWidth(t *testing.T) {
	f := NewFlatL2(3)
	err := f.Add([][]float32{{1, 2, 3}, {1, 2}})
	require.Error(t, err)
	assert.Equal(t, 0, f.Len())
}

func TestFlatL2_BinaryRoundTrip(t *testing.T) {
	f := NewFlatL2(3)
	require.NoError(t, f.Add([][]float32{{0.5, -1.25, 3}, {7, 8, 9}}))

	data, err := f.MarshalBinary()
	require.NoError(t, err)

	var g FlatL2
	require.NoError(t, g.UnmarshalBinary(data))
	assert.Equal(t, 3, g.Dimension())
	assert.Equal(t, f.Search([]float32{1, 1, 1}, 2), g.Search([]float32{1, 1, 1}, 2))
}

func TestFlatL2_UnmarshalRejectsTruncatedData(t *testing.T) {
	f := NewFlatL2(2)
	require.NoError(t, f.Add([][]float32{{1, 2}}))
	data, err := f.MarshalBinary()
	require.NoError(t, err)

	var g FlatL2
	assert.Error(t, g.UnmarshalBinary(data[:len(data)-1]))
	assert.Error(t, g.UnmarshalBinary([]byte{1, 2}))
}

func TestFlatL2_Truncate(t *testing.T) {
	f := NewFlatL2(2)
	require.NoError(t, f.Add([][]float32{{0, 0}, {1, 1}, {2, 2}}))

	f.Truncate(1)
	assert.Equal(t, 1, f.Len())

	f.Truncate(5)
	assert.Equal(t, 1, f.Len())

	require.NoError(t, f.Add([][]float32{{3, 3}}))
	hits := f.Search([]float32{3, 3}, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, 1, hits[0].Position)
}
