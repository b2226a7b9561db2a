package index

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sort"
)

// Neighbor is a single nearest-neighbour hit: the insertion position of the
// vector and its squared L2 distance to the query.
type Neighbor struct {
	Position int
	Distance float64
}

// Searcher is the nearest-neighbour structure behind a VectorIndex. Positions
// are assigned in insertion order starting at 0.
type Searcher interface {
	Dimension() int
	Len() int
	Add(vectors [][]float32) error
	// Truncate drops every vector at position n and beyond.
	Truncate(n int)
	Search(query []float32, k int) []Neighbor
	MarshalBinary() ([]byte, error)
	UnmarshalBinary(data []byte) error
}

// FlatL2 is an exhaustive squared-L2 searcher over a contiguous float32 slab.
type FlatL2 struct {
	dim  int
	data []float32
}

// NewFlatL2 creates an empty flat searcher for vectors of width dim.
func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

func (f *FlatL2) Dimension() int { return f.dim }

func (f *FlatL2) Len() int {
	if f.dim == 0 {
		return 0
	}
	return len(f.data) / f.dim
}

// Add appends vectors; every vector must have the searcher's width.
func (f *FlatL2) Add(vectors [][]float32) error {
	for i, v := range vectors {
		if len(v) != f.dim {
			return fmt.Errorf("vector %d has width %d, want %d", i, len(v), f.dim)
		}
	}
	for _, v := range vectors {
		f.data = append(f.data, v...)
	}
	return nil
}

func (f *FlatL2) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < f.Len() {
		f.data = f.data[:n*f.dim]
	}
}

// Search returns up to k neighbours ordered by ascending distance. Ties keep
// insertion order.
func (f *FlatL2) Search(query []float32, k int) []Neighbor {
	n := f.Len()
	if k <= 0 || n == 0 || len(query) != f.dim {
		return nil
	}
	if k > n {
		k = n
	}

	all := make([]Neighbor, n)
	for i := 0; i < n; i++ {
		row := f.data[i*f.dim : (i+1)*f.dim]
		var sum float64
		for j, q := range query {
			d := float64(q) - float64(row[j])
			sum += d * d
		}
		all[i] = Neighbor{Position: i, Distance: sum}
	}
	sort.SliceStable(all, func(a, b int) bool {
		return all[a].Distance < all[b].Distance
	})
	return all[:k]
}

// MarshalBinary encodes the searcher as a little-endian header (width,
// count) followed by the raw float32 bits.
func (f *FlatL2) MarshalBinary() ([]byte, error) {
	n := f.Len()
	buf := make([]byte, 8+4*len(f.data))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(f.dim))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(n))
	for i, v := range f.data {
		binary.LittleEndian.PutUint32(buf[8+4*i:], math.Float32bits(v))
	}
	return buf, nil
}

// UnmarshalBinary replaces the searcher's contents with data produced by
// MarshalBinary.
func (f *FlatL2) UnmarshalBinary(data []byte) error {
	if len(data) < 8 {
		return errors.New("flat index data too short")
	}
	dim := int(binary.LittleEndian.Uint32(data[0:4]))
	n := int(binary.LittleEndian.Uint32(data[4:8]))
	if dim <= 0 {
		return fmt.Errorf("invalid flat index width %d", dim)
	}
	if len(data)-8 != 4*dim*n {
		return fmt.Errorf("flat index data has %d bytes, want %d", len(data)-8, 4*dim*n)
	}

	vals := make([]float32, dim*n)
	for i := range vals {
		vals[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[8+4*i:]))
	}
	f.dim = dim
	f.data = vals
	return nil
}
