// Package matrix holds the float32 feature and similarity matrices used by the pipeline.
package matrix

import (
	"fmt"
	"math"
)

// Sparse is a row-major CSR matrix of float32 values.
// Row i spans Indices/Values[Indptr[i]:Indptr[i+1]] with column indices ascending.
type Sparse struct {
	rows    int
	cols    int
	indptr  []int
	indices []int
	values  []float32
}

// SparseBuilder appends rows to a Sparse matrix one at a time.
type SparseBuilder struct {
	m *Sparse
}

// NewSparseBuilder starts a matrix with the given number of columns.
func NewSparseBuilder(cols int) *SparseBuilder {
	return &SparseBuilder{m: &Sparse{cols: cols, indptr: []int{0}}}
}

// AddRow appends a row. cols must be ascending and within bounds.
func (b *SparseBuilder) AddRow(cols []int, vals []float32) error {
	if len(cols) != len(vals) {
		return fmt.Errorf("row %d: %d columns for %d values", b.m.rows, len(cols), len(vals))
	}
	prev := -1
	for _, c := range cols {
		if c <= prev || c >= b.m.cols {
			return fmt.Errorf("row %d: column %d out of order or range", b.m.rows, c)
		}
		prev = c
	}
	b.m.indices = append(b.m.indices, cols...)
	b.m.values = append(b.m.values, vals...)
	b.m.indptr = append(b.m.indptr, len(b.m.indices))
	b.m.rows++
	return nil
}

// Build returns the finished matrix. The builder must not be reused.
func (b *SparseBuilder) Build() *Sparse {
	m := b.m
	b.m = nil
	return m
}

// Rows returns the row count.
func (m *Sparse) Rows() int { return m.rows }

// Cols returns the column count.
func (m *Sparse) Cols() int { return m.cols }

// NNZ returns the number of stored values.
func (m *Sparse) NNZ() int { return len(m.values) }

// Row returns the column indices and values of row i. The slices alias the matrix.
func (m *Sparse) Row(i int) ([]int, []float32) {
	lo, hi := m.indptr[i], m.indptr[i+1]
	return m.indices[lo:hi], m.values[lo:hi]
}

// RowNorm returns the L2 norm of row i.
func (m *Sparse) RowNorm(i int) float64 {
	_, vals := m.Row(i)
	var s float64
	for _, v := range vals {
		s += float64(v) * float64(v)
	}
	return math.Sqrt(s)
}

// Dot returns the inner product of rows i and j via a merge-join on sorted columns.
func (m *Sparse) Dot(i, j int) float64 {
	ci, vi := m.Row(i)
	cj, vj := m.Row(j)
	var dot float64
	a, b := 0, 0
	for a < len(ci) && b < len(cj) {
		switch {
		case ci[a] == cj[b]:
			dot += float64(vi[a]) * float64(vj[b])
			a++
			b++
		case ci[a] < cj[b]:
			a++
		default:
			b++
		}
	}
	return dot
}
