package matrix

import (
	"fmt"
	"math"
)

// Symmetric is a dense square float32 matrix stored as one slice per row.
type Symmetric struct {
	rows [][]float32
}

// NewSymmetric allocates an n×n zero matrix.
func NewSymmetric(n int) *Symmetric {
	backing := make([]float32, n*n)
	rows := make([][]float32, n)
	for i := range rows {
		rows[i] = backing[i*n : (i+1)*n : (i+1)*n]
	}
	return &Symmetric{rows: rows}
}

// FromRows wraps existing rows. Every row must have len(rows) entries.
func FromRows(rows [][]float32) (*Symmetric, error) {
	for i, r := range rows {
		if len(r) != len(rows) {
			return nil, fmt.Errorf("row %d has %d columns, want %d", i, len(r), len(rows))
		}
	}
	return &Symmetric{rows: rows}, nil
}

// Len returns the dimension n.
func (m *Symmetric) Len() int { return len(m.rows) }

// At returns m[i][j].
func (m *Symmetric) At(i, j int) float32 { return m.rows[i][j] }

// Set assigns m[i][j] and m[j][i].
func (m *Symmetric) Set(i, j int, v float32) {
	m.rows[i][j] = v
	m.rows[j][i] = v
}

// Row returns row i. The slice aliases the matrix.
func (m *Symmetric) Row(i int) []float32 { return m.rows[i] }

// Rows returns the row slices. They alias the matrix.
func (m *Symmetric) Rows() [][]float32 { return m.rows }

// Clone returns a deep copy.
func (m *Symmetric) Clone() *Symmetric {
	c := NewSymmetric(m.Len())
	for i, r := range m.rows {
		copy(c.rows[i], r)
	}
	return c
}

// Finite reports whether every entry is a finite number.
func (m *Symmetric) Finite() bool {
	for _, r := range m.rows {
		for _, v := range r {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}

// Permute reorders rows and columns in place so that m'[i][j] = m[order[i]][order[j]].
// Rows are moved by header only; columns go through a single scratch row,
// so no second n×n buffer is ever held.
func (m *Symmetric) Permute(order []int) error {
	if err := ValidatePermutation(order, m.Len()); err != nil {
		return err
	}

	permuted := make([][]float32, len(order))
	for i, src := range order {
		permuted[i] = m.rows[src]
	}
	m.rows = permuted

	scratch := make([]float32, len(order))
	for _, row := range m.rows {
		for j, src := range order {
			scratch[j] = row[src]
		}
		copy(row, scratch)
	}
	return nil
}

// ValidatePermutation checks that order holds every index in [0, n) exactly once.
func ValidatePermutation(order []int, n int) error {
	if len(order) != n {
		return fmt.Errorf("permutation has %d entries, want %d", len(order), n)
	}
	seen := make([]bool, n)
	for _, idx := range order {
		if idx < 0 || idx >= n {
			return fmt.Errorf("permutation index %d out of range [0,%d)", idx, n)
		}
		if seen[idx] {
			return fmt.Errorf("permutation index %d repeated", idx)
		}
		seen[idx] = true
	}
	return nil
}
