// Package hierarchy builds agglomerative merge trees and dendrogram geometry.
package hierarchy

import (
	"fmt"
	"math"

	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

// Method selects how the input matrix is read and how merged distances are updated.
type Method string

const (
	// Ward treats each similarity row as an observation vector and merges by minimum variance increase.
	// The similarity values act as coordinates, not as distances; this ordering-only use is intentional.
	Ward Method = "ward"
	// Average reads 1-similarity as a distance and merges by mean pairwise distance.
	Average Method = "average"
)

// ParseMethod validates a method name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case Ward, Average:
		return m, nil
	default:
		return "", fmt.Errorf("unknown linkage method %q (want ward or average)", s)
	}
}

// Merge joins clusters Left and Right (Left < Right) at Distance into a cluster of Size leaves.
// Leaves are 0..n-1; merge i creates cluster n+i.
type Merge struct {
	Left     int
	Right    int
	Distance float64
	Size     int
}

// Tree is a binary merge tree over n leaves.
type Tree struct {
	leaves int
	merges []Merge
}

// Leaves returns the number of leaves.
func (t *Tree) Leaves() int { return t.leaves }

// Merges returns the n-1 merges in creation order.
func (t *Tree) Merges() []Merge { return t.merges }

// MaxDistance returns the largest merge distance, 0 for a single leaf.
func (t *Tree) MaxDistance() float64 {
	var m float64
	for _, mg := range t.merges {
		m = math.Max(m, mg.Distance)
	}
	return m
}

// Order returns the leaves left to right (depth-first, left child first).
func (t *Tree) Order() []int {
	if t.leaves == 0 {
		return nil
	}
	order := make([]int, 0, t.leaves)
	stack := []int{t.leaves + len(t.merges) - 1}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id < t.leaves {
			order = append(order, id)
			continue
		}
		m := t.merges[id-t.leaves]
		stack = append(stack, m.Right, m.Left)
	}
	return order
}

// Cluster computes the merge tree for a similarity matrix.
// Among equally close pairs, the one with the lowest cluster ids wins.
func Cluster(sim *matrix.Symmetric, method Method) (*Tree, error) {
	n := sim.Len()
	if n == 0 {
		return nil, domain.ErrEmptyCorpus
	}
	if !sim.Finite() {
		return nil, fmt.Errorf("%w: similarity matrix has non-finite values", domain.ErrClustering)
	}
	if n == 1 {
		return &Tree{leaves: 1}, nil
	}

	var dist [][]float64
	switch method {
	case Ward:
		dist = euclideanRows(sim)
	case Average:
		dist = complementDistance(sim)
	default:
		return nil, fmt.Errorf("%w: unknown linkage method %q", domain.ErrClustering, method)
	}

	// active lists matrix slots ordered by the cluster id they hold.
	active := make([]int, n)
	ids := make([]int, n)
	sizes := make([]int, n)
	for i := range active {
		active[i] = i
		ids[i] = i
		sizes[i] = 1
	}

	merges := make([]Merge, 0, n-1)
	for step := 0; step < n-1; step++ {
		pa, pb := 0, 1
		best := math.Inf(1)
		for p := 0; p < len(active); p++ {
			row := dist[active[p]]
			for q := p + 1; q < len(active); q++ {
				if d := row[active[q]]; d < best {
					best, pa, pb = d, p, q
				}
			}
		}
		if math.IsInf(best, 0) || math.IsNaN(best) {
			return nil, fmt.Errorf("%w: no finite merge distance at step %d", domain.ErrClustering, step)
		}

		a, b := active[pa], active[pb]
		na, nb := sizes[a], sizes[b]
		merges = append(merges, Merge{Left: ids[a], Right: ids[b], Distance: best, Size: na + nb})

		// Slot a now holds the merged cluster; slot b is retired.
		for _, k := range active {
			if k == a || k == b {
				continue
			}
			nk := sizes[k]
			var d float64
			switch method {
			case Ward:
				num := float64(nk+na)*dist[k][a]*dist[k][a] +
					float64(nk+nb)*dist[k][b]*dist[k][b] -
					float64(nk)*best*best
				d = math.Sqrt(math.Max(0, num/float64(nk+na+nb)))
			case Average:
				d = (float64(na)*dist[k][a] + float64(nb)*dist[k][b]) / float64(na+nb)
			}
			dist[k][a], dist[a][k] = d, d
		}
		sizes[a] = na + nb
		ids[a] = n + step

		next := make([]int, 0, len(active)-1)
		for _, k := range active {
			if k != a && k != b {
				next = append(next, k)
			}
		}
		active = append(next, a)
	}

	return &Tree{leaves: n, merges: merges}, nil
}

// euclideanRows returns pairwise Euclidean distances between the rows of sim.
func euclideanRows(sim *matrix.Symmetric) [][]float64 {
	n := sim.Len()
	d := newSquare(n)
	for i := 0; i < n; i++ {
		ri := sim.Row(i)
		for j := i + 1; j < n; j++ {
			rj := sim.Row(j)
			var s float64
			for k := range ri {
				diff := float64(ri[k]) - float64(rj[k])
				s += diff * diff
			}
			d[i][j] = math.Sqrt(s)
			d[j][i] = d[i][j]
		}
	}
	return d
}

// complementDistance returns 1-s off the diagonal and 0 on it.
func complementDistance(sim *matrix.Symmetric) [][]float64 {
	n := sim.Len()
	d := newSquare(n)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d[i][j] = 1 - float64(sim.At(i, j))
			d[j][i] = d[i][j]
		}
	}
	return d
}

func newSquare(n int) [][]float64 {
	backing := make([]float64, n*n)
	rows := make([][]float64, n)
	for i := range rows {
		rows[i] = backing[i*n : (i+1)*n]
	}
	return rows
}
