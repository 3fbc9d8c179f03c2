// Package result holds the packaged output of one analysis run.
package result

import (
	"fmt"

	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

// Dendrogram is the plottable merge tree: one ICoord/DCoord/Color entry per link,
// Leaves and Labels in left-to-right order.
type Dendrogram struct {
	Labels []string
	ICoord [][]float64
	DCoord [][]float64
	Colors []string
	Leaves []int
}

// Envelope is a reordered similarity matrix with its ids, dendrogram and id metadata.
type Envelope struct {
	matrix     *matrix.Symmetric
	ids        []string
	dendrogram Dendrogram
	attributes map[string]string
}

// New packages an already permuted matrix. The envelope takes ownership of m and ids.
func New(m *matrix.Symmetric, ids []string, d Dendrogram, attributes map[string]string) (Envelope, error) {
	if m == nil {
		return Envelope{}, fmt.Errorf("nil similarity matrix")
	}
	if len(ids) != m.Len() {
		return Envelope{}, fmt.Errorf("%d ids for a %d×%d matrix", len(ids), m.Len(), m.Len())
	}
	if len(d.Leaves) != len(ids) {
		return Envelope{}, fmt.Errorf("dendrogram has %d leaves, want %d", len(d.Leaves), len(ids))
	}
	if attributes == nil {
		attributes = map[string]string{}
	}
	return Envelope{matrix: m, ids: ids, dendrogram: d, attributes: attributes}, nil
}

// Matrix returns the reordered similarity matrix.
func (e *Envelope) Matrix() *matrix.Symmetric { return e.matrix }

// Z returns the matrix rows. They alias the matrix.
func (e *Envelope) Z() [][]float32 {
	if e.matrix == nil {
		return nil
	}
	return e.matrix.Rows()
}

// IDs returns the entity ids in heatmap order.
func (e *Envelope) IDs() []string { return e.ids }

// Dendrogram returns the merge tree geometry.
func (e *Envelope) Dendrogram() Dendrogram { return e.dendrogram }

// Attributes returns the id to attribute map.
func (e *Envelope) Attributes() map[string]string { return e.attributes }

// Len returns the number of entities.
func (e *Envelope) Len() int { return len(e.ids) }

// Reorder permutes m in place and returns ids rearranged the same way: ids'[i] = ids[order[i]].
func Reorder(m *matrix.Symmetric, ids []string, order []int) ([]string, error) {
	if len(ids) != m.Len() {
		return nil, fmt.Errorf("%d ids for a %d×%d matrix", len(ids), m.Len(), m.Len())
	}
	if err := m.Permute(order); err != nil {
		return nil, fmt.Errorf("permute matrix: %w", err)
	}
	out := make([]string, len(order))
	for i, src := range order {
		out[i] = ids[src]
	}
	return out, nil
}
