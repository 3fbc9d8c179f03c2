package similarity

import (
	"context"

	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

// CoOccurrence scores card pairs by how often participants put them in the same group,
// scaled by the most frequent pair into [0,1]. The diagonal stays 0.
type CoOccurrence struct {
	groups [][]string
}

// NewCoOccurrence creates the card-sort strategy from participant placements.
func NewCoOccurrence(placements []cardsort.Placement) *CoOccurrence {
	return &CoOccurrence{groups: cardsort.Groups(placements)}
}

// Name implements Strategy.
func (c *CoOccurrence) Name() string { return "cooccurrence" }

// Compute counts pairwise co-occurrence for the corpus entities. Cards outside the corpus are ignored.
func (c *CoOccurrence) Compute(ctx context.Context, cp *corpus.Corpus) (*matrix.Symmetric, error) {
	index := make(map[string]int, cp.Len())
	for i, id := range cp.IDs() {
		index[id] = i
	}

	n := cp.Len()
	counts := make([]int, n*n)
	maxCount := 0
	for g, cards := range c.groups {
		if g%256 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err //nolint:wrapcheck // context errors pass through unchanged
			}
		}
		for a := 0; a < len(cards); a++ {
			i, ok := index[cards[a]]
			if !ok {
				continue
			}
			for b := a + 1; b < len(cards); b++ {
				j, ok := index[cards[b]]
				if !ok || i == j {
					continue
				}
				counts[i*n+j]++
				counts[j*n+i]++
				if counts[i*n+j] > maxCount {
					maxCount = counts[i*n+j]
				}
			}
		}
	}

	out := matrix.NewSymmetric(n)
	if maxCount == 0 {
		return out, nil
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			out.Set(i, j, float32(counts[i*n+j])/float32(maxCount))
		}
	}
	return out, nil
}
