// Package similarity computes pairwise entity similarity matrices.
package similarity

import (
	"context"

	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

// Strategy produces an n×n similarity matrix for the entities of a corpus,
// row i corresponding to corpus entity i.
type Strategy interface {
	Name() string
	Compute(ctx context.Context, c *corpus.Corpus) (*matrix.Symmetric, error)
}
