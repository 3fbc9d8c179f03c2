package similarity

import (
	"context"
	"fmt"
	"math"

	"github.com/kailas-cloud/dendrex/internal/analysis/tfidf"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

// Text scores entity documents by TF-IDF cosine similarity.
type Text struct {
	vectorizer *tfidf.Vectorizer
}

// NewText creates the text strategy.
func NewText(opts tfidf.Options) *Text {
	return &Text{vectorizer: tfidf.New(opts)}
}

// Name implements Strategy.
func (t *Text) Name() string { return "text" }

// Compute vectorizes the corpus documents and returns their cosine similarity.
// A single entity skips fitting: document-frequency bounds are undefined for one document,
// so its self-similarity is 1 when it has any token and 0 otherwise.
func (t *Text) Compute(ctx context.Context, c *corpus.Corpus) (*matrix.Symmetric, error) {
	if c.Len() == 1 {
		out := matrix.NewSymmetric(1)
		if len(t.vectorizer.Tokenize(c.Documents()[0])) > 0 {
			out.Set(0, 0, 1)
		}
		return out, nil
	}

	res, err := t.vectorizer.FitTransform(c.Documents())
	if err != nil {
		return nil, fmt.Errorf("vectorize %d documents: %w", c.Len(), err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err //nolint:wrapcheck // context errors pass through unchanged
	}
	return Cosine(res.Matrix), nil
}

// Cosine returns the pairwise cosine similarity of the rows of m.
// Zero-norm rows score 0 against every row, themselves included.
func Cosine(m *matrix.Sparse) *matrix.Symmetric {
	n := m.Rows()
	norms := make([]float64, n)
	for i := range norms {
		norms[i] = m.RowNorm(i)
	}

	out := matrix.NewSymmetric(n)
	for i := 0; i < n; i++ {
		if norms[i] == 0 {
			continue
		}
		for j := i; j < n; j++ {
			if norms[j] == 0 {
				continue
			}
			s := m.Dot(i, j) / (norms[i] * norms[j])
			out.Set(i, j, float32(clamp(s)))
		}
	}
	return out
}

func clamp(s float64) float64 {
	return math.Max(-1, math.Min(1, s))
}
