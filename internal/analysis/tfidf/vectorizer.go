// Package tfidf turns a list of documents into an L2-normalized TF-IDF matrix.
package tfidf

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
)

var tokenRe = regexp.MustCompile(`[\p{L}\p{N}_]+`)

// Options bounds the vocabulary.
type Options struct {
	// MaxFeatures keeps the most frequent terms across the corpus (0 = no limit).
	MaxFeatures int
	// MaxDF drops terms found in too many documents: a proportion when <= 1, a count otherwise.
	MaxDF float64
	// MinDF drops terms found in fewer documents than this.
	MinDF int
	// StopWords are removed after tokenization. nil keeps every token.
	StopWords map[string]struct{}
}

// DefaultOptions returns the memory-conscious defaults: 500 terms, max_df 0.7, min_df 2, English stop words.
func DefaultOptions() Options {
	return Options{
		MaxFeatures: 500,
		MaxDF:       0.7,
		MinDF:       2,
		StopWords:   EnglishStopWords,
	}
}

// Result is the fitted feature matrix and its column terms.
type Result struct {
	Matrix     *matrix.Sparse
	Vocabulary []string
}

// Vectorizer fits TF-IDF weights on a corpus and transforms it in one pass.
type Vectorizer struct {
	opts Options
}

// New creates a Vectorizer.
func New(opts Options) *Vectorizer {
	return &Vectorizer{opts: opts}
}

// Tokenize lowercases text and returns word tokens of at least two characters, stop words removed.
func (v *Vectorizer) Tokenize(text string) []string {
	raw := tokenRe.FindAllString(strings.ToLower(text), -1)
	out := raw[:0]
	for _, tok := range raw {
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		if _, stop := v.opts.StopWords[tok]; stop {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// FitTransform builds the vocabulary from docs and returns one normalized row per doc.
// Fails with domain.ErrVectorization when no term survives the bounds.
func (v *Vectorizer) FitTransform(docs []string) (*Result, error) {
	n := len(docs)
	counts := make([]map[string]int, n)
	df := make(map[string]int)
	total := make(map[string]int)

	for i, doc := range docs {
		c := make(map[string]int)
		for _, tok := range v.Tokenize(doc) {
			c[tok]++
		}
		for term, k := range c {
			df[term]++
			total[term] += k
		}
		counts[i] = c
	}

	if len(df) == 0 {
		return nil, fmt.Errorf("%w: empty vocabulary; documents contain only stop words or no words", domain.ErrVectorization)
	}

	vocab, err := v.prune(df, total, n)
	if err != nil {
		return nil, err
	}

	col := make(map[string]int, len(vocab))
	idf := make([]float64, len(vocab))
	for j, term := range vocab {
		col[term] = j
		idf[j] = math.Log(float64(1+n)/float64(1+df[term])) + 1
	}

	b := matrix.NewSparseBuilder(len(vocab))
	for i, c := range counts {
		cols := make([]int, 0, len(c))
		for term := range c {
			if j, ok := col[term]; ok {
				cols = append(cols, j)
			}
		}
		sort.Ints(cols)

		weights := make([]float64, len(cols))
		var norm float64
		for k, j := range cols {
			w := float64(c[vocab[j]]) * idf[j]
			weights[k] = w
			norm += w * w
		}
		norm = math.Sqrt(norm)

		vals := make([]float32, len(cols))
		for k, w := range weights {
			if norm > 0 {
				w /= norm
			}
			vals[k] = float32(w)
		}
		if err := b.AddRow(cols, vals); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrVectorization, err)
		}
		counts[i] = nil
	}

	return &Result{Matrix: b.Build(), Vocabulary: vocab}, nil
}

// prune applies the document-frequency bounds and the feature cap. The returned terms are sorted.
func (v *Vectorizer) prune(df, total map[string]int, n int) ([]string, error) {
	maxDocs := v.opts.MaxDF
	if maxDocs <= 0 {
		maxDocs = 1
	}
	if maxDocs <= 1 {
		maxDocs *= float64(n)
	}
	minDocs := v.opts.MinDF
	if minDocs < 1 {
		minDocs = 1
	}
	if maxDocs < float64(minDocs) {
		return nil, fmt.Errorf("%w: max_df corresponds to %.1f documents, fewer than min_df %d (%d documents)",
			domain.ErrVectorization, maxDocs, minDocs, n)
	}

	kept := make([]string, 0, len(df))
	for term, d := range df {
		if d >= minDocs && float64(d) <= maxDocs {
			kept = append(kept, term)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %w", domain.ErrVectorization, errNoTermsRemain)
	}

	if v.opts.MaxFeatures > 0 && len(kept) > v.opts.MaxFeatures {
		sort.Slice(kept, func(i, j int) bool {
			if total[kept[i]] != total[kept[j]] {
				return total[kept[i]] > total[kept[j]]
			}
			return kept[i] < kept[j]
		})
		kept = kept[:v.opts.MaxFeatures]
	}

	sort.Strings(kept)
	return kept, nil
}

var errNoTermsRemain = errors.New("no terms remain after pruning; lower min_df or raise max_df")
