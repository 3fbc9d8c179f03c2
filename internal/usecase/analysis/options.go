package analysis

import (
	"fmt"

	"github.com/kailas-cloud/dendrex/internal/analysis/hierarchy"
	"github.com/kailas-cloud/dendrex/internal/analysis/tfidf"
	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/record"
)

// Mode names the kind of run in logs and metrics.
type Mode string

// Run modes.
const (
	ModeText       Mode = "text"
	ModePreprocess Mode = "preprocess"
	ModeCorpus     Mode = "corpus"
	ModeCardSort   Mode = "cardsort"
)

// Options tunes the text pipeline and the card-sort variant.
type Options struct {
	// MaxEntities caps distinct ids kept in first-seen order (0 = no cap).
	MaxEntities int
	Schema      record.Schema
	Vectorizer  tfidf.Options
	Linkage     hierarchy.Method
	// ColorThreshold for dendrogram links; <= 0 selects 0.7 of the largest merge distance.
	ColorThreshold float64
	// ReclaimBetweenStages returns freed stage memory to the OS before the next stage starts.
	ReclaimBetweenStages bool
	CardSort             CardSortOptions
}

// CardSortOptions tunes co-occurrence clustering of card sorts.
type CardSortOptions struct {
	Schema         cardsort.Schema
	Linkage        hierarchy.Method
	MaxCards       int
	ColorThreshold float64
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		MaxEntities:          corpus.DefaultMaxEntities,
		Schema:               record.DefaultSchema(),
		Vectorizer:           tfidf.DefaultOptions(),
		Linkage:              hierarchy.Ward,
		ReclaimBetweenStages: true,
		CardSort: CardSortOptions{
			Schema:  cardsort.DefaultSchema(),
			Linkage: hierarchy.Average,
		},
	}
}

// Validate checks option consistency.
func (o Options) Validate() error {
	if o.MaxEntities < 0 {
		return fmt.Errorf("max entities must be >= 0, got %d", o.MaxEntities)
	}
	if o.Schema.ID == "" || o.Schema.Attribute == "" || o.Schema.Text == "" {
		return fmt.Errorf("id, attribute and text columns are required")
	}
	if _, err := hierarchy.ParseMethod(string(o.Linkage)); err != nil {
		return fmt.Errorf("text linkage: %w", err)
	}
	if _, err := hierarchy.ParseMethod(string(o.CardSort.Linkage)); err != nil {
		return fmt.Errorf("card sort linkage: %w", err)
	}
	if o.CardSort.MaxCards < 0 {
		return fmt.Errorf("max cards must be >= 0, got %d", o.CardSort.MaxCards)
	}
	if o.Vectorizer.MinDF < 0 || o.Vectorizer.MaxFeatures < 0 {
		return fmt.Errorf("vectorizer bounds must be >= 0")
	}
	return nil
}
