package dendrex

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/dendrex/internal/analysis/hierarchy"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

type clientConfig struct {
	analysis analysisuc.Options

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultClientConfig() *clientConfig {
	opts := analysisuc.DefaultOptions()
	// The caller owns the process; leave GC tuning to it.
	opts.ReclaimBetweenStages = false
	return &clientConfig{analysis: opts}
}

// WithMaxEntities caps the distinct ids kept, in first-seen order.
// Default: 100. Zero disables the cap.
func WithMaxEntities(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.MaxEntities = n
	})
}

// WithColumns names the id, attribute and text columns of input rows.
// Defaults: id, url, description.
func WithColumns(id, attribute, text string) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.Schema.ID = id
		c.analysis.Schema.Attribute = attribute
		c.analysis.Schema.Text = text
	})
}

// WithLinkage sets the linkage for text analysis. Default: ward.
func WithLinkage(l Linkage) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.Linkage = hierarchy.Method(l)
	})
}

// WithVectorizer bounds the TF-IDF vocabulary.
// Defaults: 500 features, min_df 2, max_df 0.7.
func WithVectorizer(maxFeatures, minDF int, maxDF float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.Vectorizer.MaxFeatures = maxFeatures
		c.analysis.Vectorizer.MinDF = minDF
		c.analysis.Vectorizer.MaxDF = maxDF
	})
}

// WithoutStopWords keeps English stop words in the vocabulary.
func WithoutStopWords() Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.Vectorizer.StopWords = nil
	})
}

// WithColorThreshold sets the dendrogram color threshold for both modes.
// Zero selects 0.7 of the largest merge distance.
func WithColorThreshold(t float64) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.ColorThreshold = t
		c.analysis.CardSort.ColorThreshold = t
	})
}

// WithCardSortLinkage sets the linkage for card sorts. Default: average.
func WithCardSortLinkage(l Linkage) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.CardSort.Linkage = hierarchy.Method(l)
	})
}

// WithMaxCards caps the distinct cards kept in a card sort. Default: unlimited.
func WithMaxCards(n int) Option {
	return optionFunc(func(c *clientConfig) {
		c.analysis.CardSort.MaxCards = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
