package dendrex

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/result"
	analysisuc "github.com/kailas-cloud/dendrex/internal/usecase/analysis"
	healthuc "github.com/kailas-cloud/dendrex/internal/usecase/health"
)

// Internal interface for substitution in tests.
type analysisUseCase interface {
	Analyze(ctx context.Context, rows []map[string]any) (result.Envelope, error)
	Preprocess(ctx context.Context, rows []map[string]any) (*corpus.Corpus, error)
	AnalyzeCorpus(ctx context.Context, c *corpus.Corpus) (result.Envelope, error)
	AnalyzeCardSort(ctx context.Context, rows []map[string]any) (result.Envelope, error)
	AnalyzePlacements(ctx context.Context, placements []cardsort.Placement) (result.Envelope, error)
}

// Client is the dendrex SDK entry point. It is safe for concurrent use.
type Client struct {
	analysis    analysisUseCase
	healthSvc   healthUseCase
	maxEntities int
	obs         *observer
}

// New creates a Client running the pipeline in-process.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if err := cfg.analysis.Validate(); err != nil {
		return nil, fmt.Errorf("dendrex: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	svc := analysisuc.New(cfg.analysis, nil, zap.NewNop())
	return &Client{
		analysis:    svc,
		healthSvc:   healthuc.New(svc, nil),
		maxEntities: cfg.analysis.MaxEntities,
		obs:         obs,
	}, nil
}

// Analyze clusters text rows keyed by column name.
func (c *Client) Analyze(ctx context.Context, rows []map[string]any) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze", start, len(res.IDs), err) }()

	env, err := c.analysis.Analyze(ctx, rows)
	if err != nil {
		return Result{}, fmt.Errorf("analyze: %w", err)
	}
	return toResult(env), nil
}

// Preprocess parses and aggregates rows without clustering them.
func (c *Client) Preprocess(ctx context.Context, rows []map[string]any) (out Corpus, err error) {
	start := time.Now()
	defer func() { c.obs.observe("preprocess", start, len(out.IDs), err) }()

	agg, err := c.analysis.Preprocess(ctx, rows)
	if err != nil {
		return Corpus{}, fmt.Errorf("preprocess: %w", err)
	}
	return Corpus{
		IDs:        agg.IDs(),
		Documents:  agg.Documents(),
		Attributes: agg.AttributeMap(),
	}, nil
}

// AnalyzeCorpus clusters a corpus produced by Preprocess, possibly edited by the caller.
// IDs and Documents must have equal length; a repeated id is merged again.
func (c *Client) AnalyzeCorpus(ctx context.Context, in Corpus) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("analyze_corpus", start, len(res.IDs), err) }()

	agg, err := corpus.FromColumns(in.IDs, in.Documents, in.Attributes, c.maxEntities)
	if err != nil {
		return Result{}, fmt.Errorf("analyze corpus: %w", err)
	}
	env, err := c.analysis.AnalyzeCorpus(ctx, agg)
	if err != nil {
		return Result{}, fmt.Errorf("analyze corpus: %w", err)
	}
	return toResult(env), nil
}

// CardSort clusters cards by how often participants placed them in the same group.
func (c *Client) CardSort(ctx context.Context, placements []Placement) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("cardsort", start, len(res.IDs), err) }()

	ps := make([]cardsort.Placement, len(placements))
	for i, p := range placements {
		ps[i] = cardsort.NewPlacement(p.Participant, p.Card, p.Label, p.Group)
	}
	env, err := c.analysis.AnalyzePlacements(ctx, ps)
	if err != nil {
		return Result{}, fmt.Errorf("card sort: %w", err)
	}
	return toResult(env), nil
}

// CardSortRows clusters a card-sort export given as rows keyed by column name.
func (c *Client) CardSortRows(ctx context.Context, rows []map[string]any) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("cardsort_rows", start, len(res.IDs), err) }()

	env, err := c.analysis.AnalyzeCardSort(ctx, rows)
	if err != nil {
		return Result{}, fmt.Errorf("card sort: %w", err)
	}
	return toResult(env), nil
}

func toResult(env result.Envelope) Result {
	d := env.Dendrogram()
	return Result{
		Z:   env.Z(),
		IDs: env.IDs(),
		Dendrogram: Dendrogram{
			Labels: d.Labels,
			ICoord: d.ICoord,
			DCoord: d.DCoord,
			Colors: d.Colors,
			Leaves: d.Leaves,
		},
		Attributes: env.Attributes(),
	}
}
