package dendrex

import (
	"context"

	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/result"
	healthuc "github.com/kailas-cloud/dendrex/internal/usecase/health"
)

// --- analysisUseCase mock ---

type mockAnalysisUC struct {
	analyzeFn    func(ctx context.Context, rows []map[string]any) (result.Envelope, error)
	preprocessFn func(ctx context.Context, rows []map[string]any) (*corpus.Corpus, error)
	corpusFn     func(ctx context.Context, c *corpus.Corpus) (result.Envelope, error)
	cardSortFn   func(ctx context.Context, rows []map[string]any) (result.Envelope, error)
	placementsFn func(ctx context.Context, placements []cardsort.Placement) (result.Envelope, error)
}

func (m *mockAnalysisUC) Analyze(ctx context.Context, rows []map[string]any) (result.Envelope, error) {
	return m.analyzeFn(ctx, rows)
}

func (m *mockAnalysisUC) Preprocess(ctx context.Context, rows []map[string]any) (*corpus.Corpus, error) {
	return m.preprocessFn(ctx, rows)
}

func (m *mockAnalysisUC) AnalyzeCorpus(ctx context.Context, c *corpus.Corpus) (result.Envelope, error) {
	return m.corpusFn(ctx, c)
}

func (m *mockAnalysisUC) AnalyzeCardSort(ctx context.Context, rows []map[string]any) (result.Envelope, error) {
	return m.cardSortFn(ctx, rows)
}

func (m *mockAnalysisUC) AnalyzePlacements(
	ctx context.Context, placements []cardsort.Placement,
) (result.Envelope, error) {
	return m.placementsFn(ctx, placements)
}

// --- healthUseCase mock ---

type mockHealthUC struct {
	report healthuc.Report
}

func (m *mockHealthUC) Check(context.Context) healthuc.Report { return m.report }

// --- helpers ---

func testClient(analysis analysisUseCase, obs *observer) *Client {
	return &Client{analysis: analysis, obs: obs}
}
