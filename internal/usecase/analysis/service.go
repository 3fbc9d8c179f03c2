// Package analysis runs the staged similarity clustering pipeline.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kailas-cloud/dendrex/internal/analysis/hierarchy"
	"github.com/kailas-cloud/dendrex/internal/analysis/similarity"
	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/record"
	"github.com/kailas-cloud/dendrex/internal/domain/result"
	"github.com/kailas-cloud/dendrex/internal/logger"
)

// Service turns tabular input into a reordered similarity matrix and its dendrogram.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	opts     Options
	recorder Recorder
	logger   *zap.Logger
}

// New creates a Service. recorder and log may be nil.
func New(opts Options, recorder Recorder, log *zap.Logger) *Service {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{opts: opts, recorder: recorder, logger: log}
}

// Options returns the configured options.
func (s *Service) Options() Options { return s.opts }

// Analyze runs the text pipeline over raw rows.
func (s *Service) Analyze(ctx context.Context, rows []map[string]any) (result.Envelope, error) {
	ctx, run := s.begin(ctx, ModeText)

	c, err := s.prepare(ctx, run, rows)
	if err != nil {
		return result.Envelope{}, run.finish(err)
	}

	env, err := s.run(ctx, run, c, similarity.NewText(s.opts.Vectorizer), s.opts.Linkage, s.opts.ColorThreshold, nil)
	return env, run.finish(err)
}

// Preprocess parses and aggregates rows without clustering.
func (s *Service) Preprocess(ctx context.Context, rows []map[string]any) (*corpus.Corpus, error) {
	ctx, run := s.begin(ctx, ModePreprocess)
	c, err := s.prepare(ctx, run, rows)
	return c, run.finish(err)
}

// AnalyzeCorpus runs similarity, clustering and reordering on a preprocessed corpus.
// The service takes ownership of c.
func (s *Service) AnalyzeCorpus(ctx context.Context, c *corpus.Corpus) (result.Envelope, error) {
	ctx, run := s.begin(ctx, ModeCorpus)
	if c == nil || c.Len() == 0 {
		return result.Envelope{}, run.finish(domain.NewStageError(domain.StageAggregate, 0, domain.ErrEmptyCorpus))
	}
	run.entities, run.truncated = c.Len(), c.Truncated()

	env, err := s.run(ctx, run, c, similarity.NewText(s.opts.Vectorizer), s.opts.Linkage, s.opts.ColorThreshold, nil)
	return env, run.finish(err)
}

// AnalyzeCardSort parses card-sort rows and clusters cards by co-occurrence.
func (s *Service) AnalyzeCardSort(ctx context.Context, rows []map[string]any) (result.Envelope, error) {
	ctx, run := s.begin(ctx, ModeCardSort)

	start := time.Now()
	placements, err := cardsort.Parse(rows, s.opts.CardSort.Schema)
	run.stage(domain.StageParse, start, len(rows))
	if err != nil {
		return result.Envelope{}, run.finish(domain.NewStageError(domain.StageParse, 0, err))
	}

	env, err := s.clusterCards(ctx, run, placements)
	return env, run.finish(err)
}

// AnalyzePlacements clusters already parsed placements.
func (s *Service) AnalyzePlacements(ctx context.Context, placements []cardsort.Placement) (result.Envelope, error) {
	ctx, run := s.begin(ctx, ModeCardSort)
	env, err := s.clusterCards(ctx, run, placements)
	return env, run.finish(err)
}

// clusterCards builds one entity per card, labeled by its first label.
// Cards keep numeric order when every card key is an integer.
func (s *Service) clusterCards(ctx context.Context, run *runState, placements []cardsort.Placement) (result.Envelope, error) {
	start := time.Now()
	cardsort.SortByCard(placements)
	recs := make([]record.Record, len(placements))
	for i, p := range placements {
		recs[i] = record.New(p.Card(), p.Label(), "")
	}
	c := corpus.Aggregate(recs, s.opts.CardSort.MaxCards)
	run.stage(domain.StageAggregate, start, c.Len())
	run.entities, run.truncated = c.Len(), c.Truncated()
	if c.Len() == 0 {
		return result.Envelope{}, domain.NewStageError(domain.StageAggregate, 0, domain.ErrEmptyCorpus)
	}

	labels := make([]string, c.Len())
	for i, e := range c.Entities() {
		labels[i] = e.Attribute()
	}

	return s.run(ctx, run, c, similarity.NewCoOccurrence(placements),
		s.opts.CardSort.Linkage, s.opts.CardSort.ColorThreshold, labels)
}

// SelfCheck runs a tiny fixed corpus through the text pipeline.
func (s *Service) SelfCheck(ctx context.Context) error {
	c := corpus.New([]corpus.Entity{
		corpus.NewEntity("1", "alpha beta", ""),
		corpus.NewEntity("2", "alpha gamma", ""),
		corpus.NewEntity("3", "beta gamma", ""),
	})
	opts := s.opts
	opts.ReclaimBetweenStages = false
	probe := New(opts, nil, nil)

	quiet := &runState{mode: ModeText, logger: zap.NewNop(), recorder: nopRecorder{}}
	env, err := probe.run(ctx, quiet, c, similarity.NewText(opts.Vectorizer), opts.Linkage, 0, nil)
	if err != nil {
		return fmt.Errorf("pipeline self-check: %w", err)
	}
	if env.Len() != 3 {
		return fmt.Errorf("pipeline self-check: expected 3 entities, got %d", env.Len())
	}
	return nil
}

// prepare parses rows and aggregates them into a non-empty corpus.
func (s *Service) prepare(ctx context.Context, run *runState, rows []map[string]any) (*corpus.Corpus, error) {
	start := time.Now()
	recs, err := record.Parse(rows, s.opts.Schema)
	run.stage(domain.StageParse, start, len(rows))
	if err != nil {
		return nil, domain.NewStageError(domain.StageParse, 0, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStageError(domain.StageParse, 0, err)
	}

	start = time.Now()
	c := corpus.Aggregate(recs, s.opts.MaxEntities)
	run.stage(domain.StageAggregate, start, c.Len())
	run.entities, run.truncated = c.Len(), c.Truncated()
	if c.Truncated() > 0 {
		run.logger.Info("Entity cap reached, dropping later ids",
			zap.Int("kept", c.Len()),
			zap.Int("dropped", c.Truncated()),
		)
	}
	if c.Len() == 0 {
		return nil, domain.NewStageError(domain.StageAggregate, 0, domain.ErrEmptyCorpus)
	}
	return c, nil
}

// run executes similarity, clustering, reordering and packaging. Each stage's input
// is released once its output exists.
func (s *Service) run(
	ctx context.Context, run *runState, c *corpus.Corpus,
	strategy similarity.Strategy, method hierarchy.Method, threshold float64, labels []string,
) (result.Envelope, error) {
	n := c.Len()
	if n == 0 {
		return result.Envelope{}, domain.NewStageError(domain.StageAggregate, 0, domain.ErrEmptyCorpus)
	}
	ids := c.IDs()
	attributes := c.AttributeMap()

	start := time.Now()
	sim, err := strategy.Compute(ctx, c)
	run.stage(domain.StageSimilar, start, n)
	if err != nil {
		return result.Envelope{}, domain.NewStageError(domain.StageSimilar, n, err)
	}
	c = nil //nolint:ineffassign,wastedassign // documents are no longer needed
	s.reclaim()
	if err := ctx.Err(); err != nil {
		return result.Envelope{}, domain.NewStageError(domain.StageSimilar, n, err)
	}

	start = time.Now()
	tree, err := hierarchy.Cluster(sim, method)
	run.stage(domain.StageCluster, start, n)
	if err != nil {
		return result.Envelope{}, domain.NewStageError(domain.StageCluster, n, err)
	}
	s.reclaim()
	if err := ctx.Err(); err != nil {
		return result.Envelope{}, domain.NewStageError(domain.StageCluster, n, err)
	}

	start = time.Now()
	order := tree.Order()
	geo := hierarchy.Dendrogram(tree, labels, threshold)
	ids, err = result.Reorder(sim, ids, order)
	if err != nil {
		return result.Envelope{}, domain.NewStageError(domain.StageReorder, n, err)
	}
	env, err := result.New(sim, ids, result.Dendrogram{
		Labels: geo.Labels,
		ICoord: geo.ICoord,
		DCoord: geo.DCoord,
		Colors: geo.Colors,
		Leaves: geo.Leaves,
	}, attributes)
	run.stage(domain.StageReorder, start, n)
	if err != nil {
		return result.Envelope{}, domain.NewStageError(domain.StageReorder, n, err)
	}
	return env, nil
}

func (s *Service) reclaim() {
	if s.opts.ReclaimBetweenStages {
		debug.FreeOSMemory()
	}
}

// runState carries per-run logging and measurement.
type runState struct {
	id        string
	mode      Mode
	started   time.Time
	logger    *zap.Logger
	recorder  Recorder
	entities  int
	truncated int
}

type runIDKey struct{}

// ContextWithRunID pins the analysis run id, so a transport can report it before the run starts.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the pinned run id, or "".
func RunIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

func (s *Service) begin(ctx context.Context, mode Mode) (context.Context, *runState) {
	id := RunIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = ContextWithRunID(ctx, id)
	}

	log := logger.FromContextOr(ctx, s.logger).With(zap.String("run_id", id), zap.String("mode", string(mode)))

	return logger.ContextWithLogger(ctx, log), &runState{
		id:       id,
		mode:     mode,
		started:  time.Now(),
		logger:   log,
		recorder: s.recorder,
		entities: -1,
	}
}

func (r *runState) stage(name string, start time.Time, size int) {
	d := time.Since(start)
	r.recorder.ObserveStage(string(r.mode), name, d)
	r.logger.Debug("Stage completed",
		zap.String("stage", name),
		zap.Int("size", size),
		zap.Duration("duration", d),
	)
}

// finish records the run outcome and returns err unchanged.
func (r *runState) finish(err error) error {
	status := Status(err)
	r.recorder.ObserveRun(string(r.mode), status, r.entities, r.truncated)

	fields := []zap.Field{
		zap.String("status", status),
		zap.Int("entities", r.entities),
		zap.Int("truncated", r.truncated),
		zap.Duration("duration", time.Since(r.started)),
	}
	if err != nil {
		var se *domain.StageError
		if errors.As(err, &se) {
			fields = append(fields, zap.String("stage", se.Stage))
		}
		r.logger.Warn("Analysis failed", append(fields, zap.Error(err))...)
		return err
	}
	r.logger.Info("Analysis completed", fields...)
	return nil
}

// Status classifies a run error into a short label for metrics and logs.
func Status(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrSchema):
		return "schema_error"
	case errors.Is(err, domain.ErrVectorization):
		return "vectorization_error"
	case errors.Is(err, domain.ErrEmptyCorpus):
		return "empty_corpus"
	case errors.Is(err, domain.ErrClustering):
		return "clustering_error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal_error"
	}
}
