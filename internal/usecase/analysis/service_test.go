package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/kailas-cloud/dendrex/internal/analysis/similarity"
	"github.com/kailas-cloud/dendrex/internal/domain"
	"github.com/kailas-cloud/dendrex/internal/domain/cardsort"
	"github.com/kailas-cloud/dendrex/internal/domain/corpus"
	"github.com/kailas-cloud/dendrex/internal/domain/matrix"
	"github.com/kailas-cloud/dendrex/internal/domain/result"
)

// --- Mocks ---

type runCall struct {
	mode, status        string
	entities, truncated int
}

type mockRecorder struct {
	mu     sync.Mutex
	stages []string
	runs   []runCall
}

func (m *mockRecorder) ObserveStage(_, stage string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stages = append(m.stages, stage)
}

func (m *mockRecorder) ObserveRun(mode, status string, entities, truncated int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runs = append(m.runs, runCall{mode, status, entities, truncated})
}

func (m *mockRecorder) lastRun(t *testing.T) runCall {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.runs) == 0 {
		t.Fatal("no run recorded")
	}
	return m.runs[len(m.runs)-1]
}

// --- Helpers ---

func testOptions() Options {
	opts := DefaultOptions()
	opts.ReclaimBetweenStages = false
	return opts
}

func vehicleRows() []map[string]any {
	return []map[string]any{
		{"id": "a", "url": "https://a", "description": "red car"},
		{"id": "b", "url": "https://b", "description": "red bike"},
		{"id": "a", "url": "https://other", "description": "fast"},
		{"id": "c", "url": "https://c", "description": "blue bike"},
		{"id": "d", "url": "https://d", "description": "blue car"},
	}
}

func assertValidEnvelope(t *testing.T, env result.Envelope, n int) {
	t.Helper()

	z := env.Z()
	if len(z) != n {
		t.Fatalf("expected %d rows, got %d", n, len(z))
	}
	for i := range z {
		if len(z[i]) != n {
			t.Fatalf("row %d has %d columns, want %d", i, len(z[i]), n)
		}
		for j := range z[i] {
			v := float64(z[i][j])
			if math.IsNaN(v) || v < -1 || v > 1 {
				t.Fatalf("z[%d][%d] = %v out of range", i, j, v)
			}
			if z[i][j] != z[j][i] {
				t.Fatalf("z not symmetric at (%d,%d)", i, j)
			}
		}
	}
	if len(env.IDs()) != n {
		t.Fatalf("expected %d ids, got %d", n, len(env.IDs()))
	}
	d := env.Dendrogram()
	if err := matrix.ValidatePermutation(d.Leaves, n); err != nil {
		t.Fatalf("leaves are not a permutation: %v", err)
	}
	if len(d.ICoord) != n-1 || len(d.DCoord) != n-1 || len(d.Colors) != n-1 {
		t.Fatalf("expected %d links, got icoord=%d dcoord=%d colors=%d",
			n-1, len(d.ICoord), len(d.DCoord), len(d.Colors))
	}
}

// --- Tests ---

func TestAnalyze_Success(t *testing.T) {
	rec := &mockRecorder{}
	svc := New(testOptions(), rec, nil)

	env, err := svc.Analyze(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValidEnvelope(t, env, 4)

	ids := append([]string(nil), env.IDs()...)
	sort.Strings(ids)
	if fmt.Sprint(ids) != "[a b c d]" {
		t.Errorf("expected ids a..d, got %v", env.IDs())
	}

	attrs := env.Attributes()
	if attrs["a"] != "https://a" {
		t.Errorf("expected first-row attribute for a, got %q", attrs["a"])
	}

	// Heatmap ids follow the dendrogram leaf order.
	leaves := env.Dendrogram().Leaves
	for i, leaf := range leaves {
		if env.Dendrogram().Labels[i] != fmt.Sprint(leaf) {
			t.Errorf("ivl[%d] = %q, want %q", i, env.Dendrogram().Labels[i], fmt.Sprint(leaf))
		}
	}
	for i := range env.Z() {
		if env.Z()[i][i] != 1 {
			t.Errorf("diagonal %d = %v, want 1", i, env.Z()[i][i])
		}
	}

	run := rec.lastRun(t)
	if run.mode != string(ModeText) || run.status != "ok" || run.entities != 4 {
		t.Errorf("unexpected run record: %+v", run)
	}
	if len(rec.stages) != 5 {
		t.Errorf("expected 5 stage observations, got %v", rec.stages)
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	svc := New(testOptions(), nil, nil)

	first, err := svc.Analyze(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Analyze(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if fmt.Sprint(first.IDs()) != fmt.Sprint(second.IDs()) {
		t.Errorf("ids differ: %v vs %v", first.IDs(), second.IDs())
	}
	if fmt.Sprint(first.Z()) != fmt.Sprint(second.Z()) {
		t.Error("matrices differ between runs")
	}
	if fmt.Sprint(first.Dendrogram()) != fmt.Sprint(second.Dendrogram()) {
		t.Error("dendrograms differ between runs")
	}
}

func TestAnalyze_PermutationIsExact(t *testing.T) {
	svc := New(testOptions(), nil, nil)

	pre, err := svc.Preprocess(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	sim, err := similarity.NewText(svc.Options().Vectorizer).Compute(context.Background(), pre)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env, err := svc.Analyze(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	order := env.Dendrogram().Leaves
	ids := pre.IDs()
	for i := range order {
		if env.IDs()[i] != ids[order[i]] {
			t.Fatalf("ids[%d] = %s, want %s", i, env.IDs()[i], ids[order[i]])
		}
		for j := range order {
			if env.Z()[i][j] != sim.At(order[i], order[j]) {
				t.Fatalf("z[%d][%d] = %v, want %v", i, j, env.Z()[i][j], sim.At(order[i], order[j]))
			}
		}
	}
}

func TestAnalyze_Truncates(t *testing.T) {
	rows := make([]map[string]any, 0, 150)
	for i := 0; i < 150; i++ {
		rows = append(rows, map[string]any{
			"id":          fmt.Sprintf("id-%03d", i),
			"url":         fmt.Sprintf("https://x/%d", i),
			"description": fmt.Sprintf("topic%d shape%d", i%5, i%7),
		})
	}

	rec := &mockRecorder{}
	env, err := New(testOptions(), rec, nil).Analyze(context.Background(), rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValidEnvelope(t, env, 100)

	for _, id := range env.IDs() {
		if id >= "id-100" {
			t.Fatalf("id %s should have been dropped", id)
		}
	}
	if len(env.Attributes()) != 100 {
		t.Errorf("expected 100 attributes, got %d", len(env.Attributes()))
	}
	if run := rec.lastRun(t); run.truncated != 50 || run.entities != 100 {
		t.Errorf("unexpected run record: %+v", run)
	}
}

func TestAnalyze_SingleEntity(t *testing.T) {
	rows := []map[string]any{
		{"id": "only", "url": "u", "description": "red car"},
		{"id": "only", "url": "u", "description": "fast car"},
	}

	env, err := New(testOptions(), nil, nil).Analyze(context.Background(), rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValidEnvelope(t, env, 1)
	if env.Z()[0][0] != 1 {
		t.Errorf("expected self-similarity 1, got %v", env.Z()[0][0])
	}
	if env.IDs()[0] != "only" {
		t.Errorf("expected id only, got %v", env.IDs())
	}
}

func TestAnalyze_MissingTextColumn(t *testing.T) {
	rows := []map[string]any{
		{"id": "a", "url": "u1"},
		{"id": "b", "url": "u2"},
	}

	rec := &mockRecorder{}
	_, err := New(testOptions(), rec, nil).Analyze(context.Background(), rows)
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StageParse {
		t.Errorf("expected parse stage error, got %v", err)
	}
	if run := rec.lastRun(t); run.status != "schema_error" || run.entities != -1 {
		t.Errorf("unexpected run record: %+v", run)
	}
}

func TestAnalyze_VectorizationError(t *testing.T) {
	rows := []map[string]any{
		{"id": "a", "url": "u", "description": "the and"},
		{"id": "b", "url": "u", "description": "of the"},
		{"id": "c", "url": "u", "description": "and of"},
	}

	_, err := New(testOptions(), nil, nil).Analyze(context.Background(), rows)
	if !errors.Is(err, domain.ErrVectorization) {
		t.Fatalf("expected ErrVectorization, got %v", err)
	}
	var se *domain.StageError
	if !errors.As(err, &se) || se.Stage != domain.StageSimilar || se.Entities != 3 {
		t.Errorf("expected similarity stage error with 3 entities, got %v", err)
	}
}

func TestAnalyze_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testOptions(), nil, nil).Analyze(ctx, vehicleRows())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestAnalyze_UsesPinnedRunID(t *testing.T) {
	ctx := ContextWithRunID(context.Background(), "run-1")
	if got := RunIDFromContext(ctx); got != "run-1" {
		t.Fatalf("expected run-1, got %q", got)
	}
	if _, err := New(testOptions(), nil, nil).Analyze(ctx, vehicleRows()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPreprocess(t *testing.T) {
	c, err := New(testOptions(), nil, nil).Preprocess(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(c.IDs()) != "[a b c d]" {
		t.Errorf("expected first-seen order, got %v", c.IDs())
	}
	if c.Documents()[0] != "red car fast" {
		t.Errorf("expected joined document, got %q", c.Documents()[0])
	}
}

func TestAnalyzeCorpus(t *testing.T) {
	svc := New(testOptions(), nil, nil)

	c, err := corpus.FromColumns(
		[]string{"a", "b", "c", "d"},
		[]string{"red car fast", "red bike", "blue bike", "blue car"},
		map[string]string{"a": "https://a"},
		0,
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	env, err := svc.AnalyzeCorpus(context.Background(), c)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValidEnvelope(t, env, 4)

	direct, err := svc.Analyze(context.Background(), vehicleRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fmt.Sprint(direct.Z()) != fmt.Sprint(env.Z()) {
		t.Error("two-phase analysis should match the one-shot result")
	}
}

func TestAnalyzeCorpus_Empty(t *testing.T) {
	svc := New(testOptions(), nil, nil)

	if _, err := svc.AnalyzeCorpus(context.Background(), nil); !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus for nil corpus, got %v", err)
	}
	if _, err := svc.AnalyzeCorpus(context.Background(), corpus.New(nil)); !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Errorf("expected ErrEmptyCorpus for empty corpus, got %v", err)
	}
}

func cardRows() []map[string]any {
	row := func(p, card, label, group string) map[string]any {
		return map[string]any{
			"participant": p, "card index": card, "card label": label, "category label": group,
		}
	}
	return []map[string]any{
		row("p1", "10", "Pricing", "Money"),
		row("p1", "2", "Billing", "Money"),
		row("p1", "1", "Login", "Account"),
		row("p1", "3", "", "Account"),
		row("p2", "10", "Pricing", "Costs"),
		row("p2", "2", "Billing", "Costs"),
		row("p2", "1", "Login", "Access"),
		row("p2", "3", "", "Access"),
		row("p3", "10", "Pricing", ""),
		row("p3", "2", "Billing", ""),
		row("p3", "1", "Login", "Me"),
		row("p3", "3", "", "Me"),
	}
}

func TestAnalyzeCardSort(t *testing.T) {
	rec := &mockRecorder{}
	env, err := New(testOptions(), rec, nil).AnalyzeCardSort(context.Background(), cardRows())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertValidEnvelope(t, env, 4)

	labels := append([]string(nil), env.Dendrogram().Labels...)
	sort.Strings(labels)
	if fmt.Sprint(labels) != "[Billing Card 3 Login Pricing]" {
		t.Errorf("unexpected leaf labels: %v", labels)
	}
	if env.Attributes()["3"] != "Card 3" {
		t.Errorf("expected fallback label, got %q", env.Attributes()["3"])
	}

	// Pricing/Billing and Login/Card 3 always share a group, so each pair is adjacent.
	pos := make(map[string]int)
	for i, id := range env.IDs() {
		pos[id] = i
	}
	if d := pos["10"] - pos["2"]; d != 1 && d != -1 {
		t.Errorf("expected cards 10 and 2 adjacent, got order %v", env.IDs())
	}
	if d := pos["1"] - pos["3"]; d != 1 && d != -1 {
		t.Errorf("expected cards 1 and 3 adjacent, got order %v", env.IDs())
	}
	for i := range env.Z() {
		if env.Z()[i][i] != 0 {
			t.Errorf("co-occurrence diagonal %d = %v, want 0", i, env.Z()[i][i])
		}
	}
	if run := rec.lastRun(t); run.mode != string(ModeCardSort) || run.status != "ok" {
		t.Errorf("unexpected run record: %+v", run)
	}
}

func TestAnalyzeCardSort_MissingColumns(t *testing.T) {
	rows := []map[string]any{{"participant": "p1", "card index": "1"}}

	_, err := New(testOptions(), nil, nil).AnalyzeCardSort(context.Background(), rows)
	if !errors.Is(err, domain.ErrSchema) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
}

func TestAnalyzePlacements_Empty(t *testing.T) {
	_, err := New(testOptions(), nil, nil).AnalyzePlacements(context.Background(), []cardsort.Placement{})
	if !errors.Is(err, domain.ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestAnalyzePlacements_MaxCards(t *testing.T) {
	opts := testOptions()
	opts.CardSort.MaxCards = 2
	placements := []cardsort.Placement{
		cardsort.NewPlacement("p1", "3", "C", "x"),
		cardsort.NewPlacement("p1", "1", "A", "x"),
		cardsort.NewPlacement("p1", "2", "B", "x"),
	}

	env, err := New(opts, nil, nil).AnalyzePlacements(context.Background(), placements)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ids := append([]string(nil), env.IDs()...)
	sort.Strings(ids)
	if fmt.Sprint(ids) != "[1 2]" {
		t.Errorf("expected the two lowest cards, got %v", env.IDs())
	}
}

func TestSelfCheck(t *testing.T) {
	rec := &mockRecorder{}
	if err := New(testOptions(), rec, nil).SelfCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rec.runs) != 0 {
		t.Error("self-check should not record runs")
	}
}

func TestStatus(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "ok"},
		{domain.NewStageError(domain.StageParse, 0, domain.ErrSchema), "schema_error"},
		{fmt.Errorf("x: %w", domain.ErrVectorization), "vectorization_error"},
		{domain.ErrEmptyCorpus, "empty_corpus"},
		{domain.ErrClustering, "clustering_error"},
		{context.DeadlineExceeded, "canceled"},
		{errors.New("boom"), "internal_error"},
	}
	for _, tc := range tests {
		if got := Status(tc.err); got != tc.want {
			t.Errorf("Status(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestOptions_Validate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Fatalf("defaults should be valid: %v", err)
	}

	bad := DefaultOptions()
	bad.Linkage = "single"
	if err := bad.Validate(); err == nil {
		t.Error("expected error for unknown linkage")
	}

	bad = DefaultOptions()
	bad.MaxEntities = -1
	if err := bad.Validate(); err == nil {
		t.Error("expected error for negative cap")
	}

	bad = DefaultOptions()
	bad.Schema.Text = ""
	if err := bad.Validate(); err == nil {
		t.Error("expected error for empty text column")
	}
}
