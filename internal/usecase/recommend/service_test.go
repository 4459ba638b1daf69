package recommend

import (
	"context"
	"errors"
	"testing"

	"github.com/eduroad/coursemap/internal/domain"
)

// --- Mocks ---

type mockRepo struct {
	candidates []domain.Candidate
	err        error
	called     bool
	lastTopK   int
}

func (m *mockRepo) SearchKNN(_ context.Context, _ []float32, topK int) ([]domain.Candidate, error) {
	m.called = true
	m.lastTopK = topK
	return m.candidates, m.err
}

type mockEmbedder struct {
	vec    []float32
	err    error
	called bool
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.called = true
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec}, nil
}

type mockSelector struct {
	perAttempt [][]domain.Course
	calls      int
}

func (m *mockSelector) Select(_ context.Context, _ domain.SearchRequest, _ []domain.Candidate, attempt int) ([]domain.Course, error) {
	m.calls++
	if attempt < len(m.perAttempt) {
		return m.perAttempt[attempt], nil
	}
	return nil, nil
}

func candidates(n int) []domain.Candidate {
	out := make([]domain.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, domain.Candidate{
			Course: domain.Course{ID: int64(i + 1), Title: "c", Duration: 1, Price: 10},
			Score:  1 - float64(i)*0.01,
		})
	}
	return out
}

func newService(repo *mockRepo, embed *mockEmbedder, sel *mockSelector) *Service {
	return NewService(repo, embed, sel, Config{
		TopK:             100,
		MinScore:         0,
		MaxDirect:        5,
		SelectorAttempts: 3,
	})
}

// --- Tests ---

func TestRecommend_SmallSetBypassesSelector(t *testing.T) {
	repo := &mockRepo{candidates: candidates(3)}
	embed := &mockEmbedder{vec: []float32{0.1}}
	sel := &mockSelector{}
	svc := newService(repo, embed, sel)

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{Area: "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 3 {
		t.Fatalf("expected 3 courses, got %d", len(courses))
	}
	if sel.calls != 0 {
		t.Errorf("selector should not be called for %d candidates, called %d times", 3, sel.calls)
	}
	if repo.lastTopK != 100 {
		t.Errorf("expected topK 100, got %d", repo.lastTopK)
	}
	// Ordered by score descending.
	if courses[0].ID != 1 || courses[2].ID != 3 {
		t.Errorf("unexpected order: %v", courses)
	}
}

func TestRecommend_SelectorFirstNonNilWins(t *testing.T) {
	repo := &mockRepo{candidates: candidates(10)}
	embed := &mockEmbedder{vec: []float32{0.1}}
	sel := &mockSelector{perAttempt: [][]domain.Course{
		nil,
		{{ID: 7, Duration: 1, Price: 10}},
	}}
	svc := newService(repo, embed, sel)

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{Area: "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.calls != 2 {
		t.Errorf("expected 2 selector calls, got %d", sel.calls)
	}
	if len(courses) != 1 || courses[0].ID != 7 {
		t.Fatalf("expected course 7, got %v", courses)
	}
}

func TestRecommend_SelectorExhaustedReturnsEmpty(t *testing.T) {
	repo := &mockRepo{candidates: candidates(10)}
	embed := &mockEmbedder{vec: []float32{0.1}}
	sel := &mockSelector{}
	svc := newService(repo, embed, sel)

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{Area: "go"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sel.calls != 3 {
		t.Errorf("expected 3 selector attempts, got %d", sel.calls)
	}
	if courses == nil || len(courses) != 0 {
		t.Fatalf("expected empty non-nil result, got %v", courses)
	}
}

func TestRecommend_EmbedErrorDegradesToEmpty(t *testing.T) {
	repo := &mockRepo{candidates: candidates(10)}
	embed := &mockEmbedder{err: domain.ErrEmbeddingUnavailable}
	sel := &mockSelector{}
	svc := newService(repo, embed, sel)

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{Area: "go"})
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected empty result, got %v", courses)
	}
	if repo.called {
		t.Error("search should not run after embedding failure")
	}
}

func TestRecommend_StoreErrorDegradesToEmpty(t *testing.T) {
	repo := &mockRepo{err: errors.New("connection refused")}
	embed := &mockEmbedder{vec: []float32{0.1}}
	svc := newService(repo, embed, &mockSelector{})

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{Area: "go"})
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected empty result, got %v", courses)
	}
}

func TestRecommend_BudgetViolationRejectsSelection(t *testing.T) {
	hours := 2
	repo := &mockRepo{candidates: candidates(10)}
	embed := &mockEmbedder{vec: []float32{0.1}}
	sel := &mockSelector{perAttempt: [][]domain.Course{
		{{ID: 1, Duration: 5}, {ID: 2, Duration: 5}}, // 10h > 2h budget
		{{ID: 3, Duration: 1}, {ID: 4, Duration: 1}}, // fits
	}}
	svc := newService(repo, embed, sel)

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{
		Area:            "go",
		TimeBudgetHours: &hours,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 2 || courses[0].ID != 3 {
		t.Fatalf("expected budget-respecting selection, got %v", courses)
	}
}

func TestRecommend_CostBudgetViolationRejected(t *testing.T) {
	cost := 100
	repo := &mockRepo{candidates: candidates(10)}
	embed := &mockEmbedder{vec: []float32{0.1}}
	sel := &mockSelector{perAttempt: [][]domain.Course{
		{{ID: 1, Price: 90}, {ID: 2, Price: 90}},
	}}
	svc := newService(repo, embed, sel)

	courses, err := svc.Recommend(context.Background(), domain.SearchRequest{
		Area:       "go",
		CostBudget: &cost,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("expected empty result after budget rejections, got %v", courses)
	}
}

func TestFilter_DropsLowScoresAndDuplicates(t *testing.T) {
	svc := NewService(nil, nil, nil, Config{MinScore: 0.5})

	got := svc.filter([]domain.Candidate{
		{Course: domain.Course{ID: 1}, Score: 0.9},
		{Course: domain.Course{ID: 2}, Score: 0.4},
		{Course: domain.Course{ID: 1}, Score: 0.8},
		{Course: domain.Course{ID: 3}, Score: 0.5},
	})

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].Course.ID != 1 || got[1].Course.ID != 3 {
		t.Errorf("unexpected candidates: %v", got)
	}
}

func TestWithinBudget_UnsetLimitsNeverConstrain(t *testing.T) {
	ok := withinBudget(domain.SearchRequest{}, []domain.Course{
		{Duration: 1000, Price: 1000000},
	})
	if !ok {
		t.Error("unset budgets must not constrain")
	}
}
