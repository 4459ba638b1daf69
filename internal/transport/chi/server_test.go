package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/transport/stepik"
	healthuc "github.com/eduroad/coursemap/internal/usecase/health"
	ingestuc "github.com/eduroad/coursemap/internal/usecase/ingest"
	recommenduc "github.com/eduroad/coursemap/internal/usecase/recommend"
)

// --- Mocks ---

type mockSearchRepo struct {
	candidates []domain.Candidate
	err        error
}

func (m *mockSearchRepo) SearchKNN(_ context.Context, _ []float32, _ int) ([]domain.Candidate, error) {
	return m.candidates, m.err
}

type mockEmbedder struct{ err error }

func (m *mockEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1}}, nil
}

type nilSelector struct{}

func (nilSelector) Select(_ context.Context, _ domain.SearchRequest, _ []domain.Candidate, _ int) ([]domain.Course, error) {
	return nil, nil
}

type mockCatalog struct {
	block chan struct{}
}

func (m *mockCatalog) CourseLists(ctx context.Context, _ int) (stepik.CourseListing, error) {
	if m.block != nil {
		select {
		case <-m.block:
		case <-ctx.Done():
			return stepik.CourseListing{}, ctx.Err()
		}
	}
	return stepik.CourseListing{}, nil
}

func (m *mockCatalog) Courses(_ context.Context, _ []int64) ([]stepik.CourseDetail, error) {
	return nil, nil
}

func (m *mockCatalog) ReviewSummaries(_ context.Context, _ []int64) ([]stepik.ReviewSummary, error) {
	return nil, nil
}

func (m *mockCatalog) Authors(_ context.Context, _ []int64) ([]stepik.Author, error) {
	return nil, nil
}

type mockIngestRepo struct{}

func (mockIngestRepo) EnsureCollection(_ context.Context) error { return nil }
func (mockIngestRepo) UpsertBatch(_ context.Context, _ []domain.IndexedCourse) error {
	return nil
}
func (mockIngestRepo) Count(_ context.Context) (int, error) { return 0, nil }
func (mockIngestRepo) Recreate(_ context.Context) error     { return nil }

type mockKV struct{ data map[string][]byte }

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return nil, errors.New("missing")
}

func (m *mockKV) Set(_ context.Context, key string, value []byte) error {
	if m.data == nil {
		m.data = map[string][]byte{}
	}
	m.data[key] = value
	return nil
}

type mockPinger struct{ err error }

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

func testServer(t *testing.T, repo *mockSearchRepo, catalog *mockCatalog, pingErr error) (*Server, *gochi.Mux) {
	t.Helper()

	recommendSvc := recommenduc.NewService(repo, &mockEmbedder{}, nilSelector{}, recommenduc.Config{})
	ingestSvc := ingestuc.NewService(catalog, mockIngestRepo{}, &mockEmbedder{}, &mockKV{}, ingestuc.Config{}, zap.NewNop())
	healthSvc := healthuc.New(&mockPinger{err: pingErr}, nil, nil)

	srv := NewServer(recommendSvc, ingestSvc, healthSvc, zap.NewNop())
	r := gochi.NewRouter()
	srv.Routes(r)
	return srv, r
}

// --- Tests ---

func TestSearchCourses_ReturnsRoadmap(t *testing.T) {
	repo := &mockSearchRepo{candidates: []domain.Candidate{
		{Course: domain.Course{ID: 1, Title: "Go"}, Score: 0.9},
	}}
	_, router := testServer(t, repo, &mockCatalog{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/courses/search",
		strings.NewReader(`{"area": "go", "current_level": "beginner", "desired_skills": "web"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var courses []domain.Course
	if err := json.NewDecoder(rec.Body).Decode(&courses); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(courses) != 1 || courses[0].Title != "Go" {
		t.Errorf("unexpected body: %v", courses)
	}
}

func TestSearchCourses_MissingAreaRejected(t *testing.T) {
	_, router := testServer(t, &mockSearchRepo{}, &mockCatalog{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/courses/search",
		strings.NewReader(`{"current_level": "beginner"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestSearchCourses_StoreErrorDegradesTo200Empty(t *testing.T) {
	repo := &mockSearchRepo{err: domain.ErrStoreUnavailable}
	_, router := testServer(t, repo, &mockCatalog{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/courses/search",
		strings.NewReader(`{"area": "go"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty list, got %s", body)
	}
}

func TestReloadCatalog_AcceptedThenConflict(t *testing.T) {
	catalog := &mockCatalog{block: make(chan struct{})}
	_, router := testServer(t, &mockSearchRepo{}, catalog, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/catalog/reload", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("first reload status = %d", rec.Code)
	}

	// Wait for the background run to take the lock.
	time.Sleep(20 * time.Millisecond)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/catalog/reload", nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("concurrent reload status = %d", rec.Code)
	}

	close(catalog.block)
}

func TestCatalogStatus_NotFoundBeforeFirstRun(t *testing.T) {
	_, router := testServer(t, &mockSearchRepo{}, &mockCatalog{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/catalog/status", nil))
	// The mock KV returns a generic error, which maps to 500; the real store
	// returns db.ErrKeyNotFound which maps to 404. Either way, not 200.
	if rec.Code == http.StatusOK {
		t.Fatalf("status = %d before any run", rec.Code)
	}
}

func TestHealth_DatabaseDownIs503(t *testing.T) {
	_, router := testServer(t, &mockSearchRepo{}, &mockCatalog{}, errors.New("refused"))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestHealth_OKIs200(t *testing.T) {
	_, router := testServer(t, &mockSearchRepo{}, &mockCatalog{}, nil)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
