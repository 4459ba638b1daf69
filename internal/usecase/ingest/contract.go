package ingest

import (
	"context"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/transport/stepik"
)

// Catalog is the external course catalog contract.
type Catalog interface {
	CourseLists(ctx context.Context, page int) (stepik.CourseListing, error)
	Courses(ctx context.Context, ids []int64) ([]stepik.CourseDetail, error)
	ReviewSummaries(ctx context.Context, ids []int64) ([]stepik.ReviewSummary, error)
	Authors(ctx context.Context, ids []int64) ([]stepik.Author, error)
}

// Repository is the storage contract for ingestion.
type Repository interface {
	EnsureCollection(ctx context.Context) error
	UpsertBatch(ctx context.Context, courses []domain.IndexedCourse) error
	Count(ctx context.Context) (int, error)
	Recreate(ctx context.Context) error
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// ReportStore persists the last run report.
type ReportStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}
