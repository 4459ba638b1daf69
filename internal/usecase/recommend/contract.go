package recommend

import (
	"context"

	"github.com/eduroad/coursemap/internal/domain"
)

// Repository is the vector search contract.
type Repository interface {
	SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Candidate, error)
}

// Embedder vectorizes text into embeddings.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Selector picks a roadmap from candidates. A (nil, nil) return means the
// attempt produced nothing usable and may be retried.
type Selector interface {
	Select(ctx context.Context, req domain.SearchRequest, candidates []domain.Candidate, attempt int) ([]domain.Course, error)
}
