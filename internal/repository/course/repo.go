package course

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/eduroad/coursemap/internal/db"
	"github.com/eduroad/coursemap/internal/domain"
)

// Store is the subset of db.Store the course repository needs.
type Store interface {
	db.HashStore
	db.IndexManager
	db.Searcher
}

// IndexParams configures the HNSW vector index.
type IndexParams struct {
	Dimensions  int
	M           int
	EFConstruct int
}

// Repo persists courses as vector-indexed hashes.
type Repo struct {
	store  Store
	params IndexParams
}

// NewRepo creates a course repository.
func NewRepo(store Store, params IndexParams) *Repo {
	return &Repo{store: store, params: params}
}

// EnsureCollection creates the courses vector index if it does not exist.
// Idempotent: an already-existing index is a no-op.
func (r *Repo) EnsureCollection(ctx context.Context) error {
	err := r.store.CreateIndex(ctx, r.indexDefinition())
	if err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create courses index: %w: %w", err, domain.ErrStoreUnavailable)
	}
	return nil
}

// Ready reports whether the courses index exists. Used as the readiness signal.
func (r *Repo) Ready(ctx context.Context) (bool, error) {
	exists, err := r.store.IndexExists(ctx, indexName())
	if err != nil {
		return false, fmt.Errorf("probe courses index: %w: %w", err, domain.ErrStoreUnavailable)
	}
	return exists, nil
}

// UpsertBatch replaces up to 100 courses in one pipelined write. Replacing
// the whole hash keeps re-ingested records free of stale fields.
func (r *Repo) UpsertBatch(ctx context.Context, courses []domain.IndexedCourse) error {
	if len(courses) == 0 {
		return nil
	}
	if len(courses) > 100 {
		return fmt.Errorf("at most 100 courses per batch, got %d", len(courses))
	}

	items := make([]db.HashSetItem, 0, len(courses))
	for _, ic := range courses {
		if len(ic.Vector) != r.params.Dimensions {
			return fmt.Errorf("course %d: vector dimension %d, want %d",
				ic.Course.ID, len(ic.Vector), r.params.Dimensions)
		}
		fields := courseToFields(ic.Course)
		fields[fieldVector] = db.VectorBlob(ic.Vector)
		items = append(items, db.HashSetItem{Key: courseKey(ic.Course.ID), Fields: fields})
	}

	if err := r.store.ReplaceMulti(ctx, items); err != nil {
		return fmt.Errorf("upsert %d courses: %w: %w", len(items), err, domain.ErrStoreUnavailable)
	}
	return nil
}

// SearchKNN retrieves the topK nearest courses by cosine similarity.
// Results are ordered by score descending with id-ascending tiebreak.
func (r *Repo) SearchKNN(ctx context.Context, vector []float32, topK int) ([]domain.Candidate, error) {
	res, err := r.store.SearchKNN(ctx, &db.VectorQuery{
		Index:  indexName(),
		Vector: vector,
		Limit:  topK,
		Return: payloadFields,
	})
	if err != nil {
		if errors.Is(err, db.ErrIndexNotFound) {
			return nil, fmt.Errorf("knn search: %w", domain.ErrIndexNotReady)
		}
		return nil, fmt.Errorf("knn search: %w: %w", err, domain.ErrStoreUnavailable)
	}

	candidates := make([]domain.Candidate, 0, len(res.Hits))
	for _, hit := range res.Hits {
		candidates = append(candidates, domain.Candidate{
			Course: fieldsToCourse(hit.Key, hit.Fields),
			Score:  hit.Score,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Course.ID < candidates[j].Course.ID
	})

	return candidates, nil
}

// Count returns the number of indexed courses.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SearchCount(ctx, indexName())
	if err != nil {
		return 0, fmt.Errorf("count courses: %w: %w", err, domain.ErrStoreUnavailable)
	}
	return n, nil
}

// Recreate drops the index and all stored courses, then creates a fresh index.
func (r *Repo) Recreate(ctx context.Context) error {
	if err := r.store.DropIndex(ctx, indexName()); err != nil && !errors.Is(err, db.ErrIndexNotFound) {
		return fmt.Errorf("drop courses index: %w: %w", err, domain.ErrStoreUnavailable)
	}

	keys, err := r.store.Scan(ctx, keyPrefix()+"*")
	if err != nil {
		return fmt.Errorf("scan course keys: %w: %w", err, domain.ErrStoreUnavailable)
	}
	for _, key := range keys {
		if err := r.store.Del(ctx, key); err != nil {
			return fmt.Errorf("delete %s: %w: %w", key, err, domain.ErrStoreUnavailable)
		}
	}

	return r.EnsureCollection(ctx)
}

func (r *Repo) indexDefinition() *db.IndexDefinition {
	return &db.IndexDefinition{
		Name:        indexName(),
		KeyPrefix:   keyPrefix(),
		VectorField: fieldVector,
		VectorAlias: "vector",
		Vector: db.VectorSpec{
			Dim:         r.params.Dimensions,
			M:           r.params.M,
			EFConstruct: r.params.EFConstruct,
		},
		Payload: []db.PayloadField{
			{Name: fieldDifficulty, Kind: db.FieldTag},
			{Name: fieldDuration, Kind: db.FieldNumeric},
			{Name: fieldPrice, Kind: db.FieldNumeric},
			{Name: fieldLearners, Kind: db.FieldNumeric},
		},
	}
}
