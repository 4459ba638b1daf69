package valkey

import (
	"context"
	"fmt"
	"strings"

	"github.com/eduroad/coursemap/internal/db"
)

// CreateIndex issues FT.CREATE for the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := def.CreateArgs()
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, "index already exists") {
			return db.ErrIndexExists
		}
		return &db.CommandError{Command: "FT.CREATE", Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name. valkey-search reports a missing
// index with different wording than Redis, so both spellings are checked.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, "unknown index name") || serverErrContains(err, "not found") {
			return db.ErrIndexNotFound
		}
		return &db.CommandError{Command: "FT.DROPINDEX", Err: err}
	}
	return nil
}

// IndexExists probes for an index via FT.INFO.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, "unknown index name") || serverErrContains(err, "not found") {
			return false, nil
		}
		return false, &db.CommandError{Command: "FT.INFO", Err: err}
	}
	return true, nil
}

// SearchKNN runs a KNN vector similarity search via FT.SEARCH.
func (s *Store) SearchKNN(ctx context.Context, q *db.VectorQuery) (*db.SearchResult, error) {
	args, err := q.Args()
	if err != nil {
		return nil, err
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if serverErrContains(err, "unknown index name") || serverErrContains(err, "not found") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.CommandError{Command: "FT.SEARCH", Err: err}
	}
	return db.ParseSearchReply(raw)
}

// SearchCount returns the indexed document count. valkey-search rejects a
// bare FT.SEARCH without a KNN clause, so counting scans the key prefix
// derived from the index name instead.
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	keys, err := s.Scan(ctx, indexKeyPrefix(index)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan for count: %w", err)
	}
	return len(keys), nil
}

// indexKeyPrefix maps "coursemap:courses:idx" to "coursemap:courses:".
func indexKeyPrefix(index string) string {
	if strings.HasSuffix(index, ":idx") {
		return strings.TrimSuffix(index, "idx")
	}
	return index + ":"
}
