package redis

import (
	"context"
	"fmt"

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

// DropIndex removes an FT index by name. Stored hashes are untouched.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, "unknown index name") {
			return db.ErrIndexNotFound
		}
		return &db.CommandError{Command: "FT.DROPINDEX", Err: err}
	}
	return nil
}

// IndexExists probes for an index via FT.INFO. "unknown index name" means
// absent, not an error.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if serverErrContains(err, "unknown index name") {
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
		if serverErrContains(err, "no such index") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.CommandError{Command: "FT.SEARCH", Err: err}
	}
	return db.ParseSearchReply(raw)
}

// SearchCount returns the indexed document count via FT.SEARCH LIMIT 0 0.
func (s *Store) SearchCount(ctx context.Context, index string) (int, error) {
	cmd := s.b().Arbitrary("FT.SEARCH").Args(index, "*", "LIMIT", "0", "0").Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return 0, &db.CommandError{Command: "FT.SEARCH", Err: err}
	}
	if len(raw) == 0 {
		return 0, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}
