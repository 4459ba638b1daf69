package recommend

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/logger"
	"github.com/eduroad/coursemap/internal/metrics"
)

// Config holds retrieval and selection tunables.
type Config struct {
	TopK             int     // breadth of the KNN retrieval
	MinScore         float64 // candidates below this similarity are dropped
	MaxDirect        int     // candidate count at or below which the selector is bypassed
	SelectorAttempts int
}

// Service turns a learning profile into an ordered course roadmap.
// Infrastructure failures degrade to an empty roadmap, never an error:
// the caller always gets a well-formed (possibly empty) course list.
type Service struct {
	repo     Repository
	embed    Embedder
	selector Selector
	cfg      Config
}

// NewService creates the recommendation service.
func NewService(repo Repository, embed Embedder, selector Selector, cfg Config) *Service {
	if cfg.TopK <= 0 {
		cfg.TopK = 100
	}
	if cfg.MaxDirect <= 0 {
		cfg.MaxDirect = 5
	}
	if cfg.SelectorAttempts <= 0 {
		cfg.SelectorAttempts = 3
	}
	return &Service{repo: repo, embed: embed, selector: selector, cfg: cfg}
}

// Recommend retrieves candidates for the request and reduces them to a
// roadmap. Small candidate sets are returned directly ordered by score;
// larger sets go through the LLM selector with bounded retries.
func (s *Service) Recommend(ctx context.Context, req domain.SearchRequest) ([]domain.Course, error) {
	log := logger.FromContext(ctx)
	start := time.Now()
	defer func() {
		metrics.RecommendDuration.Observe(time.Since(start).Seconds())
	}()

	candidates, err := s.retrieve(ctx, req)
	if err != nil {
		metrics.RecommendRequestsTotal.WithLabelValues("degraded").Inc()
		log.Warn("Retrieval failed, returning empty roadmap", zap.Error(err))
		return []domain.Course{}, nil
	}

	metrics.RetrievedCandidates.Observe(float64(len(candidates)))

	if len(candidates) <= s.cfg.MaxDirect {
		metrics.RecommendRequestsTotal.WithLabelValues("direct").Inc()
		log.Debug("Returning candidates directly", zap.Int("count", len(candidates)))
		return coursesOf(candidates), nil
	}

	for attempt := 0; attempt < s.cfg.SelectorAttempts; attempt++ {
		selected, err := s.selector.Select(ctx, req, candidates, attempt)
		if err != nil {
			log.Warn("Selector attempt errored", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if selected == nil {
			continue
		}
		if !withinBudget(req, selected) {
			log.Warn("Selector result exceeds budget, discarding",
				zap.Int("attempt", attempt),
				zap.Int("courses", len(selected)))
			continue
		}

		metrics.RecommendRequestsTotal.WithLabelValues("selector").Inc()
		return selected, nil
	}

	metrics.RecommendRequestsTotal.WithLabelValues("empty").Inc()
	log.Info("Selector attempts exhausted, returning empty roadmap",
		zap.Int("attempts", s.cfg.SelectorAttempts),
		zap.Int("candidates", len(candidates)))
	return []domain.Course{}, nil
}

// retrieve embeds the composed profile query and runs the broad KNN search.
func (s *Service) retrieve(ctx context.Context, req domain.SearchRequest) ([]domain.Candidate, error) {
	res, err := s.embed.Embed(ctx, req.QueryText())
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.SearchKNN(ctx, res.Embedding, s.cfg.TopK)
	if err != nil {
		return nil, err
	}

	return s.filter(candidates), nil
}

// filter drops candidates below the score threshold and duplicate ids.
// The repository orders results, so relative order is preserved.
func (s *Service) filter(candidates []domain.Candidate) []domain.Candidate {
	seen := make(map[int64]struct{}, len(candidates))
	out := candidates[:0]
	for _, c := range candidates {
		if c.Score < s.cfg.MinScore {
			continue
		}
		if _, dup := seen[c.Course.ID]; dup {
			continue
		}
		seen[c.Course.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// withinBudget checks the selection against the request's time and cost
// limits. Unset limits never constrain.
func withinBudget(req domain.SearchRequest, courses []domain.Course) bool {
	var hours, cost int
	for _, c := range courses {
		hours += c.Duration
		cost += c.Price
	}
	if req.TimeBudgetHours != nil && hours > *req.TimeBudgetHours {
		return false
	}
	if req.CostBudget != nil && cost > *req.CostBudget {
		return false
	}
	return true
}

func coursesOf(candidates []domain.Candidate) []domain.Course {
	courses := make([]domain.Course, 0, len(candidates))
	for _, c := range candidates {
		courses = append(courses, c.Course)
	}
	return courses
}
