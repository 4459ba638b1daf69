package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/metrics"
	"github.com/eduroad/coursemap/internal/transport/stepik"
)

// reportKey stores the last run report in the KV store.
const reportKey = domain.KeyPrefix + "ingest:last_report"

// Report summarizes one ingestion run.
type Report struct {
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`
	Pages         int       `json:"pages"`
	UniqueCourses int       `json:"unique_courses"`
	Indexed       int       `json:"indexed"`
	Skipped       int       `json:"skipped"`
	FailedBatches int       `json:"failed_batches"`
	IndexSize     int       `json:"index_size"`
}

// Options control a single run.
type Options struct {
	// Recreate drops and rebuilds the index before ingesting.
	Recreate bool
}

// Config holds ingestion tunables.
type Config struct {
	BatchSize     int
	UpsertRetries int
}

// Service harvests the external catalog into the vector index. At most one
// run is active per instance; a concurrent Run returns domain.ErrIngestRunning.
type Service struct {
	catalog Catalog
	repo    Repository
	embed   Embedder
	reports ReportStore
	cfg     Config
	logger  *zap.Logger

	mu sync.Mutex
}

// NewService creates the ingestion service.
func NewService(catalog Catalog, repo Repository, embed Embedder, reports ReportStore, cfg Config, logger *zap.Logger) *Service {
	if cfg.BatchSize <= 0 || cfg.BatchSize > stepik.MaxIDsPerRequest {
		cfg.BatchSize = stepik.MaxIDsPerRequest
	}
	if cfg.UpsertRetries <= 0 {
		cfg.UpsertRetries = 3
	}
	return &Service{
		catalog: catalog,
		repo:    repo,
		embed:   embed,
		reports: reports,
		cfg:     cfg,
		logger:  logger,
	}
}

// Running reports whether a run is currently active.
func (s *Service) Running() bool {
	if s.mu.TryLock() {
		s.mu.Unlock()
		return false
	}
	return true
}

// LastReport returns the persisted report of the most recent completed run.
func (s *Service) LastReport(ctx context.Context) (Report, error) {
	data, err := s.reports.Get(ctx, reportKey)
	if err != nil {
		return Report{}, fmt.Errorf("load last report: %w", err)
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("parse last report: %w", err)
	}
	return r, nil
}

// Run harvests the full catalog and upserts it into the index. A batch that
// keeps failing after retries is skipped; the run continues with the rest.
func (s *Service) Run(ctx context.Context, opts Options) (Report, error) {
	if !s.mu.TryLock() {
		metrics.IngestRunsTotal.WithLabelValues("rejected").Inc()
		return Report{}, domain.ErrIngestRunning
	}
	defer s.mu.Unlock()

	start := time.Now()
	report := Report{StartedAt: start.UTC()}

	if opts.Recreate {
		if err := s.repo.Recreate(ctx); err != nil {
			metrics.IngestRunsTotal.WithLabelValues("error").Inc()
			return report, fmt.Errorf("recreate index: %w", err)
		}
	} else if err := s.repo.EnsureCollection(ctx); err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		return report, fmt.Errorf("ensure index: %w", err)
	}

	ids, pages, err := s.collectIDs(ctx)
	if err != nil {
		metrics.IngestRunsTotal.WithLabelValues("error").Inc()
		return report, err
	}
	report.Pages = pages
	report.UniqueCourses = len(ids)

	s.logger.Info("Catalog listing complete",
		zap.Int("pages", pages),
		zap.Int("unique_courses", len(ids)))

	for offset := 0; offset < len(ids); offset += s.cfg.BatchSize {
		if err := ctx.Err(); err != nil {
			metrics.IngestRunsTotal.WithLabelValues("error").Inc()
			return report, fmt.Errorf("ingestion interrupted: %w", err)
		}

		end := offset + s.cfg.BatchSize
		if end > len(ids) {
			end = len(ids)
		}

		indexed, skipped, err := s.processBatch(ctx, ids[offset:end])
		if err != nil {
			report.FailedBatches++
			report.Skipped += end - offset
			metrics.IngestBatchesTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Batch failed, continuing",
				zap.Int("offset", offset),
				zap.Int("size", end-offset),
				zap.Error(err))
			continue
		}
		report.Indexed += indexed
		report.Skipped += skipped
		metrics.IngestBatchesTotal.WithLabelValues("ok").Inc()
	}

	metrics.IngestCoursesTotal.WithLabelValues("indexed").Add(float64(report.Indexed))
	metrics.IngestCoursesTotal.WithLabelValues("skipped").Add(float64(report.Skipped))

	if size, err := s.repo.Count(ctx); err == nil {
		report.IndexSize = size
	}

	report.Duration = time.Since(start).Round(time.Millisecond).String()
	metrics.IngestDuration.Observe(time.Since(start).Seconds())
	metrics.IngestRunsTotal.WithLabelValues("ok").Inc()

	s.saveReport(ctx, report)

	s.logger.Info("Ingestion run complete",
		zap.Int("indexed", report.Indexed),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed_batches", report.FailedBatches),
		zap.Int("index_size", report.IndexSize),
		zap.String("duration", report.Duration))

	return report, nil
}

// collectIDs pages through the catalog listing and returns the deduplicated,
// ascending-sorted set of course ids.
func (s *Service) collectIDs(ctx context.Context) ([]int64, int, error) {
	seen := make(map[int64]struct{})
	pages := 0

	for page := 1; ; page++ {
		listing, err := s.catalog.CourseLists(ctx, page)
		if err != nil {
			return nil, pages, fmt.Errorf("list catalog page %d: %w", page, err)
		}
		pages++

		for _, id := range listing.CourseIDs {
			seen[id] = struct{}{}
		}
		if !listing.HasNext {
			break
		}
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, pages, nil
}

// processBatch fetches details for one id batch, resolves ratings and author
// names, embeds each course once and upserts the assembled records.
func (s *Service) processBatch(ctx context.Context, ids []int64) (indexed, skipped int, err error) {
	details, err := s.catalog.Courses(ctx, ids)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch details: %w", err)
	}

	ratings := s.resolveRatings(ctx, details)
	authors := s.resolveAuthors(ctx, details)

	batch := make([]domain.IndexedCourse, 0, len(details))
	for _, d := range details {
		course := d.Course
		if avg, ok := ratings[d.ReviewSummary]; ok && avg > 0 {
			course.Rating = avg
		}
		if len(d.AuthorIDs) > 0 {
			course.Author = authors[d.AuthorIDs[0]]
		}

		res, embErr := s.embed.Embed(ctx, course.EmbedText())
		if embErr != nil {
			skipped++
			s.logger.Warn("Failed to embed course, skipping",
				zap.Int64("course_id", course.ID),
				zap.Error(embErr))
			continue
		}

		batch = append(batch, domain.IndexedCourse{Course: course, Vector: res.Embedding})
	}

	if len(batch) == 0 {
		return 0, skipped, nil
	}

	if err := s.upsertWithRetry(ctx, batch); err != nil {
		return 0, skipped, err
	}
	return len(batch), skipped, nil
}

// resolveRatings fetches review averages keyed by review-summary id.
// A failed lookup leaves the default rating in place.
func (s *Service) resolveRatings(ctx context.Context, details []stepik.CourseDetail) map[int64]float64 {
	ids := make([]int64, 0, len(details))
	for _, d := range details {
		if d.ReviewSummary != 0 {
			ids = append(ids, d.ReviewSummary)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	summaries, err := s.catalog.ReviewSummaries(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to fetch review summaries", zap.Error(err))
		return nil
	}

	ratings := make(map[int64]float64, len(summaries))
	for _, rs := range summaries {
		ratings[rs.CourseID] = rs.Average
	}
	return ratings
}

// resolveAuthors fetches primary author display names. Missing authors and
// bare-numeric placeholder names resolve to "".
func (s *Service) resolveAuthors(ctx context.Context, details []stepik.CourseDetail) map[int64]string {
	idSet := make(map[int64]struct{})
	for _, d := range details {
		if len(d.AuthorIDs) > 0 {
			idSet[d.AuthorIDs[0]] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	records, err := s.catalog.Authors(ctx, ids)
	if err != nil {
		s.logger.Warn("Failed to fetch authors", zap.Error(err))
		return nil
	}

	authors := make(map[int64]string, len(records))
	for _, a := range records {
		authors[a.ID] = cleanAuthorName(a.FullName)
	}
	return authors
}

// cleanAuthorName drops placeholder names that are just a user id.
func cleanAuthorName(name string) string {
	if _, err := strconv.ParseInt(name, 10, 64); err == nil {
		return ""
	}
	return name
}

func (s *Service) upsertWithRetry(ctx context.Context, batch []domain.IndexedCourse) error {
	backoff := time.Second
	var lastErr error
	for attempt := 1; attempt <= s.cfg.UpsertRetries; attempt++ {
		lastErr = s.repo.UpsertBatch(ctx, batch)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
		s.logger.Warn("Upsert failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr))

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return fmt.Errorf("upsert retry interrupted: %w", ctx.Err())
		}
		backoff *= 2
	}
	return fmt.Errorf("upsert after %d attempts: %w", s.cfg.UpsertRetries, lastErr)
}

func (s *Service) saveReport(ctx context.Context, r Report) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if err := s.reports.Set(ctx, reportKey, data); err != nil {
		s.logger.Warn("Failed to persist ingest report", zap.Error(err))
	}
}
