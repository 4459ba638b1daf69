package stepik

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/metrics"
)

// MaxIDsPerRequest is the upstream limit on batched id lookups.
const MaxIDsPerRequest = 100

// CourseListing is one page of the catalog listing.
type CourseListing struct {
	CourseIDs []int64
	HasNext   bool
}

// CourseDetail is a normalized course detail record.
type CourseDetail struct {
	Course        domain.Course
	AuthorIDs     []int64
	ReviewSummary int64
}

// ReviewSummary is an aggregated course rating.
type ReviewSummary struct {
	CourseID int64
	Average  float64
}

// Author is a course author record.
type Author struct {
	ID       int64
	FullName string
}

// Client talks to a Stepik-shaped catalog API. Calls are rate limited and
// deliberately carry no per-request timeout: catalog harvesting is a
// long-running background job and the caller's context bounds it.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a catalog client. ratePerSec bounds outgoing request rate.
func NewClient(baseURL string, ratePerSec float64) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), 1),
	}
}

// CourseLists fetches one page of the catalog listing.
func (c *Client) CourseLists(ctx context.Context, page int) (CourseListing, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))

	var resp recommendationsResponse
	if err := c.get(ctx, "course-recommendations", q, &resp); err != nil {
		return CourseListing{}, err
	}

	listing := CourseListing{HasNext: resp.Meta.HasNext}
	for _, l := range resp.Recommendations {
		listing.CourseIDs = append(listing.CourseIDs, l.Courses...)
	}
	return listing, nil
}

// Courses fetches detail records for up to MaxIDsPerRequest course ids.
func (c *Client) Courses(ctx context.Context, ids []int64) ([]CourseDetail, error) {
	if len(ids) > MaxIDsPerRequest {
		return nil, fmt.Errorf("at most %d ids per request, got %d", MaxIDsPerRequest, len(ids))
	}

	var resp coursesResponse
	if err := c.get(ctx, "courses", idsQuery(ids), &resp); err != nil {
		return nil, err
	}

	details := make([]CourseDetail, 0, len(resp.Courses))
	for _, dto := range resp.Courses {
		details = append(details, CourseDetail{
			Course: domain.Course{
				ID:             dto.ID,
				Title:          dto.Title,
				TitleEN:        dto.TitleEN,
				Difficulty:     dto.Difficulty,
				Duration:       secondsToHours(dto.TimeToComplete),
				Price:          int(dto.Price),
				CurrencyCode:   dto.CurrencyCode,
				Learners:       dto.LearnersCount,
				Rating:         domain.DefaultRating,
				URL:            dto.CanonicalURL,
				Description:    dto.Description,
				Summary:        dto.Summary,
				TargetAudience: dto.TargetAudience,
				AcquiredSkills: string(dto.AcquiredSkills),
				AcquiredAssets: string(dto.AcquiredAssets),
				LearningFormat: dto.LearningFormat,
			},
			AuthorIDs:     dto.Authors,
			ReviewSummary: dto.ReviewSummary,
		})
	}
	return details, nil
}

// ReviewSummaries fetches aggregated ratings for up to MaxIDsPerRequest summary ids.
func (c *Client) ReviewSummaries(ctx context.Context, ids []int64) ([]ReviewSummary, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, fmt.Errorf("at most %d ids per request, got %d", MaxIDsPerRequest, len(ids))
	}

	var resp reviewSummariesResponse
	if err := c.get(ctx, "course-review-summaries", idsQuery(ids), &resp); err != nil {
		return nil, err
	}

	summaries := make([]ReviewSummary, 0, len(resp.Summaries))
	for _, dto := range resp.Summaries {
		summaries = append(summaries, ReviewSummary{CourseID: dto.Course, Average: dto.Average})
	}
	return summaries, nil
}

// Authors fetches author records for up to MaxIDsPerRequest user ids.
func (c *Client) Authors(ctx context.Context, ids []int64) ([]Author, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerRequest {
		return nil, fmt.Errorf("at most %d ids per request, got %d", MaxIDsPerRequest, len(ids))
	}

	var resp usersResponse
	if err := c.get(ctx, "users", idsQuery(ids), &resp); err != nil {
		return nil, err
	}

	authors := make([]Author, 0, len(resp.Users))
	for _, dto := range resp.Users {
		authors = append(authors, Author{ID: dto.ID, FullName: dto.FullName})
	}
	return authors, nil
}

func (c *Client) get(ctx context.Context, endpoint string, q url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	u := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.CatalogRequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return fmt.Errorf("catalog %s: %v: %w", endpoint, err, domain.ErrCatalogUpstream)
	}
	defer resp.Body.Close()

	metrics.CatalogRequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("catalog %s: status %d: %s: %w",
			endpoint, resp.StatusCode, string(body), domain.ErrCatalogUpstream)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("catalog %s: decode: %v: %w", endpoint, err, domain.ErrCatalogUpstream)
	}
	return nil
}

func idsQuery(ids []int64) url.Values {
	q := url.Values{}
	for _, id := range ids {
		q.Add("ids[]", strconv.FormatInt(id, 10))
	}
	return q
}

// secondsToHours converts upstream time_to_complete to whole hours, rounding up.
func secondsToHours(seconds int64) int {
	if seconds <= 0 {
		return 0
	}
	return int((seconds + 3599) / 3600)
}
