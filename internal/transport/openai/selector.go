package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/eduroad/coursemap/internal/domain"
	"github.com/eduroad/coursemap/internal/logger"
	"github.com/eduroad/coursemap/internal/metrics"
)

const (
	selectorTemperature = 0.05
	selectorMaxTokens   = 500
	defaultMaxCourses   = 5
)

// Selector picks a coherent course roadmap from retrieved candidates via an
// OpenAI-compatible chat completion API.
type Selector struct {
	client     *openai.Client
	model      string
	timeout    time.Duration
	enabled    bool
	maxCourses int
}

// SelectorConfig holds the LLM selector settings.
type SelectorConfig struct {
	APIKey     string
	BaseURL    string
	Model      string
	TimeoutSec int
	MaxCourses int
}

// NewSelector creates an LLM course selector. A missing API key disables the
// selector: every Select call then returns (nil, nil) and the caller falls
// back to its own strategy.
func NewSelector(cfg *SelectorConfig) *Selector {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	maxCourses := cfg.MaxCourses
	if maxCourses <= 0 {
		maxCourses = defaultMaxCourses
	}

	return &Selector{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		timeout:    timeout,
		enabled:    cfg.APIKey != "",
		maxCourses: maxCourses,
	}
}

// Select asks the model to choose up to MaxCourses courses from candidates
// that form a learning roadmap for the request. Any failure (transport,
// parse, invalid indices) yields (nil, nil) so the caller can retry or degrade.
func (s *Selector) Select(ctx context.Context, req domain.SearchRequest, candidates []domain.Candidate, attempt int) ([]domain.Course, error) {
	log := logger.FromContext(ctx)

	if !s.enabled {
		log.Warn("selector API key not configured, skipping selection")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(req, candidates, attempt, s.maxCourses)},
		},
		Temperature: selectorTemperature,
		MaxTokens:   selectorMaxTokens,
	})
	if err != nil {
		metrics.SelectorAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn("selector request failed", zap.Int("attempt", attempt), zap.Error(err))
		return nil, nil
	}
	if len(resp.Choices) == 0 {
		metrics.SelectorAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn("selector returned no choices", zap.Int("attempt", attempt))
		return nil, nil
	}

	content := resp.Choices[0].Message.Content
	idxs, ok := parseIndexList(content)
	if !ok {
		metrics.SelectorAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn("selector response not parseable",
			zap.Int("attempt", attempt),
			zap.String("content", content))
		return nil, nil
	}

	selected, ok := pickByIndex(candidates, idxs, s.maxCourses)
	if !ok {
		metrics.SelectorAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn("selector returned invalid indices",
			zap.Int("attempt", attempt),
			zap.Ints("indices", idxs))
		return nil, nil
	}

	metrics.SelectorAttemptsTotal.WithLabelValues("ok").Inc()
	log.Info("selector chose courses",
		zap.Int("attempt", attempt),
		zap.Ints("indices", idxs))
	return selected, nil
}

// buildPrompt renders the selection task. The attempt number is included so
// retries do not hit provider-side response caches with an identical prompt.
func buildPrompt(req domain.SearchRequest, candidates []domain.Candidate, attempt, maxCourses int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You are a course recommender AI. Your job is to select up to %d courses from the list of %d that together form a coherent learning roadmap for the user.\n",
		maxCourses, len(candidates))
	if attempt > 0 {
		fmt.Fprintf(&b, "This is attempt %d, reconsider the list carefully.\n", attempt+1)
	}

	b.WriteString("\nUser's learning profile:\n")
	fmt.Fprintf(&b, "- Goal: %s\n", req.Area)
	fmt.Fprintf(&b, "- Current level: %s\n", req.CurrentLevel)
	fmt.Fprintf(&b, "- Desired skills to acquire: %s\n", req.DesiredSkills)
	if req.TimeBudgetHours != nil {
		fmt.Fprintf(&b, "- Maximum total time to complete all courses in hours: %d\n", *req.TimeBudgetHours)
	}
	if req.CostBudget != nil {
		fmt.Fprintf(&b, "- Maximum total cost of all courses: %d\n", *req.CostBudget)
	}

	b.WriteString("\nCourses:\n")
	for idx, c := range candidates {
		fmt.Fprintf(&b, "%d. Title: %s; Summary: %s; Difficulty: %s; Learners: %d; Duration: %d; Price: %d; Currency code: %s\n",
			idx, c.Course.Title, c.Course.Summary, c.Course.Difficulty,
			c.Course.Learners, c.Course.Duration, c.Course.Price, c.Course.CurrencyCode)
	}

	b.WriteString("\nYour task:\n")
	fmt.Fprintf(&b, "- Select up to %d courses that form a logical learning roadmap for the user's goal and desired skills.\n", maxCourses)
	b.WriteString("- The roadmap should make sense in order: start with foundational topics and build toward more advanced ones.\n")
	b.WriteString("- Avoid overlapping or redundant content.\n")
	b.WriteString("- Only include courses that are clearly relevant to the user's goals.\n")
	b.WriteString("- The total time of all selected courses must not exceed the user's limit.\n")
	b.WriteString("- The total price of all selected courses must not exceed the user's budget.\n")
	b.WriteString("- Among equally suitable options, prefer those with more learners.\n")
	fmt.Fprintf(&b, "- If fewer than %d courses are needed to build a roadmap, return only those.\n", maxCourses)
	b.WriteString("\nReturn a JSON list of the selected course indexes in the recommended order of completion.\n")
	b.WriteString("Only return the list, like this: [2, 7, 10] (no explanations).")

	return b.String()
}

// parseIndexList extracts a JSON integer list from model output, tolerating
// markdown code fences around it.
func parseIndexList(content string) ([]int, bool) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	var idxs []int
	if err := json.Unmarshal([]byte(content), &idxs); err != nil {
		return nil, false
	}
	return idxs, true
}

// pickByIndex maps indices onto candidates, rejecting out-of-range entries,
// duplicates and selections larger than maxCourses.
func pickByIndex(candidates []domain.Candidate, idxs []int, maxCourses int) ([]domain.Course, bool) {
	if len(idxs) == 0 || len(idxs) > maxCourses {
		return nil, false
	}

	seen := make(map[int]struct{}, len(idxs))
	selected := make([]domain.Course, 0, len(idxs))
	for _, i := range idxs {
		if i < 0 || i >= len(candidates) {
			return nil, false
		}
		if _, dup := seen[i]; dup {
			return nil, false
		}
		seen[i] = struct{}{}
		selected = append(selected, candidates[i].Course)
	}
	return selected, true
}
