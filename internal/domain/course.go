package domain

import (
	"strconv"
	"strings"
)

// KeyPrefix namespaces every key this service writes to the store.
const KeyPrefix = "coursemap:"

// CoursesCollection is the single vector collection holding the catalog.
const CoursesCollection = "courses"

// DefaultRating is the neutral placeholder used until review aggregation
// succeeds for a course.
const DefaultRating = 5

// Course is one entry in the catalog index. The payload stored in the index
// mirrors these fields one-to-one; price and duration are zero (never absent)
// when the upstream omits them.
type Course struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	TitleEN        string  `json:"title_en"`
	Difficulty     string  `json:"difficulty"`
	Duration       int     `json:"duration"` // estimated completion time, hours
	Price          int     `json:"price"`
	CurrencyCode   string  `json:"currency_code"`
	Learners       int     `json:"pupils_num"`
	Author         string  `json:"authors"` // primary author display name, "" when unknown
	Rating         float64 `json:"rating"`
	URL            string  `json:"url"`
	Description    string  `json:"description"`
	Summary        string  `json:"summary"`
	TargetAudience string  `json:"target_audience"`
	AcquiredSkills string  `json:"acquired_skills"`
	AcquiredAssets string  `json:"acquired_assets"`
	LearningFormat string  `json:"learning_format"`
}

// EmbedText composes the text representation a course is embedded from.
// Recomputed on every re-ingestion, so the stored vector always reflects
// the latest title/difficulty/summary.
func (c Course) EmbedText() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Title, c.TitleEN, c.Difficulty, c.Summary} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// Candidate pairs a course with its cosine-derived similarity score.
// Transient: lives only between retrieval and selection.
type Candidate struct {
	Course Course
	Score  float64
}

// IndexedCourse is a course paired with its embedding vector, ready for upsert.
type IndexedCourse struct {
	Course Course
	Vector []float32
}

// CourseIDString returns the canonical string form of a course id used in keys.
func CourseIDString(id int64) string {
	return strconv.FormatInt(id, 10)
}
