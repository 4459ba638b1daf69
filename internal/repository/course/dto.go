package course

import (
	"strconv"
	"strings"

	"github.com/eduroad/coursemap/internal/domain"
)

// Hash field names of the stored course payload.
const (
	fieldTitle          = "title"
	fieldTitleEN        = "title_en"
	fieldDifficulty     = "difficulty"
	fieldDuration       = "duration"
	fieldPrice          = "price"
	fieldCurrencyCode   = "currency_code"
	fieldLearners       = "pupils_num"
	fieldAuthor         = "authors"
	fieldRating         = "rating"
	fieldURL            = "url"
	fieldDescription    = "description"
	fieldSummary        = "summary"
	fieldTargetAudience = "target_audience"
	fieldAcquiredSkills = "acquired_skills"
	fieldAcquiredAssets = "acquired_assets"
	fieldLearningFormat = "learning_format"
	fieldVector         = "__vector"
)

// payloadFields are the RETURN fields requested from FT.SEARCH. The vector
// itself is never returned.
var payloadFields = []string{
	fieldTitle, fieldTitleEN, fieldDifficulty, fieldDuration, fieldPrice,
	fieldCurrencyCode, fieldLearners, fieldAuthor, fieldRating, fieldURL,
	fieldDescription, fieldSummary, fieldTargetAudience, fieldAcquiredSkills,
	fieldAcquiredAssets, fieldLearningFormat,
}

func courseKey(id int64) string {
	return domain.KeyPrefix + domain.CoursesCollection + ":" + domain.CourseIDString(id)
}

func keyPrefix() string {
	return domain.KeyPrefix + domain.CoursesCollection + ":"
}

func indexName() string {
	return domain.KeyPrefix + domain.CoursesCollection + ":idx"
}

func courseToFields(c domain.Course) map[string]string {
	return map[string]string{
		fieldTitle:          c.Title,
		fieldTitleEN:        c.TitleEN,
		fieldDifficulty:     c.Difficulty,
		fieldDuration:       strconv.Itoa(c.Duration),
		fieldPrice:          strconv.Itoa(c.Price),
		fieldCurrencyCode:   c.CurrencyCode,
		fieldLearners:       strconv.Itoa(c.Learners),
		fieldAuthor:         c.Author,
		fieldRating:         strconv.FormatFloat(c.Rating, 'f', -1, 64),
		fieldURL:            c.URL,
		fieldDescription:    c.Description,
		fieldSummary:        c.Summary,
		fieldTargetAudience: c.TargetAudience,
		fieldAcquiredSkills: c.AcquiredSkills,
		fieldAcquiredAssets: c.AcquiredAssets,
		fieldLearningFormat: c.LearningFormat,
	}
}

func fieldsToCourse(key string, fields map[string]string) domain.Course {
	return domain.Course{
		ID:             idFromKey(key),
		Title:          fields[fieldTitle],
		TitleEN:        fields[fieldTitleEN],
		Difficulty:     fields[fieldDifficulty],
		Duration:       atoi(fields[fieldDuration]),
		Price:          atoi(fields[fieldPrice]),
		CurrencyCode:   fields[fieldCurrencyCode],
		Learners:       atoi(fields[fieldLearners]),
		Author:         fields[fieldAuthor],
		Rating:         atof(fields[fieldRating]),
		URL:            fields[fieldURL],
		Description:    fields[fieldDescription],
		Summary:        fields[fieldSummary],
		TargetAudience: fields[fieldTargetAudience],
		AcquiredSkills: fields[fieldAcquiredSkills],
		AcquiredAssets: fields[fieldAcquiredAssets],
		LearningFormat: fields[fieldLearningFormat],
	}
}

func idFromKey(key string) int64 {
	raw := key
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		raw = key[i+1:]
	}
	id, _ := strconv.ParseInt(raw, 10, 64)
	return id
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atof(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
