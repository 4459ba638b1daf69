package stepik

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
)

type recommendationsResponse struct {
	Meta            meta                 `json:"meta"`
	Recommendations []recommendationList `json:"course-recommendations"`
}

type meta struct {
	HasNext bool `json:"has_next"`
}

type recommendationList struct {
	Courses []int64 `json:"courses"`
}

type coursesResponse struct {
	Courses []courseDTO `json:"courses"`
}

type courseDTO struct {
	ID             int64     `json:"id"`
	Title          string    `json:"title"`
	TitleEN        string    `json:"title_en"`
	Summary        string    `json:"summary"`
	Description    string    `json:"description"`
	Difficulty     string    `json:"difficulty"`
	TimeToComplete int64     `json:"time_to_complete"` // seconds
	Price          priceDTO  `json:"price"`
	CurrencyCode   string    `json:"currency_code"`
	LearnersCount  int       `json:"learners_count"`
	Authors        []int64   `json:"authors"`
	ReviewSummary  int64     `json:"review_summary"`
	CanonicalURL   string    `json:"canonical_url"`
	TargetAudience string    `json:"target_audience"`
	AcquiredSkills stringsVal `json:"acquired_skills"`
	AcquiredAssets stringsVal `json:"acquired_assets"`
	LearningFormat string    `json:"learning_format"`
}

type reviewSummariesResponse struct {
	Summaries []reviewSummaryDTO `json:"course-review-summaries"`
}

type reviewSummaryDTO struct {
	Course  int64   `json:"course"`
	Average float64 `json:"average"`
}

type usersResponse struct {
	Users []userDTO `json:"users"`
}

type userDTO struct {
	ID       int64  `json:"id"`
	FullName string `json:"full_name"`
}

// priceDTO tolerates the upstream price being a decimal string, a number
// or null. The parsed value is whole currency units, fractions truncated.
type priceDTO int

func (p *priceDTO) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*p = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*p = 0
			return nil // unparseable price treated as free
		}
		*p = priceDTO(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = priceDTO(f)
	return nil
}

// stringsVal tolerates a field being either a plain string or a list of
// strings, joining lists with ", ".
type stringsVal string

func (v *stringsVal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = ""
		return nil
	}
	if data[0] == '[' {
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*v = stringsVal(joinNonEmpty(items))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = stringsVal(s)
	return nil
}

func joinNonEmpty(items []string) string {
	var b bytes.Buffer
	for _, it := range items {
		if it == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		b.WriteString(it)
	}
	return b.String()
}
