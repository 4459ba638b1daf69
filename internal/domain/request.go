package domain

import "strings"

// SearchRequest is the per-query learning request. Constructed per incoming
// call, never persisted.
type SearchRequest struct {
	Area            string `json:"area"`
	CurrentLevel    string `json:"current_level"`
	DesiredSkills   string `json:"desired_skills"`
	TimeBudgetHours *int   `json:"hours,omitempty"`
	CostBudget      *int   `json:"cost,omitempty"`
}

// QueryText composes the single broad similarity-search query.
func (r SearchRequest) QueryText() string {
	return strings.TrimSpace(r.Area + " " + r.CurrentLevel + " " + r.DesiredSkills)
}
