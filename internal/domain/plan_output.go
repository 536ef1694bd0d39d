package domain

import "time"

// PlanOutput is the structured content of a generated plan, as validated
// from the model's raw response. Anything that reaches this type already
// passed schema validation; raw model text is never stored.
type PlanOutput struct {
	PlanType        string           `json:"planType"`
	Title           string           `json:"title"`
	Summary         string           `json:"summary"`
	Window          OutputWindow     `json:"window"`
	Metrics         OutputMetrics    `json:"metrics"`
	Recommendations []Recommendation `json:"recommendations"`
}

type OutputWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

type OutputMetrics struct {
	EventCount    int            `json:"eventCount"`
	DistinctTypes int            `json:"distinctTypes"`
	ByType        map[string]int `json:"byType"`
	AgeInMonths   *int           `json:"ageInMonths,omitempty"`
}

// Recommendation is one actionable item in a plan.
type Recommendation struct {
	Key       string `json:"key"`
	Action    string `json:"action"`
	Rationale string `json:"rationale"`
}
