package domain

import (
	"encoding/json"
	"time"
)

// SurveyData holds the intake survey answers recorded for a child.
// Sections are stored opaquely; the engine only cares about completeness.
type SurveyData struct {
	Completed bool                       `json:"completed"`
	Partial   bool                       `json:"is_partial"`
	Sections  map[string]json.RawMessage `json:"sections,omitempty"`
}

type Child struct {
	ID        string
	Name      string
	Birthdate *time.Time
	Survey    *SurveyData
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SurveyComplete reports whether the child's survey counts as complete:
// either explicitly marked completed, or it has answered sections and is
// not flagged as partial.
func (c *Child) SurveyComplete() bool {
	if c.Survey == nil {
		return false
	}
	if c.Survey.Completed {
		return true
	}
	return len(c.Survey.Sections) > 0 && !c.Survey.Partial
}

// AgeInMonths returns the number of whole calendar months elapsed between
// birthdate and at. The month count is decremented by one when the
// day-of-month of at precedes the day-of-month of the birthdate, so a child
// born 2024-01-01 is 12 months old on 2025-01-31 and 11 months old on
// 2024-12-15. This is strict calendar arithmetic, not a 30-day approximation.
func AgeInMonths(birthdate, at time.Time) int {
	months := (at.Year()-birthdate.Year())*12 + int(at.Month()) - int(birthdate.Month())
	if at.Day() < birthdate.Day() {
		months--
	}
	return months
}
