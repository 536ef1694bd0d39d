package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAgeInMonths(t *testing.T) {
	tests := []struct {
		name      string
		birthdate time.Time
		at        time.Time
		want      int
	}{
		{"exact year, no decrement", date(2024, 1, 1), date(2025, 1, 31), 12},
		{"mid month", date(2024, 1, 1), date(2024, 12, 15), 11},
		{"same day of month", date(2024, 3, 10), date(2024, 6, 10), 3},
		{"day before anniversary", date(2024, 3, 10), date(2024, 6, 9), 2},
		{"day after anniversary", date(2024, 3, 10), date(2024, 6, 11), 3},
		{"newborn", date(2024, 5, 1), date(2024, 5, 20), 0},
		{"under one month", date(2024, 5, 20), date(2024, 6, 10), 0},
		{"leap day birthdate in march", date(2024, 2, 29), date(2025, 3, 1), 12},
		{"leap day birthdate end of february", date(2024, 2, 29), date(2025, 2, 28), 11},
		{"year boundary", date(2023, 12, 31), date(2024, 1, 31), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AgeInMonths(tt.birthdate, tt.at))
		})
	}
}

func TestChild_SurveyComplete(t *testing.T) {
	sections := map[string]json.RawMessage{"sleep_environment": json.RawMessage(`{}`)}

	tests := []struct {
		name   string
		survey *SurveyData
		want   bool
	}{
		{"no survey", nil, false},
		{"explicitly completed", &SurveyData{Completed: true}, true},
		{"answered and not partial", &SurveyData{Sections: sections}, true},
		{"answered but partial", &SurveyData{Partial: true, Sections: sections}, false},
		{"empty and not completed", &SurveyData{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Child{ID: "c1", Name: "Mia", Survey: tt.survey}
			assert.Equal(t, tt.want, c.SurveyComplete())
		})
	}
}
