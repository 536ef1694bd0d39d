package testutil

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nebulatools/sleepplan/internal/domain"
)

// Child options
type ChildOption func(*domain.Child)

func WithBirthdate(d time.Time) ChildOption {
	return func(c *domain.Child) {
		c.Birthdate = &d
	}
}

func WithCompletedSurvey() ChildOption {
	return func(c *domain.Child) {
		c.Survey = &domain.SurveyData{
			Completed: true,
			Sections:  map[string]json.RawMessage{"sleep_environment": json.RawMessage(`{"room":"own"}`)},
		}
	}
}

func WithPartialSurvey() ChildOption {
	return func(c *domain.Child) {
		c.Survey = &domain.SurveyData{
			Partial:  true,
			Sections: map[string]json.RawMessage{"sleep_environment": json.RawMessage(`{"room":"own"}`)},
		}
	}
}

func NewTestChild(name string, opts ...ChildOption) *domain.Child {
	now := time.Now().UTC()
	c := &domain.Child{
		ID:        uuid.New().String(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Event options
type EventOption func(*domain.Event)

func WithEventType(t domain.EventType) EventOption {
	return func(e *domain.Event) {
		e.Type = t
	}
}

func WithStartTime(t time.Time) EventOption {
	return func(e *domain.Event) {
		e.StartTime = t
	}
}

func WithEndTime(t time.Time) EventOption {
	return func(e *domain.Event) {
		e.EndTime = &t
	}
}

func WithSleepDelay(minutes int) EventOption {
	return func(e *domain.Event) {
		e.Detail = domain.SleepDetail{DelayMinutes: minutes}
	}
}

func WithFeedingAmount(ml int) EventOption {
	return func(e *domain.Event) {
		e.Detail = domain.FeedingDetail{AmountMl: ml}
	}
}

func NewTestEvent(childID string, opts ...EventOption) *domain.Event {
	now := time.Now().UTC()
	e := &domain.Event{
		ID:        uuid.New().String(),
		ChildID:   childID,
		Type:      domain.EventSleep,
		StartTime: now.Add(-time.Hour),
		CreatedAt: now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Plan options
type PlanOption func(*domain.Plan)

func WithPlanType(t domain.PlanType) PlanOption {
	return func(p *domain.Plan) {
		p.Type = t
	}
}

func WithNumbering(number, version int) PlanOption {
	return func(p *domain.Plan) {
		p.PlanNumber = number
		p.PlanVersion = version
	}
}

func WithStatus(s domain.PlanStatus) PlanOption {
	return func(p *domain.Plan) {
		p.Status = s
	}
}

func WithPlanCreatedAt(t time.Time) PlanOption {
	return func(p *domain.Plan) {
		p.CreatedAt = t
		p.UpdatedAt = t
	}
}

func WithBasePlanID(id string) PlanOption {
	return func(p *domain.Plan) {
		p.Source.BasePlanID = &id
	}
}

func NewTestPlan(childID string, opts ...PlanOption) *domain.Plan {
	now := time.Now().UTC()
	p := &domain.Plan{
		ID:      uuid.New().String(),
		ChildID: childID,
		Type:    domain.PlanInitial,
		Status:  domain.PlanDraft,
		Output: domain.PlanOutput{
			PlanType: string(domain.PlanInitial),
			Title:    "Test Plan",
			Summary:  "A plan generated for tests.",
			Window: domain.OutputWindow{
				From: now.AddDate(0, 0, -30),
				To:   now,
			},
			Recommendations: []domain.Recommendation{
				{Key: "bedtime", Action: "Move bedtime to 19:30", Rationale: "Consistent sleep onset."},
			},
		},
		Source: domain.SourceData{
			From:       now.AddDate(0, 0, -30),
			To:         now,
			EventCount: 12, DistinctTypes: 3,
		},
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: "test",
	}
	for _, opt := range opts {
		opt(p)
	}
	p.Output.PlanType = string(p.Type)
	return p
}

// Transcript options
type TranscriptOption func(*domain.Transcript)

func WithTranscriptCreatedAt(t time.Time) TranscriptOption {
	return func(tr *domain.Transcript) {
		tr.CreatedAt = t
	}
}

func NewTestTranscript(childID string, opts ...TranscriptOption) *domain.Transcript {
	tr := &domain.Transcript{
		ID:        uuid.New().String(),
		ChildID:   childID,
		Provider:  "zoom",
		Summary:   "Discussed night wakings and bedtime routine.",
		CreatedAt: time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(tr)
	}
	return tr
}
