package domain

type PlanType string

const (
	PlanInitial    PlanType = "initial"
	PlanEventBased PlanType = "event_based"
	PlanRefinement PlanType = "transcript_refinement"
)

// ValidPlanTypes is the canonical set of accepted plan type strings.
var ValidPlanTypes = map[string]bool{
	"initial": true, "event_based": true, "transcript_refinement": true,
}

type PlanStatus string

const (
	PlanDraft      PlanStatus = "draft"
	PlanActive     PlanStatus = "active"
	PlanSuperseded PlanStatus = "superseded"
)

// Terminal reports whether the status admits no further transitions.
func (s PlanStatus) Terminal() bool {
	return s == PlanSuperseded
}

type EventType string

const (
	EventSleep       EventType = "sleep"
	EventNap         EventType = "nap"
	EventWake        EventType = "wake"
	EventNightWaking EventType = "night_waking"
	EventFeeding     EventType = "feeding"
	EventMedication  EventType = "medication"
	EventActivity    EventType = "extra_activity"
)

// ValidEventTypes is the canonical set of accepted event type strings.
var ValidEventTypes = map[string]bool{
	"sleep": true, "nap": true, "wake": true, "night_waking": true,
	"feeding": true, "medication": true, "extra_activity": true,
}
