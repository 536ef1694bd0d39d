package domain

import (
	"fmt"
	"time"
)

// SourceData records the inputs a plan was generated from, for auditability
// and for progression gating against the base plan's window.
type SourceData struct {
	From          time.Time         `json:"from"`
	To            time.Time         `json:"to"`
	EventCount    int               `json:"event_count"`
	DistinctTypes int               `json:"distinct_types"`
	ByType        map[EventType]int `json:"by_type,omitempty"`
	BasePlanID    *string           `json:"base_plan_id,omitempty"`
	TranscriptID  *string           `json:"transcript_id,omitempty"`
	ReportID      *string           `json:"report_id,omitempty"`
}

// Plan is a versioned, generated sleep plan for one child.
//
// Numbering invariants:
//   - the initial plan owns (PlanNumber=0, PlanVersion=0), exactly once per child
//   - event_based plans take strictly increasing PlanNumbers, PlanVersion=0
//   - transcript refinements inherit the base plan's PlanNumber and take the
//     next PlanVersion under it (1, 2, 3, ...)
//   - at most one plan per child is active at any instant
type Plan struct {
	ID          string
	ChildID     string
	Type        PlanType
	PlanNumber  int
	PlanVersion int
	Status      PlanStatus
	Output      PlanOutput
	Source      SourceData
	CreatedAt   time.Time
	UpdatedAt   time.Time
	CreatedBy   string
}

// VersionLabel renders the human-facing plan identifier, e.g. "Plan 2" for
// an event_based plan or "Plan 2.3" for its third refinement.
func (p *Plan) VersionLabel() string {
	if p.PlanVersion > 0 {
		return fmt.Sprintf("Plan %d.%d", p.PlanNumber, p.PlanVersion)
	}
	return fmt.Sprintf("Plan %d", p.PlanNumber)
}

// Validate checks the plan's structural invariants.
func (p *Plan) Validate() error {
	if !ValidPlanTypes[string(p.Type)] {
		return fmt.Errorf("unknown plan type %q", p.Type)
	}
	if p.PlanNumber < 0 || p.PlanVersion < 0 {
		return fmt.Errorf("plan numbering must not be negative: %d.%d", p.PlanNumber, p.PlanVersion)
	}
	switch p.Type {
	case PlanInitial:
		if p.PlanNumber != 0 || p.PlanVersion != 0 {
			return fmt.Errorf("initial plan must be numbered 0.0, got %d.%d", p.PlanNumber, p.PlanVersion)
		}
	case PlanEventBased:
		if p.PlanNumber < 1 {
			return fmt.Errorf("event_based plan number must be >= 1, got %d", p.PlanNumber)
		}
		if p.PlanVersion != 0 {
			return fmt.Errorf("event_based plan version must be 0, got %d", p.PlanVersion)
		}
	case PlanRefinement:
		if p.PlanVersion < 1 {
			return fmt.Errorf("refinement plan version must be >= 1, got %d", p.PlanVersion)
		}
		if p.Source.BasePlanID == nil || *p.Source.BasePlanID == "" {
			return fmt.Errorf("refinement plan requires a base plan id")
		}
	}
	return nil
}
