package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/repository"
)

// Window is a closed time interval [From, To].
type Window struct {
	From time.Time
	To   time.Time
}

// TrailingWindow returns the window of the given number of days ending at to.
func TrailingWindow(to time.Time, days int) Window {
	return Window{From: to.AddDate(0, 0, -days), To: to}
}

// PlanContext is the aggregated behavioral context one gating or generation
// call operates on. It is ephemeral: built fresh per call, never cached, and
// never persisted (the parts worth keeping land in a plan's SourceData).
type PlanContext struct {
	ChildID        string
	Window         Window
	EventCount     int
	TypeCounts     map[domain.EventType]int
	DistinctTypes  int
	AgeInMonths    *int // nil when the child has no recorded birthdate
	SurveyComplete bool
}

// ContextBuilder assembles PlanContexts from the child and event stores.
type ContextBuilder struct {
	children repository.ChildRepo
	events   repository.EventRepo
}

// NewContextBuilder creates a ContextBuilder.
func NewContextBuilder(children repository.ChildRepo, events repository.EventRepo) *ContextBuilder {
	return &ContextBuilder{children: children, events: events}
}

// Collect builds the PlanContext for a child over the given window. A
// missing birthdate is not an error: AgeInMonths stays nil and the sanity
// gate treats it as invalid age downstream.
func (b *ContextBuilder) Collect(ctx context.Context, childID string, window Window) (*PlanContext, error) {
	child, err := b.children.GetByID(ctx, childID)
	if err != nil {
		return nil, fmt.Errorf("loading child %s: %w", childID, err)
	}

	counts, err := b.events.CountByTypes(ctx, childID, window.From, window.To)
	if err != nil {
		return nil, fmt.Errorf("aggregating events for child %s: %w", childID, err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	pctx := &PlanContext{
		ChildID:        childID,
		Window:         window,
		EventCount:     total,
		TypeCounts:     counts,
		DistinctTypes:  len(counts),
		SurveyComplete: child.SurveyComplete(),
	}

	if child.Birthdate != nil {
		age := domain.AgeInMonths(*child.Birthdate, window.To)
		pctx.AgeInMonths = &age
	}

	return pctx, nil
}
