package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for event validation.
var (
	ErrEventEndBeforeStart = errors.New("event end time must be after start time")
	ErrEventDetailMismatch = errors.New("event detail does not match event type")
	ErrSleepDelayRange     = errors.New("sleep delay must be between 0 and 180 minutes")
)

// EventDetail carries kind-specific event data. Each event type that has
// extra fields gets its own detail variant, so an invariant like "sleep
// delay only applies to sleep events" holds by construction instead of by
// convention on an optional field.
type EventDetail interface {
	// AppliesTo reports whether this detail is valid for the given type.
	AppliesTo(t EventType) bool
	// Validate checks the detail's own field constraints.
	Validate() error
}

// SleepDetail is the detail variant for sleep events.
type SleepDetail struct {
	// DelayMinutes is how long the child took to fall asleep.
	DelayMinutes int
}

func (d SleepDetail) AppliesTo(t EventType) bool { return t == EventSleep }

func (d SleepDetail) Validate() error {
	if d.DelayMinutes < 0 || d.DelayMinutes > 180 {
		return ErrSleepDelayRange
	}
	return nil
}

// FeedingDetail is the detail variant for feeding events.
type FeedingDetail struct {
	AmountMl int
	Notes    string
}

func (d FeedingDetail) AppliesTo(t EventType) bool { return t == EventFeeding }

func (d FeedingDetail) Validate() error {
	if d.AmountMl < 0 {
		return fmt.Errorf("feeding amount must not be negative")
	}
	return nil
}

type Event struct {
	ID        string
	ChildID   string
	Type      EventType
	StartTime time.Time
	EndTime   *time.Time
	Detail    EventDetail // nil for event types without extra data
	CreatedAt time.Time
}

// Validate checks the event's structural invariants.
func (e *Event) Validate() error {
	if !ValidEventTypes[string(e.Type)] {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.EndTime != nil && !e.EndTime.After(e.StartTime) {
		return ErrEventEndBeforeStart
	}
	if e.Detail != nil {
		if !e.Detail.AppliesTo(e.Type) {
			return fmt.Errorf("%w: %T on %s event", ErrEventDetailMismatch, e.Detail, e.Type)
		}
		if err := e.Detail.Validate(); err != nil {
			return err
		}
	}
	return nil
}
