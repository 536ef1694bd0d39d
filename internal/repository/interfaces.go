package repository

import (
	"context"
	"errors"
	"time"

	"github.com/nebulatools/sleepplan/internal/domain"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("entity not found")

// ErrInvalidRange is returned when a time window has from after to.
var ErrInvalidRange = errors.New("invalid range: from must not be after to")

type ChildRepo interface {
	Create(ctx context.Context, c *domain.Child) error
	GetByID(ctx context.Context, id string) (*domain.Child, error)
	List(ctx context.Context) ([]*domain.Child, error)
	Update(ctx context.Context, c *domain.Child) error
	Delete(ctx context.Context, id string) error
}

type EventRepo interface {
	Create(ctx context.Context, e *domain.Event) error
	ListByChild(ctx context.Context, childID string, from, to time.Time) ([]*domain.Event, error)

	// CountByTypes returns a per-type histogram of the child's events with
	// start_time inside [from, to], inclusive on both bounds.
	CountByTypes(ctx context.Context, childID string, from, to time.Time) (map[domain.EventType]int, error)
}

type PlanRepo interface {
	Insert(ctx context.Context, p *domain.Plan) error
	GetByID(ctx context.Context, id string) (*domain.Plan, error)
	GetActive(ctx context.Context, childID string) (*domain.Plan, error)
	// GetLatestBase returns the most recently created initial or event_based
	// plan for the child, used as the default base for progression.
	GetLatestBase(ctx context.Context, childID string) (*domain.Plan, error)
	ListByChild(ctx context.Context, childID string) ([]*domain.Plan, error)

	// NextPlanNumber allocates the next event_based plan number for the
	// child, strictly greater than every existing number. Safe under
	// concurrent writers when run inside a transaction.
	NextPlanNumber(ctx context.Context, childID string) (int, error)

	// NextPlanVersion returns the next unused version under (childID, planNumber).
	NextPlanVersion(ctx context.Context, childID string, planNumber int) (int, error)

	SetStatus(ctx context.Context, id string, status domain.PlanStatus) error

	// MarkSuperseded demotes every non-terminal plan for the child other
	// than excludePlanID to superseded.
	MarkSuperseded(ctx context.Context, childID, excludePlanID string) error
}

type TranscriptRepo interface {
	Create(ctx context.Context, tr *domain.Transcript) error
	GetByID(ctx context.Context, id string) (*domain.Transcript, error)

	// ResolveCreatedAt returns the transcript's creation timestamp, or
	// ErrNotFound if no such transcript exists.
	ResolveCreatedAt(ctx context.Context, id string) (time.Time, error)
}
