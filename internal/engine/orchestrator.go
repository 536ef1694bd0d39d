package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/llm"
	"github.com/nebulatools/sleepplan/internal/repository"
)

// GenerateRequest describes one plan generation attempt.
type GenerateRequest struct {
	ChildID      string
	PlanType     domain.PlanType
	Window       *Window // nil uses the configured trailing window ending now
	BasePlanID   *string // refinements require one; progressions default to the latest base
	TranscriptID *string // required for refinements
	CreatedBy    string
}

// GenerateResult is a successful generation outcome: a persisted draft plan
// plus provider diagnostics.
type GenerateResult struct {
	Plan        *domain.Plan
	Attempts    int
	InferenceMs int64
}

// Engine is the plan generation orchestrator. Per plan type it gates on
// aggregated context, calls the model provider, validates the structured
// output, and persists a draft with its number and version assigned inside
// one transaction. It never activates plans on its own; activation is a
// separate operation it exposes as ApplyPlan.
type Engine struct {
	cfg         Config
	builder     *ContextBuilder
	plans       repository.PlanRepo
	transcripts repository.TranscriptRepo
	uow         db.UnitOfWork
	client      llm.LLMClient

	// now is the clock, injectable for tests.
	now func() time.Time

	// locks serializes generation and activation per child. Together with
	// the transaction around numbering+insert this closes the double-submit
	// race: two concurrent generations for one child run one after the
	// other, and even a bypassing writer trips the unique numbering index
	// instead of silently duplicating a plan number.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates an Engine.
func New(cfg Config, builder *ContextBuilder, plans repository.PlanRepo, transcripts repository.TranscriptRepo, uow db.UnitOfWork, client llm.LLMClient) *Engine {
	return &Engine{
		cfg:         cfg,
		builder:     builder,
		plans:       plans,
		transcripts: transcripts,
		uow:         uow,
		client:      client,
		now:         func() time.Time { return time.Now().UTC() },
		locks:       make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

func (e *Engine) childLock(childID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[childID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[childID] = l
	}
	return l
}

// EvaluateInitialGate builds the context for the window and runs the
// initial-plan gate.
func (e *Engine) EvaluateInitialGate(ctx context.Context, childID string, window Window) (GateResult, error) {
	pctx, err := e.builder.Collect(ctx, childID, window)
	if err != nil {
		return GateResult{}, err
	}
	return EvaluateInitialGate(pctx, e.cfg), nil
}

// EvaluateProgressionGate resolves the base plan (the latest initial or
// event_based plan when basePlanID is empty), recomputes context over
// [base.CreatedAt, now], and runs the progression gate.
func (e *Engine) EvaluateProgressionGate(ctx context.Context, childID string, basePlanID *string) (GateResult, error) {
	base, gerr := e.resolveBasePlan(ctx, childID, basePlanID)
	if gerr != nil {
		return GateResult{OK: false, Reason: gerr.Code}, gerr
	}

	window := Window{From: base.CreatedAt, To: e.now()}
	pctx, err := e.builder.Collect(ctx, childID, window)
	if err != nil {
		return GateResult{}, err
	}
	return evaluateProgression(pctx, base, e.cfg), nil
}

// EvaluateRefinementGate resolves the base plan and the transcript, checks
// ordering, and runs the refinement gate. The context is still collected
// (over the base-to-now window) so diagnostics and the model prompt have
// real numbers even though the sanity check is skipped by default.
func (e *Engine) EvaluateRefinementGate(ctx context.Context, childID string, basePlanID, transcriptID string) (GateResult, error) {
	base, gerr := e.resolveBasePlan(ctx, childID, &basePlanID)
	if gerr != nil {
		return GateResult{OK: false, Reason: gerr.Code}, gerr
	}

	transcriptAt, err := e.transcripts.ResolveCreatedAt(ctx, transcriptID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			terr := newError(CodeTranscriptNotFound, fmt.Sprintf("transcript %s not found", transcriptID))
			return GateResult{OK: false, Reason: terr.Code, BasePlan: base}, terr
		}
		return GateResult{}, err
	}

	window := Window{From: base.CreatedAt, To: e.now()}
	pctx, err := e.builder.Collect(ctx, childID, window)
	if err != nil {
		return GateResult{}, err
	}
	return evaluateRefinement(pctx, base, transcriptAt, e.cfg), nil
}

// resolveBasePlan loads the base plan and checks it belongs to the child.
func (e *Engine) resolveBasePlan(ctx context.Context, childID string, basePlanID *string) (*domain.Plan, *Error) {
	var base *domain.Plan
	var err error
	if basePlanID != nil && *basePlanID != "" {
		base, err = e.plans.GetByID(ctx, *basePlanID)
	} else {
		base, err = e.plans.GetLatestBase(ctx, childID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(CodeBasePlanNotFound, fmt.Sprintf("no base plan for child %s", childID))
		}
		return nil, wrapError(CodeBasePlanNotFound, "loading base plan", err)
	}
	if base.ChildID != childID {
		return nil, newError(CodeInconsistentIDs,
			fmt.Sprintf("base plan %s belongs to child %s, not %s", base.ID, base.ChildID, childID))
	}
	return base, nil
}

// GeneratePlan runs the full generation state machine for one request:
// gate, model call, output validation, transactional persist of a draft.
// Expected failures come back as *Error with a stable code; gate denials
// carry the evaluated context for caller messaging.
func (e *Engine) GeneratePlan(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	lock := e.childLock(req.ChildID)
	lock.Lock()
	defer lock.Unlock()

	gate, err := e.gateFor(ctx, req)
	if err != nil {
		return nil, err
	}
	if !gate.OK {
		return nil, &Error{Code: gate.Reason, Message: "generation gated", Context: gate.Context}
	}

	if e.client == nil {
		return nil, newError(CodeServiceUnavailable, "no model provider configured")
	}

	prompt := buildPlanPrompt(req.PlanType, gate.Context, gate.BasePlan, req.TranscriptID)
	resp, err := e.client.Generate(ctx, llm.GenerateRequest{
		SystemPrompt: planSystemPrompt,
		UserPrompt:   prompt,
	})
	if err != nil {
		return nil, e.mapProviderError(err)
	}

	// Cancellation between the provider call and the persist must not
	// leave a partial plan behind.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, wrapError(CodeModelError, "request cancelled before persist", ctxErr)
	}

	output, err := ValidatePlanOutput(resp.Text, req.PlanType)
	if err != nil {
		return nil, wrapError(CodeValidationFailed, "model output failed schema validation", err)
	}

	plan, err := e.persistDraft(ctx, req, gate, output)
	if err != nil {
		return nil, err
	}

	return &GenerateResult{
		Plan:        plan,
		Attempts:    resp.Attempts,
		InferenceMs: resp.LatencyMs,
	}, nil
}

// gateFor dispatches to the matching gate for the requested plan type.
func (e *Engine) gateFor(ctx context.Context, req GenerateRequest) (GateResult, error) {
	switch req.PlanType {
	case domain.PlanInitial:
		// The unique numbering index guards (0,0) under races; this check
		// just avoids spending a model call on an obvious duplicate.
		if _, err := e.plans.GetLatestBase(ctx, req.ChildID); err == nil {
			return GateResult{}, fmt.Errorf("child %s already has an initial plan", req.ChildID)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return GateResult{}, err
		}
		window := e.windowFor(req)
		return e.EvaluateInitialGate(ctx, req.ChildID, window)
	case domain.PlanEventBased:
		return e.EvaluateProgressionGate(ctx, req.ChildID, req.BasePlanID)
	case domain.PlanRefinement:
		if req.BasePlanID == nil || *req.BasePlanID == "" {
			return GateResult{}, newError(CodeBasePlanNotFound, "refinement requires a base plan id")
		}
		if req.TranscriptID == nil || *req.TranscriptID == "" {
			return GateResult{}, newError(CodeTranscriptNotFound, "refinement requires a transcript id")
		}
		return e.EvaluateRefinementGate(ctx, req.ChildID, *req.BasePlanID, *req.TranscriptID)
	default:
		return GateResult{}, newError(CodeValidationFailed, fmt.Sprintf("unknown plan type %q", req.PlanType))
	}
}

func (e *Engine) windowFor(req GenerateRequest) Window {
	if req.Window != nil {
		return *req.Window
	}
	return TrailingWindow(e.now(), e.cfg.WindowDays)
}

func (e *Engine) mapProviderError(err error) *Error {
	var mapped *Error
	switch {
	case errors.Is(err, llm.ErrMisconfigured):
		mapped = wrapError(CodeServiceUnavailable, "model provider misconfigured", err)
	case errors.Is(err, llm.ErrInvalidOutput):
		mapped = wrapError(CodeValidationFailed, "model output unparsable", err)
	default:
		mapped = wrapError(CodeModelError, "model provider call failed", err)
	}
	mapped.Attempts = llm.AttemptCount(err)
	return mapped
}

// persistDraft allocates the plan's number and version and inserts the
// draft row inside one transaction. A numbering collision inside the
// transaction means the concurrency contract was violated elsewhere; it
// surfaces as a constraint error from the insert, never silently.
func (e *Engine) persistDraft(ctx context.Context, req GenerateRequest, gate GateResult, output *domain.PlanOutput) (*domain.Plan, error) {
	now := e.now()
	plan := &domain.Plan{
		ID:        uuid.New().String(),
		ChildID:   req.ChildID,
		Type:      req.PlanType,
		Status:    domain.PlanDraft,
		Output:    *output,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: req.CreatedBy,
	}

	pctx := gate.Context
	plan.Source = domain.SourceData{
		From:          pctx.Window.From,
		To:            pctx.Window.To,
		EventCount:    pctx.EventCount,
		DistinctTypes: pctx.DistinctTypes,
		ByType:        pctx.TypeCounts,
	}
	if gate.BasePlan != nil {
		id := gate.BasePlan.ID
		plan.Source.BasePlanID = &id
	}
	plan.Source.TranscriptID = req.TranscriptID

	err := e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txPlans := repository.NewSQLitePlanRepo(tx)

		switch req.PlanType {
		case domain.PlanInitial:
			plan.PlanNumber = 0
			plan.PlanVersion = 0
		case domain.PlanEventBased:
			number, err := txPlans.NextPlanNumber(ctx, req.ChildID)
			if err != nil {
				return err
			}
			plan.PlanNumber = number
			plan.PlanVersion = 0
		case domain.PlanRefinement:
			plan.PlanNumber = gate.BasePlan.PlanNumber
			version, err := txPlans.NextPlanVersion(ctx, req.ChildID, plan.PlanNumber)
			if err != nil {
				return err
			}
			plan.PlanVersion = version
		}

		return txPlans.Insert(ctx, plan)
	})
	if err != nil {
		return nil, fmt.Errorf("persisting draft plan: %w", err)
	}
	return plan, nil
}

// ApplyPlan activates a draft plan and demotes every other non-terminal
// plan for the child, in one transaction. Demotion happens before the
// activating update because the single-active unique index is checked per
// statement; the whole unit still commits or rolls back atomically, so no
// observer ever sees zero or two active plans.
func (e *Engine) ApplyPlan(ctx context.Context, childID, planID string) error {
	lock := e.childLock(childID)
	lock.Lock()
	defer lock.Unlock()

	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		txPlans := repository.NewSQLitePlanRepo(tx)

		plan, err := txPlans.GetByID(ctx, planID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return newError(CodeBasePlanNotFound, fmt.Sprintf("plan %s not found", planID))
			}
			return err
		}
		if plan.ChildID != childID {
			return newError(CodeInconsistentIDs,
				fmt.Sprintf("plan %s belongs to child %s, not %s", planID, plan.ChildID, childID))
		}
		if plan.Status.Terminal() {
			return fmt.Errorf("plan %s is superseded and cannot be activated", planID)
		}

		if err := txPlans.MarkSuperseded(ctx, childID, planID); err != nil {
			return err
		}
		return txPlans.SetStatus(ctx, planID, domain.PlanActive)
	})
}

// MarkSuperseded demotes every non-terminal plan for the child other than
// newPlanID. Exposed as the supersession primitive external activation
// flows rely on; ApplyPlan is the transactional composition most callers
// want.
func (e *Engine) MarkSuperseded(ctx context.Context, childID, newPlanID string) error {
	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		return repository.NewSQLitePlanRepo(tx).MarkSuperseded(ctx, childID, newPlanID)
	})
}
