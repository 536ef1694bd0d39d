package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/domain"
	"github.com/nebulatools/sleepplan/internal/llm"
	"github.com/nebulatools/sleepplan/internal/repository"
	"github.com/nebulatools/sleepplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubClient is an LLMClient returning canned responses.
type stubClient struct {
	mu     sync.Mutex
	text   string
	err    error
	calls  int
	onCall func()
}

func (s *stubClient) Generate(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.onCall != nil {
		s.onCall()
	}
	if s.err != nil {
		return nil, s.err
	}
	return &llm.GenerateResponse{Text: s.text, Model: "stub", LatencyMs: 1, Attempts: 1}, nil
}

func (s *stubClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func outputJSON(planType domain.PlanType) string {
	return fmt.Sprintf(`{
		"planType": %q,
		"title": "Recharge Routine",
		"summary": "Shift the schedule earlier and keep wind-down consistent.",
		"window": {"from": "2025-07-01T00:00:00Z", "to": "2025-07-31T00:00:00Z"},
		"metrics": {"eventCount": 6, "distinctTypes": 2},
		"recommendations": [
			{"key": "bedtime", "action": "Start the routine at 19:00", "rationale": "Sleep onset is drifting later."}
		]
	}`, planType)
}

type engineFixture struct {
	eng         *Engine
	client      *stubClient
	children    *repository.SQLiteChildRepo
	events      *repository.SQLiteEventRepo
	plans       *repository.SQLitePlanRepo
	transcripts *repository.SQLiteTranscriptRepo
}

func newEngineFixture(t *testing.T, database *sql.DB, cfg Config) *engineFixture {
	t.Helper()
	children := repository.NewSQLiteChildRepo(database)
	events := repository.NewSQLiteEventRepo(database)
	plans := repository.NewSQLitePlanRepo(database)
	transcripts := repository.NewSQLiteTranscriptRepo(database)
	client := &stubClient{text: outputJSON(domain.PlanInitial)}

	eng := New(cfg, NewContextBuilder(children, events),
		plans, transcripts, db.NewSQLiteUnitOfWork(database), client)

	return &engineFixture{
		eng:         eng,
		client:      client,
		children:    children,
		events:      events,
		plans:       plans,
		transcripts: transcripts,
	}
}

func engineTestConfig() Config {
	return Config{
		WindowDays:       30,
		MinEvents:        3,
		MinDistinctTypes: 2,
		AllowSurveyOnly:  true,
	}
}

func seedEligibleChild(t *testing.T, f *engineFixture) *domain.Child {
	t.Helper()
	ctx := context.Background()
	child := testutil.NewTestChild("Vera",
		testutil.WithBirthdate(time.Now().UTC().AddDate(-1, -2, 0)),
	)
	require.NoError(t, f.children.Create(ctx, child))
	seedEvents(t, f, child.ID, time.Now().UTC().Add(-72*time.Hour))
	return child
}

// seedEvents logs four events of two types shortly after the given time.
// Millisecond offsets keep the events in the past even when the anchor is a
// plan created moments ago.
func seedEvents(t *testing.T, f *engineFixture, childID string, after time.Time) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, f.events.Create(ctx, testutil.NewTestEvent(childID,
			testutil.WithStartTime(after.Add(time.Duration(i+1)*time.Millisecond)),
		)))
	}
	require.NoError(t, f.events.Create(ctx, testutil.NewTestEvent(childID,
		testutil.WithEventType(domain.EventNap),
		testutil.WithStartTime(after.Add(5*time.Millisecond)),
	)))
}

// seedEventsAfterPlan logs events just after a base plan was created and
// waits long enough for the wall clock to pass them, so a trailing window
// ending now will include them.
func seedEventsAfterPlan(t *testing.T, f *engineFixture, childID string, base *domain.Plan) {
	t.Helper()
	seedEvents(t, f, childID, base.CreatedAt)
	time.Sleep(20 * time.Millisecond)
}

func TestGeneratePlan_Initial(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	result, err := f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:   child.ID,
		PlanType:  domain.PlanInitial,
		CreatedBy: "test",
	})
	require.NoError(t, err)

	plan := result.Plan
	assert.Equal(t, 0, plan.PlanNumber)
	assert.Equal(t, 0, plan.PlanVersion)
	assert.Equal(t, domain.PlanDraft, plan.Status)
	assert.Equal(t, "Recharge Routine", plan.Output.Title)
	assert.Equal(t, 4, plan.Source.EventCount)
	assert.Equal(t, 2, plan.Source.DistinctTypes)

	stored, err := f.plans.GetByID(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, plan.ID, stored.ID)
}

func TestGeneratePlan_Initial_SurveyOnly(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()

	// Survey complete, zero events.
	child := testutil.NewTestChild("Survey", testutil.WithCompletedSurvey())
	require.NoError(t, f.children.Create(ctx, child))

	result, err := f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:  child.ID,
		PlanType: domain.PlanInitial,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Plan.Source.EventCount)
}

func TestGeneratePlan_Initial_GateDenied_NoModelCall(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()

	child := testutil.NewTestChild("Sparse")
	require.NoError(t, f.children.Create(ctx, child))

	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:  child.ID,
		PlanType: domain.PlanInitial,
	})
	require.Error(t, err)

	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeNotEnoughEvents, ee.Code)
	require.NotNil(t, ee.Context, "gate denial carries the evaluated context")
	assert.Equal(t, 0, ee.Context.EventCount)

	assert.Zero(t, f.client.callCount(), "denied gate must not spend a model call")

	plans, err := f.plans.ListByChild(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestGeneratePlan_Initial_DuplicateRejected(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)

	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an initial plan")
}

func TestGeneratePlan_Progression(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)

	// The seeded events predate the initial plan; log fresh ones after it.
	seedEventsAfterPlan(t, f, child.ID, initial.Plan)

	f.client.text = outputJSON(domain.PlanEventBased)
	result, err := f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:  child.ID,
		PlanType: domain.PlanEventBased,
	})
	require.NoError(t, err)

	plan := result.Plan
	assert.Equal(t, 1, plan.PlanNumber)
	assert.Equal(t, 0, plan.PlanVersion)
	require.NotNil(t, plan.Source.BasePlanID)
	assert.Equal(t, "Plan 1", plan.VersionLabel())
}

func TestGeneratePlan_Progression_NoBase(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanEventBased})
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeBasePlanNotFound, ee.Code)
}

func TestGeneratePlan_Progression_NoNewEvents(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)

	// No events logged since the initial plan.
	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanEventBased})
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeNoNewEvents, ee.Code)
}

func TestGeneratePlan_Refinement_VersionSequence(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)
	baseID := initial.Plan.ID

	f.client.text = outputJSON(domain.PlanRefinement)
	for wantVersion := 1; wantVersion <= 2; wantVersion++ {
		transcript := testutil.NewTestTranscript(child.ID,
			testutil.WithTranscriptCreatedAt(initial.Plan.CreatedAt.Add(time.Duration(wantVersion)*time.Minute)))
		require.NoError(t, f.transcripts.Create(ctx, transcript))

		result, err := f.eng.GeneratePlan(ctx, GenerateRequest{
			ChildID:      child.ID,
			PlanType:     domain.PlanRefinement,
			BasePlanID:   &baseID,
			TranscriptID: &transcript.ID,
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Plan.PlanNumber, "refinement inherits the base number")
		assert.Equal(t, wantVersion, result.Plan.PlanVersion)
		require.NotNil(t, result.Plan.Source.TranscriptID)
		assert.Equal(t, transcript.ID, *result.Plan.Source.TranscriptID)
	}
}

func TestGeneratePlan_Refinement_TranscriptOrdering(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)
	baseID := initial.Plan.ID

	stale := testutil.NewTestTranscript(child.ID,
		testutil.WithTranscriptCreatedAt(initial.Plan.CreatedAt.Add(-time.Minute)))
	require.NoError(t, f.transcripts.Create(ctx, stale))

	f.client.text = outputJSON(domain.PlanRefinement)
	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:      child.ID,
		PlanType:     domain.PlanRefinement,
		BasePlanID:   &baseID,
		TranscriptID: &stale.ID,
	})
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeTranscriptNotAfterBase, ee.Code)

	// One millisecond after the base plan is enough.
	fresh := testutil.NewTestTranscript(child.ID,
		testutil.WithTranscriptCreatedAt(initial.Plan.CreatedAt.Add(time.Millisecond)))
	require.NoError(t, f.transcripts.Create(ctx, fresh))

	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:      child.ID,
		PlanType:     domain.PlanRefinement,
		BasePlanID:   &baseID,
		TranscriptID: &fresh.ID,
	})
	require.NoError(t, err)
}

func TestGeneratePlan_Refinement_TranscriptNotFound(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)
	baseID := initial.Plan.ID
	missing := "no-such-transcript"

	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:      child.ID,
		PlanType:     domain.PlanRefinement,
		BasePlanID:   &baseID,
		TranscriptID: &missing,
	})
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeTranscriptNotFound, ee.Code)
}

func TestGeneratePlan_BasePlanFromWrongChild(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	other := testutil.NewTestChild("Other", testutil.WithCompletedSurvey())
	require.NoError(t, f.children.Create(ctx, other))
	otherInitial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: other.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)

	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{
		ChildID:    child.ID,
		PlanType:   domain.PlanEventBased,
		BasePlanID: &otherInitial.Plan.ID,
	})
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeInconsistentIDs, ee.Code)
}

func TestGeneratePlan_InvalidModelOutput_NotPersisted(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	f.client.text = "I'd be happy to help, but I need more information."
	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeValidationFailed, ee.Code)

	plans, err := f.plans.ListByChild(ctx, child.ID)
	require.NoError(t, err)
	assert.Empty(t, plans, "rejected output must never be persisted")
}

func TestGeneratePlan_ProviderErrors(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	f.client.err = fmt.Errorf("%w: no api key", llm.ErrMisconfigured)
	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeServiceUnavailable, ee.Code)

	f.client.err = errors.New("connection reset")
	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	ee = AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeModelError, ee.Code)

	f.client.err = &llm.CallError{
		Err:      fmt.Errorf("%w after 3 attempt(s)", llm.ErrRetryExhausted),
		Attempts: 3,
	}
	_, err = f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	ee = AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeModelError, ee.Code)
	assert.Equal(t, 3, ee.Attempts, "attempt count survives into the typed failure")
}

func TestGeneratePlan_CancelledBeforePersist(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	child := seedEligibleChild(t, f)

	// The provider call returns a valid plan, but the caller cancelled
	// while it was in flight. Nothing may be persisted.
	ctx, cancel := context.WithCancel(context.Background())
	f.client.onCall = cancel

	_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)

	plans, err := f.plans.ListByChild(context.Background(), child.ID)
	require.NoError(t, err)
	assert.Empty(t, plans)
}

func TestGeneratePlan_NilClientUnavailable(t *testing.T) {
	database := testutil.NewTestDB(t)
	f := newEngineFixture(t, database, engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	eng := New(engineTestConfig(), NewContextBuilder(f.children, f.events),
		f.plans, f.transcripts, db.NewSQLiteUnitOfWork(database), nil)

	_, err := eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeServiceUnavailable, ee.Code)
}

func TestApplyPlan_SingleActive(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)

	seedEventsAfterPlan(t, f, child.ID, initial.Plan)
	f.client.text = outputJSON(domain.PlanEventBased)
	progression, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanEventBased})
	require.NoError(t, err)

	require.NoError(t, f.eng.ApplyPlan(ctx, child.ID, initial.Plan.ID))
	active, err := f.plans.GetActive(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, initial.Plan.ID, active.ID)

	require.NoError(t, f.eng.ApplyPlan(ctx, child.ID, progression.Plan.ID))
	active, err = f.plans.GetActive(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, progression.Plan.ID, active.ID)

	demoted, err := f.plans.GetByID(ctx, initial.Plan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PlanSuperseded, demoted.Status)

	// A superseded plan cannot come back.
	err = f.eng.ApplyPlan(ctx, child.ID, initial.Plan.ID)
	require.Error(t, err)
}

func TestApplyPlan_WrongChild(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)

	err = f.eng.ApplyPlan(ctx, "someone-else", initial.Plan.ID)
	require.Error(t, err)
	ee := AsEngineError(err)
	require.NotNil(t, ee)
	assert.Equal(t, CodeInconsistentIDs, ee.Code)
}

// TestGeneratePlan_ConcurrentProgressions is the double-submit scenario:
// two progression requests for the same child racing each other. The
// per-child lock serializes them; the winner creates the next plan, and
// the loser rebases onto that fresh plan, finds no events after it, and is
// denied. A double-submit can never mint two plans from one batch of
// events.
func TestGeneratePlan_ConcurrentProgressions(t *testing.T) {
	f := newEngineFixture(t, testutil.NewTestFileDB(t), engineTestConfig())
	ctx := context.Background()
	child := seedEligibleChild(t, f)

	initial, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanInitial})
	require.NoError(t, err)
	seedEventsAfterPlan(t, f, child.ID, initial.Plan)

	f.client.text = outputJSON(domain.PlanEventBased)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.eng.GeneratePlan(ctx, GenerateRequest{ChildID: child.ID, PlanType: domain.PlanEventBased})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var succeeded, denied int
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		ee := AsEngineError(err)
		require.NotNil(t, ee, "unexpected failure: %v", err)
		assert.Equal(t, CodeNoNewEvents, ee.Code)
		denied++
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, denied)

	plans, err := f.plans.ListByChild(ctx, child.ID)
	require.NoError(t, err)
	var progressions []*domain.Plan
	for _, p := range plans {
		if p.Type == domain.PlanEventBased {
			progressions = append(progressions, p)
		}
	}
	require.Len(t, progressions, 1)
	assert.Equal(t, 1, progressions[0].PlanNumber)
}
