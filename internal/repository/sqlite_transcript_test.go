package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranscriptRepo_ResolveCreatedAt(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	childRepo := NewSQLiteChildRepo(database)
	transcriptRepo := NewSQLiteTranscriptRepo(database)

	child := testutil.NewTestChild("Transcripts")
	require.NoError(t, childRepo.Create(ctx, child))

	createdAt := time.Date(2025, 7, 4, 10, 30, 0, 123456789, time.UTC)
	tr := testutil.NewTestTranscript(child.ID, testutil.WithTranscriptCreatedAt(createdAt))
	require.NoError(t, transcriptRepo.Create(ctx, tr))

	got, err := transcriptRepo.ResolveCreatedAt(ctx, tr.ID)
	require.NoError(t, err)
	assert.True(t, got.Equal(createdAt), "sub-second precision must survive storage")

	_, err = transcriptRepo.ResolveCreatedAt(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTranscriptRepo_GetByID(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	childRepo := NewSQLiteChildRepo(database)
	transcriptRepo := NewSQLiteTranscriptRepo(database)

	child := testutil.NewTestChild("TrGet")
	require.NoError(t, childRepo.Create(ctx, child))

	tr := testutil.NewTestTranscript(child.ID)
	require.NoError(t, transcriptRepo.Create(ctx, tr))

	got, err := transcriptRepo.GetByID(ctx, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, tr.ChildID, got.ChildID)
	assert.Equal(t, tr.Summary, got.Summary)
}

// Numbering and insert share one transaction; a failing insert must roll
// back the sequence advance too, so the next allocation reuses the number.
func TestNumbering_RollsBackWithFailedInsert(t *testing.T) {
	database := testutil.NewTestDB(t)
	ctx := context.Background()
	childRepo := NewSQLiteChildRepo(database)
	child := testutil.NewTestChild("Rollback")
	require.NoError(t, childRepo.Create(ctx, child))

	injected := errors.New("disk full")
	// Exec 1 is the sequence seed; the UPDATE ... RETURNING allocation runs
	// through QueryRow and is not counted, so the plan INSERT is exec 2.
	uow := &testutil.FailOnNthExecUoW{DB: database, FailOn: 2, Err: injected}

	err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		repo := NewSQLitePlanRepo(tx)
		n, err := repo.NextPlanNumber(ctx, child.ID)
		if err != nil {
			return err
		}
		return repo.Insert(ctx, testutil.NewTestPlan(child.ID,
			testutil.WithPlanType("event_based"),
			testutil.WithNumbering(n, 0),
		))
	})
	require.ErrorIs(t, err, injected)

	planRepo := NewSQLitePlanRepo(database)
	n, err := planRepo.NextPlanNumber(ctx, child.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "rolled back allocation must not burn the number")
}
