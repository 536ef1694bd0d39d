package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentNumbering_NoDuplicates runs plan number allocation plus
// insert from several goroutines, each inside its own transaction, against
// a file-backed WAL database. Every allocated number must be unique and the
// full set contiguous; the unique numbering index would reject any
// duplicate the allocator let through.
func TestConcurrentNumbering_NoDuplicates(t *testing.T) {
	database := testutil.NewTestFileDB(t)
	ctx := context.Background()

	childRepo := NewSQLiteChildRepo(database)
	child := testutil.NewTestChild("Concurrent")
	require.NoError(t, childRepo.Create(ctx, child))

	uow := db.NewSQLiteUnitOfWork(database)

	const workers = 8
	numbers := make(chan int, workers)
	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				repo := NewSQLitePlanRepo(tx)
				n, err := repo.NextPlanNumber(ctx, child.ID)
				if err != nil {
					return err
				}
				plan := testutil.NewTestPlan(child.ID,
					testutil.WithPlanType("event_based"),
					testutil.WithNumbering(n, 0),
				)
				if err := repo.Insert(ctx, plan); err != nil {
					return err
				}
				numbers <- n
				return nil
			})
			assert.NoError(t, err)
		}()
	}

	wg.Wait()
	close(numbers)

	seen := make(map[int]bool)
	for n := range numbers {
		assert.False(t, seen[n], "plan number %d allocated twice", n)
		seen[n] = true
	}
	require.Len(t, seen, workers)
	for n := 1; n <= workers; n++ {
		assert.True(t, seen[n], "expected plan number %d to be allocated", n)
	}
}
