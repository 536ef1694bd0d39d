package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/domain"
)

// eventColumns is the canonical SELECT column list for events.
const eventColumns = `id, child_id, type, start_time, end_time, sleep_delay_min, feeding_ml, notes, created_at`

// SQLiteEventRepo implements EventRepo using a SQLite database.
// The engine treats events as read-only input; writes exist for the CRUD
// surface that feeds the aggregator.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(conn db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: conn}
}

func (r *SQLiteEventRepo) Create(ctx context.Context, e *domain.Event) error {
	if err := e.Validate(); err != nil {
		return err
	}

	var sleepDelay, feedingMl interface{}
	var notes string
	switch d := e.Detail.(type) {
	case domain.SleepDetail:
		sleepDelay = d.DelayMinutes
	case domain.FeedingDetail:
		feedingMl = d.AmountMl
		notes = d.Notes
	}

	query := `INSERT INTO events (id, child_id, type, start_time, end_time, sleep_delay_min, feeding_ml, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.ChildID,
		string(e.Type),
		timeToString(e.StartTime),
		nullableTimeToString(e.EndTime),
		sleepDelay,
		feedingMl,
		notes,
		timeToString(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepo) ListByChild(ctx context.Context, childID string, from, to time.Time) ([]*domain.Event, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	query := `SELECT ` + eventColumns + ` FROM events
		WHERE child_id = ? AND start_time >= ? AND start_time <= ?
		ORDER BY start_time`
	rows, err := r.db.QueryContext(ctx, query, childID, timeToString(from), timeToString(to))
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// CountByTypes returns the per-type event histogram for the child over
// [from, to], inclusive on both bounds. Events with no rows contribute no
// map entry; an empty window returns an empty map, not an error.
func (r *SQLiteEventRepo) CountByTypes(ctx context.Context, childID string, from, to time.Time) (map[domain.EventType]int, error) {
	if from.After(to) {
		return nil, ErrInvalidRange
	}
	query := `SELECT type, COUNT(*) FROM events
		WHERE child_id = ? AND start_time >= ? AND start_time <= ?
		GROUP BY type`
	rows, err := r.db.QueryContext(ctx, query, childID, timeToString(from), timeToString(to))
	if err != nil {
		return nil, fmt.Errorf("counting events by type: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.EventType]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("scanning event count: %w", err)
		}
		counts[domain.EventType(t)] = n
	}
	return counts, rows.Err()
}

func scanEvent(rows *sql.Rows) (*domain.Event, error) {
	var (
		e          domain.Event
		typ        string
		startTime  string
		endTime    sql.NullString
		sleepDelay sql.NullInt64
		feedingMl  sql.NullInt64
		notes      string
		createdAt  string
	)
	if err := rows.Scan(&e.ID, &e.ChildID, &typ, &startTime, &endTime, &sleepDelay, &feedingMl, &notes, &createdAt); err != nil {
		return nil, fmt.Errorf("scanning event: %w", err)
	}
	e.Type = domain.EventType(typ)
	e.StartTime = parseTime(startTime)
	e.EndTime = parseNullableTime(endTime)
	e.CreatedAt = parseTime(createdAt)

	switch {
	case sleepDelay.Valid:
		e.Detail = domain.SleepDetail{DelayMinutes: int(sleepDelay.Int64)}
	case feedingMl.Valid:
		e.Detail = domain.FeedingDetail{AmountMl: int(feedingMl.Int64), Notes: notes}
	}
	return &e, nil
}
