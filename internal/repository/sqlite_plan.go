package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/domain"
)

// planColumns is the canonical SELECT column list for plans.
const planColumns = `id, child_id, plan_type, plan_number, plan_version, status,
		output_json, source_from, source_to, event_count, distinct_types, by_type_json,
		base_plan_id, transcript_id, report_id, created_at, updated_at, created_by`

// SQLitePlanRepo implements PlanRepo using a SQLite database. It accepts a
// db.DBTX so the orchestrator can compose numbering, insert, and
// supersession inside one transaction.
type SQLitePlanRepo struct {
	db db.DBTX
}

// NewSQLitePlanRepo creates a new SQLitePlanRepo.
func NewSQLitePlanRepo(conn db.DBTX) *SQLitePlanRepo {
	return &SQLitePlanRepo{db: conn}
}

func (r *SQLitePlanRepo) Insert(ctx context.Context, p *domain.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}

	outputJSON, err := json.Marshal(p.Output)
	if err != nil {
		return fmt.Errorf("marshaling plan output: %w", err)
	}
	byTypeJSON, err := json.Marshal(p.Source.ByType)
	if err != nil {
		return fmt.Errorf("marshaling source histogram: %w", err)
	}

	query := `INSERT INTO plans (id, child_id, plan_type, plan_number, plan_version, status,
		output_json, source_from, source_to, event_count, distinct_types, by_type_json,
		base_plan_id, transcript_id, report_id, created_at, updated_at, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		p.ID,
		p.ChildID,
		string(p.Type),
		p.PlanNumber,
		p.PlanVersion,
		string(p.Status),
		string(outputJSON),
		timeToString(p.Source.From),
		timeToString(p.Source.To),
		p.Source.EventCount,
		p.Source.DistinctTypes,
		string(byTypeJSON),
		nullableString(p.Source.BasePlanID),
		nullableString(p.Source.TranscriptID),
		nullableString(p.Source.ReportID),
		timeToString(p.CreatedAt),
		timeToString(p.UpdatedAt),
		p.CreatedBy,
	)
	if err != nil {
		return fmt.Errorf("inserting plan %s (%s %d.%d): %w", p.ID, p.Type, p.PlanNumber, p.PlanVersion, err)
	}
	return nil
}

func (r *SQLitePlanRepo) GetByID(ctx context.Context, id string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE id = ?`
	return r.scanPlan(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLitePlanRepo) GetActive(ctx context.Context, childID string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE child_id = ? AND status = 'active'`
	return r.scanPlan(r.db.QueryRowContext(ctx, query, childID))
}

func (r *SQLitePlanRepo) GetLatestBase(ctx context.Context, childID string) (*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans
		WHERE child_id = ? AND plan_type IN ('initial','event_based')
		ORDER BY plan_number DESC, created_at DESC LIMIT 1`
	return r.scanPlan(r.db.QueryRowContext(ctx, query, childID))
}

func (r *SQLitePlanRepo) ListByChild(ctx context.Context, childID string) ([]*domain.Plan, error) {
	query := `SELECT ` + planColumns + ` FROM plans WHERE child_id = ?
		ORDER BY plan_number, plan_version, created_at`
	rows, err := r.db.QueryContext(ctx, query, childID)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	defer rows.Close()

	var plans []*domain.Plan
	for rows.Next() {
		p, err := scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, p)
	}
	return plans, rows.Err()
}

// NextPlanNumber allocates the next plan number for a child from the
// plan_sequences table. The allocator row is seeded from existing plan rows
// on first use, then advanced with a single UPDATE ... RETURNING, so
// allocation is atomic and the sequence is strictly increasing even under
// concurrent writers. The initial plan owns number 0, so allocation starts
// at 1.
func (r *SQLitePlanRepo) NextPlanNumber(ctx context.Context, childID string) (int, error) {
	seedQuery := `INSERT OR IGNORE INTO plan_sequences (child_id, next_number)
		SELECT ?, COALESCE(MAX(plan_number), 0) + 1
		FROM plans
		WHERE child_id = ? AND plan_type IN ('initial','event_based')`
	if _, err := r.db.ExecContext(ctx, seedQuery, childID, childID); err != nil {
		return 0, fmt.Errorf("seeding plan sequence for child %s: %w", childID, err)
	}

	var next int
	allocQuery := `UPDATE plan_sequences
		SET next_number = next_number + 1
		WHERE child_id = ?
		RETURNING next_number - 1`
	if err := r.db.QueryRowContext(ctx, allocQuery, childID).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocating next plan number for child %s: %w", childID, err)
	}

	return next, nil
}

// NextPlanVersion returns MAX(plan_version)+1 under (childID, planNumber).
// Must run inside the same transaction as the subsequent insert; the unique
// numbering index turns any lost-update race into a loud constraint error
// instead of a silent duplicate.
func (r *SQLitePlanRepo) NextPlanVersion(ctx context.Context, childID string, planNumber int) (int, error) {
	query := `SELECT COALESCE(MAX(plan_version), 0) + 1 FROM plans
		WHERE child_id = ? AND plan_number = ?`
	var next int
	if err := r.db.QueryRowContext(ctx, query, childID, planNumber).Scan(&next); err != nil {
		return 0, fmt.Errorf("computing next plan version for child %s number %d: %w", childID, planNumber, err)
	}
	return next, nil
}

func (r *SQLitePlanRepo) SetStatus(ctx context.Context, id string, status domain.PlanStatus) error {
	query := `UPDATE plans SET status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, string(status), timeToString(time.Now()), id)
	if err != nil {
		return fmt.Errorf("setting plan %s status to %s: %w", id, status, err)
	}
	n, err := res.RowsAffected()
	if err == nil && n == 0 {
		return fmt.Errorf("plan %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLitePlanRepo) MarkSuperseded(ctx context.Context, childID, excludePlanID string) error {
	query := `UPDATE plans SET status = 'superseded', updated_at = ?
		WHERE child_id = ? AND id != ? AND status != 'superseded'`
	if _, err := r.db.ExecContext(ctx, query, timeToString(time.Now()), childID, excludePlanID); err != nil {
		return fmt.Errorf("superseding plans for child %s: %w", childID, err)
	}
	return nil
}

func (r *SQLitePlanRepo) scanPlan(row *sql.Row) (*domain.Plan, error) {
	p, err := scanPlanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("plan: %w", ErrNotFound)
	}
	return p, err
}

func scanPlanRow(row rowScanner) (*domain.Plan, error) {
	var (
		p            domain.Plan
		planType     string
		status       string
		outputJSON   string
		sourceFrom   string
		sourceTo     string
		byTypeJSON   string
		basePlanID   sql.NullString
		transcriptID sql.NullString
		reportID     sql.NullString
		createdAt    string
		updatedAt    string
	)
	err := row.Scan(&p.ID, &p.ChildID, &planType, &p.PlanNumber, &p.PlanVersion, &status,
		&outputJSON, &sourceFrom, &sourceTo, &p.Source.EventCount, &p.Source.DistinctTypes, &byTypeJSON,
		&basePlanID, &transcriptID, &reportID, &createdAt, &updatedAt, &p.CreatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning plan: %w", err)
	}

	p.Type = domain.PlanType(planType)
	p.Status = domain.PlanStatus(status)
	if err := json.Unmarshal([]byte(outputJSON), &p.Output); err != nil {
		return nil, fmt.Errorf("unmarshaling plan output: %w", err)
	}
	if byTypeJSON != "" {
		if err := json.Unmarshal([]byte(byTypeJSON), &p.Source.ByType); err != nil {
			return nil, fmt.Errorf("unmarshaling source histogram: %w", err)
		}
	}
	p.Source.From = parseTime(sourceFrom)
	p.Source.To = parseTime(sourceTo)
	p.Source.BasePlanID = stringPtr(basePlanID)
	p.Source.TranscriptID = stringPtr(transcriptID)
	p.Source.ReportID = stringPtr(reportID)
	p.CreatedAt = parseTime(createdAt)
	p.UpdatedAt = parseTime(updatedAt)
	return &p, nil
}
