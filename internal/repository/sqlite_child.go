package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nebulatools/sleepplan/internal/db"
	"github.com/nebulatools/sleepplan/internal/domain"
)

// childColumns is the canonical SELECT column list for children.
const childColumns = `id, name, birthdate, survey_json, created_at, updated_at`

// SQLiteChildRepo implements ChildRepo using a SQLite database.
type SQLiteChildRepo struct {
	db db.DBTX
}

// NewSQLiteChildRepo creates a new SQLiteChildRepo.
func NewSQLiteChildRepo(conn db.DBTX) *SQLiteChildRepo {
	return &SQLiteChildRepo{db: conn}
}

func (r *SQLiteChildRepo) Create(ctx context.Context, c *domain.Child) error {
	surveyJSON, err := marshalSurvey(c.Survey)
	if err != nil {
		return err
	}
	query := `INSERT INTO children (id, name, birthdate, survey_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`
	_, err = r.db.ExecContext(ctx, query,
		c.ID,
		c.Name,
		nullableTimeToString(c.Birthdate),
		surveyJSON,
		timeToString(c.CreatedAt),
		timeToString(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting child: %w", err)
	}
	return nil
}

func (r *SQLiteChildRepo) GetByID(ctx context.Context, id string) (*domain.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children WHERE id = ?`
	return r.scanChild(r.db.QueryRowContext(ctx, query, id))
}

func (r *SQLiteChildRepo) List(ctx context.Context) ([]*domain.Child, error) {
	query := `SELECT ` + childColumns + ` FROM children ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing children: %w", err)
	}
	defer rows.Close()

	var children []*domain.Child
	for rows.Next() {
		c, err := scanChildRow(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, c)
	}
	return children, rows.Err()
}

func (r *SQLiteChildRepo) Update(ctx context.Context, c *domain.Child) error {
	surveyJSON, err := marshalSurvey(c.Survey)
	if err != nil {
		return err
	}
	query := `UPDATE children SET name = ?, birthdate = ?, survey_json = ?, updated_at = ?
		WHERE id = ?`
	_, err = r.db.ExecContext(ctx, query,
		c.Name,
		nullableTimeToString(c.Birthdate),
		surveyJSON,
		timeToString(c.UpdatedAt),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating child: %w", err)
	}
	return nil
}

func (r *SQLiteChildRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM children WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting child: %w", err)
	}
	return nil
}

func marshalSurvey(s *domain.SurveyData) (interface{}, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshaling survey data: %w", err)
	}
	return string(data), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLiteChildRepo) scanChild(row *sql.Row) (*domain.Child, error) {
	c, err := scanChildRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("child: %w", ErrNotFound)
	}
	return c, err
}

func scanChildRow(row rowScanner) (*domain.Child, error) {
	var (
		c          domain.Child
		birthdate  sql.NullString
		surveyJSON sql.NullString
		createdAt  string
		updatedAt  string
	)
	if err := row.Scan(&c.ID, &c.Name, &birthdate, &surveyJSON, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning child: %w", err)
	}
	c.Birthdate = parseNullableTime(birthdate)
	if surveyJSON.Valid && surveyJSON.String != "" {
		var survey domain.SurveyData
		if err := json.Unmarshal([]byte(surveyJSON.String), &survey); err != nil {
			return nil, fmt.Errorf("unmarshaling survey data: %w", err)
		}
		c.Survey = &survey
	}
	c.CreatedAt = parseTime(createdAt)
	c.UpdatedAt = parseTime(updatedAt)
	return &c, nil
}
