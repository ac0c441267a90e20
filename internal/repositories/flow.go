package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/loopauth/internal/models"
	"github.com/desertthunder/loopauth/internal/shared"
)

var _ models.Repository[*models.Flow] = (*FlowRepository)(nil)

const flowColumns = "id, sequence, port, status, callback_url, error, created_at, updated_at, completed_at, deleted_at"

// FlowRepository implements [models.Repository] for [models.Flow] persistence.
type FlowRepository struct {
	db *sql.DB
}

// NewFlowRepository creates a new [FlowRepository] with the given database connection
func NewFlowRepository(db *sql.DB) *FlowRepository {
	return &FlowRepository{db: db}
}

// Create inserts a new flow with a generated ID and sequence.
//
// The sequence is only consumed when the insert succeeds.
func (r *FlowRepository) Create(flow *models.Flow) error {
	flow.SetID(shared.GenerateID())

	if err := flow.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sequence, err := nextSequence(tx, "flows")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	query := `
		INSERT INTO flows (id, sequence, port, status, callback_url, error, created_at, updated_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = tx.Exec(query,
		flow.ID(), sequence, flow.Port(), string(flow.Status()), flow.CallbackURL(), flow.Error(),
		flow.CreatedAt(), flow.UpdatedAt(), nullTime(flow.CompletedAt()),
	)
	if err != nil {
		return fmt.Errorf("failed to insert flow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit flow: %w", err)
	}

	flow.SetSequence(sequence)
	return nil
}

// Get retrieves a flow by ID, excluding soft-deleted flows
func (r *FlowRepository) Get(id string) (*models.Flow, error) {
	query := "SELECT " + flowColumns + " FROM flows WHERE id = ? AND deleted_at IS NULL"

	flow, err := scanFlow(r.db.QueryRow(query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", shared.ErrFlowNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query flow: %w", err)
	}

	return flow, nil
}

// Update persists the status, URL, error and completion time of an existing flow
func (r *FlowRepository) Update(flow *models.Flow) error {
	if err := flow.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	query := `
		UPDATE flows
		SET status = ?, callback_url = ?, error = ?, updated_at = ?, completed_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query,
		string(flow.Status()), flow.CallbackURL(), flow.Error(), flow.UpdatedAt(), nullTime(flow.CompletedAt()), flow.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update flow: %w", err)
	}

	return requireRow(result, flow.ID())
}

// Delete soft-deletes a flow by ID
func (r *FlowRepository) Delete(id string) error {
	query := `
		UPDATE flows
		SET deleted_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete flow: %w", err)
	}

	return requireRow(result, id)
}

// List retrieves flows matching the given criteria, newest first, excluding soft-deleted flows.
//
// Supported criteria: "status" ([models.FlowStatus] or string), "port" (int) and "limit" (int).
func (r *FlowRepository) List(criteria map[string]any) ([]*models.Flow, error) {
	query := "SELECT " + flowColumns + " FROM flows WHERE deleted_at IS NULL"
	args := []any{}

	switch status := criteria["status"].(type) {
	case models.FlowStatus:
		query += " AND status = ?"
		args = append(args, string(status))
	case string:
		if status != "" {
			query += " AND status = ?"
			args = append(args, status)
		}
	}

	if port, ok := criteria["port"].(int); ok && port > 0 {
		query += " AND port = ?"
		args = append(args, port)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	defer rows.Close()

	var flows []*models.Flow
	for rows.Next() {
		flow, err := scanFlow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		flows = append(flows, flow)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return flows, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanFlow(s scanner) (*models.Flow, error) {
	var (
		id          string
		sequence    int
		port        int
		status      string
		callbackURL string
		errMsg      string
		createdAt   time.Time
		updatedAt   time.Time
		completedAt sql.NullTime
		deletedAt   sql.NullTime
	)

	if err := s.Scan(&id, &sequence, &port, &status, &callbackURL, &errMsg, &createdAt, &updatedAt, &completedAt, &deletedAt); err != nil {
		return nil, err
	}

	return models.RestoreFlow(
		id, sequence, port, models.FlowStatus(status), callbackURL, errMsg, createdAt, updatedAt,
		timePtr(completedAt), timePtr(deletedAt),
	), nil
}

func requireRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w or already deleted: %s", shared.ErrFlowNotFound, id)
	}
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}
