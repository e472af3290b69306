package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"campusbooker/internal/model"
)

var ErrApprovalNotFound = errors.New("approval not found")

type ApprovalRepository interface {
	Create(ctx context.Context, a *model.Approval) error
	GetByID(ctx context.Context, id string) (*model.Approval, error)
	GetAll(ctx context.Context) ([]model.Approval, error)
	GetAllByAction(ctx context.Context, action string) ([]model.Approval, error)
	GetAllByActionAndEvent(ctx context.Context, action, eventID string) ([]model.Approval, error)
	SetAction(ctx context.Context, id, action string) error
	DeletePendingByEvent(ctx context.Context, eventID string) (int64, error)
}

type approvalRepository struct {
	db  *dbpg.DB
	log *zerolog.Logger
}

func NewApprovalRepository(db *dbpg.DB, log *zerolog.Logger) (ApprovalRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &approvalRepository{db: db, log: log}, nil
}

func (r *approvalRepository) Create(ctx context.Context, a *model.Approval) error {
	pendingObj, err := json.Marshal(a.PendingObj)
	if err != nil {
		return fmt.Errorf("failed to marshal pending object: %w", err)
	}

	query := `
		INSERT INTO approvals (approval_id, event_id, type, pending_obj, action)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query,
		a.ApprovalID, a.EventID, a.Type, pendingObj, a.Action,
	); err != nil {
		return fmt.Errorf("failed to insert approval: %w", err)
	}
	return nil
}

func (r *approvalRepository) GetByID(ctx context.Context, id string) (*model.Approval, error) {
	query := `
		SELECT approval_id, event_id, type, pending_obj, action
		FROM approvals WHERE approval_id = $1
	`
	row := r.db.QueryRowContext(ctx, query, id)

	a, err := scanApproval(row.Scan)
	if err != nil {
		return nil, ErrApprovalNotFound
	}
	return a, nil
}

func (r *approvalRepository) GetAll(ctx context.Context) ([]model.Approval, error) {
	query := `
		SELECT approval_id, event_id, type, pending_obj, action
		FROM approvals
	`
	return r.queryApprovals(ctx, query)
}

func (r *approvalRepository) GetAllByAction(ctx context.Context, action string) ([]model.Approval, error) {
	query := `
		SELECT approval_id, event_id, type, pending_obj, action
		FROM approvals
		WHERE action = $1
	`
	return r.queryApprovals(ctx, query, action)
}

func (r *approvalRepository) GetAllByActionAndEvent(ctx context.Context, action, eventID string) ([]model.Approval, error) {
	query := `
		SELECT approval_id, event_id, type, pending_obj, action
		FROM approvals
		WHERE action = $1 AND event_id = $2
	`
	return r.queryApprovals(ctx, query, action, eventID)
}

func (r *approvalRepository) queryApprovals(ctx context.Context, query string, args ...any) ([]model.Approval, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get approvals: %w", err)
	}
	defer rows.Close()

	var approvals []model.Approval
	for rows.Next() {
		a, err := scanApproval(rows.Scan)
		if err != nil {
			return nil, err
		}
		approvals = append(approvals, *a)
	}
	return approvals, rows.Err()
}

func (r *approvalRepository) SetAction(ctx context.Context, id, action string) error {
	query := `UPDATE approvals SET action = $2 WHERE approval_id = $1 RETURNING approval_id`
	var got string
	if err := r.db.QueryRowContext(ctx, query, id, action).Scan(&got); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrApprovalNotFound
		}
		return fmt.Errorf("failed to set approval action: %w", err)
	}
	return nil
}

func (r *approvalRepository) DeletePendingByEvent(ctx context.Context, eventID string) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM approvals WHERE event_id = $1 AND action = 'pending'`, eventID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending approvals: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted approvals: %w", err)
	}
	return n, nil
}

func scanApproval(scan func(...any) error) (*model.Approval, error) {
	var a model.Approval
	var pendingObj []byte
	if err := scan(&a.ApprovalID, &a.EventID, &a.Type, &pendingObj, &a.Action); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(pendingObj, &a.PendingObj); err != nil {
		return nil, fmt.Errorf("failed to unmarshal pending object: %w", err)
	}
	return &a, nil
}
