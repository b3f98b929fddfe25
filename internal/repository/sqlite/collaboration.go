package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/repository"
)

var _ repository.CollaborationRequestRepository = (*CollaborationRequestDB)(nil)

// CollaborationRequestDB is the append-only collaboration_requests log.
type CollaborationRequestDB struct {
	conn *sql.DB
}

// Create records req. An empty status is stored as pending.
func (c *CollaborationRequestDB) Create(ctx context.Context, req *model.CollaborationRequest) error {
	if err := prepareRequest(req, model.CollaborationPending); err != nil {
		return err
	}
	return insertRequest(ctx, c.conn, req)
}

// Accept adds req.RequesterID to the project's collaborators and records req
// as accepted in one transaction. Either both rows exist afterwards or
// neither does. A missing project or an existing collaborator is reported as
// by ProjectDB.AddCollaborator.
func (c *CollaborationRequestDB) Accept(ctx context.Context, req *model.CollaborationRequest) error {
	req.Status = model.CollaborationAccepted
	if err := prepareRequest(req, model.CollaborationAccepted); err != nil {
		return err
	}

	tx, err := c.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := addCollaborator(ctx, tx, req.ProjectID, req.RequesterID, req.CreatedAt); err != nil {
		return err
	}
	if err := insertRequest(ctx, tx, req); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing collaboration request: %w", err)
	}
	return nil
}

func prepareRequest(req *model.CollaborationRequest, status model.CollaborationStatus) error {
	if req.Status == "" {
		req.Status = status
	}
	if !req.Status.Valid() {
		return apperror.ValidationFailed("status", fmt.Sprintf("unknown collaboration status %q", req.Status))
	}

	now := time.Now()
	req.ID = xid.New().String()
	req.CreatedAt = now
	req.UpdatedAt = now
	return nil
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertRequest(ctx context.Context, db execer, req *model.CollaborationRequest) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO collaboration_requests (id, project_id, requester_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		req.ID,
		req.ProjectID,
		req.RequesterID,
		string(req.Status),
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: recording collaboration request: %w", err)
	}
	return nil
}
