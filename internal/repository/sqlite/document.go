package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/model"
)

// AttachDocument inserts doc and appends it to the end of the project's
// document list. Both writes share one transaction: either the project gains
// the document or no document row exists.
//
// doc.CreatedBy.ID must be an existing user; it also becomes the project's
// lastModifiedBy.
func (p *ProjectDB) AttachDocument(ctx context.Context, projectID string, doc *model.Document) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	exists, err := projectExists(ctx, tx, projectID)
	if err != nil {
		return err
	}
	if !exists {
		return apperror.NotFound("project", projectID)
	}

	now := time.Now()
	doc.ID = xid.New().String()
	doc.CreatedAt = now

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO documents (id, link, created_by, created_at) VALUES (?, ?, ?, ?)`,
		doc.ID, doc.Link, doc.CreatedBy.ID, doc.CreatedAt,
	); err != nil {
		return fmt.Errorf("sqlite: inserting document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO project_documents (project_id, document_id, position)
		 SELECT ?, ?, COALESCE(MAX(position), 0) + 1
		 FROM project_documents WHERE project_id = ?`,
		projectID, doc.ID, projectID,
	); err != nil {
		return fmt.Errorf("sqlite: linking document %s to project %s: %w", doc.ID, projectID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET last_modified_by = ?, last_modified_at = ?, updated_at = ? WHERE id = ?`,
		doc.CreatedBy.ID, now, now, projectID,
	); err != nil {
		return fmt.Errorf("sqlite: touching project %s: %w", projectID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing document %s: %w", doc.ID, err)
	}
	return nil
}

// documents returns the project's documents in list order, authors populated.
func (p *ProjectDB) documents(ctx context.Context, projectID string) ([]model.Document, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT d.id, d.link, d.created_at, u.id, u.username, u.email
		 FROM project_documents pd
		 JOIN documents d ON d.id = pd.document_id
		 JOIN users u ON u.id = d.created_by
		 WHERE pd.project_id = ?
		 ORDER BY pd.position`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading documents of %s: %w", projectID, err)
	}
	defer rows.Close()

	documents := []model.Document{}
	for rows.Next() {
		var d model.Document
		if err := rows.Scan(
			&d.ID,
			&d.Link,
			&d.CreatedAt,
			&d.CreatedBy.ID,
			&d.CreatedBy.Username,
			&d.CreatedBy.Email,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning document: %w", err)
		}
		documents = append(documents, d)
	}
	return documents, rows.Err()
}
