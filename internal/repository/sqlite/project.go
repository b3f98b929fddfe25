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

var _ repository.ProjectRepository = (*ProjectDB)(nil)

// ProjectDB is the projects table plus its two satellite tables,
// project_collaborators (a set) and project_documents (an ordered list).
type ProjectDB struct {
	conn *sql.DB
}

// The owner is joined in directly; collaborators and documents are loaded by
// populate once the project rows are closed.
const projectSelect = `
	SELECT p.id, p.title, p.description, p.search_query,
	       p.last_modified_by, p.last_modified_at, p.created_at, p.updated_at,
	       o.id, o.username, o.email
	FROM projects p
	JOIN users o ON o.id = p.owner_id`

// Create inserts a project owned by project.Owner.ID.
func (p *ProjectDB) Create(ctx context.Context, project *model.Project) error {
	now := time.Now()
	project.ID = xid.New().String()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.Collaborators == nil {
		project.Collaborators = []model.UserSummary{}
	}
	if project.Documents == nil {
		project.Documents = []model.Document{}
	}

	var lastModifiedBy sql.NullString
	if project.LastModifiedBy != "" {
		lastModifiedBy = sql.NullString{String: project.LastModifiedBy, Valid: true}
	}
	var lastModifiedAt sql.NullTime
	if project.LastModifiedAt != nil {
		lastModifiedAt = sql.NullTime{Time: *project.LastModifiedAt, Valid: true}
	}

	_, err := p.conn.ExecContext(ctx,
		`INSERT INTO projects (id, title, description, search_query, owner_id,
		                       last_modified_by, last_modified_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID,
		project.Title,
		project.Description,
		project.SearchQuery.Query,
		project.Owner.ID,
		lastModifiedBy,
		lastModifiedAt,
		project.CreatedAt,
		project.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating project: %w", err)
	}
	return nil
}

// GetByID returns the populated project, or apperror.ErrNotFound.
func (p *ProjectDB) GetByID(ctx context.Context, id string) (*model.Project, error) {
	projects, err := p.query(ctx, projectSelect+` WHERE p.id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting project %s: %w", id, err)
	}
	if len(projects) == 0 {
		return nil, apperror.NotFound("project", id)
	}
	return &projects[0], nil
}

// List returns every project in creation order.
func (p *ProjectDB) List(ctx context.Context) ([]model.Project, error) {
	projects, err := p.query(ctx, projectSelect+` ORDER BY p.rowid`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects: %w", err)
	}
	return projects, nil
}

func (p *ProjectDB) ListByOwner(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := p.query(ctx, projectSelect+` WHERE p.owner_id = ? ORDER BY p.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects owned by %s: %w", userID, err)
	}
	return projects, nil
}

func (p *ProjectDB) ListByCollaborator(ctx context.Context, userID string) ([]model.Project, error) {
	projects, err := p.query(ctx, projectSelect+`
		WHERE p.id IN (SELECT project_id FROM project_collaborators WHERE user_id = ?)
		ORDER BY p.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing projects shared with %s: %w", userID, err)
	}
	return projects, nil
}

// AddCollaborator adds userID to the project's collaborator set.
func (p *ProjectDB) AddCollaborator(ctx context.Context, projectID, userID string) error {
	tx, err := p.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := addCollaborator(ctx, tx, projectID, userID, time.Now()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing collaborator add: %w", err)
	}
	return nil
}

// addCollaborator inserts into the collaborator set inside tx.
//
// The insert is conditional on the project existing and ignores a primary key
// clash, so one statement decides the outcome. Zero affected rows means either
// the project is missing or the user was already there; a lookup inside the
// same transaction tells the two apart.
func addCollaborator(ctx context.Context, tx *sql.Tx, projectID, userID string, now time.Time) error {
	result, err := tx.ExecContext(ctx,
		`INSERT INTO project_collaborators (project_id, user_id, added_at)
		 SELECT ?, ?, ? WHERE EXISTS (SELECT 1 FROM projects WHERE id = ?)
		 ON CONFLICT (project_id, user_id) DO NOTHING`,
		projectID, userID, now, projectID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding collaborator %s to project %s: %w", userID, projectID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		exists, err := projectExists(ctx, tx, projectID)
		if err != nil {
			return err
		}
		if !exists {
			return apperror.NotFound("project", projectID)
		}
		return apperror.Conflict("email", "User is already a collaborator on this project.")
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE projects SET updated_at = ? WHERE id = ?`, now, projectID,
	); err != nil {
		return fmt.Errorf("sqlite: touching project %s: %w", projectID, err)
	}
	return nil
}

func projectExists(ctx context.Context, tx *sql.Tx, id string) (bool, error) {
	var exists bool
	err := tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM projects WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking project %s: %w", id, err)
	}
	return exists, nil
}

// query runs a projectSelect variant, closes the rows, then populates.
func (p *ProjectDB) query(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := p.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	projects := []model.Project{}
	for rows.Next() {
		var (
			proj           model.Project
			lastModifiedBy sql.NullString
			lastModifiedAt sql.NullTime
		)
		if err := rows.Scan(
			&proj.ID,
			&proj.Title,
			&proj.Description,
			&proj.SearchQuery.Query,
			&lastModifiedBy,
			&lastModifiedAt,
			&proj.CreatedAt,
			&proj.UpdatedAt,
			&proj.Owner.ID,
			&proj.Owner.Username,
			&proj.Owner.Email,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning project row: %w", err)
		}
		proj.LastModifiedBy = lastModifiedBy.String
		if lastModifiedAt.Valid {
			t := lastModifiedAt.Time
			proj.LastModifiedAt = &t
		}
		projects = append(projects, proj)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating project rows: %w", err)
	}
	rows.Close()

	for i := range projects {
		if err := p.populate(ctx, &projects[i]); err != nil {
			return nil, err
		}
	}
	return projects, nil
}

func (p *ProjectDB) populate(ctx context.Context, proj *model.Project) error {
	collaborators, err := p.collaborators(ctx, proj.ID)
	if err != nil {
		return err
	}
	documents, err := p.documents(ctx, proj.ID)
	if err != nil {
		return err
	}
	proj.Collaborators = collaborators
	proj.Documents = documents
	return nil
}

func (p *ProjectDB) collaborators(ctx context.Context, projectID string) ([]model.UserSummary, error) {
	rows, err := p.conn.QueryContext(ctx,
		`SELECT u.id, u.username, u.email
		 FROM project_collaborators pc
		 JOIN users u ON u.id = pc.user_id
		 WHERE pc.project_id = ?
		 ORDER BY pc.rowid`,
		projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: loading collaborators of %s: %w", projectID, err)
	}
	defer rows.Close()

	collaborators := []model.UserSummary{}
	for rows.Next() {
		var c model.UserSummary
		if err := rows.Scan(&c.ID, &c.Username, &c.Email); err != nil {
			return nil, fmt.Errorf("sqlite: scanning collaborator: %w", err)
		}
		collaborators = append(collaborators, c)
	}
	return collaborators, rows.Err()
}
