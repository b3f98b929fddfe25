package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/export"
	"github.com/sakif/qi-research/internal/literature"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/repository"
	"github.com/sakif/qi-research/internal/storage/drive"
)

const (
	MinArticles = 1
	MaxArticles = 100

	csvMimeType = "text/csv"

	// compensationTimeout bounds the Drive cleanup after a failed generation.
	// It runs detached from the request context, which may already be done.
	compensationTimeout = 30 * time.Second
)

// LiteratureSearcher runs a literature search.
type LiteratureSearcher interface {
	Search(ctx context.Context, req literature.SearchRequest) ([]literature.Record, error)
}

// FileStore hosts generated files and makes them readable by link.
type FileStore interface {
	Upload(ctx context.Context, name, mimeType string, r io.Reader) (*drive.File, error)
	Share(ctx context.Context, fileID string) error
	Delete(ctx context.Context, fileID string) error
}

// GenerateInput is the request for a table-of-evidence document.
// GPTKey and UserEmail are optional.
type GenerateInput struct {
	ProjectID        string
	NumberOfArticles int
	SearchQuery      string
	GPTKey           string
	UserEmail        string
}

// DocumentService generates a table-of-evidence CSV, hosts it and links it
// to a project.
//
// THE ORDER MATTERS:
// Nothing is written to the database until the file is uploaded and shared.
// Once the upload succeeded, any later failure deletes the uploaded file, so
// a failed request leaves neither a document row nor a stray Drive file.
type DocumentService struct {
	projects repository.ProjectRepository
	users    repository.UserRepository
	keys     repository.GPTKeyRepository
	search   LiteratureSearcher
	files    FileStore
	tmpDir   string
	logger   *slog.Logger
	now      func() time.Time
}

// NewDocumentService wires the generation workflow. files may be nil when no
// storage is configured; Generate then fails with an upstream error.
func NewDocumentService(
	projects repository.ProjectRepository,
	users repository.UserRepository,
	keys repository.GPTKeyRepository,
	search LiteratureSearcher,
	files FileStore,
	tmpDir string,
	logger *slog.Logger,
) *DocumentService {
	return &DocumentService{
		projects: projects,
		users:    users,
		keys:     keys,
		search:   search,
		files:    files,
		tmpDir:   tmpDir,
		logger:   logger,
		now:      time.Now,
	}
}

// Generate runs the whole workflow for actorID and returns the stored
// document.
func (s *DocumentService) Generate(ctx context.Context, actorID string, in GenerateInput) (*model.Document, error) {
	in.ProjectID = strings.TrimSpace(in.ProjectID)
	in.SearchQuery = strings.TrimSpace(in.SearchQuery)
	if in.ProjectID == "" || in.SearchQuery == "" || in.NumberOfArticles == 0 {
		return nil, apperror.ValidationFailed("", "Project ID, number of articles, and search query are required")
	}
	if in.NumberOfArticles < MinArticles || in.NumberOfArticles > MaxArticles {
		return nil, apperror.ValidationFailed("numberOfArticles",
			fmt.Sprintf("number of articles must be between %d and %d", MinArticles, MaxArticles))
	}

	// Fail fast on a bad project id before any external call.
	if _, err := s.projects.GetByID(ctx, in.ProjectID); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, apperror.Upstream("Document storage is not configured", errors.New("no file store"))
	}

	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if err := s.fillDefaults(ctx, actor, &in); err != nil {
		return nil, err
	}

	records, err := s.search.Search(ctx, literature.SearchRequest{
		MaxResults: in.NumberOfArticles,
		Query:      in.SearchQuery,
		APIKey:     in.GPTKey,
		Email:      in.UserEmail,
	})
	if err != nil {
		if errors.Is(err, literature.ErrNoResults) {
			return nil, apperror.NotFoundMessage("Articles not found")
		}
		s.logger.Error("literature search failed",
			slog.String("projectID", in.ProjectID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream("Failed to fetch articles", err)
	}

	file, err := s.uploadCSV(ctx, records)
	if err != nil {
		s.logger.Error("document upload failed",
			slog.String("projectID", in.ProjectID),
			slog.String("error", err.Error()),
		)
		return nil, apperror.Upstream("Failed to upload document", err)
	}

	if err := s.files.Share(ctx, file.ID); err != nil {
		s.discard(file.ID)
		return nil, apperror.Upstream("Failed to share document", err)
	}

	doc := &model.Document{Link: file.WebViewLink, CreatedBy: actor.Summary()}
	if err := s.projects.AttachDocument(ctx, in.ProjectID, doc); err != nil {
		s.discard(file.ID)
		return nil, fmt.Errorf("saving document for project %s: %w", in.ProjectID, err)
	}

	s.logger.Info("document generated",
		slog.String("projectID", in.ProjectID),
		slog.String("documentID", doc.ID),
		slog.Int("articles", len(records)),
	)
	return doc, nil
}

// fillDefaults supplies the shared GPT key and the actor's email when the
// request did not carry them.
func (s *DocumentService) fillDefaults(ctx context.Context, actor *model.User, in *GenerateInput) error {
	in.GPTKey = strings.TrimSpace(in.GPTKey)
	in.UserEmail = strings.TrimSpace(in.UserEmail)

	if in.GPTKey == "" {
		key, err := s.keys.Get(ctx)
		if err != nil {
			return err
		}
		in.GPTKey = key.Key
	}
	if in.UserEmail == "" {
		in.UserEmail = actor.Email
	}
	return nil
}

// uploadCSV writes records to a temp file and uploads it. The temp directory
// is private to this call and removed before returning.
func (s *DocumentService) uploadCSV(ctx context.Context, records []literature.Record) (*drive.File, error) {
	dir, err := os.MkdirTemp(s.tmpDir, "toe-")
	if err != nil {
		return nil, fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	name := export.FileName(s.now())
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", name, err)
	}
	defer f.Close()

	if err := export.WriteTOE(f, records); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding %s: %w", name, err)
	}

	return s.files.Upload(ctx, name, csvMimeType, f)
}

// discard deletes an uploaded file after a later step failed. Failure is
// logged; the caller already has an error to return.
func (s *DocumentService) discard(fileID string) {
	ctx, cancel := context.WithTimeout(context.Background(), compensationTimeout)
	defer cancel()

	if err := s.files.Delete(ctx, fileID); err != nil {
		s.logger.Error("failed to delete orphaned upload",
			slog.String("fileID", fileID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.Warn("deleted orphaned upload", slog.String("fileID", fileID))
}
