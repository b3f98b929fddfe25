package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/literature"
	"github.com/sakif/qi-research/internal/llm"
	"github.com/sakif/qi-research/internal/mail"
	"github.com/sakif/qi-research/internal/model"
	"github.com/sakif/qi-research/internal/storage/drive"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// In-memory stand-ins for the sqlite stores. They keep the same contracts
// (NotFound, Conflict, populated projects) so the services can be tested
// without a database.

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeUsers struct {
	mu     sync.Mutex
	byID   map[string]*model.User
	nextID int
}

func newFakeUsers() *fakeUsers {
	return &fakeUsers{byID: map[string]*model.User{}}
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return apperror.Conflict("email", "User with this email already exists")
		}
		if existing.Username == u.Username {
			return apperror.Conflict("username", "User with this username already exists")
		}
	}
	f.nextID++
	u.ID = fmt.Sprintf("user-%d", f.nextID)
	if u.Role == "" {
		u.Role = model.RoleClient
	}
	stored := *u
	f.byID[u.ID] = &stored
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.byID {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperror.NotFoundMessage("User not found")
}

func (f *fakeUsers) UpdateAPIKey(_ context.Context, id, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	u.APIKey = key
	return nil
}

// add is a test shortcut that stores a user directly.
func (f *fakeUsers) add(name string) *model.User {
	u := &model.User{Username: name, Email: name + "@example.com", APIKey: "pm-" + name}
	if err := f.Create(context.Background(), u); err != nil {
		panic(err)
	}
	return u
}

type fakeProjects struct {
	mu        sync.Mutex
	users     *fakeUsers
	order     []string
	byID      map[string]*model.Project
	attachErr error
}

func newFakeProjects(users *fakeUsers) *fakeProjects {
	return &fakeProjects{users: users, byID: map[string]*model.Project{}}
}

func (f *fakeProjects) Create(_ context.Context, p *model.Project) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.ID = fmt.Sprintf("project-%d", len(f.order)+1)
	p.CreatedAt = time.Now()
	if p.Collaborators == nil {
		p.Collaborators = []model.UserSummary{}
	}
	if p.Documents == nil {
		p.Documents = []model.Document{}
	}
	stored := *p
	f.byID[p.ID] = &stored
	f.order = append(f.order, p.ID)
	return nil
}

func (f *fakeProjects) GetByID(_ context.Context, id string) (*model.Project, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProjects) filter(keep func(*model.Project) bool) []model.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []model.Project{}
	for _, id := range f.order {
		if p := f.byID[id]; keep(p) {
			out = append(out, *p)
		}
	}
	return out
}

func (f *fakeProjects) List(context.Context) ([]model.Project, error) {
	return f.filter(func(*model.Project) bool { return true }), nil
}

func (f *fakeProjects) ListByOwner(_ context.Context, userID string) ([]model.Project, error) {
	return f.filter(func(p *model.Project) bool { return p.Owner.ID == userID }), nil
}

func (f *fakeProjects) ListByCollaborator(_ context.Context, userID string) ([]model.Project, error) {
	return f.filter(func(p *model.Project) bool { return hasCollaborator(p, userID) }), nil
}

func (f *fakeProjects) AddCollaborator(ctx context.Context, projectID, userID string) error {
	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[projectID]
	if !ok {
		return apperror.NotFound("project", projectID)
	}
	if hasCollaborator(p, userID) {
		return apperror.Conflict("email", "User is already a collaborator on this project.")
	}
	p.Collaborators = append(p.Collaborators, user.Summary())
	return nil
}

func (f *fakeProjects) AttachDocument(_ context.Context, projectID string, doc *model.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attachErr != nil {
		return f.attachErr
	}
	p, ok := f.byID[projectID]
	if !ok {
		return apperror.NotFound("project", projectID)
	}
	doc.ID = fmt.Sprintf("doc-%d", len(p.Documents)+1)
	p.Documents = append(p.Documents, *doc)
	p.LastModifiedBy = doc.CreatedBy.ID
	return nil
}

// add is a test shortcut that creates a project owned by owner.
func (f *fakeProjects) add(owner *model.User, title string) *model.Project {
	p := &model.Project{
		Title:       title,
		Description: "d",
		SearchQuery: model.SearchQuery{Query: "q"},
		Owner:       owner.Summary(),
	}
	if err := f.Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p
}

type fakeKeys struct {
	key *model.GPTKey
}

func (f *fakeKeys) Get(context.Context) (*model.GPTKey, error) {
	if f.key == nil {
		return nil, apperror.NotFoundMessage("GPT Key not found")
	}
	cp := *f.key
	return &cp, nil
}

func (f *fakeKeys) Upsert(_ context.Context, key, by string) (*model.GPTKey, error) {
	f.key = &model.GPTKey{Key: key, UpdatedBy: by, UpdatedAt: time.Now()}
	return f.key, nil
}

func (f *fakeKeys) Update(ctx context.Context, key, by string) (*model.GPTKey, error) {
	if f.key == nil {
		return nil, apperror.NotFoundMessage("GPT Key not found")
	}
	return f.Upsert(ctx, key, by)
}

func hasCollaborator(p *model.Project, userID string) bool {
	for _, c := range p.Collaborators {
		if c.ID == userID {
			return true
		}
	}
	return false
}

// fakeRequests records requests. Accept adds the collaborator through
// projects; with err set it fails before writing anything, as a rolled back
// transaction would.
type fakeRequests struct {
	projects *fakeProjects
	created  []model.CollaborationRequest
	err      error
}

func (f *fakeRequests) Create(_ context.Context, req *model.CollaborationRequest) error {
	if f.err != nil {
		return f.err
	}
	req.ID = fmt.Sprintf("req-%d", len(f.created)+1)
	f.created = append(f.created, *req)
	return nil
}

func (f *fakeRequests) Accept(ctx context.Context, req *model.CollaborationRequest) error {
	if f.err != nil {
		return f.err
	}
	if err := f.projects.AddCollaborator(ctx, req.ProjectID, req.RequesterID); err != nil {
		return err
	}
	req.Status = model.CollaborationAccepted
	return f.Create(ctx, req)
}

// =========================================================================
// FAKE EXTERNAL COLLABORATORS
// =========================================================================

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeSearcher struct {
	got     *literature.SearchRequest
	records []literature.Record
	err     error
}

func (f *fakeSearcher) Search(_ context.Context, req literature.SearchRequest) ([]literature.Record, error) {
	f.got = &req
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

type fakeFiles struct {
	uploads   map[string]string // name → content
	shared    []string
	deleted   []string
	uploadErr error
	shareErr  error
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{uploads: map[string]string{}}
}

func (f *fakeFiles) Upload(_ context.Context, name, _ string, r io.Reader) (*drive.File, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	f.uploads[name] = string(b)
	id := fmt.Sprintf("file-%d", len(f.uploads))
	return &drive.File{ID: id, WebViewLink: "https://drive.example/" + id}, nil
}

func (f *fakeFiles) Share(_ context.Context, id string) error {
	if f.shareErr != nil {
		return f.shareErr
	}
	f.shared = append(f.shared, id)
	return nil
}

func (f *fakeFiles) Delete(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeCompleter struct {
	gotKey      string
	gotMessages []llm.Message
	reply       string
	err         error
}

func (f *fakeCompleter) Complete(_ context.Context, key string, msgs []llm.Message) (string, error) {
	f.gotKey = key
	f.gotMessages = msgs
	return f.reply, f.err
}
