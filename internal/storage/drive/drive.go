// Package drive uploads generated files to Google Drive and makes them
// readable by link.
//
// AUTHENTICATION:
// A service-account key file is exchanged for tokens with the OAuth2 JWT
// bearer flow (golang.org/x/oauth2/google). The scope is drive.file, so the
// account can only see files it created itself.
package drive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// File is an uploaded Drive file.
type File struct {
	ID          string
	WebViewLink string
}

// Uploader creates, shares and deletes files in one Drive folder.
type Uploader struct {
	svc      *drive.Service
	folderID string
	role     string
}

// NewUploader builds an Uploader from a service-account credentials file.
// folderID may be empty (files land in the account's root). role is the
// permission granted to "anyone" on Share; empty means "reader".
func NewUploader(ctx context.Context, credentialsFile, folderID, role string) (*Uploader, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("drive: reading credentials: %w", err)
	}

	conf, err := google.JWTConfigFromJSON(data, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("drive: parsing credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(conf.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("drive: creating service: %w", err)
	}
	return NewUploaderWithService(svc, folderID, role), nil
}

// NewUploaderWithService wraps an existing service. Tests point one at an
// httptest server with option.WithEndpoint.
func NewUploaderWithService(svc *drive.Service, folderID, role string) *Uploader {
	if role == "" {
		role = "reader"
	}
	return &Uploader{svc: svc, folderID: folderID, role: role}
}

// Upload stores r as a new file called name.
func (u *Uploader) Upload(ctx context.Context, name, mimeType string, r io.Reader) (*File, error) {
	meta := &drive.File{Name: name, MimeType: mimeType}
	if u.folderID != "" {
		meta.Parents = []string{u.folderID}
	}

	created, err := u.svc.Files.Create(meta).
		Media(r, googleapi.ContentType(mimeType)).
		Fields("id", "webViewLink").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("drive: uploading %s: %w", name, err)
	}
	return &File{ID: created.Id, WebViewLink: created.WebViewLink}, nil
}

// Share grants the configured role to anyone with the link.
func (u *Uploader) Share(ctx context.Context, fileID string) error {
	perm := &drive.Permission{Type: "anyone", Role: u.role}
	if _, err := u.svc.Permissions.Create(fileID, perm).Context(ctx).Do(); err != nil {
		return fmt.Errorf("drive: sharing %s: %w", fileID, err)
	}
	return nil
}

// Delete removes a file. A file that is already gone is not an error.
func (u *Uploader) Delete(ctx context.Context, fileID string) error {
	err := u.svc.Files.Delete(fileID).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("drive: deleting %s: %w", fileID, err)
	}
	return nil
}
