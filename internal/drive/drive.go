// Package drive uploads receipt photos to a Google Drive folder.
package drive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/kylejryan/field-report-bot/internal/report"

	gdrive "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// Scope lets the bot see only the files it created.
const Scope = gdrive.DriveFileScope

// Store is a report.ObjectStore backed by Drive.
type Store struct {
	svc      *gdrive.Service
	folderID string
}

// New opens the Drive API. Files go to folderID, or to the account root
// when it is empty.
func New(ctx context.Context, folderID string, opts ...option.ClientOption) (*Store, error) {
	svc, err := gdrive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("drive: new service: %w", err)
	}
	return &Store{svc: svc, folderID: folderID}, nil
}

// Upload creates the file and returns its web view link as the locator.
func (s *Store) Upload(ctx context.Context, filename string, data []byte, contentType string) (report.UploadResult, error) {
	f := &gdrive.File{Name: filename, MimeType: contentType}
	if s.folderID != "" {
		f.Parents = []string{s.folderID}
	}
	created, err := s.svc.Files.Create(f).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Fields("id", "webViewLink").
		SupportsAllDrives(true).
		Context(ctx).
		Do()
	if err != nil {
		return report.UploadResult{}, fmt.Errorf("drive: create %s: %w", filename, err)
	}
	return report.UploadResult{Locator: created.WebViewLink}, nil
}
