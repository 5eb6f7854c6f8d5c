package report

import (
	"context"

	"github.com/kylejryan/field-report-bot/internal/models"

	"go.uber.org/zap"
)

// LogRecordStore writes rows to the log. Used when no record store is configured.
type LogRecordStore struct {
	Log *zap.Logger
}

// AppendRow logs the row and never fails.
func (s LogRecordStore) AppendRow(_ context.Context, r models.Report) error {
	if s.Log != nil {
		s.Log.Warn("record store not configured, report kept in log only",
			zap.String("report_id", r.ReportID),
			zap.Strings("row", r.Row()),
		)
	}
	return nil
}

// NopObjectStore drops attachments and reports success without a link.
// Used when no object store is configured.
type NopObjectStore struct{}

// Upload discards data.
func (NopObjectStore) Upload(context.Context, string, []byte, string) (UploadResult, error) {
	return UploadResult{}, nil
}
