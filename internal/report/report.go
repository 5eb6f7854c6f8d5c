// Package report writes a completed wizard session to the object store and
// the record store.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"
	"github.com/kylejryan/field-report-bot/internal/schema"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// Errors crossing the pipeline boundary.
var (
	ErrRecordStore     = errors.New("record store append failed")
	ErrAttachmentStore = errors.New("attachment upload failed")
)

// CommitError reports a commit whose record could not be written.
type CommitError struct {
	ReportID string
	Err      error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit %s: %v", e.ReportID, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// UploadResult is the object store's answer. Locator is empty when the
// store kept the file but returned no link.
type UploadResult struct {
	Locator string
}

// ObjectStore keeps binary attachments.
type ObjectStore interface {
	Upload(ctx context.Context, filename string, data []byte, contentType string) (UploadResult, error)
}

// RecordStore appends report rows.
type RecordStore interface {
	AppendRow(ctx context.Context, r models.Report) error
}

// Notifier is told about every commit outcome.
type Notifier interface {
	ReportCommitted(ctx context.Context, r models.Report) error
	ReportFailed(ctx context.Context, r models.Report, cause error) error
}

// Alerter escalates failed commits to operations.
type Alerter interface {
	CommitFailed(ctx context.Context, r models.Report, cause error) error
}

// Submission is the data copied out of a completed session.
type Submission struct {
	SessionID string
	Answers   map[string]string
}

// Committer runs the commit protocol: upload, assemble, append.
type Committer struct {
	Objects  ObjectStore
	Records  RecordStore
	Notifier Notifier // optional
	Alerter  Alerter  // optional
	Log      *zap.Logger
	Now      func() time.Time
}

// Commit writes one report. Attachment failures are absorbed into the
// record's attachment reference; only a failed append is returned, as a
// *CommitError wrapping ErrRecordStore. Nothing is retried.
func (c *Committer) Commit(ctx context.Context, sub Submission, att Attachment) (models.Report, error) {
	now := c.now()
	log := c.logger().With(zap.String("session_id", sub.SessionID))

	ref := c.upload(ctx, log, att)
	rec := Assemble(sub, ref, now)
	log = log.With(zap.String("report_id", rec.ReportID))

	if err := c.Records.AppendRow(ctx, rec); err != nil {
		log.Error("record append failed", zap.Error(err))
		cerr := &CommitError{ReportID: rec.ReportID, Err: fmt.Errorf("%w: %w", ErrRecordStore, err)}
		c.afterFailure(ctx, log, rec, cerr)
		return models.Report{}, cerr
	}

	log.Info("report committed",
		zap.String("customer", rec.CustomerName),
		zap.Bool("attachment_stored", rec.AttachmentStored()),
	)
	if c.Notifier != nil {
		if err := c.Notifier.ReportCommitted(ctx, rec); err != nil {
			log.Warn("failed to publish report event", zap.Error(err))
		}
	}
	return rec, nil
}

func (c *Committer) upload(ctx context.Context, log *zap.Logger, att Attachment) string {
	res, err := c.Objects.Upload(ctx, att.Filename, att.Data, att.ContentType)
	if err != nil {
		log.Warn("attachment upload failed, recording sentinel",
			zap.String("filename", att.Filename),
			zap.Error(fmt.Errorf("%w: %w", ErrAttachmentStore, err)),
		)
		return models.AttachmentUploadFailed
	}
	if res.Locator == "" {
		return models.AttachmentLinkUnavailable
	}
	return res.Locator
}

func (c *Committer) afterFailure(ctx context.Context, log *zap.Logger, rec models.Report, cause error) {
	if c.Notifier != nil {
		if err := c.Notifier.ReportFailed(ctx, rec, cause); err != nil {
			log.Warn("failed to publish failure event", zap.Error(err))
		}
	}
	if c.Alerter != nil {
		if err := c.Alerter.CommitFailed(ctx, rec, cause); err != nil {
			log.Warn("failed to send commit alert", zap.Error(err))
		}
	}
}

// Assemble builds the report row from the session answers.
func Assemble(sub Submission, attachmentRef string, now time.Time) models.Report {
	id := ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String()
	return models.Report{
		PK:               DayKey(now),
		SK:               "REPORT#" + id,
		ReportID:         id,
		SessionID:        sub.SessionID,
		Date:             now.Format("02/01/2006"),
		Time:             now.Format("15:04"),
		OperatorName:     sub.Answers[schema.KeyOperator],
		CustomerName:     sub.Answers[schema.KeyCustomer],
		Address:          sub.Answers[schema.KeyAddress],
		InterventionType: sub.Answers[schema.KeyInterventionType],
		Products:         sub.Answers[schema.KeyProducts],
		Notes:            sub.Answers[schema.KeyNotes],
		AttachmentRef:    attachmentRef,
		Status:           models.StatusCompleted,
		CreatedAt:        now,
	}
}

// DayKey is the partition key grouping the reports of one calendar day.
func DayKey(t time.Time) string {
	return "DAY#" + t.Format("2006-01-02")
}

func (c *Committer) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Committer) logger() *zap.Logger {
	if c.Log != nil {
		return c.Log
	}
	return zap.NewNop()
}
