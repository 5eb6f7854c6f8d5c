package report_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"
	"github.com/kylejryan/field-report-bot/internal/report"
	"github.com/kylejryan/field-report-bot/internal/schema"
	"github.com/kylejryan/field-report-bot/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 5, 0, time.UTC)

func submission() report.Submission {
	return report.Submission{
		SessionID: "42",
		Answers: map[string]string{
			schema.KeyOperator:         "Mario Rossi",
			schema.KeyCustomer:         "Acme Srl",
			schema.KeyAddress:          "Via Roma 1",
			schema.KeyInterventionType: "🦟 Zanzare",
			schema.KeyProducts:         "Icaro 10",
			schema.KeyNotes:            "nessuna",
		},
	}
}

func newCommitter(objects report.ObjectStore, records report.RecordStore) (*report.Committer, *testutil.MockNotifier) {
	n := &testutil.MockNotifier{}
	return &report.Committer{
		Objects:  objects,
		Records:  records,
		Notifier: n,
		Alerter:  n,
		Log:      zap.NewNop(),
		Now:      func() time.Time { return fixedNow },
	}, n
}

func TestCommit_Success(t *testing.T) {
	objects := testutil.NewMockObjectStore("https://drive.example/file/abc")
	records := testutil.NewMockRecordStore()
	c, n := newCommitter(objects, records)

	att := report.NewAttachment([]byte{0xFF, 0xD8, 0xFF}, "Acme Srl", fixedNow)
	rec, err := c.Commit(context.Background(), submission(), att)
	require.NoError(t, err)

	assert.Equal(t, "https://drive.example/file/abc", rec.AttachmentRef)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.Equal(t, "15/10/2026", rec.Date)
	assert.Equal(t, "09:30", rec.Time)
	assert.Equal(t, "DAY#2026-10-15", rec.PK)
	assert.Equal(t, "REPORT#"+rec.ReportID, rec.SK)
	assert.Len(t, rec.ReportID, 26)

	rows := records.Snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, []string{
		"15/10/2026", "09:30", "Mario Rossi", "Acme Srl", "Via Roma 1",
		"🦟 Zanzare", "Icaro 10", "nessuna", "https://drive.example/file/abc", "Completato",
	}, rows[0].Row())

	uploads := objects.GetUploads()
	require.Len(t, uploads, 1)
	assert.Equal(t, "quietanza_Acme_Srl_20261015_093005.jpg", uploads[0].Filename)
	assert.Equal(t, "image/jpeg", uploads[0].ContentType)

	assert.Len(t, n.Committed, 1)
	assert.Empty(t, n.Failed)
	assert.Empty(t, n.Alerts)
}

func TestCommit_UploadFailsRecordStillWritten(t *testing.T) {
	objects := testutil.NewMockObjectStore("")
	objects.UploadErr = errors.New("drive quota exceeded")
	records := testutil.NewMockRecordStore()
	c, _ := newCommitter(objects, records)

	core, logs := observer.New(zap.WarnLevel)
	c.Log = zap.New(core)

	rec, err := c.Commit(context.Background(), submission(), report.NewAttachment([]byte("abc"), "Acme", fixedNow))
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentUploadFailed, rec.AttachmentRef)
	assert.False(t, rec.AttachmentStored())

	rows := records.Snapshot()
	require.Len(t, rows, 1)
	assert.Equal(t, models.AttachmentUploadFailed, rows[0].AttachmentRef)
	assert.Equal(t, 1, logs.FilterMessage("attachment upload failed, recording sentinel").Len())
}

func TestCommit_UploadWithoutLink(t *testing.T) {
	c, _ := newCommitter(testutil.NewMockObjectStore(""), testutil.NewMockRecordStore())

	rec, err := c.Commit(context.Background(), submission(), report.NewAttachment([]byte("abc"), "Acme", fixedNow))
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentLinkUnavailable, rec.AttachmentRef)
	assert.True(t, rec.AttachmentStored())
}

func TestCommit_RecordStoreFailure(t *testing.T) {
	objects := testutil.NewMockObjectStore("s3://bucket/key")
	records := testutil.NewMockRecordStore()
	records.AppendErr = errors.New("sheets: 503")
	c, n := newCommitter(objects, records)

	_, err := c.Commit(context.Background(), submission(), report.NewAttachment([]byte("abc"), "Acme", fixedNow))
	require.Error(t, err)
	assert.ErrorIs(t, err, report.ErrRecordStore)

	var cerr *report.CommitError
	require.True(t, errors.As(err, &cerr))
	assert.NotEmpty(t, cerr.ReportID)
	assert.Contains(t, err.Error(), "sheets: 503")

	assert.Empty(t, records.Snapshot())
	assert.Equal(t, 1, records.GetCalls())
	assert.Len(t, objects.GetUploads(), 1, "attachment is uploaded before the record")
	assert.Len(t, n.Failed, 1)
	assert.Len(t, n.Alerts, 1)
	assert.Empty(t, n.Committed)
}

func TestCommit_NotifierErrorsDoNotChangeOutcome(t *testing.T) {
	c, n := newCommitter(testutil.NewMockObjectStore("x"), testutil.NewMockRecordStore())
	n.Err = errors.New("nats down")

	_, err := c.Commit(context.Background(), submission(), report.NewAttachment([]byte("abc"), "Acme", fixedNow))
	assert.NoError(t, err)
}

func TestCommit_OptionalCollaborators(t *testing.T) {
	c := &report.Committer{
		Objects: report.NopObjectStore{},
		Records: report.LogRecordStore{Log: zap.NewNop()},
	}
	rec, err := c.Commit(context.Background(), submission(), report.NewAttachment([]byte("abc"), "Acme", time.Now()))
	require.NoError(t, err)
	assert.Equal(t, models.AttachmentLinkUnavailable, rec.AttachmentRef)
}

func TestNewAttachment(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	att := report.NewAttachment(png, "Bar \"Sport\" / Centro", fixedNow)
	assert.Equal(t, "image/png", att.ContentType)
	assert.Equal(t, "quietanza_Bar_Sport_Centro_20261015_093005.png", att.Filename)

	att = report.NewAttachment([]byte{1, 2, 3}, "", fixedNow)
	assert.Equal(t, "image/jpeg", att.ContentType)
	assert.True(t, strings.HasPrefix(att.Filename, "quietanza_cliente_"))
	assert.True(t, strings.HasSuffix(att.Filename, ".jpg"))
}

func TestAssemble_UniqueIDs(t *testing.T) {
	a := report.Assemble(submission(), "x", fixedNow)
	b := report.Assemble(submission(), "x", fixedNow)
	assert.NotEqual(t, a.ReportID, b.ReportID)
}
