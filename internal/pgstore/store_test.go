package pgstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExec struct {
	sql  string
	args []any
	tag  string
	err  error
}

func (f *fakeExec) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql, f.args = sql, args
	return pgconn.NewCommandTag(f.tag), f.err
}

func sample() models.Report {
	return models.Report{
		ReportID:         ulid.Make().String(),
		SessionID:        "42",
		Date:             "15/10/2026",
		Time:             "09:30",
		OperatorName:     "Mario Rossi",
		CustomerName:     "Acme Srl",
		Address:          "Via Roma 1",
		InterventionType: "🦟 Zanzare",
		Products:         "Icaro 10",
		Notes:            "nessuna",
		AttachmentRef:    models.AttachmentUploadFailed,
		Status:           models.StatusCompleted,
		CreatedAt:        time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC),
	}
}

func TestAppendRow(t *testing.T) {
	f := &fakeExec{tag: "INSERT 0 1"}
	s := &Store{db: f}

	r := sample()
	require.NoError(t, s.AppendRow(context.Background(), r))
	assert.Contains(t, f.sql, "INSERT INTO field_reports")
	require.Len(t, f.args, 13)
	assert.Equal(t, r.ReportID, f.args[0])
	assert.Equal(t, "Acme Srl", f.args[5])
	assert.Equal(t, models.AttachmentUploadFailed, f.args[10])
	assert.Equal(t, "Completato", f.args[11])
}

func TestAppendRow_Errors(t *testing.T) {
	s := &Store{db: &fakeExec{err: errors.New("connection refused")}}
	assert.ErrorContains(t, s.AppendRow(context.Background(), sample()), "connection refused")

	s = &Store{db: &fakeExec{tag: "INSERT 0 0"}}
	assert.ErrorContains(t, s.AppendRow(context.Background(), sample()), "0 rows affected")
}

func TestIntegration_AppendRow(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	s, err := New(ctx, url)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.pool.Exec(ctx, Schema)
	require.NoError(t, err)

	r := sample()
	require.NoError(t, s.AppendRow(ctx, r))

	var customer string
	require.NoError(t, s.pool.QueryRow(ctx, `SELECT customer FROM field_reports WHERE report_id = $1`, r.ReportID).Scan(&customer))
	assert.Equal(t, "Acme Srl", customer)

	assert.Error(t, s.AppendRow(ctx, r), "duplicate report id")
}
