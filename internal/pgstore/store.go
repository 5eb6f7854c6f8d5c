// Package pgstore appends report rows to a Postgres table.
package pgstore

import (
	"context"
	"fmt"

	"github.com/kylejryan/field-report-bot/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema creates the table used by Store. The table is provisioned outside
// the bot; this is kept for tests and local setups.
const Schema = `
CREATE TABLE IF NOT EXISTS field_reports (
	report_id         TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL,
	report_date       TEXT NOT NULL,
	report_time       TEXT NOT NULL,
	operator          TEXT NOT NULL,
	customer          TEXT NOT NULL,
	address           TEXT NOT NULL,
	intervention_type TEXT NOT NULL,
	products          TEXT NOT NULL,
	notes             TEXT NOT NULL,
	attachment_ref    TEXT NOT NULL,
	status            TEXT NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL
)`

const insertReport = `
	INSERT INTO field_reports (
		report_id, session_id, report_date, report_time, operator, customer,
		address, intervention_type, products, notes, attachment_ref, status, created_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a report.RecordStore backed by Postgres.
type Store struct {
	db   execer
	pool *pgxpool.Pool
}

// New connects and pings the database.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// AppendRow inserts one report.
func (s *Store) AppendRow(ctx context.Context, r models.Report) error {
	tag, err := s.db.Exec(ctx, insertReport,
		r.ReportID, r.SessionID, r.Date, r.Time, r.OperatorName, r.CustomerName,
		r.Address, r.InterventionType, r.Products, r.Notes, r.AttachmentRef,
		string(r.Status), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", r.ReportID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("insert report %s: %d rows affected", r.ReportID, tag.RowsAffected())
	}
	return nil
}
