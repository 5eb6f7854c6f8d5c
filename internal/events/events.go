// Package events publishes report lifecycle events to NATS or a Redis stream.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"

	"github.com/google/uuid"
)

// Event types.
const (
	TypeReportCommitted = "report.committed"
	TypeReportFailed    = "report.failed"
)

// DefaultSubject is the NATS subject prefix and Redis stream key.
const DefaultSubject = "fieldbot.reports"

// Event is the payload published for every commit outcome.
type Event struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	Timestamp        time.Time `json:"timestamp"`
	ReportID         string    `json:"report_id"`
	SessionID        string    `json:"session_id"`
	Operator         string    `json:"operator"`
	Customer         string    `json:"customer"`
	InterventionType string    `json:"intervention_type"`
	AttachmentRef    string    `json:"attachment_ref"`
	AttachmentStored bool      `json:"attachment_stored"`
	Error            string    `json:"error,omitempty"`
}

// NewEvent builds an event for r.
func NewEvent(eventType string, r models.Report, cause error, now time.Time) Event {
	e := Event{
		EventID:          uuid.New().String(),
		EventType:        eventType,
		Timestamp:        now.UTC(),
		ReportID:         r.ReportID,
		SessionID:        r.SessionID,
		Operator:         r.OperatorName,
		Customer:         r.CustomerName,
		InterventionType: r.InterventionType,
		AttachmentRef:    r.AttachmentRef,
		AttachmentStored: r.AttachmentStored(),
	}
	if cause != nil {
		e.Error = cause.Error()
	}
	return e
}

// Marshal encodes e as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers one event to a broker.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Notifier adapts a Publisher to report.Notifier.
type Notifier struct {
	Publisher Publisher
	Now       func() time.Time
}

// ReportCommitted publishes a report.committed event.
func (n *Notifier) ReportCommitted(ctx context.Context, r models.Report) error {
	return n.Publisher.Publish(ctx, NewEvent(TypeReportCommitted, r, nil, n.now()))
}

// ReportFailed publishes a report.failed event.
func (n *Notifier) ReportFailed(ctx context.Context, r models.Report, cause error) error {
	return n.Publisher.Publish(ctx, NewEvent(TypeReportFailed, r, cause, n.now()))
}

func (n *Notifier) now() time.Time {
	if n.Now != nil {
		return n.Now()
	}
	return time.Now()
}
