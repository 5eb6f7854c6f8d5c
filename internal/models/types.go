// Package models defines the data models used in the application.
package models

import "time"

// ReportStatus represents the status written in the last column of a report row.
type ReportStatus string

// Possible values for ReportStatus
const (
	StatusCompleted ReportStatus = "Completato"
)

// Attachment reference sentinels, written in place of a real locator.
const (
	AttachmentLinkUnavailable = "foto caricata (link non disponibile)"
	AttachmentUploadFailed    = "errore caricamento foto"
)

// Report is the finalized projection of a completed wizard session.
type Report struct {
	// DynamoDB keys
	PK string `dynamodbav:"PK" json:"-"` // DAY#<yyyy-mm-dd>
	SK string `dynamodbav:"SK" json:"-"` // REPORT#<reportID> (ULID)

	ReportID         string       `dynamodbav:"report_id" json:"report_id"`
	SessionID        string       `dynamodbav:"session_id" json:"session_id"`
	Date             string       `dynamodbav:"date" json:"date"` // dd/mm/yyyy
	Time             string       `dynamodbav:"time" json:"time"` // HH:MM
	OperatorName     string       `dynamodbav:"operator" json:"operator"`
	CustomerName     string       `dynamodbav:"customer" json:"customer"`
	Address          string       `dynamodbav:"address" json:"address"`
	InterventionType string       `dynamodbav:"intervention_type" json:"intervention_type"`
	Products         string       `dynamodbav:"products" json:"products"`
	Notes            string       `dynamodbav:"notes" json:"notes"`
	AttachmentRef    string       `dynamodbav:"attachment_ref" json:"attachment_ref"`
	AttachmentURL    string       `dynamodbav:"-" json:"attachment_url,omitempty"` // presigned at read time
	Status           ReportStatus `dynamodbav:"status" json:"status"`
	CreatedAt        time.Time    `dynamodbav:"created_at" json:"created_at"`
}

// Columns is the fixed header of the tabular record store.
var Columns = []string{
	"Data", "Ora", "Operatore", "Cliente", "Indirizzo",
	"Tipo intervento", "Prodotti", "Note", "Foto", "Stato",
}

// Row returns the report as a row in Columns order.
func (r Report) Row() []string {
	return []string{
		r.Date,
		r.Time,
		r.OperatorName,
		r.CustomerName,
		r.Address,
		r.InterventionType,
		r.Products,
		r.Notes,
		r.AttachmentRef,
		string(r.Status),
	}
}

// AttachmentStored reports whether the attachment reached the object store.
func (r Report) AttachmentStored() bool {
	return r.AttachmentRef != "" && r.AttachmentRef != AttachmentUploadFailed
}
