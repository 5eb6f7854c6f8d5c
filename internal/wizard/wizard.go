// Package wizard drives a session through the report questionnaire one
// field at a time and hands the completed session to the commit pipeline.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/kylejryan/field-report-bot/internal/models"
	"github.com/kylejryan/field-report-bot/internal/report"
	"github.com/kylejryan/field-report-bot/internal/schema"
	"github.com/kylejryan/field-report-bot/internal/session"

	"go.uber.org/zap"
)

// Commands understood by the wizard.
const (
	CommandStart  = "start"
	CommandCancel = "cancel"
)

// Messenger is the chat transport as seen by the wizard.
type Messenger interface {
	// SendPrompt sends text with the given choice rows; nil choices clear
	// any keyboard previously shown.
	SendPrompt(ctx context.Context, sessionID, text string, choices [][]string) error
	SendText(ctx context.Context, sessionID, text string) error
	Download(ctx context.Context, ref schema.AttachmentRef) ([]byte, error)
}

// Committer persists a completed session.
type Committer interface {
	Commit(ctx context.Context, sub report.Submission, att report.Attachment) (models.Report, error)
}

// Message is one inbound chat message.
type Message struct {
	SessionID   string
	Command     string // without the leading slash, empty for plain messages
	Text        string
	Attachments []schema.AttachmentRef
}

// Outcome is the state a message left its session in.
type Outcome int

// Outcomes.
const (
	NoSession Outcome = iota
	Started
	Advanced
	Reprompted
	Completed
	Failed
	Cancelled
	Ignored
)

var (
	errStale      = errors.New("session moved on")
	errCommitting = errors.New("commit already in progress")
)

// Wizard is the conversation state machine.
type Wizard struct {
	schema    *schema.Schema
	store     *session.Store
	messenger Messenger
	committer Committer
	log       *zap.Logger
	now       func() time.Time
}

// New wires a wizard.
func New(s *schema.Schema, store *session.Store, m Messenger, c Committer, log *zap.Logger) *Wizard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Wizard{schema: s, store: store, messenger: m, committer: c, log: log, now: time.Now}
}

// SetClock replaces the clock used to stamp attachment file names.
func (w *Wizard) SetClock(now func() time.Time) { w.now = now }

// Handle applies one inbound message. Messages for the same session must
// not be handled concurrently; see dispatch.Dispatcher. The returned error
// only reports failures to deliver replies.
func (w *Wizard) Handle(ctx context.Context, msg Message) (Outcome, error) {
	switch msg.Command {
	case CommandStart:
		return Started, w.begin(ctx, msg.SessionID)
	case CommandCancel:
		return Cancelled, w.cancel(ctx, msg.SessionID)
	}

	sess, err := w.store.Get(msg.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		return NoSession, w.messenger.SendText(ctx, msg.SessionID, textNoSession)
	}
	if err != nil {
		return NoSession, err
	}
	if sess.Committing {
		w.log.Info("message ignored while committing", zap.String("session_id", sess.ID))
		return Ignored, nil
	}

	field, ok := w.schema.Field(sess.Cursor)
	if !ok {
		return NoSession, fmt.Errorf("session %s: cursor %d out of range", sess.ID, sess.Cursor)
	}
	if msg.Command != "" {
		return Reprompted, w.reprompt(ctx, sess, field, textUnknownCommand)
	}
	if field.Kind == schema.TerminalAttachment {
		return w.finish(ctx, sess, field, msg)
	}
	return w.advance(ctx, sess, field, msg)
}

func (w *Wizard) begin(ctx context.Context, id string) error {
	sess := w.store.Begin(id)
	w.log.Info("session started", zap.String("session_id", id))

	first, _ := w.schema.Field(0)
	return w.messenger.SendPrompt(ctx, id, textWelcome+first.Render(sess.Answers), first.Choices())
}

func (w *Wizard) cancel(ctx context.Context, id string) error {
	w.store.Remove(id)
	w.log.Info("session cancelled", zap.String("session_id", id))
	return w.messenger.SendPrompt(ctx, id, textCancelled, nil)
}

func (w *Wizard) advance(ctx context.Context, sess session.Session, field schema.FieldSpec, msg Message) (Outcome, error) {
	value, err := schema.Validate(field, schema.Input{Text: msg.Text, Attachments: msg.Attachments})
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return Reprompted, w.reprompt(ctx, sess, field, ve.Hint)
	}
	if err != nil {
		return NoSession, err
	}

	var answers map[string]string
	err = w.store.Update(sess.ID, func(s *session.Session) error {
		if s.Cursor != sess.Cursor || s.Committing {
			return errStale
		}
		s.Answers[field.Key] = value
		s.Cursor++
		answers = maps.Clone(s.Answers)
		return nil
	})
	if errors.Is(err, errStale) || errors.Is(err, session.ErrNotFound) {
		w.log.Info("message raced a session change", zap.String("session_id", sess.ID))
		return Ignored, nil
	}
	if err != nil {
		return NoSession, err
	}

	next, _ := w.schema.Field(sess.Cursor + 1)
	w.log.Debug("field accepted",
		zap.String("session_id", sess.ID),
		zap.String("field", field.Key),
		zap.Int("cursor", sess.Cursor+1),
	)
	return Advanced, w.messenger.SendPrompt(ctx, sess.ID, next.Render(answers), next.Choices())
}

func (w *Wizard) reprompt(ctx context.Context, sess session.Session, field schema.FieldSpec, hint string) error {
	return w.messenger.SendPrompt(ctx, sess.ID, hint+"\n\n"+field.Render(sess.Answers), field.Choices())
}

// finish commits the session. The session is claimed first so a duplicate
// photo cannot start a second commit, and it is removed whatever the result.
func (w *Wizard) finish(ctx context.Context, sess session.Session, field schema.FieldSpec, msg Message) (Outcome, error) {
	ref, err := schema.PickAttachment(msg.Attachments)
	var ve *schema.ValidationError
	if errors.As(err, &ve) {
		return Reprompted, w.reprompt(ctx, sess, field, ve.Hint)
	}

	err = w.store.Update(sess.ID, func(s *session.Session) error {
		if s.Committing {
			return errCommitting
		}
		s.Committing = true
		return nil
	})
	if errors.Is(err, errCommitting) || errors.Is(err, session.ErrNotFound) {
		return Ignored, nil
	}
	if err != nil {
		return NoSession, err
	}
	log := w.log.With(zap.String("session_id", sess.ID))

	data, err := w.messenger.Download(ctx, ref)
	if err != nil {
		log.Warn("attachment download failed", zap.String("file_id", ref.FileID), zap.Error(err))
		err = w.store.Update(sess.ID, func(s *session.Session) error {
			s.Committing = false
			return nil
		})
		if err != nil {
			// A session left claimed would swallow every later photo.
			log.Error("commit claim not released, dropping session", zap.Error(err))
			w.store.Remove(sess.ID)
			return Failed, w.messenger.SendPrompt(ctx, sess.ID, textSessionLost, nil)
		}
		return Reprompted, w.reprompt(ctx, sess, field, textDownloadFailed)
	}

	// Network calls below run on a copy; no store lock is held.
	snap, err := w.store.Get(sess.ID)
	if err != nil {
		return Ignored, nil
	}
	att := report.NewAttachment(data, snap.Answers[schema.KeyCustomer], w.now())
	rec, commitErr := w.committer.Commit(ctx, report.Submission{SessionID: snap.ID, Answers: snap.Answers}, att)
	w.store.Remove(sess.ID)

	if commitErr != nil {
		log.Error("report commit failed", zap.Error(commitErr))
		return Failed, w.messenger.SendPrompt(ctx, sess.ID, textCommitFailed, nil)
	}
	log.Info("session completed", zap.String("report_id", rec.ReportID))
	return Completed, w.messenger.SendPrompt(ctx, sess.ID, summary(w.schema.Fields(), snap.Answers, rec), nil)
}
