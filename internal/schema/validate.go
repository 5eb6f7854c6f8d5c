package schema

import "fmt"

// ValidationError is a recoverable problem with the user's answer. The wizard
// re-prompts with Hint and keeps the cursor where it is.
type ValidationError struct {
	Code string
	Hint string
}

func (e *ValidationError) Error() string { return "validation: " + e.Code }

// Validation errors.
var (
	ErrEmptyAnswer = &ValidationError{
		Code: "empty_answer",
		Hint: "⚠️ La risposta non può essere vuota.",
	}
	ErrMissingAttachment = &ValidationError{
		Code: "missing_attachment",
		Hint: "Per favore invia una foto della quietanza.",
	}
)

// AttachmentRef points at a binary attachment held by the messaging platform.
type AttachmentRef struct {
	FileID   string
	Width    int
	Height   int
	Size     int64
	MIMEType string
}

func (a AttachmentRef) area() int { return a.Width * a.Height }

// Input is the content of one inbound message.
type Input struct {
	Text        string
	Attachments []AttachmentRef
}

// Validate normalizes raw for a text field. Attachment fields must go
// through PickAttachment instead.
func Validate(f FieldSpec, in Input) (string, error) {
	switch f.Kind {
	case FreeText, ChoiceText:
		return normalizeText(in.Text)
	case TerminalAttachment:
		ref, err := PickAttachment(in.Attachments)
		if err != nil {
			return "", err
		}
		return ref.FileID, nil
	default:
		return "", fmt.Errorf("field %q: unknown kind %q", f.Key, f.Kind)
	}
}

// PickAttachment selects the attachment to keep: the largest by pixel area,
// ties going to the one that arrived last.
func PickAttachment(refs []AttachmentRef) (AttachmentRef, error) {
	if len(refs) == 0 {
		return AttachmentRef{}, ErrMissingAttachment
	}
	best := refs[0]
	for _, r := range refs[1:] {
		if r.area() >= best.area() {
			best = r
		}
	}
	return best, nil
}
