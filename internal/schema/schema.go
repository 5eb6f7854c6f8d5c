// Package schema defines the ordered questions of the report wizard and how
// each answer is validated.
package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kylejryan/field-report-bot/internal/validate"
)

// Kind is the input expected by a field.
type Kind string

// Field kinds.
const (
	FreeText           Kind = "text"
	ChoiceText         Kind = "choice"
	TerminalAttachment Kind = "attachment"
)

// Keys of the answers that make up a report row.
const (
	KeyOperator         = "operator"
	KeyCustomer         = "customer"
	KeyAddress          = "address"
	KeyInterventionType = "intervention_type"
	KeyProducts         = "products"
	KeyNotes            = "notes"
	KeyReceiptPhoto     = "receipt_photo"
)

// RecordKeys must all be answered before a report can be committed.
var RecordKeys = []string{
	KeyOperator, KeyCustomer, KeyAddress, KeyInterventionType, KeyProducts, KeyNotes,
}

// FieldSpec is one question of the wizard.
type FieldSpec struct {
	Key     string   `yaml:"key"`
	Prompt  string   `yaml:"prompt"`
	Kind    Kind     `yaml:"kind"`
	Label   string   `yaml:"label,omitempty"`
	Options []string `yaml:"choices,omitempty"`
	// ChoiceColumns is the number of choices per keyboard row.
	ChoiceColumns int `yaml:"choice_columns,omitempty"`
}

// Choices returns the choices laid out in rows of ChoiceColumns.
func (f FieldSpec) Choices() [][]string {
	if len(f.Options) == 0 {
		return nil
	}
	cols := f.ChoiceColumns
	if cols <= 0 {
		cols = 2
	}
	rows := make([][]string, 0, (len(f.Options)+cols-1)/cols)
	for i := 0; i < len(f.Options); i += cols {
		end := min(i+cols, len(f.Options))
		rows = append(rows, append([]string(nil), f.Options[i:end]...))
	}
	return rows
}

// Render substitutes {key} placeholders with earlier answers.
func (f FieldSpec) Render(answers map[string]string) string {
	if !strings.Contains(f.Prompt, "{") {
		return f.Prompt
	}
	pairs := make([]string, 0, 2*len(answers))
	for k, v := range answers {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(f.Prompt)
}

// Schema is an immutable, ordered list of fields.
type Schema struct {
	fields []FieldSpec
}

// New builds a schema and checks its invariants.
func New(fields []FieldSpec) (*Schema, error) {
	s := &Schema{fields: append([]FieldSpec(nil), fields...)}
	if err := s.Check(); err != nil {
		return nil, err
	}
	return s, nil
}

// Fields returns a copy of the ordered fields.
func (s *Schema) Fields() []FieldSpec {
	return append([]FieldSpec(nil), s.fields...)
}

// Len is the number of fields, attachment included.
func (s *Schema) Len() int { return len(s.fields) }

// Field returns the field at cursor i.
func (s *Schema) Field(i int) (FieldSpec, bool) {
	if i < 0 || i >= len(s.fields) {
		return FieldSpec{}, false
	}
	return s.fields[i], true
}

// Check enforces: unique non-empty keys, known kinds, exactly one attachment
// field placed last, and every record key present.
func (s *Schema) Check() error {
	if len(s.fields) == 0 {
		return errors.New("schema has no fields")
	}
	seen := make(map[string]bool, len(s.fields))
	attachments := 0
	for i, f := range s.fields {
		if strings.TrimSpace(f.Key) == "" {
			return fmt.Errorf("field %d: missing key", i)
		}
		if seen[f.Key] {
			return fmt.Errorf("field %q: duplicate key", f.Key)
		}
		seen[f.Key] = true
		if strings.TrimSpace(f.Prompt) == "" {
			return fmt.Errorf("field %q: missing prompt", f.Key)
		}
		switch f.Kind {
		case FreeText:
		case ChoiceText:
			if len(f.Options) == 0 {
				return fmt.Errorf("field %q: choice field without choices", f.Key)
			}
		case TerminalAttachment:
			attachments++
			if i != len(s.fields)-1 {
				return fmt.Errorf("field %q: attachment field must be last", f.Key)
			}
		default:
			return fmt.Errorf("field %q: unknown kind %q", f.Key, f.Kind)
		}
	}
	if attachments != 1 {
		return fmt.Errorf("schema needs exactly one attachment field, has %d", attachments)
	}
	for _, k := range RecordKeys {
		if !seen[k] {
			return fmt.Errorf("schema is missing field %q", k)
		}
	}
	return nil
}

// Default returns the built-in pest-control intervention questionnaire.
func Default() *Schema {
	s, err := New(defaultFields)
	if err != nil {
		panic(err)
	}
	return s
}

var defaultFields = []FieldSpec{
	{
		Key:    KeyOperator,
		Label:  "👤 Operatore",
		Kind:   FreeText,
		Prompt: "Qual è il tuo nome?",
	},
	{
		Key:    KeyCustomer,
		Label:  "🏢 Cliente",
		Kind:   FreeText,
		Prompt: "Ciao {operator}! 👋\n\nQual è il nome del cliente?",
	},
	{
		Key:    KeyAddress,
		Label:  "📍 Indirizzo",
		Kind:   FreeText,
		Prompt: "Perfetto! Ora inserisci l'indirizzo completo dell'intervento:",
	},
	{
		Key:     KeyInterventionType,
		Label:   "🦟 Tipo",
		Kind:    ChoiceText,
		Prompt:  "Che tipo di disinfestazione hai effettuato?",
		Options: []string{
			"🪳 Blatte", "🐜 Formiche",
			"🦟 Zanzare", "🐭 Roditori",
			"🕷️ Ragni", "🦂 Altri insetti",
			"🌿 Diserbante", "💨 Sanificazione",
		},
		ChoiceColumns: 2,
	},
	{
		Key:    KeyProducts,
		Label:  "🧪 Prodotti",
		Kind:   FreeText,
		Prompt: "Quali prodotti hai utilizzato? (elenca i nomi dei prodotti)",
	},
	{
		Key:    KeyNotes,
		Label:  "📝 Note",
		Kind:   FreeText,
		Prompt: "Hai delle note aggiuntive sull'intervento?\n(Scrivi 'nessuna' se non hai note)",
	},
	{
		Key:    KeyReceiptPhoto,
		Label:  "📸 Foto",
		Kind:   TerminalAttachment,
		Prompt: "📸 Perfetto! Ora invia una foto della quietanza/ricevuta.\n\nAssicurati che la foto sia leggibile!",
	},
}

// normalizeText is shared by the text kinds.
func normalizeText(raw string) (string, error) {
	v, err := validate.Text(raw)
	if err != nil {
		return "", ErrEmptyAnswer
	}
	return v, nil
}
