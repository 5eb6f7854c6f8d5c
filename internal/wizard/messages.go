package wizard

import (
	"fmt"
	"strings"

	"github.com/kylejryan/field-report-bot/internal/models"
	"github.com/kylejryan/field-report-bot/internal/schema"
)

const (
	textWelcome = "🦟 Bot Disinfestazione - Rapporto Intervento\n\n" +
		"Compila il questionario per registrare l'intervento.\n\n" +
		"Iniziamo! "
	textCancelled      = "Operazione annullata. Usa /start per iniziare un nuovo rapporto."
	textNoSession      = "Nessun rapporto in corso. Usa /start per iniziare un nuovo rapporto."
	textUnknownCommand = "Comando non disponibile durante il questionario. Usa /cancel per annullare."
	textDownloadFailed = "⚠️ Non riesco a scaricare la foto. Inviala di nuovo, per favore."
	textSessionLost    = "⚠️ Il rapporto in corso è andato perso. Usa /start per ricominciare."
	textCommitFailed   = "❌ Si è verificato un errore nel salvare i dati. " +
		"Riprova con /start o contatta l'assistenza."
)

func photoStatus(ref string) string {
	switch ref {
	case models.AttachmentUploadFailed:
		return "Non caricata"
	case models.AttachmentLinkUnavailable:
		return "Caricata (link non disponibile)"
	default:
		return "Caricata"
	}
}

// summary echoes every collected answer back to the operator.
func summary(fields []schema.FieldSpec, answers map[string]string, rec models.Report) string {
	var b strings.Builder
	b.WriteString("✅ Intervento registrato con successo!\n\n📋 Riepilogo:\n")
	for _, f := range fields {
		label := f.Label
		if label == "" {
			label = f.Key
		}
		if f.Kind == schema.TerminalAttachment {
			fmt.Fprintf(&b, "%s: %s\n", label, photoStatus(rec.AttachmentRef))
			continue
		}
		fmt.Fprintf(&b, "%s: %s\n", label, answers[f.Key])
	}
	fmt.Fprintf(&b, "⏰ Data/Ora: %s alle %s\n\n", rec.Date, rec.Time)
	b.WriteString("I dati sono stati salvati nel sistema aziendale.")
	return b.String()
}
