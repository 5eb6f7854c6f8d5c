package report

import (
	"net/http"
	"strings"
	"time"

	"github.com/kylejryan/field-report-bot/internal/validate"
)

// Attachment is a downloaded receipt photo ready for upload.
type Attachment struct {
	Data        []byte
	ContentType string
	Filename    string
}

var extensions = map[string]string{
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"image/bmp":       ".bmp",
	"application/pdf": ".pdf",
}

// NewAttachment sniffs the content type of data and names the file after the
// customer and the capture time, e.g. quietanza_Acme_Srl_20261015_093000.jpg.
func NewAttachment(data []byte, customer string, at time.Time) Attachment {
	ct := sniff(data)
	ext, ok := extensions[ct]
	if !ok {
		ext = ".jpg"
	}
	name := "quietanza_" + validate.FileComponent(customer, "cliente") + "_" + at.Format("20060102_150405") + ext
	return Attachment{Data: data, ContentType: ct, Filename: name}
}

func sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if ct == "application/octet-stream" || ct == "text/plain" {
		// Telegram photos are always JPEG; tiny or truncated payloads
		// should not change that.
		return "image/jpeg"
	}
	return ct
}
