package model

import "time"

// EmailArtifact is an immutable harvested email message.
type EmailArtifact struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"account_id"`
	Subject     string     `json:"subject"`
	From        string     `json:"from"`
	To          []string   `json:"to"`
	CC          []string   `json:"cc,omitempty"`
	BCC         []string   `json:"bcc,omitempty"`
	Date        time.Time  `json:"date"`
	Body        string     `json:"body"`
	Snippet     string     `json:"snippet"`
	Attachments []string   `json:"attachments,omitempty"`

	// Populated by the relevance pipeline's thread reconstruction (§4.6).
	ThreadKey string `json:"-"`
}

// Participants returns every address on an email: from, to, cc, bcc.
func (e *EmailArtifact) Participants() []string {
	out := make([]string, 0, 2+len(e.To)+len(e.CC)+len(e.BCC))
	if e.From != "" {
		out = append(out, normalizeEmail(e.From))
	}
	for _, a := range e.To {
		out = append(out, normalizeEmail(a))
	}
	for _, a := range e.CC {
		out = append(out, normalizeEmail(a))
	}
	for _, a := range e.BCC {
		out = append(out, normalizeEmail(a))
	}
	return out
}

// DocumentMimeClass identifies the exportable content classes §3 names.
type DocumentMimeClass string

const (
	MimeClassDocument    DocumentMimeClass = "document"
	MimeClassSpreadsheet DocumentMimeClass = "spreadsheet"
	MimeClassPDF         DocumentMimeClass = "pdf"
	MimeClassPlainText   DocumentMimeClass = "plain_text"
	MimeClassOther       DocumentMimeClass = "other"
)

// IsExportable reports whether content can be extracted for this mime class.
func (c DocumentMimeClass) IsExportable() bool {
	switch c {
	case MimeClassDocument, MimeClassSpreadsheet, MimeClassPDF, MimeClassPlainText:
		return true
	default:
		return false
	}
}

// DocumentArtifact is a harvested drive file.
type DocumentArtifact struct {
	ID           string            `json:"id"`
	AccountID    string            `json:"account_id"`
	Name         string            `json:"name"`
	MimeType     string            `json:"mime_type"`
	MimeClass    DocumentMimeClass `json:"-"`
	Size         int64             `json:"size"`
	ModifiedTime time.Time         `json:"modified_time"`
	Owner        string            `json:"owner"`
	OwnerEmail   string            `json:"owner_email"`
	URL          string            `json:"url"`
	Content      string            `json:"content,omitempty"` // truncated to 50 KiB, exportable types only
}

// CalendarArtifact is a past calendar event used for relationship history.
type CalendarArtifact struct {
	ID        string     `json:"id"`
	AccountID string     `json:"account_id"`
	Title     string     `json:"title"`
	Start     time.Time  `json:"start"`
	End       time.Time  `json:"end"`
	Attendees []Attendee `json:"attendees"`
}
