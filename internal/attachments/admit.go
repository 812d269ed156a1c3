package attachments

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
)

// DefaultType is used when a file arrives without a declared MIME type.
const DefaultType = "application/octet-stream"

// Omission reasons.
const (
	ReasonCountLimit = "count limit reached"
	ReasonFetch      = "fetch failed"
	ReasonEmpty      = "empty file"
	ReasonTooLarge   = "exceeds per-file limit"
	ReasonBudget     = "exceeds total attachment budget"
)

// Limits bounds the attachments carried by one email.
// A zero or negative MaxCount means no count limit; the same holds for the byte limits.
type Limits struct {
	MaxCount      int
	MaxEachBytes  int64
	MaxTotalBytes int64
}

// Payload is an attachment ready to hand to an email provider.
type Payload struct {
	Filename    string `json:"filename"`
	Type        string `json:"type"`
	Disposition string `json:"disposition"`
	Content     string `json:"content"`
	Size        int64  `json:"-"`
}

// Decode returns the raw bytes of the payload.
func (p Payload) Decode() ([]byte, error) {
	return base64.StdEncoding.DecodeString(p.Content)
}

// Candidate is a file offered for admission. Err marks a file that could not
// be read.
type Candidate struct {
	Filename string
	Type     string
	Data     []byte
	Err      error
}

// Omission describes a file left off the email. It never fails a submission.
type Omission struct {
	Filename string
	Reason   string
	Err      error
}

func (o Omission) Error() string {
	if o.Err != nil {
		return fmt.Sprintf("attachment %q omitted: %s: %v", o.Filename, o.Reason, o.Err)
	}
	return fmt.Sprintf("attachment %q omitted: %s", o.Filename, o.Reason)
}

func (o Omission) Unwrap() error {
	return o.Err
}

// Admit applies limits to candidates in input order. Files are accepted
// first-fit against the running total and never reordered.
func Admit(candidates []Candidate, limits Limits) (admitted []Payload, omitted []Omission) {
	var total int64
	for i, c := range candidates {
		if limits.MaxCount > 0 && i >= limits.MaxCount {
			omitted = append(omitted, Omission{Filename: c.Filename, Reason: ReasonCountLimit})
			continue
		}
		if c.Err != nil {
			omitted = append(omitted, Omission{Filename: c.Filename, Reason: ReasonFetch, Err: c.Err})
			continue
		}
		size := int64(len(c.Data))
		if size == 0 {
			omitted = append(omitted, Omission{Filename: c.Filename, Reason: ReasonEmpty})
			continue
		}
		if limits.MaxEachBytes > 0 && size > limits.MaxEachBytes {
			omitted = append(omitted, Omission{Filename: c.Filename, Reason: ReasonTooLarge})
			continue
		}
		if limits.MaxTotalBytes > 0 && total+size > limits.MaxTotalBytes {
			omitted = append(omitted, Omission{Filename: c.Filename, Reason: ReasonBudget})
			continue
		}
		total += size
		admitted = append(admitted, Payload{
			Filename:    c.Filename,
			Type:        typeOrDefault(c.Type),
			Disposition: "attachment",
			Content:     base64.StdEncoding.EncodeToString(c.Data),
			Size:        size,
		})
	}
	return admitted, omitted
}

// FromUploads admits files received in a multipart submission.
func FromUploads(uploads []leads.FileUpload, limits Limits) ([]Payload, []Omission) {
	candidates := make([]Candidate, 0, len(uploads))
	for _, u := range uploads {
		candidates = append(candidates, Candidate{
			Filename: u.Filename,
			Type:     u.ContentType,
			Data:     u.Data,
		})
	}
	return Admit(candidates, limits)
}

func typeOrDefault(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return DefaultType
	}
	return contentType
}
