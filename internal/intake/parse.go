package intake

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/mpalmer79/quirk-trade-appraisal-VolkswagenMA/internal/leads"
)

// DefaultMaxFieldBytes caps a single non-file multipart field.
const DefaultMaxFieldBytes = 64 << 10

// ParseLimits bounds what ParseBody will hold in memory.
type ParseLimits struct {
	MaxBodyBytes  int64
	MaxFileBytes  int64
	MaxFieldBytes int64
}

// Submission is a parsed request body.
type Submission struct {
	Fields map[string]any
	Files  []leads.FileUpload
	// Dropped names file parts discarded for exceeding MaxFileBytes.
	Dropped []string
}

// ParseBody reads a multipart, urlencoded or JSON submission. Any other
// content type is read as JSON.
func ParseBody(r *http.Request, limits ParseLimits) (*Submission, error) {
	if limits.MaxFieldBytes <= 0 {
		limits.MaxFieldBytes = DefaultMaxFieldBytes
	}
	body := r.Body
	if body == nil {
		body = http.NoBody
	}
	if limits.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(nil, body, limits.MaxBodyBytes)
	}

	mediaType, params, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return parseMultipart(body, params["boundary"], limits)
	case "application/x-www-form-urlencoded":
		return parseURLEncoded(body)
	default:
		return parseJSON(body)
	}
}

func parseMultipart(body io.Reader, boundary string, limits ParseLimits) (*Submission, error) {
	if boundary == "" {
		return nil, &ParseError{Reason: "multipart boundary missing"}
	}
	sub := &Submission{Fields: map[string]any{}}
	mr := multipart.NewReader(body, boundary)
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return sub, nil
		}
		if err != nil {
			return nil, bodyError("malformed multipart body", err)
		}
		if err := readPart(sub, part, limits); err != nil {
			part.Close()
			return nil, err
		}
		part.Close()
	}
}

func readPart(sub *Submission, part *multipart.Part, limits ParseLimits) error {
	name := part.FormName()
	filename, isFile := filenameParam(part)

	limit := limits.MaxFieldBytes
	if isFile {
		limit = limits.MaxFileBytes
	}

	data, overflow, err := readLimited(part, limit)
	if err != nil {
		return bodyError("malformed multipart body", err)
	}

	if !isFile {
		if name != "" && !overflow {
			sub.Fields[name] = string(data)
		}
		return nil
	}

	filename = strings.TrimSpace(filename)
	if filename == "" || len(data) == 0 {
		return nil
	}
	if overflow {
		sub.Dropped = append(sub.Dropped, filename)
		return nil
	}
	sub.Files = append(sub.Files, leads.FileUpload{
		Field:       name,
		Filename:    path.Base(strings.ReplaceAll(filename, `\`, "/")),
		ContentType: part.Header.Get("Content-Type"),
		Data:        data,
		Size:        int64(len(data)),
	})
	return nil
}

// filenameParam reports the Content-Disposition filename and whether the
// parameter is present at all, blank or not.
func filenameParam(part *multipart.Part) (string, bool) {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return "", false
	}
	filename, ok := params["filename"]
	return filename, ok
}

// readLimited reads up to limit bytes. When the part is larger it drains the
// rest and reports overflow.
func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	if limit <= 0 {
		data, err := io.ReadAll(r)
		return data, false, err
	}
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if n <= limit {
		return buf.Bytes(), false, nil
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return nil, false, err
	}
	return nil, true, nil
}

func parseURLEncoded(body io.Reader) (*Submission, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, bodyError("unreadable body", err)
	}
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, bodyError("malformed form body", err)
	}
	fields := make(map[string]any, len(values))
	for key, vals := range values {
		if len(vals) > 0 {
			fields[key] = vals[len(vals)-1]
		}
	}
	return &Submission{Fields: fields}, nil
}

func parseJSON(body io.Reader) (*Submission, error) {
	dec := json.NewDecoder(body)
	dec.UseNumber()

	var decoded any
	if err := dec.Decode(&decoded); err != nil {
		return nil, bodyError("invalid JSON", err)
	}
	fields, ok := decoded.(map[string]any)
	if !ok {
		return nil, &ParseError{Reason: "JSON body must be an object"}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &ParseError{Reason: "unexpected data after JSON object"}
	}
	return &Submission{Fields: fields}, nil
}

func bodyError(reason string, err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return &ParseError{Reason: "body too large", Err: err}
	}
	return &ParseError{Reason: reason, Err: err}
}
