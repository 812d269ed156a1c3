package notify

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/gomail.v2"
)

// buildMIME renders msg as a multipart MIME message for SES raw sends and SMTP.
func buildMIME(msg EmailMessage, defaultFrom, defaultName string) (*gomail.Message, error) {
	from, name := msg.From, msg.FromName
	if from == "" {
		from = defaultFrom
	}
	if name == "" {
		name = defaultName
	}

	m := gomail.NewMessage()
	m.SetAddressHeader("From", from, name)
	m.SetHeader("To", msg.To...)
	if msg.ReplyTo != "" {
		m.SetHeader("Reply-To", msg.ReplyTo)
	}
	m.SetHeader("Subject", msg.Subject)

	text := msg.Body
	if text == "" {
		text = msg.HTML
	}
	m.SetBody("text/plain", text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	for _, att := range msg.Attachments {
		data, err := att.Decode()
		if err != nil {
			return nil, fmt.Errorf("notify: decode attachment %q: %w", att.Filename, err)
		}
		m.Attach(att.Filename,
			gomail.SetCopyFunc(func(w io.Writer) error {
				_, err := w.Write(data)
				return err
			}),
			gomail.SetHeader(map[string][]string{
				"Content-Type": {att.Type},
			}),
		)
	}
	return m, nil
}

func renderMIME(m *gomail.Message) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("notify: render mime: %w", err)
	}
	return buf.Bytes(), nil
}
