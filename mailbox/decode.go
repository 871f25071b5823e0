package mailbox

import (
	"bytes"
	"io"

	// Registers extended charsets for header and body decoding.
	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"

	"github.com/kashbor/bankmail-to-sheets/model"
)

// decodeMessage converts a raw RFC 5322 message into a RawMessage with
// decoded headers and best-effort body text. It never fails: undecodable
// messages degrade to their raw payload so extraction can still try.
func decodeMessage(raw []byte) model.RawMessage {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		_, body := splitRawMessage(raw)
		return model.RawMessage{Body: string(body)}
	}
	defer mr.Close()

	header := mr.Header
	msg := model.RawMessage{Date: header.Get("Date")}

	if subject, err := header.Subject(); err == nil && subject != "" {
		msg.Subject = subject
	} else {
		msg.Subject = header.Get("Subject")
	}
	if from, err := header.Text("From"); err == nil && from != "" {
		msg.From = from
	} else {
		msg.From = header.Get("From")
	}
	if id, err := header.MessageID(); err == nil {
		msg.MessageID = id
	}

	msg.Body = bodyText(mr, raw)
	return msg
}

// bodyText prefers the first text/plain part, falls back to the first
// text/html part, and to the raw payload as a last resort.
func bodyText(mr *mail.Reader, raw []byte) string {
	var plain, html string

	for {
		part, err := mr.NextPart()
		if err == io.EOF || err != nil {
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, err := inline.ContentType()
		if err != nil {
			continue
		}

		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			if plain == "" {
				plain = string(data)
			}
		case "text/html":
			if html == "" {
				html = string(data)
			}
		}
	}

	if plain != "" {
		return plain
	}
	if html != "" {
		return html
	}
	_, body := splitRawMessage(raw)
	return string(body)
}

func splitRawMessage(raw []byte) (header, body []byte) {
	if len(raw) == 0 {
		return nil, nil
	}

	if idx := bytes.Index(raw, []byte("\r\n\r\n")); idx >= 0 {
		return raw[:idx], raw[idx+4:]
	}
	if idx := bytes.Index(raw, []byte("\n\n")); idx >= 0 {
		return raw[:idx], raw[idx+2:]
	}

	return raw, nil
}
