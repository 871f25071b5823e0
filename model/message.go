package model

import "time"

// RawMessage is a single bank notification as delivered by a mail source.
// Header fields and body are already decoded; MessageID and UID may be empty
// depending on what the source could recover.
type RawMessage struct {
	From      string
	Subject   string
	Date      string
	Body      string
	MessageID string
	UID       string
}

// Text returns the blob the extraction engine operates on.
func (m RawMessage) Text() string {
	if m.Subject == "" {
		return m.Body
	}
	return m.Subject + " " + m.Body
}

// Envelope wraps a raw message alongside an optional error encountered while
// reading or decoding it.
type Envelope struct {
	Message RawMessage
	Err     error
}

// Record is one extracted financial movement, ready for the sink.
type Record struct {
	ProcessedAt time.Time
	From        string
	Subject     string
	Amount      int64
	Movement    string
	Currency    string
	StableID    string
}
