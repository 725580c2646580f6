// Package notify defines the outbound notification collaborator. Delivery
// is best-effort: failures are surfaced to the caller as warnings and never
// roll back the state change that triggered the message.
package notify

import "context"

// Attachment is an optional file carried with a message.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a single outbound notification.
type Message struct {
	To         string
	Subject    string
	TextBody   string
	HTMLBody   string
	Attachment *Attachment
}

// Sender dispatches messages. Implementations live outside this engine
// (SMTP, provider APIs); tests use the Recorder.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
