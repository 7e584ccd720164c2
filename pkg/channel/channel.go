package channel

import (
	"context"
)

// Document describes a file attached to a message.
type Document struct {
	Name string
}

// Message is one message observed on the authenticated account's own stream.
type Message interface {
	ID() int64
	ChatID() int64
	Text() string
	// Edit replaces the message text.
	Edit(ctx context.Context, text string) error
	IsReply() bool
	// ReplyTo fetches the message this one replies to.
	ReplyTo(ctx context.Context) (Message, error)
	// Document reports the attached file, if any.
	Document() (Document, bool)
	// Download saves the attached file into dir and returns its path.
	Download(ctx context.Context, dir string) (string, error)
}

// Self identifies the authenticated account.
type Self struct {
	ID        int64
	Username  string
	FirstName string
}

// DisplayName prefers the username and falls back to the first name.
func (s Self) DisplayName() string {
	if s.Username != "" {
		return s.Username
	}
	return s.FirstName
}

// Handler processes one outgoing message.
type Handler func(context.Context, Message) error

// Adapter bridges one external transport into the dispatcher.
type Adapter interface {
	Name() string
	// Run authenticates, subscribes to outgoing messages and blocks until ctx ends
	// or the session is disconnected.
	Run(ctx context.Context, handler Handler) error
	Self(ctx context.Context) (Self, error)
	Disconnect() error
}
