// Package channeltest provides an in-memory channel.Message for tests.
package channeltest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"selfbot/pkg/channel"
)

// Message records every edit applied to it.
type Message struct {
	MessageID  int64
	Chat       int64
	Body       string
	Reply      *Message
	ReplyErr   error
	File       *File
	EditErr    error
	OnEdit     func(text string)
	mu         sync.Mutex
	edits      []string
	downloaded []string
}

// File is a document attachment served from memory.
type File struct {
	Name    string
	Content []byte
}

// NewMessage returns a message with text in chat 1.
func NewMessage(text string) *Message {
	return &Message{MessageID: 1, Chat: 1, Body: text}
}

func (m *Message) ID() int64     { return m.MessageID }
func (m *Message) ChatID() int64 { return m.Chat }

func (m *Message) Text() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Body
}

func (m *Message) Edit(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.EditErr != nil {
		return m.EditErr
	}
	m.mu.Lock()
	m.Body = text
	m.edits = append(m.edits, text)
	m.mu.Unlock()
	if m.OnEdit != nil {
		m.OnEdit(text)
	}
	return nil
}

func (m *Message) IsReply() bool {
	return m.Reply != nil || m.ReplyErr != nil
}

func (m *Message) ReplyTo(ctx context.Context) (channel.Message, error) {
	if m.ReplyErr != nil {
		return nil, m.ReplyErr
	}
	if m.Reply == nil {
		return nil, errors.New("not a reply")
	}
	return m.Reply, nil
}

func (m *Message) Document() (channel.Document, bool) {
	if m.File == nil {
		return channel.Document{}, false
	}
	return channel.Document{Name: m.File.Name}, true
}

func (m *Message) Download(ctx context.Context, dir string) (string, error) {
	if m.File == nil {
		return "", errors.New("message has no document")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, filepath.Base(m.File.Name))
	if err := os.WriteFile(path, m.File.Content, 0o644); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.downloaded = append(m.downloaded, path)
	m.mu.Unlock()
	return path, nil
}

// Edits returns the texts passed to Edit, oldest first.
func (m *Message) Edits() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.edits...)
}

// LastEdit returns the most recent edit or "".
func (m *Message) LastEdit() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.edits) == 0 {
		return ""
	}
	return m.edits[len(m.edits)-1]
}

// Downloaded returns the paths written by Download.
func (m *Message) Downloaded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.downloaded...)
}
