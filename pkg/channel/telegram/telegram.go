package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"unicode/utf8"

	"selfbot/pkg/channel"
	"selfbot/pkg/config"

	tg "github.com/amarnathcjd/gogram/telegram"
	"golang.org/x/time/rate"
)

const channelName = "telegram"
const messagePreviewLimit = 240

// Adapter runs a gogram user session and forwards the account's own messages.
type Adapter struct {
	cfg     config.TelegramConfig
	log     *slog.Logger
	limiter *rate.Limiter

	mu     sync.Mutex
	client *tg.Client
}

// NewAdapter validates Telegram configuration and constructs an adapter instance.
func NewAdapter(cfg config.TelegramConfig, log *slog.Logger) (*Adapter, error) {
	if cfg.APIID <= 0 {
		return nil, errors.New("telegram.api_id is required")
	}
	if strings.TrimSpace(cfg.APIHash) == "" {
		return nil, errors.New("telegram.api_hash is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Adapter{
		cfg:     cfg,
		log:     log.With("component", "channel.telegram"),
		limiter: newEditLimiter(cfg.EditRate),
	}, nil
}

// newEditLimiter bounds outgoing edits per second; bursts up to one second's worth.
func newEditLimiter(perSecond int) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Limit(perSecond), perSecond)
}

// Name returns the channel identifier used in logs.
func (a *Adapter) Name() string {
	return channelName
}

// Run connects, authenticates (prompting on the terminal the first time) and
// forwards every outgoing new message to handler until ctx ends.
func (a *Adapter) Run(ctx context.Context, handler channel.Handler) error {
	if handler == nil {
		return errors.New("handler is required")
	}

	client, err := tg.NewClient(tg.ClientConfig{
		AppID:   int32(a.cfg.APIID),
		AppHash: strings.TrimSpace(a.cfg.APIHash),
		Session: a.cfg.SessionFile,
	})
	if err != nil {
		return fmt.Errorf("initialize telegram client: %w", err)
	}

	if _, err := client.Conn(); err != nil {
		return fmt.Errorf("connect to telegram: %w", err)
	}
	if err := client.AuthPrompt(); err != nil {
		return fmt.Errorf("authorize telegram session: %w", err)
	}

	a.mu.Lock()
	a.client = client
	a.mu.Unlock()

	client.AddMessageHandler(tg.OnNewMessage, func(m *tg.NewMessage) error {
		if m.Message == nil || !m.Message.Out {
			return nil
		}
		msg := &message{adapter: a, raw: m}
		a.log.Debug("Outgoing message", "chat_id", m.ChatID(), "message_id", m.ID, "content", previewText(msg.Text()))
		if err := handler(ctx, msg); err != nil {
			a.log.Error("Failed to process outgoing message", "chat_id", m.ChatID(), "error", err)
		}
		return nil
	}, tg.FilterOutgoing)

	a.log.Info("Telegram session started")

	<-ctx.Done()
	return a.Disconnect()
}

// Self returns the authenticated account.
func (a *Adapter) Self(ctx context.Context) (channel.Self, error) {
	client, err := a.current()
	if err != nil {
		return channel.Self{}, err
	}
	if err := ctx.Err(); err != nil {
		return channel.Self{}, err
	}

	me, err := client.GetMe()
	if err != nil {
		return channel.Self{}, fmt.Errorf("get self: %w", err)
	}
	return channel.Self{ID: me.ID, Username: me.Username, FirstName: me.FirstName}, nil
}

// Disconnect closes the MTProto connection. It is safe to call more than once.
func (a *Adapter) Disconnect() error {
	a.mu.Lock()
	client := a.client
	a.client = nil
	a.mu.Unlock()

	if client == nil {
		return nil
	}
	client.Disconnect()
	a.log.Info("Telegram session disconnected")
	return nil
}

func (a *Adapter) current() (*tg.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.client == nil {
		return nil, errors.New("telegram session is not connected")
	}
	return a.client, nil
}

// message adapts a gogram NewMessage to channel.Message.
type message struct {
	adapter *Adapter
	raw     *tg.NewMessage
}

func (m *message) ID() int64 {
	return int64(m.raw.ID)
}

func (m *message) ChatID() int64 {
	return m.raw.ChatID()
}

func (m *message) Text() string {
	return m.raw.Text()
}

func (m *message) Edit(ctx context.Context, text string) error {
	if err := m.adapter.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := m.raw.Edit(text); err != nil {
		return fmt.Errorf("edit message %d: %w", m.raw.ID, err)
	}
	return nil
}

func (m *message) IsReply() bool {
	return m.raw.IsReply()
}

func (m *message) ReplyTo(ctx context.Context) (channel.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply, err := m.raw.GetReplyMessage()
	if err != nil {
		return nil, fmt.Errorf("get reply message: %w", err)
	}
	return &message{adapter: m.adapter, raw: reply}, nil
}

func (m *message) Document() (channel.Document, bool) {
	if m.raw.File == nil || strings.TrimSpace(m.raw.File.Name) == "" {
		return channel.Document{}, false
	}
	return channel.Document{Name: m.raw.File.Name}, true
}

func (m *message) Download(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	doc, ok := m.Document()
	if !ok {
		return "", errors.New("message has no document")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	target := downloadPath(dir, m.raw.ID, doc.Name)
	path, err := m.raw.Download(&tg.DownloadOptions{FileName: target})
	if err != nil {
		return "", fmt.Errorf("download %s: %w", doc.Name, err)
	}
	return path, nil
}

// downloadPath keeps only the base name of the remote file and prefixes the
// message id so concurrent downloads of equally named files do not collide.
func downloadPath(dir string, messageID int32, name string) string {
	base := filepath.Base(strings.TrimSpace(name))
	if base == "." || base == string(filepath.Separator) {
		base = "document"
	}
	return filepath.Join(dir, strconv.FormatInt(int64(messageID), 10)+"_"+base)
}

// previewText returns a bounded log-safe preview of message text.
func previewText(text string) string {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= messagePreviewLimit {
		return trimmed
	}

	cut := messagePreviewLimit
	for cut > 0 && !utf8.RuneStart(trimmed[cut]) {
		cut--
	}
	return trimmed[:cut] + "..."
}
