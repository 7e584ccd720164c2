// Package notify forwards lifecycle events to the owner through the Bot API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"selfbot/pkg/bus"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Sender is the subset of *telego.Bot used for notifications.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
}

// Notifier sends one Bot API message per notable event.
type Notifier struct {
	sender  Sender
	ownerID int64
	log     *slog.Logger
}

// NewBotNotifier builds a notifier backed by a Bot API token.
func NewBotNotifier(token string, ownerID int64, log *slog.Logger) (*Notifier, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("notify.bot_token is required")
	}
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("initialize notification bot: %w", err)
	}
	return New(bot, ownerID, log)
}

// New returns a notifier sending to ownerID through sender.
func New(sender Sender, ownerID int64, log *slog.Logger) (*Notifier, error) {
	if sender == nil {
		return nil, errors.New("sender is required")
	}
	if ownerID == 0 {
		return nil, errors.New("bot.owner_id is required for notifications")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{sender: sender, ownerID: ownerID, log: log.With("component", "notify")}, nil
}

// Run delivers events until the channel closes or ctx ends.
func (n *Notifier) Run(ctx context.Context, events <-chan bus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			n.Deliver(ctx, event)
		}
	}
}

// Deliver sends event if it is one the owner is told about.
func (n *Notifier) Deliver(ctx context.Context, event bus.Event) bool {
	text, ok := Text(event)
	if !ok {
		return false
	}
	if _, err := n.sender.SendMessage(ctx, tu.Message(tu.ID(n.ownerID), text)); err != nil {
		n.log.Warn("Failed to send owner notification", "event", event.Type, "error", err)
		return false
	}
	return true
}

// Text renders the notification for event. Command traffic is not reported.
func Text(event bus.Event) (string, bool) {
	switch event.Type {
	case bus.EventBotStarted:
		if user := event.Payload["user"]; user != "" {
			return "🚀 selfbot started as " + user, true
		}
		return "🚀 selfbot started", true
	case bus.EventBotStopping:
		if event.Payload["reason"] == "restart" {
			return "🔄 selfbot restarting", true
		}
		return "🛑 selfbot stopping", true
	case bus.EventModuleLoaded:
		return "✅ Module " + event.Module + " loaded", true
	case bus.EventModuleUnloaded:
		return "📤 Module " + event.Module + " unloaded", true
	default:
		return "", false
	}
}
