// Package bot wires configuration, the Telegram session, the dispatcher and the
// plugin loader together and owns the process lifecycle.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"selfbot/pkg/bus"
	"selfbot/pkg/channel"
	"selfbot/pkg/channel/telegram"
	"selfbot/pkg/commands"
	"selfbot/pkg/config"
	"selfbot/pkg/dispatch"
	"selfbot/pkg/i18n"
	"selfbot/pkg/ipinfo"
	"selfbot/pkg/notify"
	"selfbot/pkg/plugin"
	"selfbot/pkg/sysinfo"
	"selfbot/pkg/ui/setup"
	"selfbot/pkg/workspace"
)

const (
	sessionPollInterval = 500 * time.Millisecond
	notifyDrainTimeout  = 3 * time.Second
)

// Options overrides collaborators, mainly for tests.
type Options struct {
	Adapter  channel.Adapter
	Notifier *notify.Notifier
	// Out receives the startup summary; nil discards it.
	Out io.Writer
	// Exit and Exec replace os.Exit and re-executing the binary.
	Exit func(code int)
	Exec func() error
	Now  func() time.Time
}

// Bot is one running selfbot instance.
type Bot struct {
	cfg        *config.Config
	log        *slog.Logger
	adapter    channel.Adapter
	events     *bus.MessageBus
	dispatcher *dispatch.Dispatcher
	loader     *plugin.Loader
	translator *i18n.Translator
	reporter   *sysinfo.Reporter
	ipinfo     *ipinfo.Client
	notifier   *notify.Notifier
	status     *statusServer
	out        io.Writer
	exit       func(int)
	exec       func() error

	notifyDone chan struct{}
	closeOnce  sync.Once

	mu      sync.RWMutex
	session sessionState
}

// New assembles a bot from cfg. The Telegram session is not opened until Run.
func New(cfg *config.Config, log *slog.Logger, opts Options) (*Bot, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if log == nil {
		log = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Exit == nil {
		opts.Exit = os.Exit
	}
	if opts.Exec == nil {
		opts.Exec = reexec
	}

	adapter := opts.Adapter
	if adapter == nil {
		telegramAdapter, err := telegram.NewAdapter(cfg.Telegram, log)
		if err != nil {
			return nil, fmt.Errorf("initialize telegram adapter: %w", err)
		}
		adapter = telegramAdapter
	}

	translator := i18n.New(cfg.Bot.Language, cfg.Bot.Prefix)
	events := bus.NewMessageBus()
	dispatcher := dispatch.New(cfg.Bot.Prefix, translator, events, log)

	modulesDir, err := workspace.NewGuard(cfg.Paths.ModulesDir)
	if err != nil {
		return nil, fmt.Errorf("prepare module directory: %w", err)
	}
	loader, err := plugin.NewLoader(modulesDir, dispatcher, translator, events, log)
	if err != nil {
		return nil, err
	}

	b := &Bot{
		cfg:        cfg,
		log:        log.With("component", "bot"),
		adapter:    adapter,
		events:     events,
		dispatcher: dispatcher,
		loader:     loader,
		translator: translator,
		reporter:   sysinfo.NewReporter(opts.Now()).WithClock(opts.Now),
		ipinfo:     ipinfo.NewClient(cfg.IPInfo.BaseURL, nil),
		notifier:   opts.Notifier,
		out:        opts.Out,
		exit:       opts.Exit,
		exec:       opts.Exec,
	}

	if b.notifier == nil && cfg.Notify.BotToken != "" {
		notifier, err := notify.NewBotNotifier(cfg.Notify.BotToken, cfg.OwnerChatID(), log)
		if err != nil {
			b.log.Warn("Owner notifications disabled", "error", err)
		} else {
			b.notifier = notifier
		}
	}
	if cfg.Status.Enabled {
		b.status = newStatusServer(cfg.Status, b, log)
	}

	executable, err := os.Executable()
	if err != nil {
		b.log.Warn("Executable path unavailable; backups will skip it", "error", err)
	}
	hostname, _ := os.Hostname()

	set := &commands.Set{
		Prefix:     cfg.Bot.Prefix,
		Translator: translator,
		Status:     b.reporter,
		Identity:   adapter,
		Modules:    loader,
		IPInfo:     b.ipinfo,
		Lifecycle:  b,
		Paths:      cfg.Paths,
		Executable: executable,
		Hostname:   hostname,
		Now:        opts.Now,
		Log:        log,
	}
	if err := set.Register(dispatcher); err != nil {
		return nil, fmt.Errorf("register built-in commands: %w", err)
	}

	return b, nil
}

// Dispatcher exposes the route table.
func (b *Bot) Dispatcher() *dispatch.Dispatcher {
	return b.dispatcher
}

// Run opens the session and processes outgoing messages until ctx ends or the
// session fails.
func (b *Bot) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if b.notifier != nil {
		// Subscribed with a background context so pending events drain on shutdown.
		events, _ := b.events.SubscribeEvents(context.Background(), 32)
		b.notifyDone = make(chan struct{})
		go func() {
			defer close(b.notifyDone)
			b.notifier.Run(context.Background(), events)
		}()
	}

	errCh := make(chan error, 2)
	if b.status != nil {
		go b.status.run(ctx, errCh)
	}

	b.setSession(func(s *sessionState) { s.Running = true; s.Error = "" })
	go func() {
		err := b.adapter.Run(ctx, b.dispatcher.Dispatch)
		b.setSession(func(s *sessionState) {
			s.Running = false
			s.Ready = false
			if err != nil {
				s.Error = err.Error()
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("run %s session: %w", b.adapter.Name(), err)
			return
		}
		errCh <- nil
	}()
	go b.awaitSession(ctx)

	select {
	case <-ctx.Done():
		b.shutdown(context.Background(), "signal")
		return nil
	case err := <-errCh:
		b.shutdown(context.Background(), "session_closed")
		return err
	}
}

// awaitSession polls the adapter until the account is known, then reports startup.
func (b *Bot) awaitSession(ctx context.Context) {
	ticker := time.NewTicker(sessionPollInterval)
	defer ticker.Stop()

	for {
		self, err := b.adapter.Self(ctx)
		if err == nil {
			b.started(ctx, self)
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (b *Bot) started(ctx context.Context, self channel.Self) {
	user := self.DisplayName()
	statusAddr := ""
	if b.status != nil {
		statusAddr = "http://" + b.status.addr + "/status"
	}
	fmt.Fprintln(b.out, setup.RenderSummary(setup.Summary{
		User:     user,
		Prefix:   b.cfg.Bot.Prefix,
		Language: b.translator.Language(),
		Status:   statusAddr,
	}))

	b.log.Info("Bot started", "user", user, "prefix", b.cfg.Bot.Prefix, "language", b.translator.Language())
	b.events.PublishEvent(ctx, bus.Event{Type: bus.EventBotStarted, Payload: map[string]string{"user": user}})

	b.setSession(func(s *sessionState) {
		s.Ready = true
		s.User = user
	})
}

// Stop disconnects and exits with status 0.
func (b *Bot) Stop(ctx context.Context) error {
	b.log.Info("Stopping")
	b.shutdown(ctx, "stop")
	b.exit(0)
	return nil
}

// Restart disconnects and replaces the process with a fresh copy.
func (b *Bot) Restart(ctx context.Context) error {
	b.log.Info("Restarting")
	b.shutdown(ctx, "restart")
	if err := b.exec(); err != nil {
		b.log.Error("Restart failed", "error", err)
		b.exit(1)
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// shutdown announces the stop, closes the session and releases shared clients.
// Only the first call has an effect.
func (b *Bot) shutdown(ctx context.Context, reason string) {
	b.closeOnce.Do(func() {
		b.events.PublishEvent(ctx, bus.Event{Type: bus.EventBotStopping, Payload: map[string]string{"reason": reason}})
		b.events.Close()
		if b.notifyDone != nil {
			select {
			case <-b.notifyDone:
			case <-time.After(notifyDrainTimeout):
				b.log.Warn("Timed out delivering owner notifications")
			}
		}

		if err := b.adapter.Disconnect(); err != nil {
			b.log.Warn("Disconnect failed", "error", err)
		}
		b.ipinfo.Close()
	})
}

func (b *Bot) setSession(update func(*sessionState)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	update(&b.session)
}

func (b *Bot) isReady() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.session.Running && b.session.Ready
}

func (b *Bot) snapshot(status string, detailed bool) statusResponse {
	b.mu.RLock()
	session := b.session
	b.mu.RUnlock()

	uptime := b.reporter.UptimeDuration()
	resp := statusResponse{
		Status:          status,
		UptimeSeconds:   int64(uptime / time.Second),
		Uptime:          sysinfo.FormatUptime(uptime),
		Session:         session,
		Modules:         []string{},
		CommandsHandled: b.dispatcher.Handled(),
	}
	for _, module := range b.loader.List() {
		resp.Modules = append(resp.Modules, module.Name)
	}
	if detailed {
		resp.RAM = b.reporter.Status().RAM
		resp.Language = b.translator.Language()
	}
	return resp
}
