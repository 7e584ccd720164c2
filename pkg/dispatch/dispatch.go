// Package dispatch routes outgoing messages to command handlers.
//
// Routes are kept in one ordered table. Built-in commands are added at startup,
// plugin routes are appended as plugins register them, and the first route whose
// pattern matches a message handles it.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"runtime/debug"
	"strconv"
	"sync"
	"sync/atomic"

	"selfbot/pkg/bus"
	"selfbot/pkg/channel"
	"selfbot/pkg/i18n"

	"github.com/google/uuid"
)

// HandlerFunc handles one matched message.
type HandlerFunc func(ctx context.Context, ev *Event) error

// Event is the matched message plus the pattern submatches.
type Event struct {
	Message channel.Message
	// Args holds the regexp submatches; Args[0] is the whole match.
	Args      []string
	RequestID string
	Log       *slog.Logger
}

// Arg returns submatch i, or "" when the pattern has fewer groups.
func (e *Event) Arg(i int) string {
	if i < 0 || i >= len(e.Args) {
		return ""
	}
	return e.Args[i]
}

// Edit replaces the triggering message text.
func (e *Event) Edit(ctx context.Context, text string) error {
	return e.Message.Edit(ctx, text)
}

// ReplyError is a handler failure whose text is already localized for the user.
type ReplyError struct {
	Text string
	Err  error
}

func (e *ReplyError) Error() string {
	if e.Err != nil {
		return e.Text + ": " + e.Err.Error()
	}
	return e.Text
}

func (e *ReplyError) Unwrap() error {
	return e.Err
}

// Reply returns a ReplyError showing text to the user.
func Reply(text string, err error) error {
	return &ReplyError{Text: text, Err: err}
}

type route struct {
	id      int
	name    string
	pattern *regexp.Regexp
	handler HandlerFunc
}

// Dispatcher owns the route table. It is safe for concurrent use.
type Dispatcher struct {
	prefix     string
	translator *i18n.Translator
	events     bus.Publisher
	log        *slog.Logger

	mu     sync.RWMutex
	routes []route
	nextID int

	handled atomic.Int64
}

// New returns an empty dispatcher for prefix. events may be nil.
func New(prefix string, translator *i18n.Translator, events bus.Publisher, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		prefix:     prefix,
		translator: translator,
		events:     events,
		log:        log.With("component", "dispatch"),
		nextID:     1,
	}
}

// Prefix returns the command prefix.
func (d *Dispatcher) Prefix() string {
	return d.prefix
}

// CommandPattern anchors a command expression to the start of the message
// behind the quoted prefix.
func CommandPattern(prefix string, command string) string {
	return "^" + regexp.QuoteMeta(prefix) + command
}

// Command appends a route matching "<prefix><command>". command may contain
// regexp syntax, e.g. `ipinfo (.+)`.
func (d *Dispatcher) Command(command string, handler HandlerFunc) (int, error) {
	return d.add(command, CommandPattern(d.prefix, command), handler)
}

func (d *Dispatcher) add(name string, expr string, handler HandlerFunc) (int, error) {
	if handler == nil {
		return 0, errors.New("handler is required")
	}
	pattern, err := regexp.Compile(expr)
	if err != nil {
		return 0, fmt.Errorf("compile pattern %q: %w", expr, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id := d.nextID
	d.nextID++
	d.routes = append(d.routes, route{id: id, name: name, pattern: pattern, handler: handler})
	return id, nil
}

// Remove deletes the route with id and reports whether it existed.
func (d *Dispatcher) Remove(id int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, r := range d.routes {
		if r.id == id {
			d.routes = append(d.routes[:i], d.routes[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of installed routes.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.routes)
}

// Handled returns how many commands completed without error.
func (d *Dispatcher) Handled() int64 {
	return d.handled.Load()
}

func (d *Dispatcher) match(text string) (route, []string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	for _, r := range d.routes {
		if args := r.pattern.FindStringSubmatch(text); args != nil {
			return r, args, true
		}
	}
	return route{}, nil, false
}

// Dispatch runs the first matching route for msg. Handler failures are logged
// and shown to the user by editing msg; they are never returned.
func (d *Dispatcher) Dispatch(ctx context.Context, msg channel.Message) error {
	r, args, ok := d.match(msg.Text())
	if !ok {
		return nil
	}

	requestID := uuid.NewString()
	chatID := strconv.FormatInt(msg.ChatID(), 10)
	log := d.log.With("request_id", requestID, "command", r.name, "chat_id", msg.ChatID())
	ev := &Event{Message: msg, Args: args, RequestID: requestID, Log: log}

	log.Debug("Command received")
	d.publish(ctx, bus.Event{Type: bus.EventCommandReceived, ChatID: chatID, Command: r.name, RequestID: requestID})

	err := invoke(ctx, r.handler, ev)
	if err == nil {
		d.handled.Add(1)
		log.Info("Command completed")
		d.publish(ctx, bus.Event{Type: bus.EventCommandCompleted, ChatID: chatID, Command: r.name, RequestID: requestID})
		return nil
	}

	log.Error("Command failed", "error", err)
	d.publish(ctx, bus.Event{Type: bus.EventCommandFailed, ChatID: chatID, Command: r.name, RequestID: requestID, Error: err.Error()})

	if editErr := msg.Edit(ctx, d.errorText(err)); editErr != nil {
		log.Warn("Failed to report command error", "error", editErr)
	}
	return nil
}

func (d *Dispatcher) errorText(err error) string {
	var reply *ReplyError
	if errors.As(err, &reply) {
		return reply.Text
	}
	if d.translator == nil {
		return err.Error()
	}
	return d.translator.Format("command_failed", err.Error())
}

func (d *Dispatcher) publish(ctx context.Context, event bus.Event) {
	if d.events == nil {
		return
	}
	d.events.PublishEvent(ctx, event)
}

// PanicError wraps a value recovered from a handler.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func invoke(ctx context.Context, handler HandlerFunc, ev *Event) (err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = &PanicError{Value: recovered, Stack: debug.Stack()}
		}
	}()
	return handler(ctx, ev)
}
