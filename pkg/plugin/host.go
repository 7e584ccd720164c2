package plugin

import (
	"context"
	"log/slog"
	"sync"

	"selfbot/pkg/dispatch"
)

// host is the Host given to one module. It tracks the routes the module
// installed so a failed Register can be rolled back and unload can warn about
// leftovers.
type host struct {
	name   string
	router Router
	texts  Texter
	log    *slog.Logger

	mu     sync.Mutex
	routes map[int]struct{}
}

func (h *host) Command(pattern string, fn func(Event) error) (int, error) {
	id, err := h.router.Command(pattern, wrap(fn))
	if err != nil {
		return 0, err
	}
	h.track(id)
	return id, nil
}

func (h *host) Remove(id int) bool {
	h.mu.Lock()
	delete(h.routes, id)
	h.mu.Unlock()
	return h.router.Remove(id)
}

func (h *host) Prefix() string {
	return h.router.Prefix()
}

func (h *host) Text(key string) string {
	if h.texts == nil {
		return key
	}
	return h.texts.Text(key)
}

func (h *host) Log(msg string) {
	h.log.Info(msg)
}

func (h *host) track(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.routes == nil {
		h.routes = make(map[int]struct{})
	}
	h.routes[id] = struct{}{}
}

func (h *host) routeCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.routes)
}

// removeAll uninstalls every route the module still owns and reports how many
// there were.
func (h *host) removeAll() int {
	h.mu.Lock()
	ids := make([]int, 0, len(h.routes))
	for id := range h.routes {
		ids = append(ids, id)
	}
	h.routes = nil
	h.mu.Unlock()

	for _, id := range ids {
		h.router.Remove(id)
	}
	return len(ids)
}

func wrap(fn func(Event) error) dispatch.HandlerFunc {
	if fn == nil {
		return nil
	}
	return func(ctx context.Context, ev *dispatch.Event) error {
		return fn(&event{ctx: ctx, ev: ev})
	}
}

// event adapts a dispatch.Event to the plugin Event API.
type event struct {
	ctx context.Context
	ev  *dispatch.Event
}

func (e *event) Text() string     { return e.ev.Message.Text() }
func (e *event) ChatID() int64    { return e.ev.Message.ChatID() }
func (e *event) Arg(i int) string { return e.ev.Arg(i) }

func (e *event) Args() []string {
	return append([]string(nil), e.ev.Args...)
}

func (e *event) Edit(text string) error {
	return e.ev.Edit(e.ctx, text)
}
