// Package plugin installs and removes command handlers from Go source files
// evaluated at runtime.
//
// A plugin is a single .go file importing "selfbot". It must define
//
//	func Register(host selfbot.Host) error
//
// and may define Unregister with the same signature and a Commands []string
// variable listing the commands it adds (shown by the modules command). Every
// route a plugin adds is anchored to the command prefix. Plugins
// run in-process with the full standard library available; loading one is
// equivalent to running arbitrary code as the bot.
package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"selfbot/pkg/bus"
	"selfbot/pkg/dispatch"
	"selfbot/pkg/workspace"
)

// Extension is the required plugin file suffix.
const Extension = ".go"

// Router is the part of the dispatcher plugins install routes into.
type Router interface {
	Command(command string, handler dispatch.HandlerFunc) (int, error)
	Remove(id int) bool
	Prefix() string
}

// Texter resolves localization keys.
type Texter interface {
	Text(key string) string
}

// Module is the public record of a loaded plugin.
type Module struct {
	Name     string
	Path     string
	Commands []string
	LoadedAt time.Time
}

type loadedModule struct {
	Module
	plugin *compiled
	host   *host
}

// Loader owns the set of loaded modules and their backing files.
type Loader struct {
	guard  *workspace.Guard
	router Router
	texts  Texter
	events bus.Publisher
	log    *slog.Logger
	now    func() time.Time

	// ops serializes Load and Unload; mu guards modules for readers.
	ops     sync.Mutex
	mu      sync.RWMutex
	modules map[string]*loadedModule
	order   []string
}

// NewLoader returns a loader storing plugins under guard's root. events may be nil.
func NewLoader(guard *workspace.Guard, router Router, texts Texter, events bus.Publisher, log *slog.Logger) (*Loader, error) {
	if guard == nil {
		return nil, errors.New("module directory is required")
	}
	if router == nil {
		return nil, errors.New("router is required")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Loader{
		guard:   guard,
		router:  router,
		texts:   texts,
		events:  events,
		log:     log.With("component", "plugin.loader"),
		now:     time.Now,
		modules: make(map[string]*loadedModule),
	}, nil
}

// Dir returns the module directory.
func (l *Loader) Dir() string {
	return l.guard.Root()
}

// NameFromFile derives a module name from an uploaded file name.
func NameFromFile(fileName string) string {
	return strings.TrimSuffix(filepath.Base(fileName), Extension)
}

// ValidName reports whether name can be used as a module file stem.
func ValidName(name string) bool {
	if name == "" || strings.HasPrefix(name, ".") {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

// Load copies srcPath into the module directory as <name>.go, evaluates it and
// calls its Register entry point. It returns false when the module was not
// installed; the copied file is left in place in that case and any route the
// failed Register added is removed. A module already loaded under name keeps
// running until the new one has registered, then it is unloaded.
func (l *Loader) Load(ctx context.Context, srcPath string, name string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if !ValidName(name) {
		return false, fmt.Errorf("invalid module name %q", name)
	}

	l.ops.Lock()
	defer l.ops.Unlock()

	log := l.log.With("module", name)

	target, err := l.guard.ResolvePath(name + Extension)
	if err != nil {
		return false, fmt.Errorf("resolve module path: %w", err)
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		return false, fmt.Errorf("read plugin source: %w", workspace.NormalizeIOError(err, "read plugin source"))
	}
	if err := l.guard.EnsureContained(target); err != nil {
		return false, err
	}
	if err := os.WriteFile(target, src, 0o644); err != nil {
		return false, fmt.Errorf("write module file: %w", workspace.NormalizeIOError(err, "write module file"))
	}

	plugin, err := compile(target, src)
	if err != nil {
		log.Error("Failed to evaluate module", "error", err)
		return false, err
	}
	if plugin.register == nil {
		log.Error("Module has no Register entry point")
		return false, ErrNoRegister
	}

	h := &host{name: name, router: l.router, texts: l.texts, log: log}
	if err := call(plugin.register, h); err != nil {
		if n := h.removeAll(); n > 0 {
			log.Warn("Removed routes of failed module", "routes", n)
		}
		log.Error("Module registration failed", "error", err)
		return false, fmt.Errorf("register %s: %w", name, err)
	}

	// The new source already sits at the old module's path.
	if previous, ok := l.lookup(name); ok {
		log.Info("Replacing loaded module")
		l.retire(ctx, previous, false)
	}

	module := &loadedModule{
		Module: Module{
			Name:     name,
			Path:     target,
			Commands: plugin.commands,
			LoadedAt: l.now(),
		},
		plugin: plugin,
		host:   h,
	}

	l.mu.Lock()
	l.modules[name] = module
	l.order = append(l.order, name)
	l.mu.Unlock()

	log.Info("Module loaded", "commands", len(plugin.commands), "routes", h.routeCount())
	l.publish(ctx, bus.Event{Type: bus.EventModuleLoaded, Module: name})
	return true, nil
}

// Unload calls the module's Unregister entry point, forgets it and deletes its
// file. Unknown names return false and touch nothing. Routes of a module without
// Unregister stay installed.
func (l *Loader) Unload(ctx context.Context, name string) bool {
	l.ops.Lock()
	defer l.ops.Unlock()

	return l.unload(ctx, name)
}

func (l *Loader) unload(ctx context.Context, name string) bool {
	module, ok := l.lookup(name)
	if !ok {
		return false
	}
	l.retire(ctx, module, true)
	return true
}

// retire runs Unregister and forgets module, deleting its file when removeFile
// is set.
func (l *Loader) retire(ctx context.Context, module *loadedModule, removeFile bool) {
	name := module.Name
	log := l.log.With("module", name)

	if module.plugin.unregister != nil {
		if err := call(module.plugin.unregister, module.host); err != nil {
			log.Warn("Module Unregister failed", "error", err)
		}
	} else if n := module.host.routeCount(); n > 0 {
		log.Warn("Module has no Unregister entry point; its routes stay installed", "routes", n)
	}

	l.mu.Lock()
	delete(l.modules, name)
	for i, existing := range l.order {
		if existing == name {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	l.mu.Unlock()

	if removeFile {
		if err := os.Remove(module.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("Failed to delete module file", "path", module.Path, "error", err)
		}
	}

	log.Info("Module unloaded")
	l.publish(ctx, bus.Event{Type: bus.EventModuleUnloaded, Module: name})
}

// List returns the loaded modules in load order.
func (l *Loader) List() []Module {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Module, 0, len(l.order))
	for _, name := range l.order {
		m := l.modules[name].Module
		m.Commands = append([]string(nil), m.Commands...)
		out = append(out, m)
	}
	return out
}

// Loaded reports whether name is currently loaded.
func (l *Loader) Loaded(name string) bool {
	_, ok := l.lookup(name)
	return ok
}

func (l *Loader) lookup(name string) (*loadedModule, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	m, ok := l.modules[name]
	return m, ok
}

func (l *Loader) publish(ctx context.Context, event bus.Event) {
	if l.events == nil {
		return
	}
	l.events.PublishEvent(ctx, event)
}
