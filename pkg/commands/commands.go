// Package commands implements the built-in commands.
package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"selfbot/pkg/channel"
	"selfbot/pkg/config"
	"selfbot/pkg/dispatch"
	"selfbot/pkg/i18n"
	"selfbot/pkg/ipinfo"
	"selfbot/pkg/plugin"
	"selfbot/pkg/sysinfo"
)

// Registrar accepts command routes.
type Registrar interface {
	Command(command string, handler dispatch.HandlerFunc) (int, error)
}

// Identity reports the authenticated account.
type Identity interface {
	Self(ctx context.Context) (channel.Self, error)
}

// Modules manages runtime plugins.
type Modules interface {
	Load(ctx context.Context, srcPath string, name string) (bool, error)
	Unload(ctx context.Context, name string) bool
	List() []plugin.Module
}

// IPLookup resolves geolocation for an address.
type IPLookup interface {
	Lookup(ctx context.Context, address string) (ipinfo.Result, error)
}

// Lifecycle ends or replaces the running process.
type Lifecycle interface {
	Restart(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Set holds everything the built-in handlers need.
type Set struct {
	Prefix     string
	Translator *i18n.Translator
	Status     *sysinfo.Reporter
	Identity   Identity
	Modules    Modules
	IPInfo     IPLookup
	Lifecycle  Lifecycle
	Paths      config.PathsConfig
	// Executable is included in backups when set.
	Executable string
	Hostname   string
	Now        func() time.Time
	Log        *slog.Logger
}

// Register installs the built-in commands in display order.
func (s *Set) Register(r Registrar) error {
	if s.Translator == nil {
		return errors.New("translator is required")
	}
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Log == nil {
		s.Log = slog.Default()
	}

	routes := []struct {
		command string
		handler dispatch.HandlerFunc
	}{
		{"help$", s.help},
		{"info$", s.info},
		{"ping$", s.ping},
		{"ipinfo (.+)$", s.ipinfo},
		{"logs$", s.logs},
		{"lm$", s.loadModule},
		{"ulm (.+)$", s.unloadModule},
		{"modules$", s.modules},
		{"setlang (ru|en)$", s.setLanguage},
		{"restart$", s.restart},
		{"stop$", s.stop},
		{"backup$", s.backup},
		{"clean$", s.clean},
	}

	for _, route := range routes {
		if _, err := r.Command(route.command, route.handler); err != nil {
			return err
		}
	}
	return nil
}

func (s *Set) text(key string) string {
	return s.Translator.Text(key)
}

func (s *Set) format(key string, args ...any) string {
	return s.Translator.Format(key, args...)
}
