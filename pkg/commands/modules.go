package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"selfbot/pkg/dispatch"
	"selfbot/pkg/plugin"
)

func (s *Set) loadModule(ctx context.Context, ev *dispatch.Event) error {
	if s.Modules == nil {
		return errors.New("module loader is not configured")
	}
	if !ev.Message.IsReply() {
		return dispatch.Reply(s.text("not_reply"), nil)
	}

	reply, err := ev.Message.ReplyTo(ctx)
	if err != nil {
		return fmt.Errorf("fetch replied message: %w", err)
	}
	doc, ok := reply.Document()
	if !ok {
		return dispatch.Reply(s.text("file_not_found"), nil)
	}
	if !strings.HasSuffix(doc.Name, plugin.Extension) {
		return dispatch.Reply(s.text("not_go_file"), nil)
	}

	name := plugin.NameFromFile(doc.Name)
	if err := ev.Edit(ctx, s.format("module_loading", name)); err != nil {
		return err
	}

	if err := os.MkdirAll(s.Paths.TempDir, 0o755); err != nil {
		return fmt.Errorf("create temp directory: %w", err)
	}
	downloadDir, err := os.MkdirTemp(s.Paths.TempDir, "selfbot-lm-")
	if err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	defer os.RemoveAll(downloadDir)

	path, err := reply.Download(ctx, downloadDir)
	if err != nil {
		return fmt.Errorf("download module: %w", err)
	}

	loaded, err := s.Modules.Load(ctx, path, name)
	if !loaded {
		if err == nil {
			err = errors.New("module was not registered")
		}
		return dispatch.Reply(s.format("module_load_failed", name), err)
	}
	return ev.Edit(ctx, s.format("module_loaded", name))
}

func (s *Set) unloadModule(ctx context.Context, ev *dispatch.Event) error {
	if s.Modules == nil {
		return errors.New("module loader is not configured")
	}

	name := strings.TrimSpace(ev.Arg(1))
	if !s.Modules.Unload(ctx, name) {
		return dispatch.Reply(s.format("module_not_found", name), nil)
	}
	return ev.Edit(ctx, s.format("module_unloaded", name))
}

func (s *Set) modules(ctx context.Context, ev *dispatch.Event) error {
	var loaded []plugin.Module
	if s.Modules != nil {
		loaded = s.Modules.List()
	}
	if len(loaded) == 0 {
		return ev.Edit(ctx, s.text("no_modules"))
	}

	var b strings.Builder
	b.WriteString(s.text("modules_list"))
	b.WriteString("\n")
	for _, module := range loaded {
		fmt.Fprintf(&b, "• `%s`\n", module.Name)
		if len(module.Commands) == 0 {
			continue
		}
		commands := make([]string, 0, len(module.Commands))
		for _, command := range module.Commands {
			commands = append(commands, "`"+s.Prefix+command+"`")
		}
		b.WriteString("  └ " + strings.Join(commands, ", ") + "\n")
	}
	return ev.Edit(ctx, b.String())
}
