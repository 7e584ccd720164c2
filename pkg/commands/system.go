package commands

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"selfbot/pkg/dispatch"
	"selfbot/pkg/sysinfo"
)

const (
	boxTop    = "╭─────────────────────"
	boxMiddle = "├─────────────────────"
	boxBottom = "╰─────────────────────"
)

func (s *Set) help(ctx context.Context, ev *dispatch.Event) error {
	return ev.Edit(ctx, s.text("help_text"))
}

func (s *Set) info(ctx context.Context, ev *dispatch.Event) error {
	status := sysinfo.Status{Uptime: sysinfo.FormatUptime(0), RAM: sysinfo.NotAvailable}
	if s.Status != nil {
		status = s.Status.Status()
	}

	user := sysinfo.NotAvailable
	if s.Identity != nil {
		self, err := s.Identity.Self(ctx)
		if err != nil {
			return fmt.Errorf("get self: %w", err)
		}
		if name := self.DisplayName(); name != "" {
			user = name
		}
	}

	host := s.Hostname
	if host == "" {
		host = sysinfo.NotAvailable
	}

	return ev.Edit(ctx, infoBlock([][2]string{
		{s.text("uptime"), status.Uptime},
		{s.text("user"), user},
		{s.text("ram"), status.RAM},
		{s.text("host"), host},
	}))
}

func infoBlock(rows [][2]string) string {
	var b strings.Builder
	b.WriteString("`" + boxTop + "\n")
	b.WriteString("│     selfbot\n")
	b.WriteString(boxMiddle + "\n")
	for _, row := range rows {
		fmt.Fprintf(&b, "│ %s: %s\n", sysinfo.StyleText(row[0]), row[1])
	}
	b.WriteString(boxBottom + "\n`")
	return b.String()
}

func (s *Set) ping(ctx context.Context, ev *dispatch.Event) error {
	start := s.Now()
	if err := ev.Edit(ctx, s.text("ping_progress")); err != nil {
		return err
	}
	return ev.Edit(ctx, s.format("ping_result", formatLatency(s.Now().Sub(start).Seconds()*1000)))
}

// formatLatency rounds milliseconds to two decimals.
func formatLatency(ms float64) string {
	return strconv.FormatFloat(math.Round(ms*100)/100, 'f', -1, 64)
}

func (s *Set) setLanguage(ctx context.Context, ev *dispatch.Event) error {
	lang := ev.Arg(1)
	if !s.Translator.SetLanguage(lang) {
		return fmt.Errorf("unsupported language %q", lang)
	}
	ev.Log.Info("Language changed", "language", lang)
	return ev.Edit(ctx, s.format("lang_changed", strings.ToUpper(lang)))
}

func (s *Set) restart(ctx context.Context, ev *dispatch.Event) error {
	if err := ev.Edit(ctx, s.text("restarting")); err != nil {
		ev.Log.Warn("Failed to announce restart", "error", err)
	}
	if s.Lifecycle == nil {
		return fmt.Errorf("restart is not available")
	}
	return s.Lifecycle.Restart(ctx)
}

func (s *Set) stop(ctx context.Context, ev *dispatch.Event) error {
	if err := ev.Edit(ctx, s.text("stopping")); err != nil {
		ev.Log.Warn("Failed to announce stop", "error", err)
	}
	if s.Lifecycle == nil {
		return fmt.Errorf("stop is not available")
	}
	return s.Lifecycle.Stop(ctx)
}
