package setup

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// theme groups reusable styles for the setup form and startup banner.
type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	label      lipgloss.Style
	done       lipgloss.Style
	input      lipgloss.Style
	hint       lipgloss.Style
	errorText  lipgloss.Style
	summaryBox lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		header: lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("25")),
		headerMeta: lipgloss.NewStyle().
			Foreground(lipgloss.Color("153")),
		divider: lipgloss.NewStyle().
			Foreground(lipgloss.Color("61")),
		label: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")),
		done: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")),
		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("69")).
			Padding(0, 1),
		hint: lipgloss.NewStyle().
			Foreground(lipgloss.Color("244")),
		errorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("203")).
			Bold(true),
		summaryBox: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("69")).
			Padding(0, 1),
	}
}

// RenderBanner returns the startup banner.
func RenderBanner(version string) string {
	t := defaultTheme()
	meta := "telegram userbot"
	if version != "" {
		meta += " " + version
	}
	return t.header.Render("selfbot") + " " + t.headerMeta.Render(meta) + "\n" +
		t.divider.Render(strings.Repeat("─", 40))
}

// Summary is what gets printed once the session is up.
type Summary struct {
	User     string
	Prefix   string
	Language string
	Status   string
}

// RenderSummary returns the "started as" block.
func RenderSummary(s Summary) string {
	t := defaultTheme()
	lines := []string{
		t.done.Render("✅ Started as " + s.User),
		fmt.Sprintf("%s %s", t.label.Render("Prefix:"), s.Prefix),
		fmt.Sprintf("%s %s", t.label.Render("Language:"), s.Language),
		fmt.Sprintf("%s %shelp", t.label.Render("Help:"), s.Prefix),
	}
	if s.Status != "" {
		lines = append(lines, fmt.Sprintf("%s %s", t.label.Render("Status:"), s.Status))
	}
	return t.summaryBox.Render(strings.Join(lines, "\n"))
}
