// Package setup runs the first-start terminal form and renders the startup banner.
package setup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"selfbot/pkg/config"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned when the user leaves the form with Esc or Ctrl+C.
var ErrAborted = errors.New("setup aborted")

// Answers are the values collected by the form.
type Answers struct {
	APIID    int
	APIHash  string
	Prefix   string
	Language string
	OwnerID  string
}

// Apply copies the answers into cfg.
func (a Answers) Apply(cfg *config.Config) {
	cfg.Telegram.APIID = a.APIID
	cfg.Telegram.APIHash = a.APIHash
	cfg.Bot.Prefix = a.Prefix
	cfg.Bot.Language = a.Language
	cfg.Bot.OwnerID = a.OwnerID
}

type field struct {
	label    string
	hint     string
	secret   bool
	validate func(string) (string, error)
	input    textinput.Model
	value    string
}

type model struct {
	theme   theme
	fields  []*field
	index   int
	err     string
	done    bool
	aborted bool
}

func newModel(defaults Answers) *model {
	fields := []*field{
		{label: "API ID", hint: "from my.telegram.org", validate: validateAPIID},
		{label: "API hash", hint: "from my.telegram.org", secret: true, validate: validateRequired("API hash")},
		{label: "Command prefix", hint: "default " + config.DefaultPrefix, validate: withDefault(config.DefaultPrefix, validateRequired("prefix"))},
		{label: "Language", hint: "ru or en, default " + config.DefaultLanguage, validate: withDefault(config.DefaultLanguage, validateLanguage)},
		{label: "Owner ID", hint: "optional numeric user id for notifications", validate: validateOwnerID},
	}

	initial := []string{"", defaults.APIHash, defaults.Prefix, defaults.Language, defaults.OwnerID}
	if defaults.APIID > 0 {
		initial[0] = strconv.Itoa(defaults.APIID)
	}

	for i, f := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.CharLimit = 128
		in.SetValue(initial[i])
		if f.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.input = in
	}
	fields[0].input.Focus()

	return &model{theme: defaultTheme(), fields: fields}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		}
	}

	if m.done {
		return m, nil
	}
	var cmd tea.Cmd
	current := m.fields[m.index]
	current.input, cmd = current.input.Update(msg)
	return m, cmd
}

// submit validates the focused field and advances.
func (m *model) submit() tea.Cmd {
	if m.done {
		return tea.Quit
	}

	current := m.fields[m.index]
	value, err := current.validate(current.input.Value())
	if err != nil {
		m.err = err.Error()
		return nil
	}

	m.err = ""
	current.value = value
	current.input.Blur()

	m.index++
	if m.index == len(m.fields) {
		m.index = len(m.fields) - 1
		m.done = true
		return tea.Quit
	}
	return m.fields[m.index].input.Focus()
}

func (m *model) View() string {
	var b strings.Builder
	b.WriteString(RenderBanner(""))
	b.WriteString("\n")
	b.WriteString(m.theme.hint.Render("First start: answers are saved to config.json"))
	b.WriteString("\n\n")

	for i, f := range m.fields {
		switch {
		case i < m.index || (m.done && i == m.index):
			shown := f.value
			if f.secret {
				shown = strings.Repeat("•", len([]rune(shown)))
			}
			if shown == "" {
				shown = "-"
			}
			b.WriteString(m.theme.done.Render(fmt.Sprintf("✓ %s: %s", f.label, shown)))
			b.WriteString("\n")
		case i == m.index:
			b.WriteString(m.theme.label.Render(f.label))
			b.WriteString(" ")
			b.WriteString(m.theme.hint.Render(f.hint))
			b.WriteString("\n")
			b.WriteString(m.theme.input.Render(f.input.View()))
			b.WriteString("\n")
		}
	}

	if m.err != "" {
		b.WriteString(m.theme.errorText.Render(m.err))
		b.WriteString("\n")
	}
	b.WriteString(m.theme.hint.Render("enter: next • esc: quit"))
	return b.String()
}

func (m *model) answers() Answers {
	id, _ := strconv.Atoi(m.fields[0].value)
	return Answers{
		APIID:    id,
		APIHash:  m.fields[1].value,
		Prefix:   m.fields[2].value,
		Language: m.fields[3].value,
		OwnerID:  m.fields[4].value,
	}
}

// Run shows the form on the terminal and returns the validated answers.
func Run(ctx context.Context, defaults Answers) (Answers, error) {
	final, err := tea.NewProgram(newModel(defaults), tea.WithContext(ctx)).Run()
	if err != nil {
		return Answers{}, fmt.Errorf("run setup form: %w", err)
	}

	m, ok := final.(*model)
	if !ok {
		return Answers{}, errors.New("unexpected setup model")
	}
	if m.aborted || !m.done {
		return Answers{}, ErrAborted
	}
	return m.answers(), nil
}

func validateAPIID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return "", errors.New("API ID must be a positive number")
	}
	return raw, nil
}

func validateRequired(name string) func(string) (string, error) {
	return func(raw string) (string, error) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return "", fmt.Errorf("%s is required", name)
		}
		return raw, nil
	}
}

func validateLanguage(raw string) (string, error) {
	lang := strings.ToLower(strings.TrimSpace(raw))
	if !config.SupportedLanguage(lang) {
		return "", fmt.Errorf("language must be one of %s", strings.Join(config.Languages, ", "))
	}
	return lang, nil
}

func validateOwnerID(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if _, err := strconv.ParseInt(raw, 10, 64); err != nil {
		return "", errors.New("owner id must be numeric")
	}
	return raw, nil
}

func withDefault(fallback string, next func(string) (string, error)) func(string) (string, error) {
	return func(raw string) (string, error) {
		if strings.TrimSpace(raw) == "" {
			raw = fallback
		}
		return next(raw)
	}
}
