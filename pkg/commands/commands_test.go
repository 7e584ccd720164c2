package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"selfbot/pkg/channel"
	"selfbot/pkg/channel/channeltest"
	"selfbot/pkg/config"
	"selfbot/pkg/dispatch"
	"selfbot/pkg/i18n"
	"selfbot/pkg/ipinfo"
	"selfbot/pkg/plugin"
	"selfbot/pkg/sysinfo"
	"selfbot/pkg/workspace"

	"github.com/stretchr/testify/require"
)

const helloPlugin = `package hello

import "selfbot"

var Commands = []string{"hello"}

var route int

func Register(host selfbot.Host) error {
	id, err := host.Command("hello$", func(ev selfbot.Event) error {
		return ev.Edit("hi")
	})
	route = id
	return err
}

func Unregister(host selfbot.Host) error {
	host.Remove(route)
	return nil
}
`

type fakeIdentity struct {
	self channel.Self
	err  error
}

func (f fakeIdentity) Self(ctx context.Context) (channel.Self, error) {
	return f.self, f.err
}

type fakeLifecycle struct {
	mu       sync.Mutex
	restarts int
	stops    int
}

func (f *fakeLifecycle) Restart(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.restarts++
	return nil
}

func (f *fakeLifecycle) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	return nil
}

type harness struct {
	set        *Set
	dispatcher *dispatch.Dispatcher
	lifecycle  *fakeLifecycle
	paths      config.PathsConfig
}

func newHarness(t *testing.T, lang string) *harness {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	root := t.TempDir()
	paths := config.PathsConfig{
		ModulesDir: filepath.Join(root, "modules"),
		BackupsDir: filepath.Join(root, "backups"),
		TempDir:    filepath.Join(root, "tmp"),
		LogFile:    filepath.Join(root, "selfbot.log"),
	}
	require.NoError(t, os.MkdirAll(paths.TempDir, 0o755))

	tr := i18n.New(lang, ".")
	d := dispatch.New(".", tr, nil, log)

	guard, err := workspace.NewGuard(paths.ModulesDir)
	require.NoError(t, err)
	loader, err := plugin.NewLoader(guard, d, tr, nil, log)
	require.NoError(t, err)

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var ticks int
	var clockMu sync.Mutex
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		ticks++
		return start.Add(time.Duration(ticks) * 12500 * time.Microsecond)
	}

	lifecycle := &fakeLifecycle{}
	set := &Set{
		Prefix:     ".",
		Translator: tr,
		Status: sysinfo.NewReporter(start).
			WithClock(func() time.Time { return start.Add(3661 * time.Second) }).
			WithMemory(func() (float64, error) { return 42.26, nil }),
		Identity:  fakeIdentity{self: channel.Self{ID: 1, Username: "alice", FirstName: "Alice"}},
		Modules:   loader,
		IPInfo:    ipinfo.NewClient("http://127.0.0.1:1", nil),
		Lifecycle: lifecycle,
		Paths:     paths,
		Hostname:  "box",
		Now:       clock,
		Log:       log,
	}
	require.NoError(t, set.Register(d))

	return &harness{set: set, dispatcher: d, lifecycle: lifecycle, paths: paths}
}

func (h *harness) run(t *testing.T, msg *channeltest.Message) *channeltest.Message {
	t.Helper()
	require.NoError(t, h.dispatcher.Dispatch(context.Background(), msg))
	return msg
}

func (h *harness) send(t *testing.T, text string) *channeltest.Message {
	t.Helper()
	return h.run(t, channeltest.NewMessage(text))
}

func TestRegisterInstallsAllBuiltins(t *testing.T) {
	h := newHarness(t, "en")
	require.Equal(t, 13, h.dispatcher.Len())
}

func TestHelp(t *testing.T) {
	h := newHarness(t, "en")
	msg := h.send(t, ".help")
	require.Contains(t, msg.LastEdit(), "`.ping` - Check latency")
}

func TestSetLanguageSwitchesHelp(t *testing.T) {
	h := newHarness(t, "ru")

	msg := h.send(t, ".setlang en")
	require.Equal(t, "🌍 Language changed to EN", msg.LastEdit())

	template, _ := i18n.Lookup("en", "help_text")
	want := strings.ReplaceAll(template, "{prefix}", ".")
	require.Equal(t, want, h.set.Translator.Text("help_text"))
	require.Equal(t, want, h.send(t, ".help").LastEdit())
}

func TestSetLanguageIgnoresUnknownLanguage(t *testing.T) {
	h := newHarness(t, "ru")
	msg := h.send(t, ".setlang de")
	require.Empty(t, msg.Edits())
	require.Equal(t, "ru", h.set.Translator.Language())
}

func TestInfo(t *testing.T) {
	h := newHarness(t, "en")
	got := h.send(t, ".info").LastEdit()

	require.True(t, strings.HasPrefix(got, "`╭"), got)
	require.True(t, strings.HasSuffix(got, "╰─────────────────────\n`"), got)
	for _, line := range []string{
		"│     selfbot",
		"│ ᴜᴘᴛɪᴍᴇ: 01:01:01",
		"│ ᴜꜱᴇʀ: alice",
		"│ ʀᴀᴍ: 42.3%",
		"│ ʜᴏꜱᴛ: box",
	} {
		require.Contains(t, got, line)
	}
}

func TestInfoFallsBackToFirstName(t *testing.T) {
	h := newHarness(t, "en")
	h.set.Identity = fakeIdentity{self: channel.Self{FirstName: "Alice"}}
	require.Contains(t, h.send(t, ".info").LastEdit(), "│ ᴜꜱᴇʀ: Alice")
}

func TestInfoReportsIdentityFailure(t *testing.T) {
	h := newHarness(t, "en")
	h.set.Identity = fakeIdentity{err: errors.New("offline")}
	require.Equal(t, "❌ Error: get self: offline", h.send(t, ".info").LastEdit())
}

func TestPing(t *testing.T) {
	h := newHarness(t, "en")
	msg := h.send(t, ".ping")
	require.Equal(t, []string{"⚡️Ping...", "⚡️Ping: 12.5ms\n🌿 Bot is alive"}, msg.Edits())
}

func TestIPInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			_, _ = w.Write([]byte(`{"status":"fail","message":"invalid query"}`))
			return
		}
		_, _ = w.Write([]byte(`{"status":"success","country":"Germany","city":"Berlin","isp":"ISP","org":"Org","lat":52.5,"lon":13.4,"timezone":"Europe/Berlin"}`))
	}))
	defer server.Close()

	h := newHarness(t, "en")
	h.set.IPInfo = ipinfo.NewClient(server.URL, nil)

	got := h.send(t, ".ipinfo 1.2.3.4").LastEdit()
	want := h.set.Translator.Format("ipinfo_result", "1.2.3.4", "Germany", "Berlin", "ISP", "Org", "52.5", "13.4", "Europe/Berlin")
	require.Equal(t, want, got)

	require.Equal(t, "❌ IP lookup failed: invalid query", h.send(t, ".ipinfo bad").LastEdit())
}

func TestIPInfoTransportError(t *testing.T) {
	h := newHarness(t, "en")
	got := h.send(t, ".ipinfo 1.2.3.4").LastEdit()
	require.True(t, strings.HasPrefix(got, "❌ IP lookup failed: "), got)
}

func TestLogs(t *testing.T) {
	h := newHarness(t, "en")
	require.Equal(t, "🪵 No logs found", h.send(t, ".logs").LastEdit())

	var b strings.Builder
	for i := 1; i <= 30; i++ {
		fmt.Fprintf(&b, "line %d\n", i)
	}
	require.NoError(t, os.WriteFile(h.paths.LogFile, []byte(b.String()), 0o644))

	lines := make([]string, 0, 20)
	for i := 11; i <= 30; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	want := "📜 Recent logs:\n\n```" + strings.Join(lines, "\n") + "\n```"
	require.Equal(t, want, h.send(t, ".logs").LastEdit())
}

func TestTailLinesDropsPartialFirstLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.log")
	var b strings.Builder
	for b.Len() < logTailWindow+1000 {
		b.WriteString("0123456789abcdef\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	lines, err := tailLines(path, 1000000)
	require.NoError(t, err)
	for _, line := range lines {
		require.Equal(t, "0123456789abcdef", line)
	}
}

func TestLoadModuleValidation(t *testing.T) {
	h := newHarness(t, "en")

	require.Equal(t, "❌ This is not a reply", h.send(t, ".lm").LastEdit())

	msg := channeltest.NewMessage(".lm")
	msg.Reply = channeltest.NewMessage("just text")
	require.Equal(t, "❌ File not found", h.run(t, msg).LastEdit())

	msg = channeltest.NewMessage(".lm")
	msg.Reply = &channeltest.Message{File: &channeltest.File{Name: "notes.txt", Content: []byte("x")}}
	require.Equal(t, "❌ The file must be a .go file", h.run(t, msg).LastEdit())
}

func TestModuleLifecycle(t *testing.T) {
	h := newHarness(t, "en")
	require.Equal(t, "📦 No modules loaded", h.send(t, ".modules").LastEdit())

	msg := channeltest.NewMessage(".lm")
	msg.Reply = &channeltest.Message{File: &channeltest.File{Name: "hello.go", Content: []byte(helloPlugin)}}
	h.run(t, msg)
	require.Equal(t, []string{"⏳ Loading module hello...", "✅ Module hello loaded"}, msg.Edits())

	_, err := os.Stat(filepath.Join(h.paths.ModulesDir, "hello.go"))
	require.NoError(t, err)
	leftovers, err := filepath.Glob(filepath.Join(h.paths.TempDir, "selfbot-lm-*"))
	require.NoError(t, err)
	require.Empty(t, leftovers, "download directory should be removed")

	require.Equal(t, "hi", h.send(t, ".hello").LastEdit())
	require.Equal(t, "📚 **Loaded modules:**\n• `hello`\n  └ `.hello`\n", h.send(t, ".modules").LastEdit())

	require.Equal(t, "✅ Module hello unloaded", h.send(t, ".ulm hello").LastEdit())
	require.Equal(t, "❌ Module hello not found", h.send(t, ".ulm hello").LastEdit())
	require.Equal(t, "📦 No modules loaded", h.send(t, ".modules").LastEdit())
	require.Empty(t, h.send(t, ".hello").Edits())
}

func TestLoadModuleFailure(t *testing.T) {
	h := newHarness(t, "en")

	msg := channeltest.NewMessage(".lm")
	msg.Reply = &channeltest.Message{File: &channeltest.File{Name: "noop.go", Content: []byte("package noop\n")}}
	require.Equal(t, "❌ Failed to load noop", h.run(t, msg).LastEdit())
	require.Equal(t, "📦 No modules loaded", h.send(t, ".modules").LastEdit())
}

func TestRestartAndStop(t *testing.T) {
	h := newHarness(t, "en")

	require.Equal(t, "🔄 Restarting...", h.send(t, ".restart").LastEdit())
	require.Equal(t, "🛑 Stopping...", h.send(t, ".stop").LastEdit())
	require.Equal(t, 1, h.lifecycle.restarts)
	require.Equal(t, 1, h.lifecycle.stops)
}

func TestBackup(t *testing.T) {
	h := newHarness(t, "en")
	require.NoError(t, os.MkdirAll(h.paths.ModulesDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(h.paths.ModulesDir, "a.go"), []byte("package a"), 0o644))
	require.NoError(t, os.WriteFile(h.paths.LogFile, []byte("log\n"), 0o644))

	got := h.send(t, ".backup").LastEdit()
	require.True(t, strings.HasPrefix(got, "💾 Backup created: backup_20260102_"), got)

	matches, err := filepath.Glob(filepath.Join(h.paths.BackupsDir, "backup_*.zip"))
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "💾 Backup created: "+filepath.Base(matches[0]), got)
}

func TestBackupReportsError(t *testing.T) {
	h := newHarness(t, "en")
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	h.set.Paths.BackupsDir = filepath.Join(blocker, "backups")

	got := h.send(t, ".backup").LastEdit()
	require.True(t, strings.HasPrefix(got, "❌ Backup failed: "), got)
}

func TestClean(t *testing.T) {
	h := newHarness(t, "en")
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, os.WriteFile(filepath.Join(h.paths.TempDir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(h.paths.TempDir, "dir"), 0o755))

	require.Equal(t, "🧹 Temporary files removed: 3", h.send(t, ".clean").LastEdit())

	entries, err := os.ReadDir(h.paths.TempDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "dir", entries[0].Name())
}
