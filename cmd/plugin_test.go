package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"selfbot/pkg/plugin"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
)

const greeterSource = `package greeter

import "selfbot"

var Commands = []string{"greet"}

func Register(host selfbot.Host) error {
	_, err := host.Command("greet", func(ev selfbot.Event) error { return ev.Edit("hi") })
	return err
}
`

func writePlugin(t *testing.T, name string, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func checkCommand() (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	return cmd, &out, &errOut
}

func TestCheckPluginReportsEntryPoints(t *testing.T) {
	path := writePlugin(t, "greeter.go", greeterSource)
	cmd, out, errOut := checkCommand()

	require.NoError(t, checkPlugin(cmd, path))
	require.Contains(t, out.String(), "module:     greeter")
	require.Contains(t, out.String(), "package:    greeter")
	require.Contains(t, out.String(), "commands:   greet")
	require.Contains(t, out.String(), "register:   yes")
	require.Contains(t, out.String(), "unregister: no")
	require.Contains(t, errOut.String(), "no Unregister")
}

func TestCheckPluginRequiresRegister(t *testing.T) {
	path := writePlugin(t, "empty.go", "package empty\n\nvar Commands = []string{\"x\"}\n")
	cmd, _, _ := checkCommand()

	err := checkPlugin(cmd, path)
	if !errors.Is(err, plugin.ErrNoRegister) {
		t.Fatalf("checkPlugin error = %v, want ErrNoRegister", err)
	}
}

func TestCheckPluginRejectsNonGoFiles(t *testing.T) {
	path := writePlugin(t, "notes.txt", "hello")
	cmd, _, _ := checkCommand()

	if err := checkPlugin(cmd, path); !errors.Is(err, errNotGo) {
		t.Fatalf("checkPlugin error = %v, want errNotGo", err)
	}
}

func TestCheckPluginReportsSyntaxErrors(t *testing.T) {
	path := writePlugin(t, "broken.go", "package broken\n\nfunc Register(\n")
	cmd, _, _ := checkCommand()

	require.Error(t, checkPlugin(cmd, path))
}
