package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"selfbot/pkg/plugin"

	"github.com/spf13/cobra"
)

var pluginCmd = &cobra.Command{
	Use:   "plugin",
	Short: "Work with plugin sources",
}

var pluginCheckCmd = &cobra.Command{
	Use:   "check <file.go>",
	Short: "Evaluate a plugin without installing it",
	Long:  "Interprets a plugin source file, reports its package, declared commands and entry points, and fails when Register is missing.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkPlugin(cmd, args[0])
	},
}

var errNotGo = errors.New("plugins must be .go files")

func init() {
	pluginCmd.AddCommand(pluginCheckCmd)
	rootCmd.AddCommand(pluginCmd)
}

func checkPlugin(cmd *cobra.Command, path string) error {
	if strings.ToLower(filepath.Ext(path)) != ".go" {
		return fmt.Errorf("%s: %w", path, errNotGo)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read plugin: %w", err)
	}

	info, err := plugin.Inspect(filepath.Base(path), src)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "module:     %s\n", plugin.NameFromFile(path))
	fmt.Fprintf(out, "package:    %s\n", info.Package)
	if len(info.Commands) > 0 {
		fmt.Fprintf(out, "commands:   %s\n", strings.Join(info.Commands, ", "))
	} else {
		fmt.Fprintln(out, "commands:   (not declared)")
	}
	fmt.Fprintf(out, "register:   %s\n", yesNo(info.HasRegister))
	fmt.Fprintf(out, "unregister: %s\n", yesNo(info.HasUnregister))

	if !info.HasRegister {
		return fmt.Errorf("%s: %w", path, plugin.ErrNoRegister)
	}
	if !info.HasUnregister {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: no Unregister; routes stay installed after ulm")
	}
	return nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
