package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is overridden at build time with -ldflags "-X selfbot/cmd.version=...".
var version = "dev"

var rootCmd = &cobra.Command{
	Use:     "selfbot",
	Short:   "Telegram userbot with runtime plugins",
	Long:    "selfbot runs on your own Telegram account, answers prefixed commands in place and loads Go plugins at runtime.",
	Version: version,
	Run:     runBot,
}

// Execute runs the CLI and exits with status 1 on command errors.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
