package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"selfbot/pkg/bot"
	"selfbot/pkg/config"
	"selfbot/pkg/logger"
	"selfbot/pkg/ui/setup"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the selfbot",
	Long:  "Loads config.json (running first-time setup when it is missing), signs in to Telegram and serves commands until interrupted.",
	Run:   runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// setupFunc collects first-run answers.
type setupFunc func(ctx context.Context, defaults setup.Answers) (setup.Answers, error)

func runBot(cmd *cobra.Command, args []string) {
	_ = args

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := startBot(runCtx, cmd)
	stop()

	if err != nil {
		if errors.Is(err, setup.ErrAborted) {
			fmt.Fprintln(cmd.ErrOrStderr(), "setup aborted, nothing saved")
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "selfbot: %v\n", err)
		}
		os.Exit(1)
	}
}

func startBot(ctx context.Context, cmd *cobra.Command) error {
	fmt.Fprintln(cmd.OutOrStdout(), setup.RenderBanner(version))

	cfg, err := loadOrSetup(ctx, setup.Run)
	if err != nil {
		return err
	}

	appLogger, closer, err := logger.New(cfg.Logging, cfg.Paths.LogFile)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer closer.Close()
	slog.SetDefault(appLogger)
	log := slog.Default().With("component", "cmd.run")

	b, err := bot.New(cfg, appLogger, bot.Options{Out: cmd.OutOrStdout()})
	if err != nil {
		log.Error("Failed to initialize bot", "error", err)
		return err
	}

	if err := b.Run(ctx); err != nil {
		log.Error("Bot stopped with error", "error", err)
		return err
	}
	log.Info("Bot stopped")
	return nil
}

// loadOrSetup returns the active config, asking for the required fields and
// saving them to config.DefaultPath when no config file exists yet.
func loadOrSetup(ctx context.Context, ask setupFunc) (*config.Config, error) {
	cfg, path, err := config.LoadConfig()
	switch {
	case err == nil:
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return cfg, nil
	case !errors.Is(err, config.ErrNotFound):
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg = config.Default()
	answers, err := ask(ctx, setup.Answers{
		Prefix:   cfg.Bot.Prefix,
		Language: cfg.Bot.Language,
	})
	if err != nil {
		return nil, err
	}
	answers.Apply(cfg)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := config.Save(cfg, config.DefaultPath()); err != nil {
		return nil, err
	}
	return cfg, nil
}
