package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"selfbot/pkg/config"
	"selfbot/pkg/ui/setup"

	"github.com/stretchr/testify/require"
)

func isolateConfig(t *testing.T, path string) {
	t.Helper()
	t.Setenv("SELFBOT_CONFIG", path)
	t.Setenv("SELFBOT_API_ID", "")
	t.Setenv("SELFBOT_API_HASH", "")
}

func TestLoadOrSetupRunsSetupWhenConfigMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	isolateConfig(t, path)

	var got setup.Answers
	cfg, err := loadOrSetup(context.Background(), func(_ context.Context, defaults setup.Answers) (setup.Answers, error) {
		got = defaults
		return setup.Answers{APIID: 123, APIHash: "abc", Prefix: "!", Language: "en", OwnerID: "77"}, nil
	})
	require.NoError(t, err)
	require.Equal(t, ".", got.Prefix)
	require.Equal(t, "ru", got.Language)

	require.Equal(t, 123, cfg.Telegram.APIID)
	require.Equal(t, "!", cfg.Bot.Prefix)

	saved, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "abc", saved.Telegram.APIHash)
	require.Equal(t, "en", saved.Bot.Language)
	require.Equal(t, "77", saved.Bot.OwnerID)
}

func TestLoadOrSetupUsesExistingConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	isolateConfig(t, path)

	cfg := config.Default()
	cfg.Telegram.APIID = 5
	cfg.Telegram.APIHash = "hash"
	require.NoError(t, config.Save(cfg, path))

	loaded, err := loadOrSetup(context.Background(), func(context.Context, setup.Answers) (setup.Answers, error) {
		t.Fatal("setup should not run when config exists")
		return setup.Answers{}, nil
	})
	require.NoError(t, err)
	require.Equal(t, 5, loaded.Telegram.APIID)
}

func TestLoadOrSetupRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	isolateConfig(t, path)
	require.NoError(t, config.Save(config.Default(), path))

	_, err := loadOrSetup(context.Background(), nil)
	require.ErrorContains(t, err, "api_id")
}

func TestLoadOrSetupAbortSavesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	isolateConfig(t, path)

	_, err := loadOrSetup(context.Background(), func(context.Context, setup.Answers) (setup.Answers, error) {
		return setup.Answers{}, setup.ErrAborted
	})
	if !errors.Is(err, setup.ErrAborted) {
		t.Fatalf("loadOrSetup error = %v, want ErrAborted", err)
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("config written after abort: %v", statErr)
	}
}
