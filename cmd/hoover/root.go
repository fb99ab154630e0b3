package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"hoover/internal/config"
	"hoover/internal/logging"
)

var cfgPath string

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "hoover",
		Short: "Continuous capture, transcription and speaker-tagged markdown logging",
	}

	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config.yaml (default ~/.config/hoover/config.yaml)")

	root.AddCommand(
		recordCommand(),
		enrollCommand(),
		speakersCommand(),
		devicesCommand(),
		initCommand(),
		pushCommand(),
		triggerCommand(),
		sendCommand(),
		mcpCommand(),
		completionsCommand(),
	)

	return root
}

func loadSettings() (*config.Settings, error) {
	path := cfgPath
	if path == "" {
		var err error
		path, err = config.Path()
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
	}
	settings, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return settings, nil
}

func initLogging(settings *config.Settings) *slog.Logger {
	logCfg := logging.DefaultConfig(settings.Writer.OutputDir)
	logger := logging.Init(logCfg)
	slog.SetDefault(logger)
	return logger
}
