package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"hoover/internal/config"
	"hoover/internal/firewall"
	"hoover/internal/herr"
	"hoover/internal/pipeline"
	"hoover/internal/speaker"
	"hoover/internal/stt"
	"hoover/internal/transport"
	"hoover/internal/vcs"
)

func recordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "record",
		Short: "Start continuous capture, transcription and markdown logging",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			initLogging(settings)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			provider, err := buildSTTProvider(settings)
			if err != nil {
				return err
			}
			defer provider.Close()

			var speakerEnc *speaker.Encoder
			var profiles *speaker.Store
			if settings.Speaker.ModelPath != "" {
				speakerEnc, err = speaker.NewEncoder(speaker.DefaultEncoderConfig(settings.Speaker.ModelPath, settings.Audio.SampleRate))
				if err != nil {
					return fmt.Errorf("init speaker encoder: %w", err)
				}
				defer speakerEnc.Close()

				profiles, err = speaker.NewStore(settings.Speaker.ProfilesDir)
				if err != nil {
					return fmt.Errorf("init profile store: %w", err)
				}
			}

			var repo *vcs.Repo
			if settings.VCS.RepoDir != "" {
				repo = vcs.New(settings.VCS.RepoDir, settings.VCS.AutoCommit, settings.VCS.AutoPush)
			}

			orch, err := pipeline.New(settings, provider, speakerEnc, profiles, repo)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}

			if settings.UDP.Enabled {
				recv, err := startUDPReceiver(settings, orch)
				if err != nil {
					return err
				}
				defer recv.Close()

				go func() {
					if err := recv.Run(ctx); err != nil {
						fmt.Println("udp receiver stopped:", err)
					}
				}()
			}

			return orch.Run(ctx)
		},
	}
}

func buildSTTProvider(settings *config.Settings) (stt.Provider, error) {
	switch settings.STT.Backend {
	case "vosk":
		return stt.NewVoskProvider(settings.STT.ModelPath, settings.Audio.SampleRate)
	case "openai":
		return stt.NewOpenAIProvider(settings.STT.OpenAIAPIKey, settings.STT.OpenAIModel, settings.Audio.SampleRate), nil
	case "whisper", "":
		return stt.NewWhisperProvider(settings.STT.ModelPath)
	default:
		return nil, fmt.Errorf("%w: unknown stt backend %q", herr.ErrSttFatal, settings.STT.Backend)
	}
}

func startUDPReceiver(settings *config.Settings, orch *pipeline.Orchestrator) (*transport.Receiver, error) {
	key, err := transport.LoadKey(settings.UDP.KeyFile)
	if err != nil {
		return nil, err
	}

	fw, err := firewall.New(settings.UDP.Firewall, settings.UDP.NftSet)
	if err != nil {
		return nil, fmt.Errorf("init firewall controller: %w", err)
	}

	blockDuration := time.Duration(settings.UDP.BlockDurationSecs) * time.Second
	return transport.NewReceiver(settings.UDP.ListenAddr, key, orch.RingBuffer(), fw, blockDuration)
}
