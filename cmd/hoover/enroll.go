package main

import (
	"fmt"
	"math"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"

	"hoover/internal/speaker"
)

func enrollCommand() *cobra.Command {
	var seconds int

	cmd := &cobra.Command{
		Use:   "enroll <name>",
		Short: "Record a short sample and enroll it as a named speaker profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			initLogging(settings)

			enc, err := speaker.NewEncoder(speaker.DefaultEncoderConfig(settings.Speaker.ModelPath, settings.Audio.SampleRate))
			if err != nil {
				return fmt.Errorf("init speaker encoder: %w", err)
			}
			defer enc.Close()

			store, err := speaker.NewStore(settings.Speaker.ProfilesDir)
			if err != nil {
				return fmt.Errorf("init profile store: %w", err)
			}

			samples, err := recordSeconds(settings.Audio.Device, settings.Audio.SampleRate, seconds)
			if err != nil {
				return fmt.Errorf("record enrollment audio: %w", err)
			}

			if err := speaker.Enroll(enc, store, args[0], samples, settings.Audio.SampleRate); err != nil {
				return fmt.Errorf("enroll: %w", err)
			}
			if err := store.Flush(); err != nil {
				return fmt.Errorf("flush profile store: %w", err)
			}

			fmt.Printf("enrolled %q from %d seconds of audio\n", args[0], seconds)
			return nil
		},
	}

	cmd.Flags().IntVar(&seconds, "seconds", 15, "seconds of audio to record for enrollment")
	return cmd
}

// recordSeconds captures a fixed-duration mono clip for enrollment,
// blocking until enough samples have accumulated. Separate from the
// capture pipeline since enrollment is a one-shot foreground
// operation, not a long-lived stage.
func recordSeconds(device string, sampleRate, seconds int) ([]float32, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer func() {
		ctx.Uninit()
		ctx.Free()
	}()

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Capture)
	deviceConfig.Capture.Format = malgo.FormatF32
	deviceConfig.Capture.Channels = 1
	deviceConfig.SampleRate = uint32(sampleRate)

	if device != "" {
		id, err := findDeviceByName(ctx, device)
		if err != nil {
			return nil, fmt.Errorf("find capture device: %w", err)
		}
		deviceConfig.Capture.DeviceID = id.Pointer()
	}

	want := sampleRate * seconds
	collected := make([]float32, 0, want)
	done := make(chan struct{})

	onRecv := func(_, input []byte, frameCount uint32) {
		select {
		case <-done:
			return
		default:
		}
		n := int(frameCount)
		for i := 0; i < n && len(collected) < want; i++ {
			bits := uint32(input[i*4]) | uint32(input[i*4+1])<<8 | uint32(input[i*4+2])<<16 | uint32(input[i*4+3])<<24
			collected = append(collected, math.Float32frombits(bits))
		}
		if len(collected) >= want {
			select {
			case <-done:
			default:
				close(done)
			}
		}
	}

	dev, err := malgo.InitDevice(ctx.Context, deviceConfig, malgo.DeviceCallbacks{Data: onRecv})
	if err != nil {
		return nil, fmt.Errorf("init capture device: %w", err)
	}
	defer dev.Uninit()

	if err := dev.Start(); err != nil {
		return nil, fmt.Errorf("start capture device: %w", err)
	}
	<-done
	dev.Stop()

	return collected, nil
}
