package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gen2brain/malgo"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hoover/internal/config"
)

func devicesCommand() *cobra.Command {
	var pick bool
	var set string

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List capture devices, or pick/set the one hoover should use",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
			if err != nil {
				return fmt.Errorf("init audio context: %w", err)
			}
			defer func() {
				ctx.Uninit()
				ctx.Free()
			}()

			devices, err := ctx.Devices(malgo.Capture)
			if err != nil {
				return fmt.Errorf("list capture devices: %w", err)
			}

			if set != "" {
				return setDevice(set)
			}

			current := ""
			if pick {
				if settings, err := loadSettings(); err == nil {
					current = settings.Audio.Device
				}
			}

			for _, d := range devices {
				marker := " "
				if pick && ((current != "" && d.Name() == current) || (current == "" && d.IsDefault != 0)) {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, d.Name())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pick, "pick", false, "mark the device hoover would currently pick")
	cmd.Flags().StringVar(&set, "set", "", "persist this device name as the configured capture device")
	return cmd
}

// findDeviceByName resolves a configured capture device name to its
// malgo device ID, mirroring internal/pipeline/capture.go's lookup
// since the CLI's one-shot recorders (enroll) don't share that
// package's long-lived CaptureSource.
func findDeviceByName(ctx *malgo.AllocatedContext, name string) (*malgo.DeviceID, error) {
	devices, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, err
	}
	for _, d := range devices {
		if d.Name() == name {
			id := d.ID
			return &id, nil
		}
	}
	return nil, fmt.Errorf("capture device %q not found", name)
}

func setDevice(name string) error {
	path, err := config.Path()
	if err != nil {
		return err
	}
	settings, err := config.Load(path)
	if err != nil {
		return err
	}
	settings.Audio.Device = name

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Printf("set capture device to %q\n", name)
	return nil
}
