package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"hoover/internal/transport"
)

func sendCommand() *cobra.Command {
	var file, keyFile string

	cmd := &cobra.Command{
		Use:   "send <host:port>",
		Short: "Send PCM audio to a hoover UDP receiver over the encrypted transport",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if keyFile == "" {
				return fmt.Errorf("--key-file is required")
			}

			key, err := transport.LoadKey(keyFile)
			if err != nil {
				return err
			}

			sender, err := transport.NewSender(args[0], key)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}
			defer sender.Close()

			var pcm []byte
			if file != "" {
				pcm, err = os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("read input file: %w", err)
				}
			} else {
				pcm, err = io.ReadAll(os.Stdin)
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
			}

			samples := transport.PCMToFloat32(pcm)
			if err := sender.SendSamples(samples); err != nil {
				return fmt.Errorf("send: %w", err)
			}
			fmt.Printf("sent %d samples\n", len(samples))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "raw little-endian i16 PCM file to send (default: stdin)")
	cmd.Flags().StringVar(&keyFile, "key-file", "", "path to the 32-byte shared key")
	return cmd
}
