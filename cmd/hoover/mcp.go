package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hoover/internal/mcpserver"
)

func mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the transcription log query tools over MCP (stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			server := mcpserver.New(settings.Writer.OutputDir)
			if err := server.Run(cmd.Context()); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
