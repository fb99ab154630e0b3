package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hoover/internal/speaker"
)

func speakersCommand() *cobra.Command {
	var remove string

	cmd := &cobra.Command{
		Use:   "speakers",
		Short: "List or remove enrolled speaker profiles",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}

			store, err := speaker.NewStore(settings.Speaker.ProfilesDir)
			if err != nil {
				return fmt.Errorf("init profile store: %w", err)
			}

			if remove != "" {
				if err := store.Remove(remove); err != nil {
					return fmt.Errorf("remove %q: %w", remove, err)
				}
				fmt.Printf("removed %q\n", remove)
				return nil
			}

			for _, p := range store.All() {
				fmt.Println(p.Name)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&remove, "remove", "", "remove the named speaker profile")
	return cmd
}
