package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"hoover/internal/vcs"
)

func pushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Commit and push the markdown log repository now",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings()
			if err != nil {
				return err
			}
			if settings.VCS.RepoDir == "" {
				return fmt.Errorf("vcs.repo_dir is not configured")
			}

			repo := vcs.New(settings.VCS.RepoDir, true, true)
			if err := repo.CommitThenPush(); err != nil {
				return fmt.Errorf("commit/push: %w", err)
			}
			fmt.Println("pushed")
			return nil
		},
	}
}
