package main

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// triggerCommand fires the forge workflow (e.g. a GitHub Actions
// repository_dispatch) that reacts to a freshly pushed log, per
// spec.md §6's "git commit/push and forge workflow triggering" glue
// boundary. A plain net/http POST is deliberately used here rather
// than a full forge SDK: this is a single outbound call with no
// response parsing, the kind of thing DESIGN.md documents as not
// justifying a whole API client dependency.
func triggerCommand() *cobra.Command {
	var url, event string

	cmd := &cobra.Command{
		Use:   "trigger",
		Short: "Fire the forge workflow that reacts to a pushed log (e.g. repository_dispatch)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				return fmt.Errorf("--url is required (forge dispatch endpoint)")
			}

			body := fmt.Appendf(nil, `{"event_type":%q}`, event)
			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, url, bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("build request: %w", err)
			}
			req.Header.Set("Content-Type", "application/json")
			if token := os.Getenv("GITHUB_TOKEN"); token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}

			client := &http.Client{Timeout: 10 * time.Second}
			resp, err := client.Do(req)
			if err != nil {
				return fmt.Errorf("dispatch workflow: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode >= 300 {
				return fmt.Errorf("forge returned status %d", resp.StatusCode)
			}
			fmt.Println("workflow triggered")
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "forge dispatch endpoint URL")
	cmd.Flags().StringVar(&event, "event", "hoover-log-pushed", "event_type sent to the forge dispatch endpoint")
	return cmd
}
