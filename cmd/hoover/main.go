// Command hoover is the CLI entrypoint: continuous microphone capture,
// transcription, optional speaker tagging, and markdown logging, plus
// the encrypted UDP audio transport and MCP query surface of
// spec.md §6. Subcommand layout follows the teacher's cmd/ package,
// one file per subcommand, wired to cobra the same way root.go does.
package main

import (
	"fmt"
	"os"

	"hoover/internal/herr"
)

func main() {
	cmd := rootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(herr.ExitCode(err))
	}
}
