//	@title			Hummingbird Media API
//	@version		1.0
//	@description	Single-file media upload, metadata lookup and signed downloads.
//
//	@host		localhost:8080
//	@BasePath	/

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Injected at build time using ldflags.
var (
	version = ""
	commit  = ""
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// newRootCommand creates the `hummingbird` command. Without a subcommand it
// starts the API server.
func newRootCommand() *cobra.Command {
	serve := newServeOptions()

	cmd := &cobra.Command{
		Use:           "hummingbird [command]",
		Version:       versionInfo(),
		Short:         "Media upload service",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve.Run(cmd.Context())
		},
	}
	serve.AddFlags(cmd)

	cmd.AddCommand(newServeCommand(newServeOptions()))
	cmd.AddCommand(newMigrateCommand())

	return cmd
}

func versionInfo() string {
	if version == "" {
		return ""
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
