package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "compiled manually"

var rootCmd = &cobra.Command{
	Use:   "opsie",
	Short: "Opsie is a shared-inbox email assistant",
	Long: `Opsie connects a mailbox to a team workspace so that emails can be
resolved to stable identifiers, matched against messages the team has
already seen, summarized, and annotated with shared notes.

Run "opsie serve" to expose the assistant as an MCP server, or use the
resolve/check subcommands directly from the command line.`,
}

// SetVersion sets the version from the build process
func SetVersion(v string) {
	version = v
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newAuthGoogleCmd())
	rootCmd.AddCommand(newResolveCmd())
	rootCmd.AddCommand(newCheckCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
