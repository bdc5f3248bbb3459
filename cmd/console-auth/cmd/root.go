package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "console-auth",
	Short: "OAuth2 authentication bridge for the management console",
	Long: `console-auth sits between the management console and the local
authorization server. It exchanges authorization codes and refresh tokens
for validated identities and turns them into session cookies or JSON
token bundles.`,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
