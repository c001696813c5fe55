// Package commands implements the chatclaw CLI commands using cobra.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the CLI root command with all subcommands
// registered.
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "chatclaw",
		Short: "ChatClaw - Discord mention bot for OpenAI-compatible endpoints",
		Long: `ChatClaw answers @mentions in Discord servers using any
OpenAI-compatible chat-completion endpoint, with bounded per-user
conversation memory.

Examples:
  chatclaw serve
  chatclaw chat "quick local question"
  chatclaw config set-key`,
		Version: version,
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newChatCmd(),
		newConfigCmd(),
		newSetupCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
