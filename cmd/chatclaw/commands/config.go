package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/bot"
)

// newConfigCmd creates the `chatclaw config` command group.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage bot configuration",
		Long: `Manage the ChatClaw configuration file and credentials.

Examples:
  chatclaw config init
  chatclaw config show
  chatclaw config set-key`,
	}

	cmd.AddCommand(
		newConfigInitCmd(),
		newConfigShowCmd(),
		newConfigSetKeyCmd(),
	)
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config.yaml",
		RunE: func(_ *cobra.Command, _ []string) error {
			if bot.FindConfigFile() != "" {
				return fmt.Errorf("a configuration file already exists; edit it instead")
			}
			if err := bot.SaveConfig(bot.DefaultConfig(), "config.yaml"); err != nil {
				return err
			}
			fmt.Println("Configuration written to ./config.yaml")
			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			// Never print credentials.
			if cfg.API.APIKey != "" {
				cfg.API.APIKey = "<set>"
			}
			if cfg.Discord.Token != "" {
				cfg.Discord.Token = "<set>"
			}
			out, err := yaml.Marshal(cfg)
			if err != nil {
				return err
			}
			fmt.Print(string(out))
			return nil
		},
	}
}

// newConfigSetKeyCmd stores the API key in the OS keyring, read
// without echo.
func newConfigSetKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-key",
		Short: "Store the completion API key in the OS keyring",
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Print("API key (hidden input): ")
			raw, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading key: %w", err)
			}
			key := string(raw)
			if key == "" {
				return fmt.Errorf("empty key, nothing stored")
			}
			if err := bot.StoreKeyring(bot.KeyringAPIKey, key); err != nil {
				return fmt.Errorf("storing in keyring: %w", err)
			}
			fmt.Println("API key stored in the OS keyring. You can remove it from .env and config.yaml.")
			return nil
		},
	}
}
