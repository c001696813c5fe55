package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/bot"
)

// newSetupCmd creates the `chatclaw setup` command for interactive
// configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard to create your initial config.yaml.
Asks for the Discord bot token, the completion endpoint and model.
The API key goes into the OS keyring, never into the file.

Examples:
  chatclaw setup`,
		RunE: runSetup,
	}
}

// runSetup guides the user through config creation step by step.
func runSetup(_ *cobra.Command, _ []string) error {
	reader := bufio.NewReader(os.Stdin)
	cfg := bot.DefaultConfig()

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║           ChatClaw — Setup Wizard            ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	// ── Step 1: Discord bot token ──
	fmt.Println("   Create a bot at https://discord.com/developers/applications")
	fmt.Println("   and enable the Message Content intent.")
	fmt.Println()
	for {
		fmt.Print("1. Discord bot token: ")
		token := readLine(reader)
		if token == "" {
			fmt.Println("   [!] The bot token is required.")
			continue
		}
		cfg.Discord.Token = token
		break
	}

	// ── Step 2: Completion endpoint ──
	fmt.Println()
	fmt.Println("   API endpoint (OpenAI-compatible):")
	fmt.Println()
	fmt.Printf("2. API base URL [%s]: ", cfg.API.BaseURL)
	if url := readLine(reader); url != "" {
		cfg.API.BaseURL = url
	}

	// ── Step 3: Model ──
	fmt.Printf("3. Model [%s]: ", cfg.API.Model)
	if model := readLine(reader); model != "" {
		cfg.API.Model = model
	}

	// ── Step 4: System prompt ──
	fmt.Println()
	fmt.Print("4. System prompt (Enter keeps the default): ")
	if prompt := readLine(reader); prompt != "" {
		cfg.History.SystemPrompt = prompt
	}

	// ── Step 5: API key → keyring ──
	fmt.Println()
	fmt.Print("5. API key (hidden input, Enter to skip): ")
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		// Terminal password reading failed; fall back to visible input.
		fmt.Print("5. API key (or press Enter to skip): ")
		raw = []byte(readLine(reader))
	}
	if key := string(raw); key != "" {
		if err := bot.StoreKeyring(bot.KeyringAPIKey, key); err != nil {
			fmt.Println("   [!] OS keyring unavailable; set CHATCLAW_API_KEY in your environment instead.")
		} else {
			fmt.Println("   API key stored in the OS keyring.")
		}
	}

	// ── Write config ──
	if err := bot.SaveConfig(cfg, "config.yaml"); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	fmt.Println()
	fmt.Println("Configuration written to ./config.yaml")
	fmt.Println("Start the bot with: chatclaw serve")
	return nil
}

// readLine reads one trimmed line from stdin.
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
