package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/bot"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/llm"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/memory"
)

// localUser is the conversation key used by the REPL; the store is the
// same one the Discord pipeline uses, so trimming behaves identically.
const localUser = "local"

// newChatCmd creates the `chatclaw chat` command for talking to the
// completion endpoint without a Discord connection. Useful for
// debugging prompts and endpoint configuration.
func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat [message]",
		Short: "Talk to the completion endpoint locally",
		Long: `Send a single message, or start an interactive session when no
argument is given. Uses the same conversation memory, sanitizer and
completion client as the Discord pipeline.

Interactive commands: /reset clears the conversation, /prompt <text>
replaces the system prompt, /quit exits.

Examples:
  chatclaw chat "ping"
  chatclaw chat`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)

	bot.ResolveAPIKey(cfg, logger)
	if cfg.API.APIKey == "" {
		return &bot.ConfigError{Field: "api.api_key", Reason: "API key is required (set CHATCLAW_API_KEY or run 'chatclaw config set-key')"}
	}
	extraHeaders, err := cfg.API.ExtraHeaderMap()
	if err != nil {
		return &bot.ConfigError{Field: "api.extra_headers", Reason: err.Error()}
	}

	store := memory.NewStore(cfg.History.MaxMessages, cfg.History.MaxChars, cfg.History.SystemPrompt)
	client := llm.New(llm.Options{
		BaseURL:      cfg.API.BaseURL,
		URLOverride:  cfg.API.URLOverride,
		APIKey:       cfg.API.APIKey,
		Model:        cfg.API.Model,
		AuthHeader:   cfg.API.AuthHeader,
		AuthPrefix:   cfg.API.AuthPrefix,
		ExtraHeaders: extraHeaders,
		Timeout:      cfg.API.Timeout(),
	}, logger)

	if len(args) > 0 {
		return chatOnce(store, client, args[0])
	}
	return chatInteractive(store, client)
}

// chatOnce handles the single-message mode.
func chatOnce(store *memory.Store, client *llm.Client, message string) error {
	reply, err := exchange(store, client, message)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// chatInteractive runs the readline REPL.
func chatInteractive(store *memory.Store, client *llm.Client) error {
	rl, err := readline.New("you> ")
	if err != nil {
		return fmt.Errorf("starting readline: %w", err)
	}
	defer rl.Close()

	fmt.Println("ChatClaw interactive chat. /reset, /prompt <text>, /quit.")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt || err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/reset":
			store.ResetAll()
			fmt.Println("Conversation cleared.")
			continue
		case strings.HasPrefix(line, "/prompt"):
			store.SetSystemPrompt(strings.TrimPrefix(line, "/prompt"), false)
			fmt.Println("System prompt updated.")
			continue
		}

		reply, err := exchange(store, client, line)
		if err != nil {
			fmt.Println("error:", err)
			continue
		}
		fmt.Println("bot>", reply)
	}
}

// exchange runs one append → complete → append round, exactly like the
// Discord pipeline does.
func exchange(store *memory.Store, client *llm.Client, message string) (string, error) {
	store.Append(localUser, memory.RoleUser, message)
	reply, err := client.Complete(context.Background(), "cli", store.SystemPrompt(), store.Get(localUser))
	if err != nil {
		return "", err
	}
	store.Append(localUser, memory.RoleAssistant, reply)
	return reply, nil
}
