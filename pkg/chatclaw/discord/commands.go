package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// adminPermission gates the administrative commands. Both the declared
// default and the runtime check use Manage Server.
var adminPermission = int64(discordgo.PermissionManageGuild)

// applicationCommands declares the administrative slash commands.
var applicationCommands = []*discordgo.ApplicationCommand{
	{
		Name:                     "reset",
		Description:              "Clear every stored conversation",
		DefaultMemberPermissions: &adminPermission,
	},
	{
		Name:                     "systemprompt",
		Description:              "Replace the system prompt (empty restores the default)",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "prompt",
				Description: "The new system prompt",
				Required:    true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionBoolean,
				Name:        "reset_context",
				Description: "Also clear every stored conversation",
			},
		},
	},
	{
		Name:                     "purge",
		Description:              "Bulk-delete recent messages in this channel",
		DefaultMemberPermissions: &adminPermission,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "count",
				Description: "How many messages to delete (1-100)",
				Required:    true,
			},
		},
	},
}

// registerCommands overwrites the bot's global application commands.
func (b *Bot) registerCommands() error {
	appID := b.session.State.User.ID
	_, err := b.session.ApplicationCommandBulkOverwrite(appID, "", applicationCommands)
	return err
}

// onInteractionCreate dispatches slash commands. Every command replies
// ephemerally to the invoker only; command errors are reported the
// same way and never crash the process.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	if i.Member == nil {
		respondEphemeral(s, i, "These commands only work inside a server.")
		return
	}
	if i.Member.Permissions&adminPermission == 0 {
		respondEphemeral(s, i, "You need the Manage Server permission to use this command.")
		return
	}

	data := i.ApplicationCommandData()
	var reply string
	var err error

	switch data.Name {
	case "reset":
		b.store.ResetAll()
		reply = "Conversation memory cleared for all users."
	case "systemprompt":
		reply = b.runSystemPrompt(data.Options)
	case "purge":
		reply, err = b.runPurge(i.ChannelID, data.Options)
	default:
		reply = "Unknown command."
	}

	if err != nil {
		b.logger.Warn("discord: command failed", "command", data.Name, "error", err)
		reply = "Command failed: " + err.Error()
	}
	respondEphemeral(s, i, reply)
}

// runSystemPrompt applies the prompt change, optionally clearing every
// conversation.
func (b *Bot) runSystemPrompt(opts []*discordgo.ApplicationCommandInteractionDataOption) string {
	var prompt string
	var alsoReset bool
	for _, opt := range opts {
		switch opt.Name {
		case "prompt":
			prompt = opt.StringValue()
		case "reset_context":
			alsoReset = opt.BoolValue()
		}
	}

	b.store.SetSystemPrompt(prompt, alsoReset)

	reply := "System prompt updated."
	if strings.TrimSpace(prompt) == "" {
		reply = "System prompt restored to the default."
	}
	if alsoReset {
		reply += " Conversation memory cleared."
	}
	b.logger.Info("discord: system prompt changed", "reset_context", alsoReset)
	return reply
}

// runPurge fetches and bulk-deletes the most recent messages in the
// invoking channel. Best effort: partial failures surface as a command
// error, nothing is retried.
func (b *Bot) runPurge(channelID string, opts []*discordgo.ApplicationCommandInteractionDataOption) (string, error) {
	count := 0
	for _, opt := range opts {
		if opt.Name == "count" {
			count = int(opt.IntValue())
		}
	}
	if count < 1 {
		count = 1
	}
	if count > 100 {
		count = 100
	}

	msgs, err := b.session.ChannelMessages(channelID, count, "", "", "")
	if err != nil {
		return "", fmt.Errorf("fetching messages: %w", err)
	}
	if len(msgs) == 0 {
		return "Nothing to delete.", nil
	}

	ids := make([]string, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID)
	}
	if err := b.session.ChannelMessagesBulkDelete(channelID, ids); err != nil {
		return "", fmt.Errorf("bulk delete: %w", err)
	}
	return fmt.Sprintf("Deleted %d messages.", len(ids)), nil
}

// respondEphemeral sends an ephemeral (visible only to the invoker)
// interaction response.
func respondEphemeral(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}
