// Package discord implements the chatclaw Discord channel using
// discordgo: the mention-driven chat pipeline, administrative slash
// commands, and the moderation auto-ban hook.
package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/bot"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/llm"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/memory"
	"github.com/jholhewres/chatclaw/pkg/chatclaw/text"
)

// fallbackInstruction replaces a mention whose text is empty once the
// mention markup is stripped.
const fallbackInstruction = "Respond helpfully to the user."

// Bot wires the Discord gateway to the store and completion client.
type Bot struct {
	cfg     *bot.Config
	store   *memory.Store
	client  *llm.Client
	logger  *slog.Logger
	session *discordgo.Session
}

// New creates a Discord bot instance. Connect must be called before it
// does anything.
func New(cfg *bot.Config, store *memory.Store, client *llm.Client, logger *slog.Logger) *Bot {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bot{
		cfg:    cfg,
		store:  store,
		client: client,
		logger: logger.With("component", "discord"),
	}
}

// Connect opens the gateway connection and registers the slash
// commands.
func (b *Bot) Connect() error {
	if b.cfg.Discord.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}

	session, err := discordgo.New("Bot " + b.cfg.Discord.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(b.onMessageCreate)
	session.AddHandler(b.onInteractionCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}
	b.session = session

	if err := b.registerCommands(); err != nil {
		session.Close()
		return fmt.Errorf("discord: registering commands: %w", err)
	}

	user := session.State.User
	b.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Close shuts the gateway connection down.
func (b *Bot) Close() error {
	if b.session != nil {
		if err := b.session.Close(); err != nil {
			return err
		}
	}
	b.logger.Info("discord: disconnected")
	return nil
}

// ---------- Mention pipeline ----------

// onMessageCreate gates inbound messages: non-bot author, guild
// context, bot mentioned, allowed guild. The pipeline itself runs on
// its own goroutine so slow completions never block the gateway event
// loop.
func (b *Bot) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	// DMs are out of scope; the bot only answers in group contexts.
	if m.GuildID == "" {
		return
	}
	if !mentionsUser(m.Message, s.State.User.ID) {
		return
	}
	if !guildAllowed(b.cfg.Discord.AllowedGuilds, m.GuildID) {
		return
	}

	if phrase := matchBannedPhrase(b.cfg.Moderation.BannedPhrases, m.Content); phrase != "" {
		go b.banAuthor(m, phrase)
		return
	}

	content := StripMention(m.Content, s.State.User.ID)
	if content == "" {
		content = fallbackInstruction
	}

	go b.handleMention(m, content)
}

// handleMention runs the chat pipeline for one mention: append the
// user turn, complete, append the assistant turn, chunk, send.
func (b *Bot) handleMention(m *discordgo.MessageCreate, content string) {
	if b.cfg.Discord.SendTyping {
		// Best effort; a failed indicator never blocks the reply.
		if err := b.session.ChannelTyping(m.ChannelID); err != nil {
			b.logger.Debug("discord: typing indicator failed", "channel_id", m.ChannelID, "error", err)
		}
	}

	b.store.Append(m.Author.ID, memory.RoleUser, content)
	turns := b.store.Get(m.Author.ID)

	reply, err := b.client.Complete(context.Background(), m.ChannelID, b.store.SystemPrompt(), turns)
	if err != nil {
		b.logger.Error("discord: completion failed",
			"channel_id", m.ChannelID,
			"user_id", m.Author.ID,
			"error", err,
		)
		b.sendReply(m, userFacingError(err))
		return
	}

	b.store.Append(m.Author.ID, memory.RoleAssistant, reply)

	chunks := text.Chunk(reply, text.DefaultChunkSize)
	b.sendReply(m, chunks[0])
	for _, chunk := range chunks[1:] {
		if _, err := b.session.ChannelMessageSend(m.ChannelID, chunk); err != nil {
			b.logger.Error("discord: follow-up send failed", "channel_id", m.ChannelID, "error", err)
			return
		}
	}
}

// sendReply sends content as a threaded reply to the triggering
// message. Failures on this primary path are logged as errors.
func (b *Bot) sendReply(m *discordgo.MessageCreate, content string) {
	_, err := b.session.ChannelMessageSendReply(m.ChannelID, content, &discordgo.MessageReference{
		MessageID: m.ID,
		ChannelID: m.ChannelID,
		GuildID:   m.GuildID,
	})
	if err != nil {
		b.logger.Error("discord: reply send failed", "channel_id", m.ChannelID, "error", err)
	}
}

// banAuthor bans the message author with the configured delete window.
// Best effort: a failed ban is logged, never retried.
func (b *Bot) banAuthor(m *discordgo.MessageCreate, phrase string) {
	err := b.session.GuildBanCreateWithReason(m.GuildID, m.Author.ID,
		"chatclaw moderation: banned phrase", banDeleteDays(b.cfg.Moderation.BanDeleteSeconds))
	if err != nil {
		b.logger.Error("discord: ban failed",
			"guild_id", m.GuildID,
			"user_id", m.Author.ID,
			"error", err,
		)
		return
	}
	b.logger.Info("discord: member banned",
		"guild_id", m.GuildID,
		"user_id", m.Author.ID,
		"phrase", phrase,
	)
}

// ---------- Pure helpers ----------

// banDeleteDays converts the configured delete window to Discord's
// whole-day REST parameter, rounding partial days up so a sub-day
// window still deletes the member's recent messages. Zero stays zero.
func banDeleteDays(seconds int) int {
	if seconds <= 0 {
		return 0
	}
	return (seconds + 86399) / 86400
}

// mentionRe matches user mention markup for any user; the specific bot
// ID is filtered in StripMention.
var mentionRe = regexp.MustCompile(`<@!?(\d+)>`)

// StripMention removes the bot's mention markup (<@id> and <@!id>)
// from content and trims the result.
func StripMention(content, botID string) string {
	out := mentionRe.ReplaceAllStringFunc(content, func(match string) string {
		if mentionRe.FindStringSubmatch(match)[1] == botID {
			return ""
		}
		return match
	})
	return strings.TrimSpace(out)
}

// mentionsUser reports whether the message mentions the given user ID.
func mentionsUser(m *discordgo.Message, userID string) bool {
	for _, u := range m.Mentions {
		if u != nil && u.ID == userID {
			return true
		}
	}
	return false
}

// guildAllowed applies the allowlist; an empty list allows everything.
func guildAllowed(allowed []string, guildID string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, id := range allowed {
		if id == guildID {
			return true
		}
	}
	return false
}

// matchBannedPhrase returns the first configured phrase contained in
// content (case-insensitive), or "" when none match.
func matchBannedPhrase(phrases []string, content string) string {
	if len(phrases) == 0 {
		return ""
	}
	lower := strings.ToLower(content)
	for _, p := range phrases {
		if p != "" && strings.Contains(lower, strings.ToLower(p)) {
			return p
		}
	}
	return ""
}

// userFacingError maps client errors to a short visible reply.
func userFacingError(err error) string {
	var upstream *llm.UpstreamError
	if errors.As(err, &upstream) {
		return fmt.Sprintf("The model backend returned an error (HTTP %d). Try again later.", upstream.StatusCode)
	}
	var timeout *llm.TimeoutError
	if errors.As(err, &timeout) {
		return "The model took too long to answer. Try again later."
	}
	return "Something went wrong while generating a reply. Try again later."
}
