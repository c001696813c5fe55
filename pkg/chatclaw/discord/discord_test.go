package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/jholhewres/chatclaw/pkg/chatclaw/llm"
)

func TestStripMention(t *testing.T) {
	t.Parallel()

	const botID = "123"
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"leading mention", "<@123> hello", "hello"},
		{"nickname mention", "<@!123> hello", "hello"},
		{"trailing mention", "hello <@123>", "hello"},
		{"mention only", "<@123>", ""},
		{"other user kept", "<@999> hi", "<@999> hi"},
		{"mixed mentions", "<@123> ask <@999> something", "ask <@999> something"},
		{"no mention", "plain text", "plain text"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := StripMention(tt.content, botID); got != tt.want {
				t.Errorf("StripMention(%q) = %q, want %q", tt.content, got, tt.want)
			}
		})
	}
}

func TestMentionsUser(t *testing.T) {
	t.Parallel()

	msg := &discordgo.Message{
		Mentions: []*discordgo.User{{ID: "111"}, {ID: "222"}},
	}
	if !mentionsUser(msg, "222") {
		t.Error("mentioned user not detected")
	}
	if mentionsUser(msg, "333") {
		t.Error("unmentioned user detected")
	}
	if mentionsUser(&discordgo.Message{}, "111") {
		t.Error("empty mention list detected a user")
	}
}

func TestGuildAllowed(t *testing.T) {
	t.Parallel()

	if !guildAllowed(nil, "any") {
		t.Error("empty allowlist must allow everything")
	}
	if !guildAllowed([]string{"a", "b"}, "b") {
		t.Error("listed guild rejected")
	}
	if guildAllowed([]string{"a", "b"}, "c") {
		t.Error("unlisted guild allowed")
	}
}

func TestMatchBannedPhrase(t *testing.T) {
	t.Parallel()

	phrases := []string{"free nitro", "discord.gg/scam"}

	if got := matchBannedPhrase(phrases, "click for FREE NITRO now"); got != "free nitro" {
		t.Errorf("got %q, want case-insensitive match", got)
	}
	if got := matchBannedPhrase(phrases, "a normal message"); got != "" {
		t.Errorf("got %q, want no match", got)
	}
	if got := matchBannedPhrase(nil, "anything"); got != "" {
		t.Errorf("got %q, want no match with empty list", got)
	}
}

func TestBanDeleteDays(t *testing.T) {
	t.Parallel()

	tests := []struct {
		seconds int
		want    int
	}{
		{0, 0},
		{-1, 0},
		{1, 1},
		{3600, 1},   // default window: under a day still deletes one day
		{86400, 1},  // exactly one day
		{86401, 2},  // partial days round up
		{604800, 7}, // the clamped maximum
	}

	for _, tt := range tests {
		if got := banDeleteDays(tt.seconds); got != tt.want {
			t.Errorf("banDeleteDays(%d) = %d, want %d", tt.seconds, got, tt.want)
		}
	}
}

func TestUserFacingError(t *testing.T) {
	t.Parallel()

	upstream := userFacingError(&llm.UpstreamError{StatusCode: 503, Message: "down"})
	if upstream != "The model backend returned an error (HTTP 503). Try again later." {
		t.Errorf("upstream message = %q", upstream)
	}

	timeout := userFacingError(&llm.TimeoutError{})
	if timeout != "The model took too long to answer. Try again later." {
		t.Errorf("timeout message = %q", timeout)
	}

	generic := userFacingError(errConn)
	if generic != "Something went wrong while generating a reply. Try again later." {
		t.Errorf("generic message = %q", generic)
	}
}

// errConn stands in for an arbitrary transport failure.
var errConn = &connError{}

type connError struct{}

func (*connError) Error() string { return "connection refused" }
