package bot

import (
	"context"
	"testing"
	"time"

	"github.com/mbyx/hilda/internal/audit"
	"github.com/mbyx/hilda/internal/platform"
	"github.com/mbyx/hilda/internal/platform/memory"
	"github.com/mbyx/hilda/internal/sheet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSheet = `@msg:
**{author}**: {content}

@mv:
{author} moved {amt} messages from {channel} to {new_channel}

@rm:
{author} deleted {amt} messages by {members}
`

type fixture struct {
	bot      *Bot
	platform *memory.Platform
	guildA   platform.GuildRef
	guildB   platform.GuildRef
	general  *platform.Channel
	auditCh  *platform.Channel
	random   *platform.Channel
}

func setupBot(t *testing.T, mutate func(*Options)) *fixture {
	t.Helper()

	p := memory.New()
	guildA := p.AddGuild("ServerA")
	general := p.AddChannel(guildA.ID, "general")
	auditCh := p.AddChannel(guildA.ID, "audit")
	guildB := p.AddGuild("ServerB")
	random := p.AddChannel(guildB.ID, "random")

	s := sheet.ParseString(testSheet)
	opts := Options{
		Sheet:          s,
		Messenger:      p,
		Directory:      p,
		Audit:          audit.NewWriter(s, p, p, nil, "audit"),
		ConfirmTimeout: 20 * time.Millisecond,
	}
	if mutate != nil {
		mutate(&opts)
	}

	return &fixture{
		bot:      New(opts),
		platform: p,
		guildA:   guildA,
		guildB:   guildB,
		general:  general,
		auditCh:  auditCh,
		random:   random,
	}
}

// invoke posts a command message to a channel and hands it to the bot.
func (f *fixture) invoke(t *testing.T, channelID, author, content string) {
	t.Helper()
	msg := f.platform.PostMessage(channelID, author, content)
	f.bot.HandleMessage(context.Background(), msg)
}

func contents(msgs []*platform.Message) []string {
	out := make([]string, len(msgs))
	for i, msg := range msgs {
		out[i] = msg.Content
	}
	return out
}

func TestHandleMessage_IgnoresNonCommands(t *testing.T) {
	f := setupBot(t, nil)

	f.invoke(t, f.general.ID, "amy", "just chatting")
	f.invoke(t, f.general.ID, "amy", "!")
	f.invoke(t, f.general.ID, "amy", "!unknowncommand 5")

	// Plain chatter stays; the bare prefix and the unknown command are
	// not commands hilda acts on, so nothing was deleted or replied to.
	assert.Equal(t, []string{"just chatting", "!", "!unknowncommand 5"}, contents(f.platform.Messages(f.general.ID)))
	assert.Empty(t, f.platform.Messages(f.auditCh.ID))
}

func TestHandleMessage_DeletesInvokingMessageAndAudits(t *testing.T) {
	f := setupBot(t, nil)
	f.platform.PostMessage(f.general.ID, "amy", "hello")

	f.invoke(t, f.general.ID, "amy", "!mv 3 ServerB@random")

	// The invoking message is gone from the channel.
	for _, msg := range f.platform.Messages(f.general.ID) {
		assert.NotEqual(t, "!mv 3 ServerB@random", msg.Content)
	}

	// The audit channel got the rendered mv template.
	auditMsgs := f.platform.Messages(f.auditCh.ID)
	require.Len(t, auditMsgs, 1)
	assert.Equal(t, "<@uid-amy> moved 3 messages from "+f.general.Mention()+" to ServerB@random", auditMsgs[0].Content)
}

func TestHandleMessage_CustomPrefix(t *testing.T) {
	f := setupBot(t, func(opts *Options) { opts.Prefix = "?" })
	f.platform.PostMessage(f.general.ID, "amy", "one")

	f.invoke(t, f.general.ID, "amy", "!pin")
	assert.Empty(t, f.platform.Pins(f.general.ID))

	// The ignored "!pin" stays behind as an ordinary message, so the
	// prefixed pin now pins both it and "one".
	f.invoke(t, f.general.ID, "amy", "?pin")
	assert.Len(t, f.platform.Pins(f.general.ID), 2)
}

func TestSplitAmt(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		expectedAmt  int
		expectedRest []string
	}{
		{"no args", nil, 0, nil},
		{"leading count", []string{"5", "x"}, 5, []string{"x"}},
		{"count only", []string{"7"}, 7, []string{}},
		{"no count", []string{"general"}, 0, []string{"general"}},
		{"negative count treated as argument", []string{"-3"}, 0, []string{"-3"}},
		{"zero means all", []string{"0", "x"}, 0, []string{"x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amt, rest := splitAmt(tt.args)
			assert.Equal(t, tt.expectedAmt, amt)
			assert.Equal(t, tt.expectedRest, rest)
		})
	}
}

func TestUserMessage_AddressError(t *testing.T) {
	f := setupBot(t, nil)

	f.invoke(t, f.general.ID, "amy", "!cp 2 NoSuchServer@x")

	msgs := f.platform.Messages(f.general.ID)
	require.Len(t, msgs, 1)
	assert.Equal(t, "Channel not found: NoSuchServer@x", msgs[0].Content)
}
