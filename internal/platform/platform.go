// Package platform defines the capability surface hilda consumes from a
// chat platform. The bot and the address resolver only ever talk to these
// interfaces; the concrete Discord client and the in-memory test platform
// both implement them.
package platform

import (
	"context"
	"sort"
	"time"
)

// Message is a platform-neutral view of a chat message.
type Message struct {
	ID            string
	ChannelID     string
	Author        string // display name
	AuthorID      string
	AuthorMention string // platform mention form, e.g. <@id>
	Content       string
	CreatedAt     time.Time
}

// Channel is an addressable text channel (or thread) within a guild.
type Channel struct {
	ID        string
	Name      string
	GuildID   string
	GuildName string
}

// Path returns the canonical Guild@Channel form used in audit and
// confirmation messages.
func (c *Channel) Path() string {
	return c.GuildName + "@" + c.Name
}

// Mention returns the platform mention form of the channel.
func (c *Channel) Mention() string {
	return "<#" + c.ID + ">"
}

// GuildRef identifies a guild, the top-level namespace channels live in.
type GuildRef struct {
	ID   string
	Name string
}

// Directory is the lookup capability for guilds and channels. Both stages
// of address resolution go through it: FindChannel covers the "relative to
// here" attempt, FindGuild plus ChannelsOf cover the cross-guild fallback.
// Implementations may hit the network; any timeout policy belongs to them,
// via the context or internally.
type Directory interface {
	// Channel returns the channel with the given ID.
	Channel(ctx context.Context, channelID string) (*Channel, error)

	// FindChannel resolves a user-supplied channel query relative to one
	// guild. The query may be a bare name, a channel mention, or a
	// qualified Guild@Channel path whose guild part names this guild.
	FindChannel(ctx context.Context, guildID, query string) (*Channel, error)

	// FindGuild returns the guild with the given name.
	FindGuild(ctx context.Context, name string) (*GuildRef, error)

	// ChannelsOf enumerates the text channels of a guild.
	ChannelsOf(ctx context.Context, guildID string) ([]*Channel, error)
}

// MessageFilter reports whether a message should be acted on. A nil filter
// matches every message.
type MessageFilter func(*Message) bool

// Messenger is the message-manipulation capability the bot's commands use.
type Messenger interface {
	// Send posts content to a channel and returns the created message.
	Send(ctx context.Context, channelID, content string) (*Message, error)

	// SendFile uploads the file at path to a channel.
	SendFile(ctx context.Context, channelID, path string) error

	// History returns the most recent limit messages of a channel, newest
	// first. limit 0 means the whole channel.
	History(ctx context.Context, channelID string, limit int) ([]*Message, error)

	// Purge inspects the most recent limit messages, deletes those
	// matching filter, and returns the deleted messages newest first.
	// limit 0 means the whole channel.
	Purge(ctx context.Context, channelID string, limit int, filter MessageFilter) ([]*Message, error)

	// Pin pins a message to its channel.
	Pin(ctx context.Context, channelID, messageID string) error

	// Delete removes a single message.
	Delete(ctx context.Context, channelID, messageID string) error

	// Edit replaces the content of a message the bot sent.
	Edit(ctx context.Context, channelID, messageID, content string) error

	// CreateThread starts a public thread on a channel and returns it as a
	// sendable channel.
	CreateThread(ctx context.Context, channelID, name string) (*Channel, error)

	// AwaitReaction blocks until any user reacts to the given message, or
	// the timeout elapses, whichever comes first.
	AwaitReaction(ctx context.Context, channelID, messageID string, timeout time.Duration) error
}

// SortOldestFirst orders messages by creation time ascending, the order
// commands repost them in. History and Purge both return newest first.
func SortOldestFirst(msgs []*Message) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].CreatedAt.Before(msgs[j].CreatedAt)
	})
}
