// Package memory provides an in-memory chat platform used by tests. It
// implements both platform.Directory and platform.Messenger with the same
// observable behavior the Discord client has: newest-first history,
// inspect-then-delete purge semantics, and name-relative channel lookups.
package memory

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mbyx/hilda/internal/platform"
)

// Platform is an in-memory guild/channel/message store.
//
// AutoReact makes AwaitReaction succeed immediately, standing in for a user
// reacting to a confirmation prompt.
type Platform struct {
	mu        sync.Mutex
	AutoReact bool

	nextID   int
	guilds   []*guildState
	channels map[string]*channelState
	clock    time.Time

	findGuildCalls int
}

type guildState struct {
	ref      platform.GuildRef
	channels []*channelState
}

type channelState struct {
	ch       platform.Channel
	thread   bool
	messages []*platform.Message // oldest first
	pinned   []string
	files    []string
}

// New creates an empty platform.
func New() *Platform {
	return &Platform{
		channels: make(map[string]*channelState),
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddGuild registers a guild and returns its reference.
func (p *Platform) AddGuild(name string) platform.GuildRef {
	p.mu.Lock()
	defer p.mu.Unlock()

	ref := platform.GuildRef{ID: p.id("guild"), Name: name}
	p.guilds = append(p.guilds, &guildState{ref: ref})
	return ref
}

// AddChannel registers a text channel in a guild.
func (p *Platform) AddChannel(guildID, name string) *platform.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addChannel(guildID, name, false)
}

// PostMessage appends a user message to a channel with a monotonically
// increasing timestamp and returns it.
func (p *Platform) PostMessage(channelID, author, content string) *platform.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.post(channelID, author, content)
}

// Messages returns a channel's messages, oldest first.
func (p *Platform) Messages(channelID string) []*platform.Message {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return nil
	}
	out := make([]*platform.Message, len(cs.messages))
	copy(out, cs.messages)
	return out
}

// Pins returns the IDs of a channel's pinned messages in pin order.
func (p *Platform) Pins(channelID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cs := p.channels[channelID]; cs != nil {
		return append([]string(nil), cs.pinned...)
	}
	return nil
}

// Files returns the paths uploaded to a channel.
func (p *Platform) Files(channelID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if cs := p.channels[channelID]; cs != nil {
		return append([]string(nil), cs.files...)
	}
	return nil
}

// Threads returns the threads created in a guild, in creation order.
func (p *Platform) Threads(guildID string) []*platform.Channel {
	p.mu.Lock()
	defer p.mu.Unlock()

	gs := p.guild(guildID)
	if gs == nil {
		return nil
	}
	var threads []*platform.Channel
	for _, cs := range gs.channels {
		if cs.thread {
			ch := cs.ch
			threads = append(threads, &ch)
		}
	}
	return threads
}

// FindGuildCalls reports how many times FindGuild has been called. The
// resolver must never reach for the guild directory when an address
// resolves locally.
func (p *Platform) FindGuildCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.findGuildCalls
}

// --- platform.Directory ---

func (p *Platform) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return nil, fmt.Errorf("no channel with ID %q", channelID)
	}
	ch := cs.ch
	return &ch, nil
}

// FindChannel resolves a query relative to one guild. A bare name matches
// a channel of that guild; a qualified Guild@Channel path resolves only
// when the guild part names this guild, mirroring how the real platform
// can resolve a qualified path that happens to point at "here".
func (p *Platform) FindChannel(ctx context.Context, guildID, query string) (*platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gs := p.guild(guildID)
	if gs == nil {
		return nil, fmt.Errorf("no guild with ID %q", guildID)
	}

	name := query
	if i := strings.Index(query, "@"); i >= 0 {
		if query[:i] != gs.ref.Name {
			return nil, fmt.Errorf("%q does not name a channel in guild %q", query, gs.ref.Name)
		}
		name = query[i+1:]
		if j := strings.Index(name, "@"); j >= 0 {
			name = name[:j]
		}
	}
	name = strings.TrimPrefix(name, "#")

	for _, cs := range gs.channels {
		if cs.thread {
			continue
		}
		if cs.ch.Name == name || cs.ch.ID == name {
			ch := cs.ch
			return &ch, nil
		}
	}
	return nil, fmt.Errorf("no channel named %q in guild %q", name, gs.ref.Name)
}

func (p *Platform) FindGuild(ctx context.Context, name string) (*platform.GuildRef, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.findGuildCalls++
	for _, gs := range p.guilds {
		if gs.ref.Name == name {
			ref := gs.ref
			return &ref, nil
		}
	}
	return nil, fmt.Errorf("no guild named %q", name)
}

func (p *Platform) ChannelsOf(ctx context.Context, guildID string) ([]*platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	gs := p.guild(guildID)
	if gs == nil {
		return nil, fmt.Errorf("no guild with ID %q", guildID)
	}
	channels := make([]*platform.Channel, 0, len(gs.channels))
	for _, cs := range gs.channels {
		if cs.thread {
			continue
		}
		ch := cs.ch
		channels = append(channels, &ch)
	}
	return channels, nil
}

// --- platform.Messenger ---

func (p *Platform) Send(ctx context.Context, channelID, content string) (*platform.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channels[channelID] == nil {
		return nil, fmt.Errorf("no channel with ID %q", channelID)
	}
	return p.post(channelID, "hilda", content), nil
}

func (p *Platform) SendFile(ctx context.Context, channelID, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return fmt.Errorf("no channel with ID %q", channelID)
	}
	cs.files = append(cs.files, path)
	return nil
}

func (p *Platform) History(ctx context.Context, channelID string, limit int) ([]*platform.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return nil, fmt.Errorf("no channel with ID %q", channelID)
	}

	out := make([]*platform.Message, 0, len(cs.messages))
	for i := len(cs.messages) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, cs.messages[i])
	}
	return out, nil
}

func (p *Platform) Purge(ctx context.Context, channelID string, limit int, filter platform.MessageFilter) ([]*platform.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return nil, fmt.Errorf("no channel with ID %q", channelID)
	}

	var deleted []*platform.Message
	kept := make([]*platform.Message, 0, len(cs.messages))
	inspected := 0
	for i := len(cs.messages) - 1; i >= 0; i-- {
		msg := cs.messages[i]
		if limit > 0 && inspected >= limit {
			kept = append(kept, msg)
			continue
		}
		inspected++
		if filter == nil || filter(msg) {
			deleted = append(deleted, msg)
		} else {
			kept = append(kept, msg)
		}
	}

	// kept was built newest first; restore storage order.
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	cs.messages = kept
	return deleted, nil
}

func (p *Platform) Pin(ctx context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return fmt.Errorf("no channel with ID %q", channelID)
	}
	cs.pinned = append(cs.pinned, messageID)
	return nil
}

func (p *Platform) Delete(ctx context.Context, channelID, messageID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return fmt.Errorf("no channel with ID %q", channelID)
	}
	for i, msg := range cs.messages {
		if msg.ID == messageID {
			cs.messages = append(cs.messages[:i], cs.messages[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no message with ID %q in channel %q", messageID, channelID)
}

func (p *Platform) Edit(ctx context.Context, channelID, messageID, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return fmt.Errorf("no channel with ID %q", channelID)
	}
	for _, msg := range cs.messages {
		if msg.ID == messageID {
			msg.Content = content
			return nil
		}
	}
	return fmt.Errorf("no message with ID %q in channel %q", messageID, channelID)
}

func (p *Platform) CreateThread(ctx context.Context, channelID, name string) (*platform.Channel, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	cs := p.channels[channelID]
	if cs == nil {
		return nil, fmt.Errorf("no channel with ID %q", channelID)
	}
	thread := p.addChannel(cs.ch.GuildID, name, true)
	return thread, nil
}

func (p *Platform) AwaitReaction(ctx context.Context, channelID, messageID string, timeout time.Duration) error {
	p.mu.Lock()
	auto := p.AutoReact
	p.mu.Unlock()

	if auto {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for a reaction after %v", timeout)
	}
}

// --- internals (callers hold p.mu) ---

func (p *Platform) id(kind string) string {
	p.nextID++
	return kind + "-" + strconv.Itoa(p.nextID)
}

func (p *Platform) guild(guildID string) *guildState {
	for _, gs := range p.guilds {
		if gs.ref.ID == guildID {
			return gs
		}
	}
	return nil
}

func (p *Platform) addChannel(guildID, name string, thread bool) *platform.Channel {
	gs := p.guild(guildID)
	if gs == nil {
		panic(fmt.Sprintf("memory: unknown guild %q", guildID))
	}
	cs := &channelState{
		ch: platform.Channel{
			ID:        p.id("chan"),
			Name:      name,
			GuildID:   gs.ref.ID,
			GuildName: gs.ref.Name,
		},
		thread: thread,
	}
	gs.channels = append(gs.channels, cs)
	p.channels[cs.ch.ID] = cs
	ch := cs.ch
	return &ch
}

func (p *Platform) post(channelID, author, content string) *platform.Message {
	cs := p.channels[channelID]
	p.clock = p.clock.Add(time.Second)
	msg := &platform.Message{
		ID:            p.id("msg"),
		ChannelID:     channelID,
		Author:        author,
		AuthorID:      "uid-" + author,
		AuthorMention: "<@uid-" + author + ">",
		Content:       content,
		CreatedAt:     p.clock,
	}
	cs.messages = append(cs.messages, msg)
	return msg
}
