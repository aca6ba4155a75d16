// Package discord implements the platform capability surface against the
// Discord REST and gateway APIs. Guild and channel metadata comes from the
// gateway's GUILD_CREATE events; message manipulation goes through REST.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mbyx/hilda/internal/platform"
)

const defaultAPIBase = "https://discord.com/api/v10"

// historyPageSize is Discord's maximum page size for message fetches and
// the chunk size for bulk deletion.
const historyPageSize = 100

// Client talks to Discord. It implements platform.Messenger and
// platform.Directory. The directory side is served from a cache the
// gateway keeps warm; REST never enumerates guilds itself.
type Client struct {
	token   string
	apiBase string
	http    *http.Client

	mu     sync.RWMutex
	botID  string
	guilds map[string]*guildCache

	waiterMu sync.Mutex
	waiters  map[string]chan struct{} // messageID -> reaction signal
}

type guildCache struct {
	ref      platform.GuildRef
	channels []*platform.Channel
}

// New creates a Discord client authenticating with a bot token.
func New(token string) *Client {
	return &Client{
		token:   token,
		apiBase: defaultAPIBase,
		http:    &http.Client{Timeout: 30 * time.Second},
		guilds:  make(map[string]*guildCache),
		waiters: make(map[string]chan struct{}),
	}
}

// --- wire types ---

type apiUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Bot      bool   `json:"bot"`
}

type apiMessage struct {
	ID        string    `json:"id"`
	ChannelID string    `json:"channel_id"`
	Author    apiUser   `json:"author"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type apiChannel struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	GuildID string `json:"guild_id"`
	Type    int    `json:"type"`
}

func (m *apiMessage) toPlatform() *platform.Message {
	return &platform.Message{
		ID:            m.ID,
		ChannelID:     m.ChannelID,
		Author:        m.Author.Username,
		AuthorID:      m.Author.ID,
		AuthorMention: "<@" + m.Author.ID + ">",
		Content:       m.Content,
		CreatedAt:     m.Timestamp,
	}
}

// --- platform.Messenger ---

func (c *Client) Send(ctx context.Context, channelID, content string) (*platform.Message, error) {
	var msg apiMessage
	err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages",
		map[string]string{"content": content}, &msg)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg.toPlatform(), nil
}

func (c *Client) SendFile(ctx context.Context, channelID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("files[0]", filepath.Base(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to buffer upload: %w", err)
	}
	if err := form.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.apiBase+"/channels/"+channelID+"/messages", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return nil
}

func (c *Client) History(ctx context.Context, channelID string, limit int) ([]*platform.Message, error) {
	var out []*platform.Message
	before := ""
	for {
		page := historyPageSize
		if limit > 0 && limit-len(out) < page {
			page = limit - len(out)
		}
		if page <= 0 {
			break
		}

		q := url.Values{"limit": {fmt.Sprint(page)}}
		if before != "" {
			q.Set("before", before)
		}

		var msgs []apiMessage
		err := c.do(ctx, http.MethodGet, "/channels/"+channelID+"/messages?"+q.Encode(), nil, &msgs)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch history: %w", err)
		}
		if len(msgs) == 0 {
			break
		}

		for i := range msgs {
			out = append(out, msgs[i].toPlatform())
		}
		before = msgs[len(msgs)-1].ID

		if len(msgs) < page {
			break
		}
	}
	return out, nil
}

func (c *Client) Purge(ctx context.Context, channelID string, limit int, filter platform.MessageFilter) ([]*platform.Message, error) {
	msgs, err := c.History(ctx, channelID, limit)
	if err != nil {
		return nil, err
	}

	var doomed []*platform.Message
	for _, msg := range msgs {
		if filter == nil || filter(msg) {
			doomed = append(doomed, msg)
		}
	}

	for start := 0; start < len(doomed); start += historyPageSize {
		end := start + historyPageSize
		if end > len(doomed) {
			end = len(doomed)
		}
		chunk := doomed[start:end]

		if len(chunk) == 1 {
			// Bulk delete rejects single-message batches.
			if err := c.Delete(ctx, channelID, chunk[0].ID); err != nil {
				return nil, err
			}
			continue
		}

		ids := make([]string, len(chunk))
		for i, msg := range chunk {
			ids[i] = msg.ID
		}
		err := c.do(ctx, http.MethodPost, "/channels/"+channelID+"/messages/bulk-delete",
			map[string][]string{"messages": ids}, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to bulk delete: %w", err)
		}
	}
	return doomed, nil
}

func (c *Client) Pin(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodPut, "/channels/"+channelID+"/pins/"+messageID, nil, nil)
}

func (c *Client) Delete(ctx context.Context, channelID, messageID string) error {
	return c.do(ctx, http.MethodDelete, "/channels/"+channelID+"/messages/"+messageID, nil, nil)
}

func (c *Client) Edit(ctx context.Context, channelID, messageID, content string) error {
	return c.do(ctx, http.MethodPatch, "/channels/"+channelID+"/messages/"+messageID,
		map[string]string{"content": content}, nil)
}

func (c *Client) CreateThread(ctx context.Context, channelID, name string) (*platform.Channel, error) {
	parent, err := c.Channel(ctx, channelID)
	if err != nil {
		return nil, err
	}

	var ch apiChannel
	err = c.do(ctx, http.MethodPost, "/channels/"+channelID+"/threads",
		map[string]interface{}{"name": name, "type": 11}, &ch) // 11 = public thread
	if err != nil {
		return nil, fmt.Errorf("failed to create thread %q: %w", name, err)
	}

	return &platform.Channel{
		ID:        ch.ID,
		Name:      ch.Name,
		GuildID:   parent.GuildID,
		GuildName: parent.GuildName,
	}, nil
}

// AwaitReaction blocks until the gateway sees a reaction added to the
// message, the timeout elapses, or ctx is cancelled.
func (c *Client) AwaitReaction(ctx context.Context, channelID, messageID string, timeout time.Duration) error {
	ch := make(chan struct{}, 1)
	c.waiterMu.Lock()
	c.waiters[messageID] = ch
	c.waiterMu.Unlock()
	defer func() {
		c.waiterMu.Lock()
		delete(c.waiters, messageID)
		c.waiterMu.Unlock()
	}()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(timeout):
		return fmt.Errorf("timed out waiting for a reaction after %v", timeout)
	}
}

// notifyReaction is called by the gateway on MESSAGE_REACTION_ADD.
func (c *Client) notifyReaction(messageID string) {
	c.waiterMu.Lock()
	defer c.waiterMu.Unlock()
	if ch, ok := c.waiters[messageID]; ok {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// --- platform.Directory (served from the gateway cache) ---

func (c *Client) Channel(ctx context.Context, channelID string) (*platform.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, gc := range c.guilds {
		for _, ch := range gc.channels {
			if ch.ID == channelID {
				copied := *ch
				return &copied, nil
			}
		}
	}
	return nil, fmt.Errorf("no known channel with ID %q", channelID)
}

func (c *Client) FindChannel(ctx context.Context, guildID, query string) (*platform.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gc := c.guilds[guildID]
	if gc == nil {
		return nil, fmt.Errorf("no known guild with ID %q", guildID)
	}

	name := query
	if i := strings.Index(query, "@"); i >= 0 {
		if query[:i] != gc.ref.Name {
			return nil, fmt.Errorf("%q does not name a channel in guild %q", query, gc.ref.Name)
		}
		name = query[i+1:]
		if j := strings.Index(name, "@"); j >= 0 {
			name = name[:j]
		}
	}
	name = strings.TrimPrefix(name, "#")
	if strings.HasPrefix(name, "<#") && strings.HasSuffix(name, ">") {
		name = name[2 : len(name)-1]
	}

	for _, ch := range gc.channels {
		if ch.Name == name || ch.ID == name {
			copied := *ch
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("no channel named %q in guild %q", name, gc.ref.Name)
}

func (c *Client) FindGuild(ctx context.Context, name string) (*platform.GuildRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, gc := range c.guilds {
		if gc.ref.Name == name {
			ref := gc.ref
			return &ref, nil
		}
	}
	return nil, fmt.Errorf("no guild named %q (is hilda a member of it?)", name)
}

func (c *Client) ChannelsOf(ctx context.Context, guildID string) ([]*platform.Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	gc := c.guilds[guildID]
	if gc == nil {
		return nil, fmt.Errorf("no known guild with ID %q", guildID)
	}
	channels := make([]*platform.Channel, 0, len(gc.channels))
	for _, ch := range gc.channels {
		copied := *ch
		channels = append(channels, &copied)
	}
	return channels, nil
}

// addGuild ingests a GUILD_CREATE payload into the directory cache.
func (c *Client) addGuild(ref platform.GuildRef, channels []*platform.Channel) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[ref.ID] = &guildCache{ref: ref, channels: channels}
}

func (c *Client) setBotID(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.botID = id
}

// BotID returns the bot user's own ID, known once the gateway is READY.
func (c *Client) BotID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.botID
}

// --- REST plumbing ---

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.apiBase+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("discord API returned %s: %s", resp.Status, strings.TrimSpace(string(data)))
}
