package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/mbyx/hilda/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI is a minimal stand-in for the Discord REST API holding one
// channel's messages, newest first.
type fakeAPI struct {
	mu       sync.Mutex
	messages []apiMessage
	bulks    [][]string
	deletes  []string
	pins     []string
}

func newFakeAPI(count int) *fakeAPI {
	api := &fakeAPI{}
	// IDs count downwards so index order is newest first.
	for i := count; i >= 1; i-- {
		api.messages = append(api.messages, apiMessage{
			ID:        strconv.Itoa(i),
			ChannelID: "chan-1",
			Author:    apiUser{ID: "u1", Username: "amy"},
			Content:   fmt.Sprintf("message %d", i),
			Timestamp: time.Unix(int64(i), 0).UTC(),
		})
	}
	return api
}

func (api *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /channels/chan-1/messages", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		before := r.URL.Query().Get("before")

		var page []apiMessage
		for _, msg := range api.messages {
			if before != "" {
				beforeID, _ := strconv.Atoi(before)
				msgID, _ := strconv.Atoi(msg.ID)
				if msgID >= beforeID {
					continue
				}
			}
			page = append(page, msg)
			if len(page) == limit {
				break
			}
		}
		json.NewEncoder(w).Encode(page)
	})
	mux.HandleFunc("POST /channels/chan-1/messages/bulk-delete", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()

		var body struct {
			Messages []string `json:"messages"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		api.bulks = append(api.bulks, body.Messages)
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("DELETE /channels/chan-1/messages/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		api.deletes = append(api.deletes, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("PUT /channels/chan-1/pins/{id}", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()
		api.pins = append(api.pins, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("POST /channels/chan-1/messages", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Content string `json:"content"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		json.NewEncoder(w).Encode(apiMessage{
			ID:        "new-1",
			ChannelID: "chan-1",
			Author:    apiUser{ID: "bot", Username: "hilda"},
			Content:   body.Content,
			Timestamp: time.Now().UTC(),
		})
	})
	return mux
}

func setupClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	server := httptest.NewServer(api.handler())
	t.Cleanup(server.Close)

	client := New("test-token")
	client.apiBase = server.URL
	return client
}

func TestHistory(t *testing.T) {
	t.Run("paginates through the whole channel", func(t *testing.T) {
		api := newFakeAPI(250)
		client := setupClient(t, api)

		msgs, err := client.History(context.Background(), "chan-1", 0)
		require.NoError(t, err)
		require.Len(t, msgs, 250)

		// Newest first across page boundaries.
		assert.Equal(t, "250", msgs[0].ID)
		assert.Equal(t, "1", msgs[249].ID)
	})

	t.Run("honors a small limit", func(t *testing.T) {
		api := newFakeAPI(50)
		client := setupClient(t, api)

		msgs, err := client.History(context.Background(), "chan-1", 3)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "50", msgs[0].ID)
	})

	t.Run("limit above page size spans pages", func(t *testing.T) {
		api := newFakeAPI(250)
		client := setupClient(t, api)

		msgs, err := client.History(context.Background(), "chan-1", 150)
		require.NoError(t, err)
		assert.Len(t, msgs, 150)
	})
}

func TestPurge(t *testing.T) {
	t.Run("bulk deletes in chunks", func(t *testing.T) {
		api := newFakeAPI(150)
		client := setupClient(t, api)

		deleted, err := client.Purge(context.Background(), "chan-1", 0, nil)
		require.NoError(t, err)
		assert.Len(t, deleted, 150)

		// 100 + 50 across two bulk calls, no single deletes.
		require.Len(t, api.bulks, 2)
		assert.Len(t, api.bulks[0], 100)
		assert.Len(t, api.bulks[1], 50)
		assert.Empty(t, api.deletes)
	})

	t.Run("single leftover message uses plain delete", func(t *testing.T) {
		api := newFakeAPI(101)
		client := setupClient(t, api)

		_, err := client.Purge(context.Background(), "chan-1", 0, nil)
		require.NoError(t, err)
		require.Len(t, api.bulks, 1)
		assert.Equal(t, []string{"1"}, api.deletes)
	})

	t.Run("filter narrows the deletion", func(t *testing.T) {
		api := newFakeAPI(10)
		client := setupClient(t, api)

		deleted, err := client.Purge(context.Background(), "chan-1", 4, func(msg *platform.Message) bool {
			return msg.ID == "10" || msg.ID == "8"
		})
		require.NoError(t, err)
		require.Len(t, deleted, 2)
		require.Len(t, api.bulks, 1)
		assert.ElementsMatch(t, []string{"10", "8"}, api.bulks[0])
	})
}

func TestPin(t *testing.T) {
	api := newFakeAPI(3)
	client := setupClient(t, api)

	require.NoError(t, client.Pin(context.Background(), "chan-1", "2"))
	assert.Equal(t, []string{"2"}, api.pins)
}

func TestSend(t *testing.T) {
	api := newFakeAPI(0)
	client := setupClient(t, api)

	msg, err := client.Send(context.Background(), "chan-1", "hello")
	require.NoError(t, err)
	assert.Equal(t, "new-1", msg.ID)
	assert.Equal(t, "hello", msg.Content)
}

func TestDirectoryCache(t *testing.T) {
	client := New("test-token")
	client.addGuild(platform.GuildRef{ID: "g1", Name: "ServerA"}, []*platform.Channel{
		{ID: "c1", Name: "general", GuildID: "g1", GuildName: "ServerA"},
		{ID: "c2", Name: "audit", GuildID: "g1", GuildName: "ServerA"},
	})
	ctx := context.Background()

	t.Run("find by name", func(t *testing.T) {
		ch, err := client.FindChannel(ctx, "g1", "general")
		require.NoError(t, err)
		assert.Equal(t, "c1", ch.ID)
	})

	t.Run("find by mention", func(t *testing.T) {
		ch, err := client.FindChannel(ctx, "g1", "<#c2>")
		require.NoError(t, err)
		assert.Equal(t, "audit", ch.Name)
	})

	t.Run("qualified path naming this guild", func(t *testing.T) {
		ch, err := client.FindChannel(ctx, "g1", "ServerA@general")
		require.NoError(t, err)
		assert.Equal(t, "c1", ch.ID)
	})

	t.Run("qualified path naming another guild fails locally", func(t *testing.T) {
		_, err := client.FindChannel(ctx, "g1", "ServerB@general")
		assert.Error(t, err)
	})

	t.Run("guild lookup", func(t *testing.T) {
		ref, err := client.FindGuild(ctx, "ServerA")
		require.NoError(t, err)
		assert.Equal(t, "g1", ref.ID)

		_, err = client.FindGuild(ctx, "ServerB")
		assert.Error(t, err)
	})

	t.Run("channel by ID", func(t *testing.T) {
		ch, err := client.Channel(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, "audit", ch.Name)
	})
}

func TestAwaitReaction(t *testing.T) {
	client := New("test-token")
	ctx := context.Background()

	t.Run("notified reaction unblocks", func(t *testing.T) {
		done := make(chan error, 1)
		go func() {
			done <- client.AwaitReaction(ctx, "chan-1", "msg-1", time.Second)
		}()

		// Give the waiter a moment to register.
		require.Eventually(t, func() bool {
			client.waiterMu.Lock()
			defer client.waiterMu.Unlock()
			_, ok := client.waiters["msg-1"]
			return ok
		}, time.Second, 5*time.Millisecond)

		client.notifyReaction("msg-1")
		assert.NoError(t, <-done)
	})

	t.Run("times out without a reaction", func(t *testing.T) {
		err := client.AwaitReaction(ctx, "chan-1", "msg-2", 20*time.Millisecond)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "timed out")
	})
}
