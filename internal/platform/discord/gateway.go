package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbyx/hilda/internal/platform"
)

const defaultGatewayURL = "wss://gateway.discord.gg/?v=10&encoding=json"

// Gateway intents: guilds, guild messages, guild message reactions, and
// message content.
const gatewayIntents = 1<<0 | 1<<9 | 1<<10 | 1<<15

// Gateway opcodes.
const (
	opDispatch       = 0
	opHeartbeat      = 1
	opIdentify       = 2
	opReconnect      = 7
	opInvalidSession = 9
	opHello          = 10
	opHeartbeatACK   = 11
)

// Gateway is a realtime session against the Discord gateway. It keeps the
// client's guild cache warm, feeds reaction waiters, and hands incoming
// guild messages to a handler.
type Gateway struct {
	client  *Client
	url     string
	handler func(*platform.Message)
}

// NewGateway creates a gateway session for client. handler receives every
// guild message other users write; the bot's own messages are filtered
// out.
func NewGateway(client *Client, handler func(*platform.Message)) *Gateway {
	return &Gateway{
		client:  client,
		url:     defaultGatewayURL,
		handler: handler,
	}
}

type gatewayPayload struct {
	Op int             `json:"op"`
	T  string          `json:"t,omitempty"`
	S  *int64          `json:"s,omitempty"`
	D  json.RawMessage `json:"d,omitempty"`
}

// Run connects and processes gateway events until ctx is cancelled or the
// connection drops. A dropped connection returns an error; reconnecting is
// the caller's choice.
func (g *Gateway) Run(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, g.url, nil)
	if err != nil {
		return fmt.Errorf("failed to dial gateway: %w", err)
	}
	defer conn.Close()

	// The server speaks first with a hello carrying the heartbeat interval.
	var hello gatewayPayload
	if err := conn.ReadJSON(&hello); err != nil {
		return fmt.Errorf("failed to read gateway hello: %w", err)
	}
	if hello.Op != opHello {
		return fmt.Errorf("expected hello opcode %d, got %d", opHello, hello.Op)
	}
	var helloData struct {
		HeartbeatInterval int `json:"heartbeat_interval"`
	}
	if err := json.Unmarshal(hello.D, &helloData); err != nil {
		return fmt.Errorf("failed to decode gateway hello: %w", err)
	}

	if err := g.identify(conn); err != nil {
		return err
	}

	// After identify the heartbeat goroutine owns the connection's write
	// side; gorilla allows only one concurrent writer. The reader feeds it
	// sequence numbers and server heartbeat requests over channels.
	seq := make(chan int64, 1)
	beat := make(chan struct{}, 1)
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()
	go g.heartbeat(heartbeatCtx, conn, time.Duration(helloData.HeartbeatInterval)*time.Millisecond, seq, beat)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var payload gatewayPayload
		if err := conn.ReadJSON(&payload); err != nil {
			return fmt.Errorf("gateway connection lost: %w", err)
		}

		if payload.S != nil {
			// Drop the stale buffered value, never the newest one.
			select {
			case <-seq:
			default:
			}
			seq <- *payload.S
		}

		switch payload.Op {
		case opDispatch:
			g.dispatch(payload.T, payload.D)
		case opHeartbeat:
			// Server requested an immediate heartbeat.
			select {
			case beat <- struct{}{}:
			default:
			}
		case opReconnect, opInvalidSession:
			return fmt.Errorf("gateway asked for a reconnect (op %d)", payload.Op)
		case opHeartbeatACK:
			// Nothing to do.
		}
	}
}

func (g *Gateway) identify(conn *websocket.Conn) error {
	identify := gatewayPayload{Op: opIdentify}
	data, err := json.Marshal(map[string]interface{}{
		"token":   g.client.token,
		"intents": gatewayIntents,
		"properties": map[string]string{
			"os":      "linux",
			"browser": "hilda",
			"device":  "hilda",
		},
	})
	if err != nil {
		return err
	}
	identify.D = data
	if err := conn.WriteJSON(identify); err != nil {
		return fmt.Errorf("failed to identify with gateway: %w", err)
	}
	return nil
}

// heartbeat is the connection's sole writer after identify. It sends a
// heartbeat on every tick and on every server request coming over beat.
func (g *Gateway) heartbeat(ctx context.Context, conn *websocket.Conn, interval time.Duration, seq <-chan int64, beat <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSeq *int64
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-seq:
			lastSeq = &s
		case <-beat:
			lastSeq = latestSeq(seq, lastSeq)
			if err := writeHeartbeat(conn, lastSeq); err != nil {
				log.Printf("[Gateway] Heartbeat failed: %v", err)
				return
			}
		case <-ticker.C:
			lastSeq = latestSeq(seq, lastSeq)
			if err := writeHeartbeat(conn, lastSeq); err != nil {
				log.Printf("[Gateway] Heartbeat failed: %v", err)
				return
			}
		}
	}
}

// latestSeq picks up a sequence number the reader delivered since the
// last channel receive, falling back to the current one.
func latestSeq(seq <-chan int64, current *int64) *int64 {
	select {
	case s := <-seq:
		return &s
	default:
		return current
	}
}

func writeHeartbeat(conn *websocket.Conn, lastSeq *int64) error {
	payload := gatewayPayload{Op: opHeartbeat}
	if lastSeq != nil {
		data, _ := json.Marshal(*lastSeq)
		payload.D = data
	}
	return conn.WriteJSON(payload)
}

func (g *Gateway) dispatch(event string, data json.RawMessage) {
	switch event {
	case "READY":
		var ready struct {
			User apiUser `json:"user"`
		}
		if err := json.Unmarshal(data, &ready); err != nil {
			log.Printf("[Gateway] Bad READY payload: %v", err)
			return
		}
		g.client.setBotID(ready.User.ID)
		log.Printf("[Gateway] Hilda is ready for some action!")

	case "GUILD_CREATE":
		var guild struct {
			ID       string       `json:"id"`
			Name     string       `json:"name"`
			Channels []apiChannel `json:"channels"`
		}
		if err := json.Unmarshal(data, &guild); err != nil {
			log.Printf("[Gateway] Bad GUILD_CREATE payload: %v", err)
			return
		}
		ref := platform.GuildRef{ID: guild.ID, Name: guild.Name}
		var channels []*platform.Channel
		for _, ch := range guild.Channels {
			if ch.Type != 0 { // text channels only
				continue
			}
			channels = append(channels, &platform.Channel{
				ID:        ch.ID,
				Name:      ch.Name,
				GuildID:   guild.ID,
				GuildName: guild.Name,
			})
		}
		g.client.addGuild(ref, channels)
		log.Printf("[Gateway] Joined guild %q with %d text channels", guild.Name, len(channels))

	case "MESSAGE_CREATE":
		var msg apiMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[Gateway] Bad MESSAGE_CREATE payload: %v", err)
			return
		}
		if msg.Author.Bot || msg.Author.ID == g.client.BotID() {
			return
		}
		if g.handler != nil {
			g.handler(msg.toPlatform())
		}

	case "MESSAGE_REACTION_ADD":
		var reaction struct {
			MessageID string `json:"message_id"`
			UserID    string `json:"user_id"`
		}
		if err := json.Unmarshal(data, &reaction); err != nil {
			log.Printf("[Gateway] Bad MESSAGE_REACTION_ADD payload: %v", err)
			return
		}
		if reaction.UserID == g.client.BotID() {
			return
		}
		g.client.notifyReaction(reaction.MessageID)
	}
}
