package discord

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbyx/hilda/internal/platform"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestGateway_HeartbeatsUnderLoad runs a session against a fake gateway
// that interleaves sequenced events with server-side heartbeat requests
// while the client's own heartbeat ticker fires. All writes must come
// from the single writer goroutine (gorilla panics on concurrent writes)
// and heartbeats must carry sequence numbers that never go backwards.
func TestGateway_HeartbeatsUnderLoad(t *testing.T) {
	const events = 50

	received := make(chan gatewayPayload, 256)
	upgrader := websocket.Upgrader{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if !assert.NoError(t, err) {
			return
		}
		defer conn.Close()

		// Hello with a tiny interval so ticks overlap the requests below.
		conn.WriteJSON(map[string]interface{}{
			"op": opHello,
			"d":  map[string]int{"heartbeat_interval": 5},
		})

		var identify gatewayPayload
		if !assert.NoError(t, conn.ReadJSON(&identify)) {
			return
		}
		assert.Equal(t, opIdentify, identify.Op)

		go func() {
			for {
				var p gatewayPayload
				if err := conn.ReadJSON(&p); err != nil {
					return
				}
				received <- p
			}
		}()

		for i := 1; i <= events; i++ {
			s := int64(i)
			conn.WriteJSON(gatewayPayload{Op: opDispatch, T: "TYPING_START", S: &s, D: json.RawMessage("{}")})
			conn.WriteJSON(gatewayPayload{Op: opHeartbeat})
		}

		// Let the client's ticker fire a few more times before hanging up.
		time.Sleep(50 * time.Millisecond)
	}))
	defer server.Close()

	g := NewGateway(New("test-token"), func(*platform.Message) {})
	g.url = "ws" + strings.TrimPrefix(server.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Run(ctx)
	}()

	select {
	case err := <-done:
		// The server hangs up after its send loop; the session reports that.
		require.Error(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("session did not end after the server hung up")
	}

	// Give the server's reader a moment to forward trailing writes.
	time.Sleep(20 * time.Millisecond)

	var heartbeats int
	lastSeq := int64(-1)
drain:
	for {
		select {
		case p := <-received:
			require.Equal(t, opHeartbeat, p.Op)
			heartbeats++
			if len(p.D) == 0 || string(p.D) == "null" {
				continue
			}
			seq, err := strconv.ParseInt(string(p.D), 10, 64)
			require.NoError(t, err)
			assert.LessOrEqual(t, seq, int64(events))
			assert.GreaterOrEqual(t, seq, lastSeq, "heartbeat carried a stale sequence number")
			lastSeq = seq
		default:
			break drain
		}
	}
	assert.Greater(t, heartbeats, 0, "expected at least one heartbeat")
}
