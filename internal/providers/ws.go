package providers

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gorilla/websocket"
)

// wsConn pairs the rpc-backed ethclient.Client used for subscriptions and
// contract calls with the raw gorilla/websocket connection used purely to
// observe socket liveness (spec §4.1: "observes a non-OPEN socket").
// ethclient/rpc do not expose raw connection state, so the liveness probe
// keeps its own parallel dial.
type wsConn struct {
	url    string
	client *ethclient.Client

	mu   sync.Mutex
	raw  *websocket.Conn
}

func dialWS(ctx context.Context, url string) (*wsConn, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, err
	}
	raw, _, err := websocket.DefaultDialer.DialContext(ctx, toWSDialURL(url), nil)
	if err != nil {
		client.Close()
		return nil, err
	}
	return &wsConn{url: url, client: client, raw: raw}, nil
}

// toWSDialURL is a no-op passthrough today; kept as a seam because some
// deployments front the WS endpoint with a path-rewriting proxy that the
// raw liveness dial (unlike ethclient's own rpc.DialContext) must target
// explicitly.
func toWSDialURL(url string) string { return url }

// isOpen reports whether the raw socket still looks alive: it writes a
// ping control frame within timeout rather than trusting cached
// connection state, since gorilla/websocket does not expose a read-only
// "is open" flag. It does not wait for the pong.
func (w *wsConn) isOpen(timeout time.Duration) bool {
	w.mu.Lock()
	raw := w.raw
	w.mu.Unlock()
	if raw == nil {
		return false
	}
	_ = raw.SetWriteDeadline(time.Now().Add(timeout))
	if err := raw.WriteControl(websocket.PingMessage, nil, time.Now().Add(timeout)); err != nil {
		return false
	}
	return true
}

func (w *wsConn) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.raw != nil {
		_ = w.raw.Close()
		w.raw = nil
	}
	if w.client != nil {
		w.client.Close()
	}
}
