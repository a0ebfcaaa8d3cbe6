package ws

import (
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/relay"
)

const (
	// writeWait is how long a single write may take before the
	// connection is considered dead.
	writeWait = 10 * time.Second

	// pongWait is how long to wait for a pong before dropping the reader.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxMessageSize bounds inbound frames. Snapshots are base64 rasters,
	// so this is generous compared to chat and draw events.
	maxMessageSize = 4 << 20

	sendQueueSize = 64
)

// client is one live connection. The read pump feeds the relay; the write
// pump drains the send queue the relay fills through Send.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	relay  *relay.Relay
	logger *zap.Logger
}

func newClient(id string, conn *websocket.Conn, r *relay.Relay, logger *zap.Logger) *client {
	return &client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendQueueSize),
		relay:  r,
		logger: logger,
	}
}

func (c *client) ID() string {
	return c.id
}

// Send queues a message without blocking the relay. A full queue means the
// client stopped draining and it gets dropped.
func (c *client) Send(data []byte) bool {
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// readPump forwards inbound frames to the relay until the connection dies,
// then unregisters the member from every room it was in.
func (c *client) readPump() {
	defer func() {
		c.relay.Unregister(c.id)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("read failed", zap.String("member", c.id), zap.Error(err))
			}
			return
		}
		c.relay.Dispatch(c.id, msg)
	}
}

// writePump writes queued messages and keepalive pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write failed", zap.String("member", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
