package client

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/segfal/whiteboard/internal/protocol"
)

var ErrNotConnected = errors.New("not connected")

// Handlers are optional callbacks invoked from the read loop as server
// events arrive.
type Handlers struct {
	OnUserJoined    func(protocol.UserJoined)
	OnUserLeft      func(protocol.UserLeft)
	OnUserList      func(protocol.UserList)
	OnDraw          func(event string, ev protocol.DrawEvent)
	OnClear         func()
	OnChat          func(protocol.ChatOutbound)
	OnStateReceived func(snapshot string)
}

type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string

	// Room is the room to join on connect and rejoin on reconnect.
	Room string

	// MaxRetries bounds reconnection attempts; Backoff is the fixed delay
	// between them.
	MaxRetries int
	Backoff    time.Duration

	Codec    CanvasCodec
	Handlers Handlers
	Logger   *zap.Logger
}

// Client is one whiteboard participant: it keeps the connection alive,
// re-syncs after reconnects and runs the state sync adapter.
type Client struct {
	config Config
	sync   *StateSync
	logger *zap.Logger

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
}

func New(config Config) *Client {
	if config.MaxRetries <= 0 {
		config.MaxRetries = 5
	}
	if config.Backoff <= 0 {
		config.Backoff = 2 * time.Second
	}
	c := &Client{
		config: config,
		sync:   NewStateSync(config.Codec, config.Logger),
		logger: config.Logger,
	}
	c.sync.setPusher(c.pushState)
	return c
}

// StateSync exposes the sync adapter for observer subscriptions.
func (c *Client) StateSync() *StateSync {
	return c.sync
}

// Connect dials the server, joins the configured room and requests the
// current canvas state, then starts the read loop.
func (c *Client) Connect() error {
	conn, _, err := websocket.DefaultDialer.Dial(c.config.URL, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	if err := c.resync(); err != nil {
		conn.Close()
		return err
	}

	go c.readLoop(conn)
	return nil
}

// Close shuts the connection down for good; no reconnect follows.
func (c *Client) Close() error {
	c.mu.Lock()
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return conn.Close()
}

// resync re-establishes room membership and asks for the canvas. The server
// forgot this member the moment the previous connection dropped, so both
// steps run on every (re)connect.
func (c *Client) resync() error {
	if err := c.JoinRoom(c.config.Room); err != nil {
		return err
	}
	return c.RequestState()
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			c.mu.Lock()
			closed := c.closed
			if c.conn == conn {
				c.conn = nil
			}
			c.mu.Unlock()
			if !closed {
				c.reconnect()
			}
			return
		}
		c.handleMessage(raw)
	}
}

// reconnect retries with a fixed backoff up to MaxRetries, then gives up.
// While disconnected, outbound actions are dropped, not queued.
func (c *Client) reconnect() {
	for attempt := 1; attempt <= c.config.MaxRetries; attempt++ {
		time.Sleep(c.config.Backoff)

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		c.logger.Info("reconnecting",
			zap.Int("attempt", attempt), zap.Int("max", c.config.MaxRetries))
		if err := c.Connect(); err != nil {
			c.logger.Warn("reconnect failed", zap.Error(err))
			continue
		}
		return
	}
	c.logger.Error("giving up on reconnection",
		zap.Int("attempts", c.config.MaxRetries))
}

func (c *Client) handleMessage(raw []byte) {
	env, err := protocol.Decode(raw)
	if err != nil {
		c.logger.Debug("dropping undecodable server message", zap.Error(err))
		return
	}
	h := c.config.Handlers

	switch env.Event {
	case protocol.EventUserJoined:
		var p protocol.UserJoined
		if env.DecodeInto(&p) == nil && h.OnUserJoined != nil {
			h.OnUserJoined(p)
		}
	case protocol.EventUserLeft:
		var p protocol.UserLeft
		if env.DecodeInto(&p) == nil && h.OnUserLeft != nil {
			h.OnUserLeft(p)
		}
	case protocol.EventUserList:
		var p protocol.UserList
		if env.DecodeInto(&p) == nil && h.OnUserList != nil {
			h.OnUserList(p)
		}
	case protocol.EventDrawStart, protocol.EventDrawMove, protocol.EventDrawEnd:
		var p protocol.DrawEvent
		if env.DecodeInto(&p) == nil && h.OnDraw != nil {
			h.OnDraw(env.Event, p)
		}
	case protocol.EventDrawClear:
		if err := c.sync.Apply(""); err != nil {
			c.logger.Warn("failed to clear canvas", zap.Error(err))
		}
		if h.OnClear != nil {
			h.OnClear()
		}
	case protocol.EventRequestState:
		// Another member is bootstrapping; push our rendering.
		c.sync.SaveState()
	case protocol.EventStateUpdate:
		var p protocol.StateUpdate
		if env.DecodeInto(&p) != nil {
			return
		}
		if err := c.sync.Apply(p.ImageData); err != nil {
			c.logger.Warn("failed to apply snapshot", zap.Error(err))
			return
		}
		if h.OnStateReceived != nil {
			h.OnStateReceived(p.ImageData)
		}
	case protocol.EventChatMessage:
		var p protocol.ChatOutbound
		if env.DecodeInto(&p) == nil && h.OnChat != nil {
			h.OnChat(p)
		}
	}
}

// emit sends one event, dropping it when disconnected.
func (c *Client) emit(event string, payload interface{}) error {
	env, err := protocol.NewEnvelope(event, payload)
	if err != nil {
		return err
	}
	data, err := env.Encode()
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		c.logger.Debug("dropping message while disconnected", zap.String("event", event))
		return ErrNotConnected
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *Client) JoinRoom(roomID string) error {
	return c.emit(protocol.EventRoomJoin, roomID)
}

func (c *Client) LeaveRoom(roomID string) error {
	return c.emit(protocol.EventRoomLeave, roomID)
}

func (c *Client) RequestState() error {
	return c.emit(protocol.EventRequestState, c.config.Room)
}

func (c *Client) SendChat(message string) error {
	return c.emit(protocol.EventChatMessage, protocol.ChatInbound{
		RoomID:  c.config.Room,
		Message: message,
	})
}

func (c *Client) DrawStart(ev protocol.DrawEvent) error {
	ev.RoomID = c.config.Room
	return c.emit(protocol.EventDrawStart, ev)
}

func (c *Client) DrawMove(ev protocol.DrawEvent) error {
	ev.RoomID = c.config.Room
	return c.emit(protocol.EventDrawMove, ev)
}

// DrawEnd completes a stroke or shape and captures the canvas, which is the
// point at which the room's snapshot is refreshed.
func (c *Client) DrawEnd(ev protocol.DrawEvent) error {
	ev.RoomID = c.config.Room
	if err := c.emit(protocol.EventDrawEnd, ev); err != nil {
		return err
	}
	c.sync.SaveState()
	return nil
}

// ClearCanvas blanks the room for everyone.
func (c *Client) ClearCanvas() error {
	if err := c.emit(protocol.EventDrawClear, c.config.Room); err != nil {
		return err
	}
	if err := c.sync.Apply(""); err != nil {
		return err
	}
	return nil
}

func (c *Client) pushState(snapshot string) {
	err := c.emit(protocol.EventStateUpdate, protocol.StateUpdate{
		RoomID:    c.config.Room,
		ImageData: snapshot,
	})
	if err != nil && !errors.Is(err, ErrNotConnected) {
		c.logger.Warn("failed to push snapshot", zap.Error(err))
	}
}
