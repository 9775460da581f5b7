package websocket

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"trawlscope/pkg/contracts/events"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Default pong deadline when Options leaves it zero.
	defaultPongWait = 60 * time.Second

	// Maximum message size allowed from peer. Clients only send heartbeats.
	maxMessageSize = 512

	// Outbound buffer per client.
	sendBufferSize = 256
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// Options tunes the per-client keepalive behavior. Zero values fall back to
// defaults; PingPeriod must stay below PongWait.
type Options struct {
	PingPeriod time.Duration
	PongWait   time.Duration
}

func (o Options) withDefaults() Options {
	if o.PongWait <= 0 {
		o.PongWait = defaultPongWait
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	return o
}

// Client is the middleman between one websocket connection and the hub.
type Client struct {
	hub  *Hub
	conn Connection
	send chan []byte

	id          string
	remoteAddr  string
	connectedAt time.Time
	opts        Options

	logger *slog.Logger
}

// NewClient creates a client over an already-upgraded connection.
func NewClient(hub *Hub, conn Connection, logger *slog.Logger, opts Options) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New().String()
	return &Client{
		hub:         hub,
		conn:        conn,
		send:        make(chan []byte, sendBufferSize),
		id:          id,
		remoteAddr:  conn.RemoteAddr(),
		connectedAt: time.Now(),
		opts:        opts.withDefaults(),
		logger: logger.With(
			slog.String("component", "websocket.client"),
			slog.String("client_id", id),
		),
	}
}

// ReadPump pumps messages from the websocket connection to the hub. It owns
// the connection's read side and unregisters the client on exit.
func (c *Client) ReadPump() {
	defer func() {
		c.logger.Info("client disconnected",
			slog.Duration("connection_duration", time.Since(c.connectedAt)))
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("unexpected close",
					slog.String("error", err.Error()))
			}
			break
		}
		message = bytes.TrimSpace(bytes.Replace(message, newline, space, -1))

		// Browser clients send an application-level heartbeat on top of
		// the protocol ping/pong.
		if string(message) == `{"type":"heartbeat"}` {
			c.logger.Debug("heartbeat received")
			continue
		}

		// The socket is server-push only; anything else gets an error
		// envelope back and is otherwise ignored.
		c.rejectMessage(len(message))
	}
}

func (c *Client) rejectMessage(size int) {
	c.logger.Debug("unsupported client message", slog.Int("bytes", size))

	payload, err := json.Marshal(events.NewError("unsupported_message", "this socket only accepts heartbeats"))
	if err != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// WritePump pumps messages from the hub to the websocket connection and keeps
// the connection alive with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Error("write failed",
					slog.String("error", err.Error()))
				return
			}

			// Drain queued messages as separate frames.
			n := len(c.send)
			for i := 0; i < n; i++ {
				msg, ok := <-c.send
				if !ok {
					c.conn.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					c.logger.Error("write failed",
						slog.String("error", err.Error()))
					return
				}
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.logger.Debug("ping failed",
					slog.String("error", err.Error()))
				return
			}
		}
	}
}

// ServeWS registers an upgraded connection with the hub and starts its pumps.
func ServeWS(hub *Hub, conn *websocket.Conn, logger *slog.Logger, opts Options) {
	client := NewClient(hub, WrapConnection(conn), logger, opts)
	hub.Register(client)

	go client.WritePump()
	go client.ReadPump()
}
