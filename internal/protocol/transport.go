// File: internal/protocol/transport.go
package protocol

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second
	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10
	// Maximum message size allowed from peer.
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The listener binds to loopback only; origin is not the boundary.
		return true
	},
}

// Server upgrades HTTP requests into session channels. Each connection gets
// its own Session; connections are otherwise independent.
type Server struct {
	deps   Deps
	logger *zap.Logger
}

// NewServer builds a channel server over the shared dependencies.
func NewServer(deps Deps) *Server {
	return &Server{deps: deps, logger: deps.Logger.Named("transport")}
}

// ServeHTTP implements the /session endpoint.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Websocket upgrade failed.", zap.Error(err))
		return
	}

	c := &channel{
		id:     uuid.New().String(),
		conn:   conn,
		send:   make(chan []byte, 16),
		logger: s.logger,
	}
	c.session = NewSession(s.deps, c.id)

	s.logger.Info("Session channel opened.", zap.String("conn_id", c.id))
	go c.writePump()
	// The request context dies when this handler returns; the channel
	// outlives it, so handlers run against the background context.
	go c.readPump(context.Background())
}

// channel is one live websocket connection plus its outbound queue.
type channel struct {
	id      string
	conn    *websocket.Conn
	send    chan []byte
	session *Session
	logger  *zap.Logger
}

// emit queues one outbound message. Called only from the read pump.
func (c *channel) emit(msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.send <- raw
	return nil
}

// readPump reads inbound messages and drives the session. Undecodable
// frames are logged and skipped; the channel survives them.
func (c *channel) readPump(ctx context.Context) {
	defer func() {
		close(c.send)
		c.conn.Close()
		c.logger.Info("Session channel closed.",
			zap.String("conn_id", c.id), zap.Stringer("state", c.session.State()))
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Websocket read error.", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Error("Failed to decode inbound frame.",
				zap.String("conn_id", c.id), zap.Error(err), zap.ByteString("frame", raw))
			continue
		}

		if err := c.session.Handle(ctx, msg, c.emit); err != nil {
			c.logger.Warn("Emit failed; dropping channel.", zap.String("conn_id", c.id), zap.Error(err))
			return
		}
	}
}

// writePump drains the outbound queue and keeps the connection alive with
// pings.
func (c *channel) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
