// File: internal/protocol/client.go
package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	json "github.com/json-iterator/go"
)

// Client is the dialing side of a session channel, used when triggering a
// grab against an already-running daemon.
type Client struct {
	conn *websocket.Conn
}

// Dial connects to a session endpoint, ws://host:port/session.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing session endpoint %s: %w", url, err)
	}
	return &Client{conn: conn}, nil
}

// Send writes one message.
func (c *Client) Send(msg Message) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, raw)
}

// Receive blocks for the next message until ctx's deadline, if any.
func (c *Client) Receive(ctx context.Context) (Message, error) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(deadline)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	_, raw, err := c.conn.ReadMessage()
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("decoding inbound frame: %w", err)
	}
	return msg, nil
}

func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}
