package websocket

import (
	"context"
	"encoding/json"
	"time"

	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/internal/service"
	"campus-desk-be/pkg/tracker"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	moduleName = "StatusStream"
)

// Handle is the part of a tracker subscription the stream needs.
type Handle interface {
	Snapshot() tracker.Snapshot
	Updates() <-chan tracker.Snapshot
	Refresh(ctx context.Context) (tracker.Snapshot, error)
	Close()
}

// Client streams one tracker handle to one websocket connection.
type Client struct {
	Conn   *websocket.Conn
	Handle Handle
	Logger logger.ILogger

	// Snapshots produced by client-requested refreshes.
	refreshed chan tracker.Snapshot
	done      chan struct{}
}

// command is what the peer may send. Only "refresh" is understood.
type command struct {
	Type string `json:"type"`
}

// readPump handles refresh requests until the peer goes away.
func (c *Client) readPump() {
	defer close(c.done)

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Logger.Warn(moduleName, "Unexpected close", map[string]interface{}{"error": err.Error()})
			}
			return
		}

		var cmd command
		if err := json.Unmarshal(message, &cmd); err != nil || cmd.Type != "refresh" {
			continue
		}
		snap, err := c.Handle.Refresh(context.Background())
		if err != nil {
			c.Logger.Warn(moduleName, "Refresh failed", map[string]interface{}{"error": err.Error()})
		}
		select {
		case c.refreshed <- snap:
		default:
		}
	}
}

// writePump sends the current snapshot, then every update, and keeps the
// connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := c.send(c.Handle.Snapshot()); err != nil {
		return
	}

	updates := c.Handle.Updates()
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.send(snap); err != nil {
				return
			}
		case snap := <-c.refreshed:
			if err := c.send(snap); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Client) send(snap tracker.Snapshot) error {
	payload, err := json.Marshal(service.ToStatusResponse(snap))
	if err != nil {
		return err
	}
	c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.Conn.WriteMessage(websocket.TextMessage, payload)
}
