package websocket

import (
	"campus-desk-be/internal/pkg/logger"
	"campus-desk-be/pkg/tracker"

	"github.com/gofiber/websocket/v2"
)

// ServeStatus streams handle to the peer until either side goes away, then
// closes the handle and the connection.
func ServeStatus(conn *websocket.Conn, handle Handle, log logger.ILogger) {
	client := &Client{
		Conn:      conn,
		Handle:    handle,
		Logger:    log,
		refreshed: make(chan tracker.Snapshot, 1),
		done:      make(chan struct{}),
	}

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		client.writePump()
		// Unblocks readPump if the writer stopped first.
		conn.Close()
	}()

	client.readPump()
	handle.Close()
	<-writerDone
	conn.Close()
}
