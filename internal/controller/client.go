package controller

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

// client is one participant connection. Writes go through send and are
// performed by writePump only.
type client struct {
	id        string
	roomId    string
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	limiter   *rate.Limiter
}

func newClient(conn *websocket.Conn, roomId string, cfg Config) *client {
	return &client{
		id:      uuid.NewString(),
		roomId:  roomId,
		conn:    conn,
		send:    make(chan []byte, cfg.SendQueueSize),
		done:    make(chan struct{}),
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
	}
}

func (cl *client) Id() string {
	return cl.id
}

// Send never blocks. It returns false once the client is closed or its queue is full.
func (cl *client) Send(data []byte) bool {
	select {
	case <-cl.done:
		return false
	default:
	}

	select {
	case cl.send <- data:
		return true
	default:
		return false
	}
}

func (cl *client) Close() {
	cl.closeOnce.Do(func() {
		close(cl.done)
	})
}

func (cl *client) writePump(ctx context.Context, logger *slog.Logger, cfg Config) {
	ticker := time.NewTicker(cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		cl.Close()
		cl.conn.Close()
	}()

	for {
		select {
		case <-cl.done:
			cl.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			cl.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case message := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.InfoContext(ctx, "failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(cfg.WriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logger.InfoContext(ctx, "failed to write ping", "error", err)
				return
			}
		}
	}
}
