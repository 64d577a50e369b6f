package room

import (
	"context"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/repository/connection"
)

// broadcast must be called with the room lock held so that every participant
// observes room messages in the order they were applied.
func (s service) broadcast(ctx context.Context, roomId, exceptConnId, messageType string, payload any) (int, error) {
	data, err := protocol.Encode(messageType, payload)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, conn := range s.connRepo.GetConns(ctx, roomId) {
		if conn.Id() == exceptConnId {
			continue
		}

		if s.sendToConn(ctx, roomId, conn, data) {
			sent++
		}
	}

	return sent, nil
}

// sendToConn drops a participant whose outbound queue is full. It leaves the room
// right away, closing the connection only ends its pumps.
func (s service) sendToConn(ctx context.Context, roomId string, conn connection.Conn, data []byte) bool {
	if conn.Send(data) {
		return true
	}

	s.logger.WarnContext(ctx, "dropping slow connection", "conn_id", conn.Id())
	conn.Close()
	if _, _, err := s.removeConn(ctx, roomId, conn.Id()); err != nil {
		s.logger.ErrorContext(ctx, "failed to remove slow connection", "conn_id", conn.Id(), "error", err)
	}
	return false
}
