package room

import (
	"context"
	"fmt"
	"strings"

	"github.com/sharetube/watchsync/internal/protocol"
)

const DefaultNickname = "Guest"

type SendChatMessageParams struct {
	Nickname string
	Body     string
	SenderId string
	RoomId   string
}

type SendChatMessageResponse struct {
	Message    protocol.ChatMessage
	Recipients int
}

// SendChatMessage relays a chat line to the other participants. Messages are not stored.
func (s service) SendChatMessage(ctx context.Context, params *SendChatMessageParams) (SendChatMessageResponse, error) {
	msg := protocol.ChatMessage{
		Nickname: strings.TrimSpace(params.Nickname),
		Body:     params.Body,
	}
	if msg.Nickname == "" {
		msg.Nickname = DefaultNickname
	}

	unlock := s.locks.Lock(params.RoomId)
	defer unlock()

	if _, err := s.getRoom(ctx, params.RoomId); err != nil {
		return SendChatMessageResponse{}, err
	}

	recipients, err := s.broadcast(ctx, params.RoomId, params.SenderId, protocol.TypeChatMessage, msg)
	if err != nil {
		return SendChatMessageResponse{}, fmt.Errorf("failed to broadcast chat message: %w", err)
	}

	return SendChatMessageResponse{
		Message:    msg,
		Recipients: recipients,
	}, nil
}
