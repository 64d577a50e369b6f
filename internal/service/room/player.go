package room

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/repository/room"
)

var ErrInvalidPlayerState = errors.New("invalid player state")

type UpdatePlayerStateParams struct {
	Status   protocol.Status
	Position float64
	SenderId string
	RoomId   string
}

type UpdatePlayerStateResponse struct {
	PlayerState protocol.PlayerState
	Recipients  int
}

// UpdatePlayerState overwrites the room's player state and relays it to everyone but the sender.
func (s service) UpdatePlayerState(ctx context.Context, params *UpdatePlayerStateParams) (UpdatePlayerStateResponse, error) {
	if !params.Status.Valid() || params.Position < 0 || math.IsNaN(params.Position) || math.IsInf(params.Position, 0) {
		return UpdatePlayerStateResponse{}, fmt.Errorf("%w: status %s position %v", ErrInvalidPlayerState, params.Status, params.Position)
	}

	unlock := s.locks.Lock(params.RoomId)
	defer unlock()

	player, err := s.roomRepo.UpdatePlayer(ctx, &room.UpdatePlayerParams{
		RoomId:   params.RoomId,
		Status:   int(params.Status),
		Position: params.Position,
	})
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return UpdatePlayerStateResponse{}, ErrRoomNotFound
		}
		return UpdatePlayerStateResponse{}, fmt.Errorf("failed to update player: %w", err)
	}

	state := toPlayerState(player)
	recipients, err := s.broadcast(ctx, params.RoomId, params.SenderId, protocol.TypePlayerState, state)
	if err != nil {
		return UpdatePlayerStateResponse{}, fmt.Errorf("failed to broadcast player state: %w", err)
	}

	return UpdatePlayerStateResponse{
		PlayerState: state,
		Recipients:  recipients,
	}, nil
}
