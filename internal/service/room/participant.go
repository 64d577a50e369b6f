package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/sharetube/watchsync/internal/repository/room"
)

var ErrConnectionBusy = errors.New("connection queue is full")

type JoinRoomParams struct {
	RoomId string
	Conn   connection.Conn
}

type JoinRoomResponse struct {
	Room              protocol.RoomInfo
	ParticipantsCount int
}

// JoinRoom registers conn and queues the initialState snapshot as its first message.
// Broadcasts issued after the snapshot reach conn only after it.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	unlock := s.locks.Lock(params.RoomId)
	defer unlock()

	r, err := s.getRoom(ctx, params.RoomId)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	if err := s.roomRepo.PersistRoom(ctx, params.RoomId); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return JoinRoomResponse{}, ErrRoomNotFound
		}
		return JoinRoomResponse{}, fmt.Errorf("failed to persist room: %w", err)
	}

	info := toRoomInfo(r)
	data, err := protocol.Encode(protocol.TypeInitialState, info)
	if err != nil {
		return JoinRoomResponse{}, err
	}

	if !params.Conn.Send(data) {
		return JoinRoomResponse{}, ErrConnectionBusy
	}

	if err := s.connRepo.Add(ctx, params.RoomId, params.Conn); err != nil {
		return JoinRoomResponse{}, fmt.Errorf("failed to add connection: %w", err)
	}

	count := s.connRepo.Count(ctx, params.RoomId)
	s.logger.InfoContext(ctx, "participant joined", "conn_id", params.Conn.Id(), "participants", count)

	return JoinRoomResponse{
		Room:              info,
		ParticipantsCount: count,
	}, nil
}

type LeaveRoomParams struct {
	RoomId string
	ConnId string
}

type LeaveRoomResponse struct {
	ParticipantsCount int
	IsRoomExpiring    bool
}

// LeaveRoom is idempotent. The last participant to leave starts the room idle timer.
func (s service) LeaveRoom(ctx context.Context, params *LeaveRoomParams) (LeaveRoomResponse, error) {
	unlock := s.locks.Lock(params.RoomId)
	defer unlock()

	remaining, expiring, err := s.removeConn(ctx, params.RoomId, params.ConnId)
	if err != nil {
		return LeaveRoomResponse{}, err
	}

	return LeaveRoomResponse{ParticipantsCount: remaining, IsRoomExpiring: expiring}, nil
}

// removeConn takes connId out of the room and starts the idle timer when the room
// becomes empty. It must be called with the room lock held.
func (s service) removeConn(ctx context.Context, roomId, connId string) (int, bool, error) {
	remaining, err := s.connRepo.Remove(ctx, roomId, connId)
	if err != nil {
		if errors.Is(err, connection.ErrNotFound) {
			return remaining, false, nil
		}
		return 0, false, fmt.Errorf("failed to remove connection: %w", err)
	}

	s.logger.InfoContext(ctx, "participant left", "conn_id", connId, "participants", remaining)
	if remaining > 0 {
		return remaining, false, nil
	}

	if err := s.roomRepo.ExpireRoom(ctx, &room.ExpireRoomParams{
		RoomId: roomId,
		TTL:    s.cfg.RoomIdleTTL,
	}); err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to expire room: %w", err)
	}

	return 0, true, nil
}
