package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sharetube/watchsync/internal/repository/room"
)

type roomHash struct {
	VideoId     string `redis:"video_id"`
	VideoTitle  string `redis:"video_title"`
	Icebreakers string `redis:"icebreakers"`
}

func (r repo) SetRoom(ctx context.Context, params *room.SetRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	roomKey := r.getRoomKey(params.RoomId)

	// video_id is written first and only once so a room id can never point at two videos.
	ok, err := r.rc.HSetNX(ctx, roomKey, "video_id", params.VideoId).Result()
	if err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}
	if !ok {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRoomAlreadyExists)
		return room.ErrRoomAlreadyExists
	}

	icebreakers, err := json.Marshal(params.Icebreakers)
	if err != nil {
		return fmt.Errorf("failed to marshal icebreakers: %w", err)
	}

	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, roomKey, roomHash{
		VideoId:     params.VideoId,
		VideoTitle:  params.VideoTitle,
		Icebreakers: string(icebreakers),
	})
	pipe.Expire(ctx, roomKey, r.expireDuration)

	playerKey := r.getPlayerKey(params.RoomId)
	pipe.HSet(ctx, playerKey,
		"status", params.Player.Status,
		"position", params.Player.Position,
		"updated_at", params.Player.UpdatedAt,
	)
	pipe.Expire(ctx, playerKey, r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set room: %w", err)
	}

	return nil
}

func (r repo) GetRoom(ctx context.Context, roomId string) (room.Room, error) {
	roomKey := r.getRoomKey(roomId)
	var h roomHash
	if err := r.rc.HGetAll(ctx, roomKey).Scan(&h); err != nil {
		return room.Room{}, fmt.Errorf("failed to get room: %w", err)
	}

	if h.VideoId == "" {
		return room.Room{}, room.ErrRoomNotFound
	}

	var icebreakers []string
	if h.Icebreakers != "" {
		if err := json.Unmarshal([]byte(h.Icebreakers), &icebreakers); err != nil {
			return room.Room{}, fmt.Errorf("failed to unmarshal icebreakers: %w", err)
		}
	}

	player, err := r.GetPlayer(ctx, roomId)
	if err != nil {
		// the player key expired before the room key
		if errors.Is(err, room.ErrPlayerNotFound) {
			return room.Room{}, room.ErrRoomNotFound
		}
		return room.Room{}, err
	}

	return room.Room{
		RoomId:      roomId,
		VideoId:     h.VideoId,
		VideoTitle:  h.VideoTitle,
		Icebreakers: icebreakers,
		Player:      player,
	}, nil
}

func (r repo) UpdateRoomInfo(ctx context.Context, params *room.UpdateRoomInfoParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	exists, err := r.roomExists(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}
	if !exists {
		return room.ErrRoomNotFound
	}

	icebreakers, err := json.Marshal(params.Icebreakers)
	if err != nil {
		return fmt.Errorf("failed to marshal icebreakers: %w", err)
	}

	if err := r.rc.HSet(ctx, r.getRoomKey(params.RoomId),
		"video_title", params.VideoTitle,
		"icebreakers", string(icebreakers),
	).Err(); err != nil {
		return fmt.Errorf("failed to update room info: %w", err)
	}

	return nil
}

// ExpireRoom schedules disposal of an empty room.
func (r repo) ExpireRoom(ctx context.Context, params *room.ExpireRoomParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()
	pipe.Expire(ctx, r.getRoomKey(params.RoomId), params.TTL)
	pipe.Expire(ctx, r.getPlayerKey(params.RoomId), params.TTL)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to expire room: %w", err)
	}

	return nil
}

// PersistRoom cancels a pending ExpireRoom, falling back to the repository-wide expiration.
func (r repo) PersistRoom(ctx context.Context, roomId string) error {
	exists, err := r.roomExists(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to check if room exists: %w", err)
	}
	if !exists {
		return room.ErrRoomNotFound
	}

	pipe := r.rc.TxPipeline()
	pipe.Expire(ctx, r.getRoomKey(roomId), r.expireDuration)
	pipe.Expire(ctx, r.getPlayerKey(roomId), r.expireDuration)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to persist room: %w", err)
	}

	return nil
}
