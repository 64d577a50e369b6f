package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchsync/internal/repository/room"
)

type playerHash struct {
	Status    int     `redis:"status"`
	Position  float64 `redis:"position"`
	UpdatedAt int64   `redis:"updated_at"`
}

func (r repo) GetPlayer(ctx context.Context, roomId string) (room.Player, error) {
	playerKey := r.getPlayerKey(roomId)
	res := r.rc.HGetAll(ctx, playerKey)
	if err := res.Err(); err != nil {
		return room.Player{}, fmt.Errorf("failed to get player: %w", err)
	}

	if len(res.Val()) == 0 {
		return room.Player{}, room.ErrPlayerNotFound
	}

	var p playerHash
	if err := res.Scan(&p); err != nil {
		return room.Player{}, fmt.Errorf("failed to scan player: %w", err)
	}

	return room.Player{
		Status:    p.Status,
		Position:  p.Position,
		UpdatedAt: p.UpdatedAt,
	}, nil
}

// UpdatePlayer overwrites status and position and bumps updated_at in one transaction.
// An active room gets its max age back on every update.
func (r repo) UpdatePlayer(ctx context.Context, params *room.UpdatePlayerParams) (room.Player, error) {
	playerKey := r.getPlayerKey(params.RoomId)
	n, err := r.rc.Exists(ctx, playerKey).Result()
	if err != nil {
		return room.Player{}, err
	}

	if n == 0 {
		return room.Player{}, room.ErrRoomNotFound
	}

	var updatedAt *redis.IntCmd
	if _, err := r.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, playerKey,
			"status", params.Status,
			"position", params.Position,
		)
		updatedAt = pipe.HIncrBy(ctx, playerKey, "updated_at", 1)
		pipe.Expire(ctx, r.getRoomKey(params.RoomId), r.expireDuration)
		pipe.Expire(ctx, playerKey, r.expireDuration)
		return nil
	}); err != nil {
		return room.Player{}, fmt.Errorf("failed to update player: %w", err)
	}

	return room.Player{
		Status:    params.Status,
		Position:  params.Position,
		UpdatedAt: updatedAt.Val(),
	}, nil
}
