package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

func (r repo) getRoomKey(roomId string) string {
	return "room:" + roomId
}

func (r repo) getPlayerKey(roomId string) string {
	return "room:" + roomId + ":player"
}

func (r repo) executePipe(ctx context.Context, pipe redis.Pipeliner) error {
	cmds, err := pipe.Exec(ctx)
	if err != nil {
		for _, cmd := range cmds {
			if err := cmd.Err(); err != nil {
				return err
			}
		}

		return err
	}

	return nil
}

func (r repo) roomExists(ctx context.Context, roomId string) (bool, error) {
	n, err := r.rc.Exists(ctx, r.getRoomKey(roomId)).Result()
	if err != nil {
		return false, err
	}

	return n > 0, nil
}
