package redis

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc             *redis.Client
	logger         *slog.Logger
	expireDuration time.Duration
}

// NewRepo stores rooms in redis. expireDuration bounds the lifetime of a room nobody touches,
// shorter expirations are set through ExpireRoom.
func NewRepo(rc *redis.Client, logger *slog.Logger, expireDuration time.Duration) *repo {
	return &repo{
		rc:             rc,
		logger:         logger,
		expireDuration: expireDuration,
	}
}
