package room

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

var (
	ErrRoomNotFound          = errors.New("room not found")
	ErrInvalidVideoReference = errors.New("invalid video reference")
	ErrAdHocRoomsDisabled    = errors.New("ad-hoc rooms are disabled")
)

type iRoomRepo interface {
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	UpdateRoomInfo(context.Context, *room.UpdateRoomInfoParams) error
	UpdatePlayer(context.Context, *room.UpdatePlayerParams) (room.Player, error)
	ExpireRoom(context.Context, *room.ExpireRoomParams) error
	PersistRoom(context.Context, string) error
}

type iConnRepo interface {
	Add(context.Context, string, connection.Conn) error
	Remove(context.Context, string, string) (int, error)
	GetConns(context.Context, string) []connection.Conn
	Count(context.Context, string) int
}

type iVideoResolver interface {
	Get(ctx context.Context, videoId string) (*ytvideodata.VideoData, error)
}

type iIcebreakerGenerator interface {
	Generate(ctx context.Context, videoTitle string) ([]string, error)
}

type Config struct {
	RoomIdleTTL     time.Duration
	AllowAdHocRooms bool
	// ResolveTimeout bounds metadata resolution of ad-hoc rooms.
	ResolveTimeout time.Duration
}

type service struct {
	roomRepo      iRoomRepo
	connRepo      iConnRepo
	videoResolver iVideoResolver
	icebreakers   iIcebreakerGenerator
	logger        *slog.Logger
	locks         *keyedMutex
	newRoomId     func() string
	cfg           Config
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, videoResolver iVideoResolver, icebreakers iIcebreakerGenerator, logger *slog.Logger, cfg Config) *service {
	if cfg.RoomIdleTTL == 0 {
		cfg.RoomIdleTTL = 5 * time.Minute
	}
	if cfg.ResolveTimeout == 0 {
		cfg.ResolveTimeout = 30 * time.Second
	}

	return &service{
		roomRepo:      roomRepo,
		connRepo:      connRepo,
		videoResolver: videoResolver,
		icebreakers:   icebreakers,
		logger:        logger,
		locks:         newKeyedMutex(),
		newRoomId:     uuid.NewString,
		cfg:           cfg,
	}
}
