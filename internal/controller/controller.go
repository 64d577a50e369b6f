package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/validator"
	"github.com/sharetube/watchsync/pkg/wsrouter"
	"golang.org/x/time/rate"
)

type iRoomService interface {
	CreateRoom(context.Context, *room.CreateRoomParams) (protocol.RoomInfo, error)
	GetRoom(context.Context, string) (protocol.RoomInfo, error)
	EnsureAdHocRoom(context.Context, *room.EnsureAdHocRoomParams) error
	JoinRoom(context.Context, *room.JoinRoomParams) (room.JoinRoomResponse, error)
	LeaveRoom(context.Context, *room.LeaveRoomParams) (room.LeaveRoomResponse, error)
	UpdatePlayerState(context.Context, *room.UpdatePlayerStateParams) (room.UpdatePlayerStateResponse, error)
	SendChatMessage(context.Context, *room.SendChatMessageParams) (room.SendChatMessageResponse, error)
}

type Config struct {
	SendQueueSize int
	ReadLimit     int64
	RateLimit     rate.Limit
	RateBurst     int
	WriteWait     time.Duration
	PongWait      time.Duration
	PingPeriod    time.Duration
}

func DefaultConfig() Config {
	pongWait := 60 * time.Second
	return Config{
		SendQueueSize: 256,
		ReadLimit:     64 << 10,
		RateLimit:     20,
		RateBurst:     40,
		WriteWait:     10 * time.Second,
		PongWait:      pongWait,
		PingPeriod:    (pongWait * 9) / 10,
	}
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
	wsmux       *wsrouter.WSRouter[*client]
	cfg         Config
}

func NewController(roomService iRoomService, logger *slog.Logger, cfg Config) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
		cfg:         cfg,
	}
	c.wsmux = c.getWSRouter()

	return c
}
