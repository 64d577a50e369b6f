package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sharetube/watchsync/internal/controller"
	"github.com/sharetube/watchsync/internal/icebreaker"
	"github.com/sharetube/watchsync/internal/repository/connection/inmemory"
	"github.com/sharetube/watchsync/internal/repository/room"
	roomInmemory "github.com/sharetube/watchsync/internal/repository/room/inmemory"
	roomRedis "github.com/sharetube/watchsync/internal/repository/room/redis"
	roomService "github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/ctxlogger"
	"github.com/sharetube/watchsync/pkg/redisclient"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
)

const (
	RoomStoreMemory = "memory"
	RoomStoreRedis  = "redis"
)

type AppConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	LogLevel        string        `json:"log_level"`
	RoomStore       string        `json:"room_store"`
	RoomIdleTTL     time.Duration `json:"room_idle_ttl"`
	RoomMaxAge      time.Duration `json:"room_max_age"`
	AllowAdHocRooms bool          `json:"allow_adhoc_rooms"`
	RedisPort       int           `json:"redis_port"`
	RedisHost       string        `json:"redis_host"`
	RedisPassword   string        `json:"-"`
	GeminiAPIKey    string        `json:"-"`
}

func (cfg *AppConfig) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	if cfg.RoomStore != RoomStoreMemory && cfg.RoomStore != RoomStoreRedis {
		return fmt.Errorf("room store must be %q or %q", RoomStoreMemory, RoomStoreRedis)
	}
	if cfg.RoomIdleTTL <= 0 {
		return fmt.Errorf("room idle ttl must be greater than 0")
	}
	if cfg.RoomMaxAge < cfg.RoomIdleTTL {
		return fmt.Errorf("room max age must not be less than room idle ttl")
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return level, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(&ctxlogger.ContextHandler{
		Handler: slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     level,
			AddSource: true,
		}),
	})
}

type iRoomRepo interface {
	SetRoom(context.Context, *room.SetRoomParams) error
	GetRoom(context.Context, string) (room.Room, error)
	UpdateRoomInfo(context.Context, *room.UpdateRoomInfoParams) error
	UpdatePlayer(context.Context, *room.UpdatePlayerParams) (room.Player, error)
	ExpireRoom(context.Context, *room.ExpireRoomParams) error
	PersistRoom(context.Context, string) error
}

// newRoomRepo returns the configured room store and a function releasing it.
func newRoomRepo(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (iRoomRepo, func(), error) {
	switch cfg.RoomStore {
	case RoomStoreRedis:
		rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
			Port:     cfg.RedisPort,
			Host:     cfg.RedisHost,
			Password: cfg.RedisPassword,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create redis client: %w", err)
		}
		return roomRedis.NewRepo(rc, logger, cfg.RoomMaxAge), func() { rc.Close() }, nil
	default:
		repo := roomInmemory.NewRepo(time.Minute)
		return repo, repo.Close, nil
	}
}

// NewHandler wires every layer and returns the HTTP handler along with a cleanup function.
func NewHandler(ctx context.Context, cfg *AppConfig, logger *slog.Logger) (http.Handler, func(), error) {
	roomRepo, closeRepo, err := newRoomRepo(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	var generator interface {
		Generate(context.Context, string) ([]string, error)
	} = icebreaker.StaticGenerator{}
	if cfg.GeminiAPIKey != "" {
		generator = icebreaker.NewGeminiGenerator(cfg.GeminiAPIKey, httpClient)
	}

	service := roomService.NewService(
		roomRepo,
		inmemory.NewRepo(logger),
		ytvideodata.NewClient(httpClient),
		generator,
		logger,
		roomService.Config{
			RoomIdleTTL:     cfg.RoomIdleTTL,
			AllowAdHocRooms: cfg.AllowAdHocRooms,
		},
	)

	return controller.NewController(service, logger, controller.DefaultConfig()).GetMux(), closeRepo, nil
}

func Run(ctx context.Context, cfg *AppConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logLevel, _ := parseLogLevel(cfg.LogLevel)
	logger := newLogger(os.Stdout, logLevel)

	handler, cleanup, err := NewHandler(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)
	defer serverStopCtx()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(sig)

	shutdownErr := make(chan error, 1)
	go func() {
		select {
		case <-sig:
		case <-serverCtx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(serverCtx), 30*time.Second)
		defer cancel()

		logger.InfoContext(shutdownCtx, "shutting down server")
		shutdownErr <- server.Shutdown(shutdownCtx)
	}()

	logger.InfoContext(serverCtx, "starting server", "address", server.Addr, "room_store", cfg.RoomStore)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdownErr; err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
