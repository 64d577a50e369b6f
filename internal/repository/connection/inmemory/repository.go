package inmemory

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sharetube/watchsync/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type repo struct {
	rooms  map[string]map[string]connection.Conn
	logger *slog.Logger
	mu     sync.RWMutex
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		rooms:  make(map[string]map[string]connection.Conn),
		logger: logger,
	}
}

func (r *repo) Add(ctx context.Context, roomId string, conn connection.Conn) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, funcName, "room_id", roomId, "conn_id", conn.Id())
	conns, ok := r.rooms[roomId]
	if !ok {
		conns = make(map[string]connection.Conn)
		r.rooms[roomId] = conns
	}

	if _, ok := conns[conn.Id()]; ok {
		r.logger.InfoContext(ctx, funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	conns[conn.Id()] = conn
	return nil
}

// Remove unregisters a connection and returns how many remain in its room.
func (r *repo) Remove(ctx context.Context, roomId, connId string) (int, error) {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.DebugContext(ctx, funcName, "room_id", roomId, "conn_id", connId)
	conns, ok := r.rooms[roomId]
	if !ok {
		return 0, connection.ErrNotFound
	}

	if _, ok := conns[connId]; !ok {
		return len(conns), connection.ErrNotFound
	}

	delete(conns, connId)
	remaining := len(conns)
	if remaining == 0 {
		delete(r.rooms, roomId)
	}

	return remaining, nil
}

func (r *repo) GetConns(_ context.Context, roomId string) []connection.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Values(r.rooms[roomId])
}

func (r *repo) Count(_ context.Context, roomId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomId])
}
