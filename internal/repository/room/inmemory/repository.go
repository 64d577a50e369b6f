package inmemory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/sharetube/watchsync/internal/repository/room"
)

type entry struct {
	room     room.Room
	expireAt time.Time
}

type repo struct {
	rooms map[string]*entry
	mu    sync.RWMutex
	now   func() time.Time
	stop  chan struct{}
}

// NewRepo keeps rooms in process memory. Expired rooms are swept every cleanupInterval
// and are invisible to readers as soon as they expire.
func NewRepo(cleanupInterval time.Duration) *repo {
	r := &repo{
		rooms: make(map[string]*entry),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go r.cleanup(cleanupInterval)
	}

	return r
}

func (r *repo) Close() {
	close(r.stop)
}

func (r *repo) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case <-ticker.C:
			r.removeExpired()
		}
	}
}

func (r *repo) removeExpired() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for id, e := range r.rooms {
		if r.expired(e, now) {
			delete(r.rooms, id)
		}
	}
}

func (r *repo) expired(e *entry, now time.Time) bool {
	return !e.expireAt.IsZero() && !now.Before(e.expireAt)
}

// get must be called with mu held.
func (r *repo) get(roomId string) (*entry, bool) {
	e, ok := r.rooms[roomId]
	if !ok || r.expired(e, r.now()) {
		return nil, false
	}

	return e, true
}

func (r *repo) SetRoom(_ context.Context, params *room.SetRoomParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.get(params.RoomId); ok {
		return room.ErrRoomAlreadyExists
	}

	r.rooms[params.RoomId] = &entry{
		room: room.Room{
			RoomId:      params.RoomId,
			VideoId:     params.VideoId,
			VideoTitle:  params.VideoTitle,
			Icebreakers: slices.Clone(params.Icebreakers),
			Player:      params.Player,
		},
	}

	return nil
}

func (r *repo) GetRoom(_ context.Context, roomId string) (room.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.get(roomId)
	if !ok {
		return room.Room{}, room.ErrRoomNotFound
	}

	res := e.room
	res.Icebreakers = slices.Clone(e.room.Icebreakers)
	return res, nil
}

func (r *repo) UpdateRoomInfo(_ context.Context, params *room.UpdateRoomInfoParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.get(params.RoomId)
	if !ok {
		return room.ErrRoomNotFound
	}

	e.room.VideoTitle = params.VideoTitle
	e.room.Icebreakers = slices.Clone(params.Icebreakers)
	return nil
}

func (r *repo) UpdatePlayer(_ context.Context, params *room.UpdatePlayerParams) (room.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.get(params.RoomId)
	if !ok {
		return room.Player{}, room.ErrRoomNotFound
	}

	e.room.Player = room.Player{
		Status:    params.Status,
		Position:  params.Position,
		UpdatedAt: e.room.Player.UpdatedAt + 1,
	}

	return e.room.Player, nil
}

func (r *repo) ExpireRoom(_ context.Context, params *room.ExpireRoomParams) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.get(params.RoomId)
	if !ok {
		return room.ErrRoomNotFound
	}

	e.expireAt = r.now().Add(params.TTL)
	return nil
}

func (r *repo) PersistRoom(_ context.Context, roomId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.get(roomId)
	if !ok {
		return room.ErrRoomNotFound
	}

	e.expireAt = time.Time{}
	return nil
}
