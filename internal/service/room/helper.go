package room

import (
	"context"
	"errors"
	"sync"

	"github.com/sharetube/watchsync/internal/icebreaker"
	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/repository/room"
)

type refMutex struct {
	sync.Mutex
	refs int
}

// keyedMutex hands out one mutex per room id and forgets it once nobody holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*refMutex)}
}

func (k *keyedMutex) Lock(key string) (unlock func()) {
	k.mu.Lock()
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()

		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}

func (s service) getRoom(ctx context.Context, roomId string) (room.Room, error) {
	r, err := s.roomRepo.GetRoom(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrRoomNotFound) {
			return room.Room{}, ErrRoomNotFound
		}
		return room.Room{}, err
	}

	return r, nil
}

// generateIcebreakers never fails, a generator error degrades to the default prompt.
func (s service) generateIcebreakers(ctx context.Context, videoTitle string) []string {
	items, err := s.icebreakers.Generate(ctx, videoTitle)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to generate icebreakers", "error", err)
		return []string{icebreaker.DefaultPrompt}
	}
	if len(items) == 0 {
		return []string{icebreaker.DefaultPrompt}
	}

	return items
}

func toPlayerState(p room.Player) protocol.PlayerState {
	return protocol.PlayerState{
		Status:    protocol.Status(p.Status),
		Position:  p.Position,
		UpdatedAt: p.UpdatedAt,
	}
}

func toRoomInfo(r room.Room) protocol.RoomInfo {
	icebreakers := r.Icebreakers
	if icebreakers == nil {
		icebreakers = []string{}
	}

	return protocol.RoomInfo{
		RoomID:      r.RoomId,
		VideoID:     r.VideoId,
		VideoTitle:  r.VideoTitle,
		Icebreakers: icebreakers,
		PlayerState: toPlayerState(r.Player),
	}
}
