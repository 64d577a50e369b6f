package redis

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/watchsync/internal/repository/room"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) (*repo, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, slog.Default(), time.Hour), s
}

func TestSetAndGetRoom(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	err := r.SetRoom(ctx, &room.SetRoomParams{
		RoomId:      "r1",
		VideoId:     "dQw4w9WgXcQ",
		VideoTitle:  "title",
		Icebreakers: []string{"one?", "two?"},
		Player:      room.Player{Status: -1},
	})
	require.NoError(t, err)

	got, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "r1", got.RoomId)
	assert.Equal(t, "dQw4w9WgXcQ", got.VideoId)
	assert.Equal(t, "title", got.VideoTitle)
	assert.Equal(t, []string{"one?", "two?"}, got.Icebreakers)
	assert.Equal(t, -1, got.Player.Status)
	assert.Equal(t, int64(0), got.Player.UpdatedAt)
}

func TestSetRoomTwiceKeepsFirstVideo(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "aaaaaaaaaaa"}))
	err := r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "bbbbbbbbbbb"})
	assert.ErrorIs(t, err, room.ErrRoomAlreadyExists)

	got, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaaa", got.VideoId)
}

func TestGetRoomNotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.GetRoom(context.Background(), "missing")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdatePlayerLastWriteWins(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "aaaaaaaaaaa", Player: room.Player{Status: -1}}))

	first, err := r.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "r1", Status: 1, Position: 10})
	require.NoError(t, err)
	second, err := r.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "r1", Status: 2, Position: 42.5})
	require.NoError(t, err)
	assert.Greater(t, second.UpdatedAt, first.UpdatedAt)

	player, err := r.GetPlayer(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, room.Player{Status: 2, Position: 42.5, UpdatedAt: second.UpdatedAt}, player)
}

func TestUpdatePlayerRoomNotFound(t *testing.T) {
	r, _ := newTestRepo(t)

	_, err := r.UpdatePlayer(context.Background(), &room.UpdatePlayerParams{RoomId: "missing", Status: 1})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestUpdateRoomInfo(t *testing.T) {
	r, _ := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "aaaaaaaaaaa", VideoTitle: "Loading title..."}))

	require.NoError(t, r.UpdateRoomInfo(ctx, &room.UpdateRoomInfoParams{
		RoomId:      "r1",
		VideoTitle:  "Real title",
		Icebreakers: []string{"q?"},
	}))

	got, err := r.GetRoom(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "Real title", got.VideoTitle)
	assert.Equal(t, []string{"q?"}, got.Icebreakers)

	err = r.UpdateRoomInfo(ctx, &room.UpdateRoomInfoParams{RoomId: "missing"})
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}

func TestExpireAndPersistRoom(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "aaaaaaaaaaa"}))
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r2", VideoId: "bbbbbbbbbbb"}))

	require.NoError(t, r.ExpireRoom(ctx, &room.ExpireRoomParams{RoomId: "r1", TTL: time.Minute}))
	require.NoError(t, r.ExpireRoom(ctx, &room.ExpireRoomParams{RoomId: "r2", TTL: time.Minute}))
	require.NoError(t, r.PersistRoom(ctx, "r2"))

	s.FastForward(2 * time.Minute)

	_, err := r.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)

	_, err = r.GetRoom(ctx, "r2")
	assert.NoError(t, err)
}

func TestUpdatePlayerRefreshesExpiry(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "aaaaaaaaaaa"}))

	s.FastForward(50 * time.Minute)
	assert.Equal(t, 10*time.Minute, s.TTL(r.getRoomKey("r1")))

	_, err := r.UpdatePlayer(ctx, &room.UpdatePlayerParams{RoomId: "r1", Status: 1, Position: 3})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.TTL(r.getRoomKey("r1")))
	assert.Equal(t, time.Hour, s.TTL(r.getPlayerKey("r1")))

	s.FastForward(30 * time.Minute)
	_, err = r.GetRoom(ctx, "r1")
	assert.NoError(t, err)
}

func TestGetRoomWithoutPlayerIsNotFound(t *testing.T) {
	r, s := newTestRepo(t)
	ctx := context.Background()
	require.NoError(t, r.SetRoom(ctx, &room.SetRoomParams{RoomId: "r1", VideoId: "aaaaaaaaaaa"}))

	s.Del(r.getPlayerKey("r1"))

	_, err := r.GetRoom(ctx, "r1")
	assert.ErrorIs(t, err, room.ErrRoomNotFound)
}
