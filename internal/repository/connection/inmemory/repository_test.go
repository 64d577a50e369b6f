package inmemory

import (
	"context"
	"log/slog"
	"testing"

	"github.com/sharetube/watchsync/internal/repository/connection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConn struct {
	id string
}

func (c testConn) Id() string         { return c.id }
func (c testConn) Send(_ []byte) bool { return true }
func (c testConn) Close()             {}

func TestAddAndRemove(t *testing.T) {
	r := NewRepo(slog.Default())
	ctx := context.Background()

	require.NoError(t, r.Add(ctx, "a", testConn{"1"}))
	require.NoError(t, r.Add(ctx, "a", testConn{"2"}))
	require.NoError(t, r.Add(ctx, "b", testConn{"3"}))
	assert.ErrorIs(t, r.Add(ctx, "a", testConn{"1"}), connection.ErrAlreadyExists)

	assert.Equal(t, 2, r.Count(ctx, "a"))
	assert.Len(t, r.GetConns(ctx, "b"), 1)

	remaining, err := r.Remove(ctx, "a", "1")
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	_, err = r.Remove(ctx, "a", "1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	remaining, err = r.Remove(ctx, "a", "2")
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)
	assert.Empty(t, r.GetConns(ctx, "a"))

	_, err = r.Remove(ctx, "a", "2")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}
