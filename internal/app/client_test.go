package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/watchsync/internal/controller"
	"github.com/sharetube/watchsync/internal/icebreaker"
	"github.com/sharetube/watchsync/internal/protocol"
	connInmemory "github.com/sharetube/watchsync/internal/repository/connection/inmemory"
	roomInmemory "github.com/sharetube/watchsync/internal/repository/room/inmemory"
	roomService "github.com/sharetube/watchsync/internal/service/room"
	"github.com/sharetube/watchsync/pkg/ytvideodata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type titleResolver struct{}

func (titleResolver) Get(_ context.Context, videoId string) (*ytvideodata.VideoData, error) {
	return &ytvideodata.VideoData{Title: "title of " + videoId}, nil
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func validClientConfig() *ClientConfig {
	return &ClientConfig{
		ServerURL:      "ws://localhost:8080",
		RoomID:         "party",
		Nickname:       "carol",
		LogLevel:       "error",
		DriftThreshold: 1.5,
		EchoGrace:      150 * time.Millisecond,
	}
}

func TestClientConfigValidate(t *testing.T) {
	require.NoError(t, validClientConfig().Validate())

	cases := map[string]func(*ClientConfig){
		"server url": func(c *ClientConfig) { c.ServerURL = "" },
		"room id":    func(c *ClientConfig) { c.RoomID = "" },
		"drift":      func(c *ClientConfig) { c.DriftThreshold = 0 },
		"echo grace": func(c *ClientConfig) { c.EchoGrace = 0 },
		"log level":  func(c *ClientConfig) { c.LogLevel = "loud" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validClientConfig()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func readUntil(t *testing.T, conn *websocket.Conn, messageType string) protocol.Message {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)

		msg, err := protocol.Decode(data)
		require.NoError(t, err)
		if msg.Type == messageType {
			return msg
		}
	}
}

func TestRunClient(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	roomRepo := roomInmemory.NewRepo(0)
	t.Cleanup(roomRepo.Close)
	service := roomService.NewService(roomRepo, connInmemory.NewRepo(logger), titleResolver{}, icebreaker.StaticGenerator{}, logger, roomService.Config{AllowAdHocRooms: true})
	srv := httptest.NewServer(controller.NewController(service, logger, controller.DefaultConfig()).GetMux())
	t.Cleanup(srv.Close)

	peer, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/v1/ws/room/party?v=dQw4w9WgXcQ", nil)
	require.NoError(t, err)
	t.Cleanup(func() { peer.Close() })
	readUntil(t, peer, protocol.TypeInitialState)

	cfg := validClientConfig()
	cfg.ServerURL = srv.URL
	cfg.VideoHint = "dQw4w9WgXcQ"

	in, stdin := io.Pipe()
	out := &syncBuffer{}
	done := make(chan error, 1)
	go func() {
		done <- RunClient(context.Background(), cfg, in, out)
	}()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "* player ready")
	}, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, out.String(), "* room party:")

	_, err = io.WriteString(stdin, "/seek 30\n/play\n")
	require.NoError(t, err)

	var state protocol.PlayerState
	require.NoError(t, protocol.UnmarshalPayload(readUntil(t, peer, protocol.TypePlayerState), &state))
	assert.Equal(t, protocol.StatusPlaying, state.Status)
	assert.InDelta(t, 30, state.Position, 1)

	_, err = io.WriteString(stdin, "hello there\n/bogus\n")
	require.NoError(t, err)

	var chat protocol.ChatMessage
	require.NoError(t, protocol.UnmarshalPayload(readUntil(t, peer, protocol.TypeChatMessage), &chat))
	assert.Equal(t, protocol.ChatMessage{Nickname: "carol", Body: "hello there"}, chat)

	data, err := protocol.Encode(protocol.TypeChatMessage, protocol.ChatMessage{Nickname: "bob", Body: "yo"})
	require.NoError(t, err)
	require.NoError(t, peer.WriteMessage(websocket.TextMessage, data))

	require.Eventually(t, func() bool {
		s := out.String()
		return strings.Contains(s, "<bob> yo") && strings.Contains(s, "! unknown command /bogus")
	}, 2*time.Second, 10*time.Millisecond)

	_, err = io.WriteString(stdin, "/quit\n")
	require.NoError(t, err)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("client did not exit")
	}
}
