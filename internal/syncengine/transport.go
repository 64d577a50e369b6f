package syncengine

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/sharetube/watchsync/internal/protocol"
)

// closeRoomNotFound is the close code the relay uses when the room vanished before join.
const closeRoomNotFound websocket.StatusCode = 4004

// Transport is one connection to the relay.
type Transport interface {
	Read(ctx context.Context) (protocol.Message, error)
	Write(ctx context.Context, msg protocol.Output) error
	Ping(ctx context.Context) error
	Close() error
}

// DialFunc opens a new Transport, it is called again on every reconnect.
type DialFunc func(ctx context.Context) (Transport, error)

type TransportConfig struct {
	// ServerURL is the relay base URL, e.g. ws://localhost:8080.
	ServerURL string
	RoomID    string
	// VideoHint is sent as ?v= so a relay with ad-hoc rooms can create the room on first join.
	VideoHint        string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadLimit        int64
	HTTPClient       *http.Client
}

func DefaultTransportConfig() TransportConfig {
	return TransportConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadLimit:        64 << 10,
	}
}

// RoomURL builds the websocket endpoint of the room.
func (cfg TransportConfig) RoomURL() (string, error) {
	if cfg.RoomID == "" {
		return "", errors.New("room id is empty")
	}

	u, err := url.Parse(strings.TrimRight(cfg.ServerURL, "/"))
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss", "http", "https":
	default:
		return "", fmt.Errorf("unsupported server url scheme %q", u.Scheme)
	}

	u = u.JoinPath("api", "v1", "ws", "room", cfg.RoomID)
	if cfg.VideoHint != "" {
		q := u.Query()
		q.Set("v", cfg.VideoHint)
		u.RawQuery = q.Encode()
	}

	return u.String(), nil
}

type WSTransport struct {
	conn         *websocket.Conn
	writeTimeout time.Duration

	closeOnce sync.Once
	closeErr  error
}

func DialWS(ctx context.Context, cfg TransportConfig) (*WSTransport, error) {
	def := DefaultTransportConfig()
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = def.HandshakeTimeout
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.ReadLimit <= 0 {
		cfg.ReadLimit = def.ReadLimit
	}

	u, err := cfg.RoomURL()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, cfg.HandshakeTimeout)
	defer cancel()

	conn, resp, err := websocket.Dial(dialCtx, u, &websocket.DialOptions{
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return nil, ErrRoomNotFound
		}
		return nil, fmt.Errorf("%w: dial %s: %w", ErrTransportLost, u, err)
	}
	conn.SetReadLimit(cfg.ReadLimit)

	return &WSTransport{
		conn:         conn,
		writeTimeout: cfg.WriteTimeout,
	}, nil
}

// NewDialer returns a DialFunc dialing the room described by cfg.
func NewDialer(cfg TransportConfig) DialFunc {
	return func(ctx context.Context) (Transport, error) {
		return DialWS(ctx, cfg)
	}
}

func (t *WSTransport) Read(ctx context.Context) (protocol.Message, error) {
	var msg protocol.Message
	if err := wsjson.Read(ctx, t.conn, &msg); err != nil {
		if websocket.CloseStatus(err) == closeRoomNotFound {
			return protocol.Message{}, ErrRoomNotFound
		}
		return protocol.Message{}, fmt.Errorf("%w: %w", ErrTransportLost, err)
	}
	return msg, nil
}

func (t *WSTransport) Write(ctx context.Context, msg protocol.Output) error {
	ctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()

	if err := wsjson.Write(ctx, t.conn, msg); err != nil {
		return fmt.Errorf("%w: %w", ErrTransportLost, err)
	}
	return nil
}

func (t *WSTransport) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, t.writeTimeout)
	defer cancel()

	if err := t.conn.Ping(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrTransportLost, err)
	}
	return nil
}

func (t *WSTransport) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close(websocket.StatusNormalClosure, "")
	})
	return t.closeErr
}
