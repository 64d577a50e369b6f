package syncengine

import "errors"

var (
	// ErrRoomNotFound is terminal, the session stops reconnecting.
	ErrRoomNotFound = errors.New("room not found")
	// ErrTransportLost means the relay link dropped. The session reconnects and re-hydrates.
	ErrTransportLost = errors.New("transport lost")
	// ErrPlayerBackendUnavailable is returned by Player.LoadOrCreate while the backend
	// cannot accept commands yet. The session retries silently.
	ErrPlayerBackendUnavailable = errors.New("player backend unavailable")

	ErrSessionClosed     = errors.New("session closed")
	ErrNotConnected      = errors.New("not connected")
	ErrOutboundQueueFull = errors.New("outbound queue is full")
	ErrEmptyChatMessage  = errors.New("chat message body is empty")
)
