// Package protocol holds the JSON messages exchanged between the relay and sync clients.
package protocol

import (
	"encoding/json"
	"fmt"
)

const (
	TypeInitialState   = "initialState"
	TypeRoomInfoUpdate = "roomInfoUpdate"
	TypePlayerState    = "playerState"
	TypeChatMessage    = "chatMessage"
	TypeError          = "error"
)

// Status uses the numeric values of the YouTube IFrame player API.
type Status int

const (
	StatusUnstarted Status = -1
	StatusEnded     Status = 0
	StatusPlaying   Status = 1
	StatusPaused    Status = 2
	StatusBuffering Status = 3
	StatusCued      Status = 5
)

func (s Status) String() string {
	switch s {
	case StatusUnstarted:
		return "unstarted"
	case StatusEnded:
		return "ended"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusBuffering:
		return "buffering"
	case StatusCued:
		return "cued"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

func (s Status) Valid() bool {
	switch s {
	case StatusUnstarted, StatusEnded, StatusPlaying, StatusPaused, StatusBuffering, StatusCued:
		return true
	}
	return false
}

// Message is the envelope of every frame on the wire.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Output is the sending side of Message, payload is marshalled as is.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type PlayerState struct {
	Status    Status  `json:"status"`
	Position  float64 `json:"position"`
	UpdatedAt int64   `json:"updatedAt,omitempty"`
}

type ChatMessage struct {
	Nickname string `json:"nickname"`
	Body     string `json:"body"`
}

// RoomInfo is the payload of initialState and roomInfoUpdate.
type RoomInfo struct {
	RoomID      string      `json:"roomId"`
	VideoID     string      `json:"videoId"`
	VideoTitle  string      `json:"videoTitle"`
	Icebreakers []string    `json:"icebreakers"`
	PlayerState PlayerState `json:"playerState"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeUnknownType  = "unknown_type"
	ErrCodeRoomNotFound = "room_not_found"
	ErrCodeRateLimited  = "rate_limited"
)

func Encode(messageType string, payload any) ([]byte, error) {
	return json.Marshal(&Output{Type: messageType, Payload: payload})
}

func Decode(data []byte) (Message, error) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	if msg.Type == "" {
		return Message{}, fmt.Errorf("message type is empty")
	}
	return msg, nil
}

// UnmarshalPayload decodes the payload of msg into v.
func UnmarshalPayload(msg Message, v any) error {
	if len(msg.Payload) == 0 {
		return fmt.Errorf("%s: empty payload", msg.Type)
	}
	return json.Unmarshal(msg.Payload, v)
}
