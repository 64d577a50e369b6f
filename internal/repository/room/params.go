package room

import "time"

type SetRoomParams struct {
	RoomId      string
	VideoId     string
	VideoTitle  string
	Icebreakers []string
	Player      Player
}

type UpdateRoomInfoParams struct {
	RoomId      string
	VideoTitle  string
	Icebreakers []string
}

// UpdatePlayerParams carries no UpdatedAt, the store assigns it.
type UpdatePlayerParams struct {
	RoomId   string
	Status   int
	Position float64
}

type ExpireRoomParams struct {
	RoomId string
	TTL    time.Duration
}
