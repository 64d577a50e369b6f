package room

type Room struct {
	RoomId      string
	VideoId     string
	VideoTitle  string
	Icebreakers []string
	Player      Player
}
