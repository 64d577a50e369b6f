package syncengine

import "github.com/sharetube/watchsync/internal/protocol"

// Player is the media player backend driven by the engine. The engine issues commands
// from the session's dispatch goroutine, a backend also driven by a user must be safe
// for concurrent use. Backends report readiness and every status transition, commanded
// ones included, through Session.NotifyPlayerReady and Session.NotifyPlayerStateChange.
type Player interface {
	LoadOrCreate(videoId string) error
	SeekTo(position float64, allowSeekAhead bool)
	Play()
	Pause()
	CurrentTime() float64
	State() protocol.Status
}
