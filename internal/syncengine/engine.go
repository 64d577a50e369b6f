package syncengine

import (
	"math"

	"github.com/sharetube/watchsync/internal/protocol"
)

type pendingState struct {
	state  protocol.PlayerState
	forced bool
}

// Engine reconciles a local Player with the room's player state. It performs no I/O
// and starts no goroutines, callers serialize every call.
type Engine struct {
	player         Player
	driftThreshold float64

	ready   bool
	pending *pendingState

	armed      bool
	generation uint64
}

func NewEngine(player Player, driftThreshold float64) *Engine {
	return &Engine{
		player:         player,
		driftThreshold: driftThreshold,
	}
}

// HandleRemoteState applies state to the player, or buffers it until the player is ready.
// forced seeks regardless of drift and is used for join-time hydration. When echo
// suppression was armed the returned generation must be passed to Disarm after the
// grace window.
func (e *Engine) HandleRemoteState(state protocol.PlayerState, forced bool) (generation uint64, armed bool) {
	if !e.ready {
		// a buffered hydration stays forced even if a live update overwrites it
		if e.pending != nil && e.pending.forced {
			forced = true
		}
		e.pending = &pendingState{state: state, forced: forced}
		return 0, false
	}

	return e.reconcile(state, forced)
}

// HandlePlayerReady marks the player ready and applies the buffered state if any.
func (e *Engine) HandlePlayerReady() (generation uint64, armed bool) {
	if e.ready {
		return 0, false
	}
	e.ready = true

	if e.pending == nil {
		return 0, false
	}
	p := *e.pending
	e.pending = nil

	return e.reconcile(p.state, p.forced)
}

func (e *Engine) reconcile(state protocol.PlayerState, forced bool) (uint64, bool) {
	if state.Status == protocol.StatusUnstarted {
		return 0, false
	}

	e.generation++
	e.armed = true

	drift := math.Abs(e.player.CurrentTime() - state.Position)
	if drift > e.driftThreshold || forced {
		e.player.SeekTo(state.Position, true)
	}

	switch state.Status {
	case protocol.StatusPlaying:
		if e.player.State() != protocol.StatusPlaying {
			e.player.Play()
		}
	case protocol.StatusPaused:
		if e.player.State() != protocol.StatusPaused {
			e.player.Pause()
		}
	}

	return e.generation, true
}

// HandlePlayerStateChange returns the state to publish for a player notification,
// or nil when the notification is an echo of the engine's own commands.
func (e *Engine) HandlePlayerStateChange(status protocol.Status) *protocol.PlayerState {
	if e.armed || !e.ready {
		return nil
	}

	return &protocol.PlayerState{
		Status:   status,
		Position: e.player.CurrentTime(),
	}
}

// Disarm ends echo suppression unless a newer reconciliation armed it again.
func (e *Engine) Disarm(generation uint64) {
	if generation == e.generation {
		e.armed = false
	}
}

func (e *Engine) Ready() bool {
	return e.ready
}

func (e *Engine) EchoArmed() bool {
	return e.armed
}

func (e *Engine) PendingState() (state protocol.PlayerState, forced bool, ok bool) {
	if e.pending == nil {
		return protocol.PlayerState{}, false, false
	}
	return e.pending.state, e.pending.forced, true
}
