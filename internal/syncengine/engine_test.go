package syncengine

import (
	"fmt"
	"sync"
	"testing"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	mu          sync.Mutex
	status      protocol.Status
	position    float64
	commands    []string
	loads       []string
	unavailable int
}

func newFakePlayer() *fakePlayer {
	return &fakePlayer{status: protocol.StatusUnstarted}
}

func (p *fakePlayer) LoadOrCreate(videoId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.loads = append(p.loads, videoId)
	if p.unavailable > 0 {
		p.unavailable--
		return ErrPlayerBackendUnavailable
	}
	p.status = protocol.StatusCued
	return nil
}

func (p *fakePlayer) SeekTo(position float64, _ bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = position
	p.commands = append(p.commands, fmt.Sprintf("seek %.1f", position))
}

func (p *fakePlayer) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = protocol.StatusPlaying
	p.commands = append(p.commands, "play")
}

func (p *fakePlayer) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status = protocol.StatusPaused
	p.commands = append(p.commands, "pause")
}

func (p *fakePlayer) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position
}

func (p *fakePlayer) State() protocol.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *fakePlayer) Commands() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.commands...)
}

func (p *fakePlayer) Loads() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.loads...)
}

func (p *fakePlayer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.commands = nil
}

func readyEngine(p *fakePlayer) *Engine {
	e := NewEngine(p, 1.5)
	e.HandlePlayerReady()
	return e
}

func TestEngineBuffersUntilReady(t *testing.T) {
	p := newFakePlayer()
	e := NewEngine(p, 1.5)

	_, armed := e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPaused, Position: 42}, true)
	assert.False(t, armed)
	assert.Empty(t, p.Commands())

	state, forced, ok := e.PendingState()
	require.True(t, ok)
	assert.True(t, forced)
	assert.Equal(t, 42.0, state.Position)

	_, armed = e.HandlePlayerReady()
	assert.True(t, armed)
	assert.Equal(t, []string{"seek 42.0", "pause"}, p.Commands())

	_, _, ok = e.PendingState()
	assert.False(t, ok)
}

func TestEngineForcedPendingIsSticky(t *testing.T) {
	p := newFakePlayer()
	e := NewEngine(p, 1.5)

	e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPaused, Position: 1}, true)
	e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPlaying, Position: 0.5}, false)

	state, forced, ok := e.PendingState()
	require.True(t, ok)
	assert.True(t, forced)
	assert.Equal(t, protocol.StatusPlaying, state.Status)

	// within the drift threshold, only forcing makes it seek
	e.HandlePlayerReady()
	assert.Equal(t, []string{"seek 0.5", "play"}, p.Commands())
}

func TestEngineIgnoresUnstarted(t *testing.T) {
	p := newFakePlayer()
	e := readyEngine(p)

	_, armed := e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusUnstarted, Position: 30}, true)
	assert.False(t, armed)
	assert.False(t, e.EchoArmed())
	assert.Empty(t, p.Commands())
}

func TestEngineDriftThreshold(t *testing.T) {
	cases := []struct {
		name     string
		position float64
		commands []string
	}{
		{"equal to threshold", 11.5, nil},
		{"below threshold", 9.0, nil},
		{"above threshold", 11.6, []string{"seek 11.6"}},
		{"above threshold backwards", 8.4, []string{"seek 8.4"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := newFakePlayer()
			p.status = protocol.StatusPaused
			p.position = 10
			e := readyEngine(p)

			e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPaused, Position: tc.position}, false)
			assert.Equal(t, tc.commands, p.Commands())
		})
	}
}

func TestEngineIsIdempotent(t *testing.T) {
	p := newFakePlayer()
	e := readyEngine(p)
	state := protocol.PlayerState{Status: protocol.StatusPlaying, Position: 45}

	e.HandleRemoteState(state, false)
	assert.Equal(t, []string{"seek 45.0", "play"}, p.Commands())

	p.reset()
	e.HandleRemoteState(state, false)
	assert.Empty(t, p.Commands())
}

func TestEngineSuppressesEchoes(t *testing.T) {
	p := newFakePlayer()
	e := readyEngine(p)

	gen, armed := e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPlaying, Position: 45}, false)
	require.True(t, armed)
	assert.Nil(t, e.HandlePlayerStateChange(protocol.StatusBuffering))
	assert.Nil(t, e.HandlePlayerStateChange(protocol.StatusPlaying))

	// a newer reconciliation keeps the window open past the older timer
	newer, _ := e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPaused, Position: 45}, false)
	e.Disarm(gen)
	assert.True(t, e.EchoArmed())
	assert.Nil(t, e.HandlePlayerStateChange(protocol.StatusPaused))

	e.Disarm(newer)
	assert.False(t, e.EchoArmed())

	state := e.HandlePlayerStateChange(protocol.StatusPlaying)
	require.NotNil(t, state)
	assert.Equal(t, protocol.PlayerState{Status: protocol.StatusPlaying, Position: 45}, *state)
}

func TestEngineDropsNotificationsBeforeReady(t *testing.T) {
	e := NewEngine(newFakePlayer(), 1.5)
	assert.Nil(t, e.HandlePlayerStateChange(protocol.StatusPlaying))
}

func TestEngineReadyIsIdempotent(t *testing.T) {
	p := newFakePlayer()
	e := NewEngine(p, 1.5)
	e.HandleRemoteState(protocol.PlayerState{Status: protocol.StatusPaused, Position: 42}, true)

	_, armed := e.HandlePlayerReady()
	assert.True(t, armed)
	_, armed = e.HandlePlayerReady()
	assert.False(t, armed)
	assert.Equal(t, []string{"seek 42.0", "pause"}, p.Commands())
}
