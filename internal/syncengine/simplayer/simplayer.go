// Package simplayer is a headless, clock-driven player backend. It behaves like an
// embedded video player: notifications are delivered asynchronously and in order,
// commanded transitions included.
package simplayer

import (
	"sync"
	"time"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/syncengine"
)

type notification struct {
	ready  bool
	status protocol.Status
}

type Player struct {
	mu       sync.Mutex
	now      func() time.Time
	videoId  string
	status   protocol.Status
	position float64
	// anchor is when position was last sampled while playing
	anchor time.Time

	unavailable int
	readyDelay  time.Duration

	handlersMu    sync.Mutex
	onReady       func()
	onStateChange func(protocol.Status)

	notifications chan notification
	closeOnce     sync.Once
	done          chan struct{}
}

type Option func(*Player)

// WithClock replaces time.Now, used to advance playback deterministically.
func WithClock(now func() time.Time) Option {
	return func(p *Player) {
		p.now = now
	}
}

// WithUnavailableAttempts makes the first n LoadOrCreate calls fail as if the backend was still loading.
func WithUnavailableAttempts(n int) Option {
	return func(p *Player) {
		p.unavailable = n
	}
}

// WithReadyDelay delays the ready notification after a successful load.
func WithReadyDelay(d time.Duration) Option {
	return func(p *Player) {
		p.readyDelay = d
	}
}

func WithOnReady(fn func()) Option {
	return func(p *Player) {
		p.onReady = fn
	}
}

func WithOnStateChange(fn func(protocol.Status)) Option {
	return func(p *Player) {
		p.onStateChange = fn
	}
}

func New(opts ...Option) *Player {
	p := &Player{
		now:           time.Now,
		status:        protocol.StatusUnstarted,
		notifications: make(chan notification, 64),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	go p.deliver()

	return p
}

// SetHandlers wires notifications after construction, for backends created before their session.
func (p *Player) SetHandlers(onReady func(), onStateChange func(protocol.Status)) {
	p.handlersMu.Lock()
	defer p.handlersMu.Unlock()
	p.onReady = onReady
	p.onStateChange = onStateChange
}

func (p *Player) Close() {
	p.closeOnce.Do(func() {
		close(p.done)
	})
}

func (p *Player) LoadOrCreate(videoId string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.unavailable > 0 {
		p.unavailable--
		return syncengine.ErrPlayerBackendUnavailable
	}
	if p.videoId == videoId {
		return nil
	}

	p.videoId = videoId
	p.position = 0
	p.status = protocol.StatusCued

	if p.readyDelay > 0 {
		time.AfterFunc(p.readyDelay, func() {
			p.emit(notification{ready: true})
		})
	} else {
		p.emit(notification{ready: true})
	}

	return nil
}

func (p *Player) VideoID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.videoId
}

// SeekTo moves the playhead. A seek while playing rebuffers and resumes.
func (p *Player) SeekTo(position float64, _ bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if position < 0 {
		position = 0
	}
	p.position = position
	p.anchor = p.now()

	if p.status == protocol.StatusPlaying {
		p.emit(notification{status: protocol.StatusBuffering})
		p.emit(notification{status: protocol.StatusPlaying})
	}
}

func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == protocol.StatusPlaying {
		return
	}
	p.anchor = p.now()
	p.setStatus(protocol.StatusPlaying)
}

func (p *Player) Pause() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.status == protocol.StatusPaused {
		return
	}
	p.position = p.currentTime()
	p.setStatus(protocol.StatusPaused)
}

func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentTime()
}

func (p *Player) State() protocol.Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

func (p *Player) currentTime() float64 {
	if p.status != protocol.StatusPlaying {
		return p.position
	}
	return p.position + p.now().Sub(p.anchor).Seconds()
}

func (p *Player) setStatus(status protocol.Status) {
	p.status = status
	p.emit(notification{status: status})
}

func (p *Player) emit(n notification) {
	select {
	case p.notifications <- n:
	case <-p.done:
	}
}

func (p *Player) deliver() {
	for {
		select {
		case <-p.done:
			return
		case n := <-p.notifications:
			p.handlersMu.Lock()
			onReady, onStateChange := p.onReady, p.onStateChange
			p.handlersMu.Unlock()

			if n.ready {
				if onReady != nil {
					onReady()
				}
			} else if onStateChange != nil {
				onStateChange(n.status)
			}
		}
	}
}
