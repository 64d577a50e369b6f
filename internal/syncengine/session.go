package syncengine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sharetube/watchsync/internal/protocol"
)

const DefaultNickname = "Guest"

type (
	connectingEvent   struct{}
	connectedEvent    struct{ out chan<- protocol.Output }
	disconnectedEvent struct{ err error }
	messageEvent      struct{ msg protocol.Message }
	playerReadyEvent  struct{}
	playerStateEvent  struct{ status protocol.Status }
	disarmEvent       struct{ generation uint64 }
	loadPlayerEvent   struct{ videoId string }
	sendChatEvent     struct {
		msg protocol.ChatMessage
		res chan error
	}
)

// Session keeps one local player in sync with a room. Every event, inbound message,
// player notification and timer expiry is handled on a single dispatch goroutine,
// so reconciliation and publication never interleave.
type Session struct {
	cfg    Config
	player Player
	dial   DialFunc
	logger *slog.Logger
	engine *Engine

	events chan any
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once
	readyOnce sync.Once
	ready     chan struct{}

	state atomic.Int32
	mu    sync.RWMutex
	err   error
	room  *protocol.RoomInfo

	// owned by the dispatch goroutine
	out          chan<- protocol.Output
	videoId      string
	playerLoaded bool

	onChat         func(protocol.ChatMessage)
	onRoomInfo     func(protocol.RoomInfo)
	onStateChanged func(StateEvent)
}

func NewSession(player Player, dial DialFunc, cfg Config) *Session {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		cfg:    cfg,
		player: player,
		dial:   dial,
		logger: cfg.Logger,
		engine: NewEngine(player, cfg.DriftThreshold),
		events: make(chan any, 64),
		ctx:    ctx,
		cancel: cancel,
		ready:  make(chan struct{}),
	}
}

// OnChat sets the chat handler. Handlers must be set before Start and run on the
// dispatch goroutine, they should return quickly.
func (s *Session) OnChat(fn func(protocol.ChatMessage)) {
	s.onChat = fn
}

func (s *Session) OnRoomInfo(fn func(protocol.RoomInfo)) {
	s.onRoomInfo = fn
}

func (s *Session) OnStateChanged(fn func(StateEvent)) {
	s.onStateChanged = fn
}

func (s *Session) Start() {
	s.startOnce.Do(func() {
		s.wg.Add(2)
		go s.dispatch()
		go s.connectLoop()
	})
}

// Close stops the session and waits for its goroutines. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.wg.Wait()
		s.setState(StateClosed, nil)
	})
	return nil
}

// Done is closed once the session stops, by Close or a terminal error.
func (s *Session) Done() <-chan struct{} {
	return s.ctx.Done()
}

// Err returns the terminal error that stopped the session, if any.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

func (s *Session) State() ConnectionState {
	return ConnectionState(s.state.Load())
}

// Room returns the last room metadata received from the relay.
func (s *Session) Room() (protocol.RoomInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.room == nil {
		return protocol.RoomInfo{}, false
	}
	return *s.room, true
}

// NotifyPlayerReady is called by the player backend once it accepts commands.
func (s *Session) NotifyPlayerReady() {
	s.post(playerReadyEvent{})
}

// NotifyPlayerStateChange is called by the player backend on every status transition.
func (s *Session) NotifyPlayerStateChange(status protocol.Status) {
	s.post(playerStateEvent{status: status})
}

func (s *Session) WaitPlayerReady(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return ErrSessionClosed
	}
}

// SendChat publishes a chat message to the other participants. An empty nickname
// is sent as DefaultNickname.
func (s *Session) SendChat(ctx context.Context, nickname, body string) (protocol.ChatMessage, error) {
	if strings.TrimSpace(body) == "" {
		return protocol.ChatMessage{}, ErrEmptyChatMessage
	}
	nickname = strings.TrimSpace(nickname)
	if nickname == "" {
		nickname = DefaultNickname
	}
	msg := protocol.ChatMessage{Nickname: nickname, Body: body}

	res := make(chan error, 1)
	if !s.post(sendChatEvent{msg: msg, res: res}) {
		return protocol.ChatMessage{}, ErrSessionClosed
	}

	select {
	case err := <-res:
		if err != nil {
			return protocol.ChatMessage{}, err
		}
		return msg, nil
	case <-ctx.Done():
		return protocol.ChatMessage{}, ctx.Err()
	case <-s.ctx.Done():
		return protocol.ChatMessage{}, ErrSessionClosed
	}
}

func (s *Session) post(ev any) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.ctx.Done():
		return false
	}
}

// setState is called from the dispatch goroutine, or from Close once it has exited.
func (s *Session) setState(state ConnectionState, err error) {
	old := ConnectionState(s.state.Load())
	if old == state || old == StateClosed {
		return
	}
	s.state.Store(int32(state))

	s.logger.Debug("connection state changed", "from", old.String(), "to", state.String(), "error", err)
	if s.onStateChanged != nil {
		s.onStateChanged(StateEvent{OldState: old, NewState: state, Error: err})
	}
}

func (s *Session) connectLoop() {
	defer s.wg.Done()

	delay := s.cfg.ReconnectInterval
	for {
		s.post(connectingEvent{})

		t, err := s.dial(s.ctx)
		if err == nil {
			delay = s.cfg.ReconnectInterval
			err = s.serve(t)
		}
		if s.ctx.Err() != nil {
			return
		}

		s.post(disconnectedEvent{err: err})
		if errors.Is(err, ErrRoomNotFound) {
			return
		}

		s.logger.Info("reconnecting", "delay", delay.String(), "error", err)
		select {
		case <-time.After(delay):
		case <-s.ctx.Done():
			return
		}
		delay = min(delay*2, s.cfg.MaxReconnectDelay)
	}
}

func (s *Session) serve(t Transport) error {
	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	out := make(chan protocol.Output, s.cfg.OutboundQueueSize)
	s.post(connectedEvent{out: out})

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- s.writeLoop(ctx, t, out)
	}()

	err := s.readLoop(ctx, t)
	cancel()
	t.Close()
	if werr := <-writeErr; werr != nil && !errors.Is(err, ErrRoomNotFound) {
		err = werr
	}

	return err
}

func (s *Session) readLoop(ctx context.Context, t Transport) error {
	for {
		msg, err := t.Read(ctx)
		if err != nil {
			if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrTransportLost) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrTransportLost, err)
		}

		if !s.post(messageEvent{msg: msg}) {
			return ErrSessionClosed
		}
	}
}

func (s *Session) writeLoop(ctx context.Context, t Transport, out <-chan protocol.Output) error {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-out:
			if err := t.Write(ctx, msg); err != nil {
				t.Close()
				return err
			}
		case <-ticker.C:
			if err := t.Ping(ctx); err != nil {
				t.Close()
				return err
			}
		}
	}
}

func (s *Session) dispatch() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case connectingEvent:
		s.setState(StateConnecting, nil)
	case connectedEvent:
		s.out = ev.out
		s.setState(StateConnected, nil)
	case disconnectedEvent:
		s.out = nil
		if errors.Is(ev.err, ErrRoomNotFound) {
			s.mu.Lock()
			s.err = ev.err
			s.mu.Unlock()
			s.setState(StateClosed, ev.err)
			s.cancel()
			return
		}
		s.setState(StateDisconnected, ev.err)
	case messageEvent:
		s.handleMessage(ev.msg)
	case playerReadyEvent:
		s.handlePlayerReady()
	case playerStateEvent:
		s.handlePlayerState(ev.status)
	case disarmEvent:
		s.engine.Disarm(ev.generation)
	case loadPlayerEvent:
		s.loadPlayer(ev.videoId)
	case sendChatEvent:
		ev.res <- s.enqueue(protocol.TypeChatMessage, ev.msg)
	}
}

func (s *Session) handleMessage(msg protocol.Message) {
	log := s.logger.With("message_type", msg.Type)

	switch msg.Type {
	case protocol.TypeInitialState:
		var info protocol.RoomInfo
		if err := protocol.UnmarshalPayload(msg, &info); err != nil {
			log.Warn("failed to decode message", "error", err)
			return
		}
		s.setRoom(info)
		s.ensurePlayer(info.VideoID)
		s.armAfter(s.engine.HandleRemoteState(info.PlayerState, true))
	case protocol.TypeRoomInfoUpdate:
		var info protocol.RoomInfo
		if err := protocol.UnmarshalPayload(msg, &info); err != nil {
			log.Warn("failed to decode message", "error", err)
			return
		}
		s.setRoom(info)
	case protocol.TypePlayerState:
		var state protocol.PlayerState
		if err := protocol.UnmarshalPayload(msg, &state); err != nil {
			log.Warn("failed to decode message", "error", err)
			return
		}
		s.armAfter(s.engine.HandleRemoteState(state, false))
	case protocol.TypeChatMessage:
		var chat protocol.ChatMessage
		if err := protocol.UnmarshalPayload(msg, &chat); err != nil {
			log.Warn("failed to decode message", "error", err)
			return
		}
		if s.onChat != nil {
			s.onChat(chat)
		}
	case protocol.TypeError:
		var e protocol.Error
		if err := protocol.UnmarshalPayload(msg, &e); err != nil {
			log.Warn("failed to decode message", "error", err)
			return
		}
		log.Warn("relay rejected message", "code", e.Code, "message", e.Message)
	default:
		log.Debug("ignoring unknown message type")
	}
}

func (s *Session) setRoom(info protocol.RoomInfo) {
	s.mu.Lock()
	s.room = &info
	s.mu.Unlock()

	if s.onRoomInfo != nil {
		s.onRoomInfo(info)
	}
}

func (s *Session) ensurePlayer(videoId string) {
	if videoId == "" || videoId == s.videoId {
		return
	}
	s.videoId = videoId
	s.playerLoaded = false
	s.loadPlayer(videoId)
}

func (s *Session) loadPlayer(videoId string) {
	if videoId != s.videoId || s.playerLoaded {
		return
	}

	if err := s.player.LoadOrCreate(videoId); err != nil {
		if errors.Is(err, ErrPlayerBackendUnavailable) {
			s.logger.Debug("player backend unavailable, retrying", "video_id", videoId)
		} else {
			s.logger.Warn("failed to load player", "video_id", videoId, "error", err)
		}
		time.AfterFunc(s.cfg.ReadinessPollInterval, func() {
			s.post(loadPlayerEvent{videoId: videoId})
		})
		return
	}

	s.playerLoaded = true
}

func (s *Session) handlePlayerReady() {
	s.armAfter(s.engine.HandlePlayerReady())
	s.readyOnce.Do(func() {
		close(s.ready)
	})
}

func (s *Session) handlePlayerState(status protocol.Status) {
	state := s.engine.HandlePlayerStateChange(status)
	if state == nil {
		return
	}

	if err := s.enqueue(protocol.TypePlayerState, state); err != nil {
		s.logger.Debug("player state not published", "status", status.String(), "error", err)
	}
}

// armAfter schedules the end of the echo grace window.
func (s *Session) armAfter(generation uint64, armed bool) {
	if !armed {
		return
	}
	time.AfterFunc(s.cfg.EchoGrace, func() {
		s.post(disarmEvent{generation: generation})
	})
}

func (s *Session) enqueue(messageType string, payload any) error {
	if s.out == nil {
		return ErrNotConnected
	}

	select {
	case s.out <- protocol.Output{Type: messageType, Payload: payload}:
		return nil
	default:
		return ErrOutboundQueueFull
	}
}
