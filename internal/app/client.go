package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/sharetube/watchsync/internal/protocol"
	"github.com/sharetube/watchsync/internal/syncengine"
	"github.com/sharetube/watchsync/internal/syncengine/simplayer"
)

type ClientConfig struct {
	ServerURL      string        `json:"server_url"`
	RoomID         string        `json:"room_id"`
	VideoHint      string        `json:"video_hint"`
	Nickname       string        `json:"nickname"`
	LogLevel       string        `json:"log_level"`
	DriftThreshold float64       `json:"drift_threshold"`
	EchoGrace      time.Duration `json:"echo_grace"`
}

func (cfg *ClientConfig) Validate() error {
	if cfg.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if cfg.RoomID == "" {
		return fmt.Errorf("room id is required")
	}
	if cfg.DriftThreshold <= 0 {
		return fmt.Errorf("drift threshold must be greater than 0")
	}
	if cfg.EchoGrace <= 0 {
		return fmt.Errorf("echo grace must be greater than 0")
	}
	if _, err := parseLogLevel(cfg.LogLevel); err != nil {
		return err
	}
	return nil
}

var errQuit = errors.New("quit")

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (w *lockedWriter) printf(format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintf(w.w, format, args...)
}

// RunClient joins a room with a simulated player and drives it from the lines read
// from in: /play, /pause, /seek <seconds>, /status and /quit control the player,
// anything else is sent as chat. Room events are written to out.
func RunClient(ctx context.Context, cfg *ClientConfig, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	level, _ := parseLogLevel(cfg.LogLevel)
	logger := newLogger(os.Stderr, level).With("room_id", cfg.RoomID)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	player := simplayer.New()
	defer player.Close()

	tcfg := syncengine.DefaultTransportConfig()
	tcfg.ServerURL = cfg.ServerURL
	tcfg.RoomID = cfg.RoomID
	tcfg.VideoHint = cfg.VideoHint

	scfg := syncengine.DefaultConfig()
	scfg.DriftThreshold = cfg.DriftThreshold
	scfg.EchoGrace = cfg.EchoGrace
	scfg.Logger = logger

	session := syncengine.NewSession(player, syncengine.NewDialer(tcfg), scfg)
	player.SetHandlers(session.NotifyPlayerReady, session.NotifyPlayerStateChange)

	w := &lockedWriter{w: out}
	session.OnChat(func(msg protocol.ChatMessage) {
		w.printf("<%s> %s\n", msg.Nickname, msg.Body)
	})
	session.OnRoomInfo(func(info protocol.RoomInfo) {
		w.printf("* room %s: %s (%s)\n", info.RoomID, info.VideoTitle, info.VideoID)
		for _, icebreaker := range info.Icebreakers {
			w.printf("* icebreaker: %s\n", icebreaker)
		}
	})
	session.OnStateChanged(func(ev syncengine.StateEvent) {
		logger.Info("connection state changed", "from", ev.OldState.String(), "to", ev.NewState.String(), "error", ev.Error)
	})

	session.Start()
	defer session.Close()

	go func() {
		if err := session.WaitPlayerReady(ctx); err == nil {
			w.printf("* player ready\n")
		}
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-session.Done():
			return session.Err()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := handleCommand(ctx, session, player, cfg.Nickname, line, w)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				w.printf("! %v\n", err)
			}
		}
	}
}

func handleCommand(ctx context.Context, session *syncengine.Session, player *simplayer.Player, nickname, line string, w *lockedWriter) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	fields := strings.Fields(line)
	switch fields[0] {
	case "/quit":
		return errQuit
	case "/play":
		player.Play()
	case "/pause":
		player.Pause()
	case "/seek":
		if len(fields) != 2 {
			return fmt.Errorf("usage: /seek <seconds>")
		}
		position, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || position < 0 {
			return fmt.Errorf("invalid position %q", fields[1])
		}
		player.SeekTo(position, true)
	case "/status":
		w.printf("* %s at %.1fs, %s\n", player.State(), player.CurrentTime(), session.State())
	default:
		if strings.HasPrefix(line, "/") {
			return fmt.Errorf("unknown command %s", fields[0])
		}
		if _, err := session.SendChat(ctx, nickname, line); err != nil {
			return fmt.Errorf("send chat: %w", err)
		}
	}

	return nil
}
